package dialogue

import (
	"errors"
	"fmt"
)

// Reason explains why an input was rejected.
type Reason string

func (r Reason) Error() string { return string(r) }

const (
	ReasonUnknownGrade       Reason = "unknown grade"
	ReasonUnknownUnit        Reason = "unknown unit"
	ReasonNotNumber          Reason = "not a number"
	ReasonNotPositive        Reason = "must be greater than zero"
	ReasonMultipleSeparators Reason = "more than one decimal separator"
	ReasonWrongStage         Reason = "choice does not match the current step"
	ReasonTooPrecise         Reason = "too many decimal places"
	ReasonTooLarge           Reason = "too large"
)

// InputError rejects one input; the session stays where it was.
type InputError struct {
	Stage  string
	Reason Reason
	Input  string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("dialogue: %s at %s: %q", e.Reason, e.Stage, e.Input)
}

func (e *InputError) Unwrap() error { return e.Reason }

// Code is logged as err_code by the handler summary.
func (e *InputError) Code() string { return "DIALOGUE_INPUT" }

// StorageError means a session or record could not be read or written.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("dialogue: storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Code is logged as err_code by the handler summary.
func (e *StorageError) Code() string { return "DIALOGUE_STORAGE" }

// ErrTerminal is returned by Step when the session already ended.
var ErrTerminal = errors.New("dialogue: session already finished")

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func reasonOf(err error) Reason {
	var r Reason
	if errors.As(err, &r) {
		return r
	}
	return ReasonNotNumber
}
