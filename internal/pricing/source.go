package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Source fetches a complete Quote or fails with a *FetchError.
type Source interface {
	Fetch(ctx context.Context) (Quote, error)
}

// FetchKind classifies why a fetch failed.
type FetchKind string

const (
	KindNetwork FetchKind = "network"
	KindStatus  FetchKind = "status"
	KindPayload FetchKind = "payload"
	KindParse   FetchKind = "parse"
)

// FetchError reports that no quote is available right now.
type FetchError struct {
	Source string
	Kind   FetchKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("pricing: %s fetch failed (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Code is logged as err_code by the handler summary.
func (e *FetchError) Code() string {
	return "PRICE_FETCH_" + strings.ToUpper(string(e.Kind))
}

// IsFetchError reports whether err carries a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

func fetchErr(source string, kind FetchKind, format string, args ...any) *FetchError {
	return &FetchError{Source: source, Kind: kind, Err: fmt.Errorf(format, args...)}
}
