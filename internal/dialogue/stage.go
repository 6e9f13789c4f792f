// Package dialogue drives the guided profit calculation: grade, unit,
// quantity and total, one input per step.
package dialogue

import (
	"github.com/shopspring/decimal"

	"github.com/m3rciful/goldbot/internal/pricing"
	"github.com/m3rciful/goldbot/internal/profit"
)

// Stage is one step of the dialogue. The set of stages is closed.
type Stage interface {
	Name() string
	stage()
}

// AwaitingGrade waits for the gold grade.
type AwaitingGrade struct{}

// AwaitingUnit waits for the mass unit.
type AwaitingUnit struct {
	Grade pricing.Grade
}

// AwaitingQuantity waits for how many units were bought.
type AwaitingQuantity struct {
	Grade pricing.Grade
	Unit  pricing.Unit
}

// AwaitingTotal waits for the total amount paid.
type AwaitingTotal struct {
	Grade    pricing.Grade
	Unit     pricing.Unit
	Quantity decimal.Decimal
}

// Complete carries the finished purchase. It is never stored.
type Complete struct {
	Record profit.PurchaseRecord
}

// Cancelled marks a session the user abandoned. It is never stored.
type Cancelled struct{}

const (
	stageGrade     = "awaiting_grade"
	stageUnit      = "awaiting_unit"
	stageQuantity  = "awaiting_quantity"
	stageTotal     = "awaiting_total"
	stageComplete  = "complete"
	stageCancelled = "cancelled"
)

func (AwaitingGrade) Name() string    { return stageGrade }
func (AwaitingUnit) Name() string     { return stageUnit }
func (AwaitingQuantity) Name() string { return stageQuantity }
func (AwaitingTotal) Name() string    { return stageTotal }
func (Complete) Name() string         { return stageComplete }
func (Cancelled) Name() string        { return stageCancelled }

func (AwaitingGrade) stage()    {}
func (AwaitingUnit) stage()     {}
func (AwaitingQuantity) stage() {}
func (AwaitingTotal) stage()    {}
func (Complete) stage()         {}
func (Cancelled) stage()        {}

// Terminal reports whether st ends the dialogue.
func Terminal(st Stage) bool {
	switch st.(type) {
	case Complete, Cancelled:
		return true
	}
	return false
}
