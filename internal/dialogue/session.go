package dialogue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/goldbot/internal/pricing"
	"github.com/m3rciful/goldbot/internal/profit"
)

// Session is one user's dialogue in progress.
type Session struct {
	UserID    int64
	Stage     Stage
	StartedAt time.Time
	UpdatedAt time.Time
}

// Start opens a fresh session at AwaitingGrade.
func Start(userID int64, now time.Time) Session {
	return Session{UserID: userID, Stage: AwaitingGrade{}, StartedAt: now, UpdatedAt: now}
}

// Cancel moves any non-terminal session to Cancelled.
func Cancel(s Session, now time.Time) Session {
	if !Terminal(s.Stage) {
		s.Stage = Cancelled{}
		s.UpdatedAt = now
	}
	return s
}

// Step applies one user input. On *InputError the returned session is s unchanged.
func Step(cat pricing.Catalog, s Session, input string, now time.Time) (Session, error) {
	reject := func(r Reason) (Session, error) {
		return s, &InputError{Stage: s.Stage.Name(), Reason: r, Input: input}
	}

	var next Stage
	switch st := s.Stage.(type) {
	case AwaitingGrade:
		g, ok := cat.Grade(input)
		if !ok {
			return reject(ReasonUnknownGrade)
		}
		next = AwaitingUnit{Grade: g}
	case AwaitingUnit:
		u, ok := cat.Unit(input)
		if !ok {
			return reject(ReasonUnknownUnit)
		}
		next = AwaitingQuantity{Grade: st.Grade, Unit: u}
	case AwaitingQuantity:
		qty, err := ParseAmount(input)
		if err != nil {
			return reject(reasonOf(err))
		}
		next = AwaitingTotal{Grade: st.Grade, Unit: st.Unit, Quantity: qty}
	case AwaitingTotal:
		total, err := ParseAmount(input)
		if err != nil {
			return reject(reasonOf(err))
		}
		next = Complete{Record: profit.PurchaseRecord{
			UserID:    s.UserID,
			Grade:     st.Grade.ID,
			Unit:      st.Unit.ID,
			Quantity:  st.Quantity,
			Total:     total,
			CreatedAt: now,
		}}
	case Complete, Cancelled:
		return s, ErrTerminal
	default:
		return s, fmt.Errorf("dialogue: unknown stage %T", s.Stage)
	}

	s.Stage = next
	s.UpdatedAt = now
	return s, nil
}

// Stale reports whether the session sat idle longer than after. after <= 0 never expires.
func (s Session) Stale(now time.Time, after time.Duration) bool {
	return after > 0 && now.Sub(s.UpdatedAt) > after
}

type sessionJSON struct {
	UserID    int64     `json:"user_id"`
	Stage     string    `json:"stage"`
	Grade     string    `json:"grade,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Quantity  string    `json:"quantity,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarshalJSON encodes the stage by name with grade and unit ids.
func (s Session) MarshalJSON() ([]byte, error) {
	out := sessionJSON{UserID: s.UserID, StartedAt: s.StartedAt, UpdatedAt: s.UpdatedAt}
	switch st := s.Stage.(type) {
	case AwaitingGrade:
	case AwaitingUnit:
		out.Grade = st.Grade.ID
	case AwaitingQuantity:
		out.Grade, out.Unit = st.Grade.ID, st.Unit.ID
	case AwaitingTotal:
		out.Grade, out.Unit, out.Quantity = st.Grade.ID, st.Unit.ID, st.Quantity.String()
	default:
		return nil, fmt.Errorf("dialogue: cannot store stage %T", s.Stage)
	}
	out.Stage = s.Stage.Name()
	return json.Marshal(out)
}

// DecodeSession restores a stored session, resolving ids against cat. A grade
// or unit missing from cat means the catalog changed under the session.
func DecodeSession(cat pricing.Catalog, data []byte) (Session, error) {
	var in sessionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return Session{}, fmt.Errorf("dialogue: decode session: %w", err)
	}
	s := Session{UserID: in.UserID, StartedAt: in.StartedAt, UpdatedAt: in.UpdatedAt}

	var (
		g   pricing.Grade
		u   pricing.Unit
		qty decimal.Decimal
		ok  bool
		err error
	)
	needGrade := in.Stage == stageUnit || in.Stage == stageQuantity || in.Stage == stageTotal
	needUnit := in.Stage == stageQuantity || in.Stage == stageTotal
	if needGrade {
		if g, ok = cat.Grade(in.Grade); !ok {
			return Session{}, fmt.Errorf("dialogue: stored grade %q not in catalog", in.Grade)
		}
	}
	if needUnit {
		if u, ok = cat.Unit(in.Unit); !ok {
			return Session{}, fmt.Errorf("dialogue: stored unit %q not in catalog", in.Unit)
		}
	}
	if in.Stage == stageTotal {
		if qty, err = decimal.NewFromString(in.Quantity); err != nil {
			return Session{}, fmt.Errorf("dialogue: stored quantity: %w", err)
		}
	}

	switch in.Stage {
	case stageGrade:
		s.Stage = AwaitingGrade{}
	case stageUnit:
		s.Stage = AwaitingUnit{Grade: g}
	case stageQuantity:
		s.Stage = AwaitingQuantity{Grade: g, Unit: u}
	case stageTotal:
		s.Stage = AwaitingTotal{Grade: g, Unit: u, Quantity: qty}
	default:
		return Session{}, fmt.Errorf("dialogue: unknown stored stage %q", in.Stage)
	}
	return s, nil
}
