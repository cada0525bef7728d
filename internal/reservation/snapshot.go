package reservation

import (
	"time"

	"github.com/iliyamo/intercity-reservation/internal/model"
	"github.com/iliyamo/intercity-reservation/internal/pricing"
	"github.com/iliyamo/intercity-reservation/internal/seatmap"
)

// Snapshot is an immutable view of a reservation session.  Every
// dispatch returns a fresh snapshot; callers may keep old ones around
// without them changing underneath.
type Snapshot struct {
	Step             model.Step
	Draft            model.Draft
	Quote            pricing.Quote
	ValidationErrors map[string]string
	IsSubmitting     bool
	SubmitError      string

	seats *seatmap.Store
}

// SeatMap returns the seat availability of the selected departure.
func (s Snapshot) SeatMap() []model.Seat {
	if s.seats == nil {
		return nil
	}
	return s.seats.Seats()
}

// Holds returns the active seat holds.
func (s Snapshot) Holds() []model.Hold {
	if s.seats == nil {
		return nil
	}
	return s.seats.Holds()
}

// HoldExpiresAt returns the earliest hold deadline.
func (s Snapshot) HoldExpiresAt() (time.Time, bool) {
	if s.seats == nil {
		return time.Time{}, false
	}
	return s.seats.NextExpiry()
}

// Active reports whether the session can still progress towards a
// confirmation.
func (s Snapshot) Active() bool {
	return s.Step != model.StepCancelled && s.Step != model.StepConfirmed
}

// Record returns the persisted form of the snapshot.
func (s Snapshot) Record(now time.Time) model.Record {
	return model.Record{
		Step:    s.Step,
		Draft:   s.Draft.Clone(),
		SeatMap: s.SeatMap(),
		Holds:   s.Holds(),
		SavedAt: now,
	}
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Draft = s.Draft.Clone()
	out.ValidationErrors = copyErrors(s.ValidationErrors)
	if s.seats != nil {
		out.seats = s.seats.Clone()
	}
	return out
}

func copyErrors(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
