package reservation

import (
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/intercity-reservation/internal/model"
	"github.com/iliyamo/intercity-reservation/internal/validation"
)

// errKeySubmission is the ValidationErrors key used while a submission
// is in flight.
const errKeySubmission = "submission"

// reduce computes the snapshot that follows s under e.  The returned
// bool reports whether persisted state changed.  s itself is never
// mutated: every branch that changes something works on s.clone().
func (m *Machine) reduce(s Snapshot, e Event) (Snapshot, bool) {
	now := m.opts.Now()
	if s.IsSubmitting {
		switch ev := e.(type) {
		case submitSucceeded:
			next := s.clone()
			m.confirm(&next, ev.ConfirmationID)
			return next, true
		case submitFailed:
			next := s.clone()
			next.IsSubmitting = false
			next.SubmitError = ev.Message
			return next, false
		case ExpireHolds:
			// the sweeper tries again on its next tick
			return s, false
		default:
			return reject(s, map[string]string{errKeySubmission: "a submission is in progress"}), false
		}
	}

	if guarded(s, e) {
		if lapsed, ok := m.lapse(s, now); ok {
			return lapsed, true
		}
	}

	switch ev := e.(type) {
	case SelectRoute:
		return m.selectRoute(s, ev)
	case SelectSchedule:
		return m.selectSchedule(s, ev)
	case SelectSeat:
		return m.selectSeat(s, ev, now)
	case DeselectSeat:
		return m.deselectSeat(s, ev)
	case SetDateRange:
		return m.setDateRange(s, ev)
	case SetPassenger:
		return m.setPassenger(s, ev, now)
	case SetPayment:
		return m.setPayment(s, ev, now)
	case Next:
		return m.next(s, now)
	case Prev:
		return m.prev(s)
	case Goto:
		return m.gotoStep(s, ev, now)
	case Confirm:
		return m.confirmLocal(s, now)
	case Cancel:
		return m.cancel(s)
	case Reset:
		return m.initial(), true
	case ExpireHolds:
		return m.expireHolds(s, ev, now)
	case submitStarted:
		next := s.clone()
		next.IsSubmitting = true
		next.SubmitError = ""
		next.ValidationErrors = nil
		return next, false
	}
	return s, false
}

// guarded reports whether e evaluates step guards.  Lapsed holds are
// released before such events so no guard counts a seat whose hold is
// gone.
func guarded(s Snapshot, e Event) bool {
	switch ev := e.(type) {
	case Next, Confirm, SetPassenger:
		return true
	case Goto:
		return s.Step == model.StepCancelled || ev.Step.Index() > s.Step.Index()
	}
	return false
}

// lapse releases every hold expired at now.  The bool reports whether a
// seat left the draft, in which case the triggering event is refused.
func (m *Machine) lapse(s Snapshot, now time.Time) (Snapshot, bool) {
	return m.expireHolds(s, ExpireHolds{Now: now}, now)
}

// refuseConfirmStep answers Next from payment and Goto onto confirmed.
// Only Confirm and Submit may finish a reservation.
func refuseConfirmStep(s Snapshot, now time.Time) Snapshot {
	if errs := checkRange(s.Draft, s.Step.Index(), model.StepConfirmed.Index(), now); errs != nil {
		return reject(s, errs)
	}
	return reject(s, map[string]string{"step": "confirm or submit the reservation to finish"})
}

// reject returns s with errs as its validation errors.  Nothing else
// changes, so sharing s's draft and seat store is safe.
func reject(s Snapshot, errs map[string]string) Snapshot {
	s.ValidationErrors = copyErrors(errs)
	return s
}

func (m *Machine) selectRoute(s Snapshot, ev SelectRoute) (Snapshot, bool) {
	next := s.clone()
	if !s.Active() {
		next = m.initial()
	}
	route := ev.Route
	next.Draft.Route = &route
	next.Draft.Schedule = nil
	next.Draft.Seats = []model.Seat{}
	next.Draft.DateRange = nil
	next.Draft.ConfirmationID = ""
	next.seats = m.newStore(nil)
	next.Step = model.StepSelectingDatetime
	next.ValidationErrors = nil
	next.SubmitError = ""
	m.reprice(&next)
	return next, true
}

func (m *Machine) selectSchedule(s Snapshot, ev SelectSchedule) (Snapshot, bool) {
	if !s.Active() {
		return s, false
	}
	if s.Draft.Route == nil {
		return reject(s, map[string]string{"route": "select a route first"}), false
	}
	if ev.Schedule.RouteID != 0 && ev.Schedule.RouteID != s.Draft.Route.ID {
		return reject(s, map[string]string{"schedule": "departure does not belong to the selected route"}), false
	}
	next := s.clone()
	sched := ev.Schedule
	if s.Draft.Schedule == nil || s.Draft.Schedule.ID != sched.ID {
		next.seats = m.newStore(ev.Seats)
		next.Draft.Seats = []model.Seat{}
	} else {
		for _, seat := range ev.Seats {
			next.seats.Ensure(seat)
		}
	}
	next.Draft.Schedule = &sched
	next.Step = model.StepPassengerDetails
	next.ValidationErrors = nil
	m.reprice(&next)
	return next, true
}

func (m *Machine) selectSeat(s Snapshot, ev SelectSeat, now time.Time) (Snapshot, bool) {
	if !s.Active() || ev.Seat.ID == "" || s.Draft.HasSeat(ev.Seat.ID) {
		return s, false
	}
	if s.Draft.DateRange != nil {
		return reject(s, map[string]string{"seats": "clear the date range before selecting seats"}), false
	}
	next := s.clone()
	next.seats.Ensure(ev.Seat)
	seat, ok := next.seats.Select(ev.Seat.ID, now)
	if !ok {
		// booked and disabled seats are refused silently
		return s, false
	}
	next.Draft.Seats = append(next.Draft.Seats, seat)
	delete(next.ValidationErrors, "seats")
	m.reprice(&next)
	return next, true
}

func (m *Machine) deselectSeat(s Snapshot, ev DeselectSeat) (Snapshot, bool) {
	if !s.Active() || !s.Draft.HasSeat(ev.SeatID) {
		return s, false
	}
	next := s.clone()
	next.seats.Release(ev.SeatID)
	next.Draft.Seats = withoutSeats(next.Draft.Seats, ev.SeatID)
	m.reprice(&next)
	return next, true
}

func (m *Machine) setDateRange(s Snapshot, ev SetDateRange) (Snapshot, bool) {
	if !s.Active() {
		return s, false
	}
	next := s.clone()
	if ev.Range == nil {
		if s.Draft.DateRange == nil {
			return s, false
		}
		next.Draft.DateRange = nil
		m.reprice(&next)
		return next, true
	}
	if len(s.Draft.Seats) > 0 {
		return reject(s, map[string]string{"date_range": "deselect seats before choosing a date range"}), false
	}
	r := *ev.Range
	next.Draft.DateRange = &r
	delete(next.ValidationErrors, "date_range")
	delete(next.ValidationErrors, "seats")
	m.reprice(&next)
	return next, true
}

func (m *Machine) setPassenger(s Snapshot, ev SetPassenger, now time.Time) (Snapshot, bool) {
	if !s.Active() {
		return s, false
	}
	next := s.clone()
	p := ev.Passenger
	next.Draft.Passenger = &p
	if errs := PassengerGuard(next.Draft, now); errs != nil {
		next.ValidationErrors = errs
		return next, true
	}
	next.ValidationErrors = nil
	from, target := s.Step.Index(), model.StepPayment.Index()
	if from >= target {
		return next, true
	}
	if errs := checkRange(next.Draft, from, target, now); errs != nil {
		next.ValidationErrors = errs
		return next, true
	}
	next.Step = model.StepPayment
	return next, true
}

func (m *Machine) setPayment(s Snapshot, ev SetPayment, now time.Time) (Snapshot, bool) {
	if !s.Active() {
		return s, false
	}
	next := s.clone()
	res := validation.ValidatePaymentDetails(&ev.Payment, now)
	if res.Success {
		next.Draft.Payment = res.Data
		next.ValidationErrors = nil
	} else {
		next.Draft.Payment = ev.Payment.Clone()
		next.ValidationErrors = res.Errors
	}
	next.SubmitError = ""
	m.reprice(&next)
	return next, true
}

func (m *Machine) next(s Snapshot, now time.Time) (Snapshot, bool) {
	if !s.Active() {
		return s, false
	}
	// leaving payment happens through Confirm or Submit only
	if s.Step == model.StepPayment {
		return refuseConfirmStep(s, now), false
	}
	if g := GuardFor(s.Step); g != nil {
		if errs := g(s.Draft, now); errs != nil {
			return reject(s, errs), false
		}
	}
	next := s.clone()
	next.Step = model.StepAt(s.Step.Index() + 1)
	next.ValidationErrors = nil
	return next, true
}

func (m *Machine) prev(s Snapshot) (Snapshot, bool) {
	idx := s.Step.Index()
	if !s.Active() || idx <= 0 {
		return s, false
	}
	next := s.clone()
	next.Step = model.StepAt(idx - 1)
	next.ValidationErrors = nil
	return next, true
}

func (m *Machine) gotoStep(s Snapshot, ev Goto, now time.Time) (Snapshot, bool) {
	target := ev.Step.Index()
	if s.Step == model.StepConfirmed {
		return s, false
	}
	if target < 0 {
		return reject(s, map[string]string{"step": "unknown step"}), false
	}
	if ev.Step == model.StepConfirmed {
		return refuseConfirmStep(s, now), false
	}
	from := s.Step.Index()
	if s.Step != model.StepCancelled && target <= from {
		if target == from {
			return s, false
		}
		next := s.clone()
		next.Step = ev.Step
		next.ValidationErrors = nil
		return next, true
	}
	// a cancelled session resumes by proving every step from the start
	if errs := checkRange(s.Draft, from, target, now); errs != nil {
		return reject(s, errs), false
	}
	next := s.clone()
	next.Step = ev.Step
	next.ValidationErrors = nil
	return next, true
}

func (m *Machine) confirmLocal(s Snapshot, now time.Time) (Snapshot, bool) {
	if s.Step != model.StepPayment {
		return s, false
	}
	if errs := checkRange(s.Draft, 0, model.StepConfirmed.Index(), now); errs != nil {
		return reject(s, errs), false
	}
	next := s.clone()
	m.confirm(&next, m.opts.NewID(now))
	return next, true
}

// confirm moves next into the terminal confirmed state.
func (m *Machine) confirm(next *Snapshot, id string) {
	next.Draft.ConfirmationID = id
	next.Step = model.StepConfirmed
	next.ValidationErrors = nil
	next.IsSubmitting = false
	next.SubmitError = ""
	next.seats.Commit()
}

func (m *Machine) cancel(s Snapshot) (Snapshot, bool) {
	if !s.Active() {
		return s, false
	}
	next := s.clone()
	next.Step = model.StepCancelled
	next.ValidationErrors = nil
	return next, true
}

func (m *Machine) expireHolds(s Snapshot, ev ExpireHolds, now time.Time) (Snapshot, bool) {
	if s.Step == model.StepConfirmed {
		return s, false
	}
	at := ev.Now
	if at.IsZero() {
		at = now
	}
	next := s.clone()
	released := next.seats.Expire(at)
	if len(released) == 0 {
		return s, false
	}
	next.Draft.Seats = withoutSeats(next.Draft.Seats, released...)
	if next.ValidationErrors == nil {
		next.ValidationErrors = map[string]string{}
	}
	next.ValidationErrors["seats"] = expiredNotice(released)
	m.reprice(&next)
	return next, true
}

func expiredNotice(released []string) string {
	ids := append([]string(nil), released...)
	sort.Strings(ids)
	return "seat hold expired: " + strings.Join(ids, ", ")
}

// withoutSeats filters ids out of seats, reusing the backing array.
func withoutSeats(seats []model.Seat, ids ...string) []model.Seat {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := seats[:0]
	for _, seat := range seats {
		if _, ok := drop[seat.ID]; !ok {
			out = append(out, seat)
		}
	}
	return out
}
