package reservation

import (
	"time"

	"github.com/iliyamo/intercity-reservation/internal/model"
	"github.com/iliyamo/intercity-reservation/internal/validation"
)

// Guard reports whether the draft satisfies the requirements of one
// step.  It returns nil when the step is complete and a field→message
// map otherwise.
type Guard func(d model.Draft, now time.Time) map[string]string

// RouteGuard requires a selected route.
func RouteGuard(d model.Draft, _ time.Time) map[string]string {
	if d.Route == nil {
		return map[string]string{"route": "select a route"}
	}
	return nil
}

// ScheduleGuard requires a departure and at least one seat, or a date
// range of at least one day that does not start in the past.
func ScheduleGuard(d model.Draft, now time.Time) map[string]string {
	errs := map[string]string{}
	if d.Schedule == nil {
		errs["schedule"] = "select a departure"
	}
	if d.DateRange != nil {
		if d.DateRange.Days() < 1 {
			errs["date_range"] = "the date range must cover at least one day"
		} else if startOfDay(d.DateRange.Start).Before(startOfDay(now)) {
			errs["date_range"] = "the date range cannot start in the past"
		}
	} else if len(d.Seats) == 0 {
		errs["seats"] = "select at least one seat"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// PassengerGuard requires complete passenger details.
func PassengerGuard(d model.Draft, _ time.Time) map[string]string {
	return validation.ValidatePassenger(d.Passenger)
}

// PaymentGuard requires a payment whose shape matches its method and
// whose fields pass that method's rules.
func PaymentGuard(d model.Draft, now time.Time) map[string]string {
	res := validation.ValidatePaymentDetails(d.Payment, now)
	if res.Success {
		return nil
	}
	return res.Errors
}

// GuardFor returns the guard that must pass before leaving step.  Steps
// without requirements return nil.
func GuardFor(step model.Step) Guard {
	switch step {
	case model.StepSelectingRoute:
		return RouteGuard
	case model.StepSelectingDatetime:
		return ScheduleGuard
	case model.StepPassengerDetails:
		return PassengerGuard
	case model.StepPayment:
		return PaymentGuard
	}
	return nil
}

// checkRange runs the guards of every step in [from, to) and returns the
// errors of the first one that fails.
func checkRange(d model.Draft, from, to int, now time.Time) map[string]string {
	if from < 0 {
		from = 0
	}
	for i := from; i < to; i++ {
		g := GuardFor(model.StepAt(i))
		if g == nil {
			continue
		}
		if errs := g(d, now); errs != nil {
			return errs
		}
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
