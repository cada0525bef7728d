package model

// Step is a position in the reservation flow.
type Step string

const (
	StepIdle              Step = "idle"
	StepSelectingRoute    Step = "selecting-route"
	StepSelectingDatetime Step = "selecting-datetime"
	StepPassengerDetails  Step = "passenger-details"
	StepPayment           Step = "payment"
	StepConfirmed         Step = "confirmed"
	StepCancelled         Step = "cancelled"
)

// stepOrder ranks the linear steps.  Cancelled sits outside the order.
var stepOrder = []Step{
	StepIdle,
	StepSelectingRoute,
	StepSelectingDatetime,
	StepPassengerDetails,
	StepPayment,
	StepConfirmed,
}

// Index returns the position of s in the flow, or -1 for cancelled and
// unknown steps.
func (s Step) Index() int {
	for i, st := range stepOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s names a known step.
func (s Step) Valid() bool {
	return s.Index() >= 0 || s == StepCancelled
}

// StepAt returns the step at position i, clamped to the linear order.
func StepAt(i int) Step {
	if i < 0 {
		i = 0
	}
	if i >= len(stepOrder) {
		i = len(stepOrder) - 1
	}
	return stepOrder[i]
}
