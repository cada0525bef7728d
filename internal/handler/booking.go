package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intercity-reservation/internal/middleware"
	"github.com/iliyamo/intercity-reservation/internal/model"
	"github.com/iliyamo/intercity-reservation/internal/pricing"
	"github.com/iliyamo/intercity-reservation/internal/reservation"
)

// dateLayout is the wire format of date-range bounds.
const dateLayout = "2006-01-02"

// eventError is a request the handler could not turn into an event.
type eventError string

func (e eventError) Error() string { return string(e) }

// SeatMapPurger drops cached seat maps once seats were sold.
// *middleware.ResponseCache implements it.
type SeatMapPurger interface {
	Purge(ctx context.Context, path string)
}

// BookingHandler drives the authenticated customer's reservation
// session.  Every customer owns exactly one machine in Machines.
type BookingHandler struct {
	Catalog  Catalog
	Machines *reservation.Registry
	Cache    SeatMapPurger
}

// EventRequest is the body of POST /v1/booking/events.  Type selects the
// event; only the fields that event needs are read.  Routes, departures
// and seats are referenced by id and resolved server-side so prices
// never come from the client.
type EventRequest struct {
	Type       string           `json:"type"`
	RouteID    uint64           `json:"route_id"`
	ScheduleID uint64           `json:"schedule_id"`
	SeatID     string           `json:"seat_id"`
	Range      *DateRangeInput  `json:"range"`
	Passenger  *model.Passenger `json:"passenger"`
	Payment    *model.Payment   `json:"payment"`
	Step       string           `json:"step"`
}

// DateRangeInput carries YYYY-MM-DD bounds.
type DateRangeInput struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BookingView is the JSON rendering of a reservation snapshot.  Card
// numbers are masked and the CVV is never echoed back.
type BookingView struct {
	Step             model.Step        `json:"step"`
	Draft            model.Draft       `json:"draft"`
	Quote            pricing.Quote     `json:"quote"`
	ValidationErrors map[string]string `json:"validation_errors,omitempty"`
	IsSubmitting     bool              `json:"is_submitting"`
	SubmitError      string            `json:"submit_error,omitempty"`
	SeatMap          []model.Seat      `json:"seat_map"`
	Holds            []model.Hold      `json:"holds"`
	HoldExpiresAt    *time.Time        `json:"hold_expires_at,omitempty"`
}

// NewBookingView renders s.
func NewBookingView(s reservation.Snapshot) BookingView {
	v := BookingView{
		Step:             s.Step,
		Draft:            s.Draft.Clone(),
		Quote:            s.Quote,
		ValidationErrors: s.ValidationErrors,
		IsSubmitting:     s.IsSubmitting,
		SubmitError:      s.SubmitError,
		SeatMap:          s.SeatMap(),
		Holds:            s.Holds(),
	}
	if v.SeatMap == nil {
		v.SeatMap = []model.Seat{}
	}
	if v.Holds == nil {
		v.Holds = []model.Hold{}
	}
	if at, ok := s.HoldExpiresAt(); ok {
		v.HoldExpiresAt = &at
	}
	if p := v.Draft.Payment; p != nil && p.Card != nil {
		p.Card.Number = maskCard(p.Card.Number)
		p.Card.CVV = ""
	}
	return v
}

func maskCard(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// machine returns the caller's session.  JWTAuth guarantees a user id on
// every route this handler serves.
func (h *BookingHandler) machine(c echo.Context) (*reservation.Machine, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return nil, false
	}
	return h.Machines.Get(strconv.FormatUint(uid, 10)), true
}

// Get handles GET /v1/booking and returns the current snapshot.
func (h *BookingHandler) Get(c echo.Context) error {
	m, ok := h.machine(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, NewBookingView(m.Snapshot()))
}

// Dispatch handles POST /v1/booking/events.  Rejected transitions still
// answer 200: the snapshot's validation_errors say what was wrong.
func (h *BookingHandler) Dispatch(c echo.Context) error {
	m, ok := h.machine(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req EventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()

	switch strings.ToUpper(req.Type) {
	case "CONFIRM":
		return h.submit(c, m)
	case "EXPIRE_HOLDS":
		snap, _ := m.ExpireHolds(ctx)
		return c.JSON(http.StatusOK, NewBookingView(snap))
	}

	ev, err := h.resolve(ctx, m, req)
	if err != nil {
		var bad eventError
		if errors.As(err, &bad) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": string(bad)})
		}
		return catalogError(c, err)
	}
	if ev == nil {
		return c.JSON(http.StatusOK, NewBookingView(m.Snapshot()))
	}
	return c.JSON(http.StatusOK, NewBookingView(m.DispatchContext(ctx, ev)))
}

// resolve turns req into an event.  A nil event with a nil error means
// the request is a no-op, e.g. selecting a seat that is not on the map.
func (h *BookingHandler) resolve(ctx context.Context, m *reservation.Machine, req EventRequest) (reservation.Event, error) {
	switch strings.ToUpper(req.Type) {
	case "SELECT_ROUTE":
		rt, err := h.Catalog.GetRoute(ctx, req.RouteID)
		if err != nil {
			return nil, err
		}
		return reservation.SelectRoute{Route: *rt}, nil
	case "SELECT_SCHEDULE":
		sched, err := h.Catalog.GetSchedule(ctx, req.ScheduleID)
		if err != nil {
			return nil, err
		}
		seats, err := h.Catalog.ListSeats(ctx, sched.ID)
		if err != nil {
			return nil, err
		}
		return reservation.SelectSchedule{Schedule: *sched, Seats: seats}, nil
	case "SELECT_SEAT":
		for _, seat := range m.Snapshot().SeatMap() {
			if seat.ID == req.SeatID {
				return reservation.SelectSeat{Seat: seat}, nil
			}
		}
		return nil, nil
	case "DESELECT_SEAT":
		return reservation.DeselectSeat{SeatID: req.SeatID}, nil
	case "SET_DATE_RANGE":
		if req.Range == nil {
			return reservation.SetDateRange{}, nil
		}
		start, err1 := time.Parse(dateLayout, req.Range.Start)
		end, err2 := time.Parse(dateLayout, req.Range.End)
		if err1 != nil || err2 != nil {
			return nil, eventError("range dates must be YYYY-MM-DD")
		}
		return reservation.SetDateRange{Range: &model.DateRange{Start: start, End: end}}, nil
	case "SET_PASSENGER":
		if req.Passenger == nil {
			return nil, eventError("passenger is required")
		}
		return reservation.SetPassenger{Passenger: *req.Passenger}, nil
	case "SET_PAYMENT":
		if req.Payment == nil {
			return nil, eventError("payment is required")
		}
		return reservation.SetPayment{Payment: *req.Payment}, nil
	case "NEXT":
		return reservation.Next{}, nil
	case "PREV":
		return reservation.Prev{}, nil
	case "GOTO":
		step := model.Step(req.Step)
		if !step.Valid() {
			return nil, eventError("unknown step")
		}
		return reservation.Goto{Step: step}, nil
	case "CANCEL":
		return reservation.Cancel{}, nil
	case "RESET":
		return reservation.Reset{}, nil
	}
	return nil, eventError("unknown event type")
}

// Submit handles POST /v1/booking/submit.
func (h *BookingHandler) Submit(c echo.Context) error {
	m, ok := h.machine(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return h.submit(c, m)
}

// submit answers 200 once confirmed, 409 when the gateway refused the
// booking and 422 when the draft did not pass its guards.
func (h *BookingHandler) submit(c echo.Context, m *reservation.Machine) error {
	ctx := c.Request().Context()
	snap := m.Submit(ctx)
	status := http.StatusOK
	switch {
	case snap.Step == model.StepConfirmed:
		if h.Cache != nil && snap.Draft.Schedule != nil {
			h.Cache.Purge(ctx, "/v1/schedules/"+strconv.FormatUint(snap.Draft.Schedule.ID, 10)+"/seats")
		}
	case snap.SubmitError != "":
		status = http.StatusConflict
	case len(snap.ValidationErrors) > 0:
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, NewBookingView(snap))
}

// Reset handles DELETE /v1/booking.  The draft and its persisted copy
// are discarded and every hold released.
func (h *BookingHandler) Reset(c echo.Context) error {
	m, ok := h.machine(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, NewBookingView(m.DispatchContext(c.Request().Context(), reservation.Reset{})))
}
