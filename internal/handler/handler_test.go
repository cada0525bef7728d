package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intercity-reservation/internal/middleware"
	"github.com/iliyamo/intercity-reservation/internal/model"
	"github.com/iliyamo/intercity-reservation/internal/repository"
	"github.com/iliyamo/intercity-reservation/internal/reservation"
	"github.com/iliyamo/intercity-reservation/internal/utils"
)

const secret = "handler-secret"

type fakeCatalog struct{}

var (
	lahoreIslamabad = model.Route{ID: 1, Origin: "Lahore", Destination: "Islamabad", BasePrice: 1000}
	morningBus      = model.Schedule{
		ID: 7, RouteID: 1, TotalSeats: 4, BookedSeats: 1,
		DepartsAt: time.Now().UTC().Add(48 * time.Hour),
		ArrivesAt: time.Now().UTC().Add(52 * time.Hour),
	}
)

func (fakeCatalog) ListRoutes(context.Context) ([]model.Route, error) {
	return []model.Route{lahoreIslamabad}, nil
}

func (fakeCatalog) GetRoute(_ context.Context, id uint64) (*model.Route, error) {
	if id != lahoreIslamabad.ID {
		return nil, repository.ErrRouteNotFound
	}
	rt := lahoreIslamabad
	return &rt, nil
}

func (fakeCatalog) ListSchedules(_ context.Context, routeID uint64) ([]model.Schedule, error) {
	if routeID != lahoreIslamabad.ID {
		return nil, repository.ErrRouteNotFound
	}
	return []model.Schedule{morningBus}, nil
}

func (fakeCatalog) GetSchedule(_ context.Context, id uint64) (*model.Schedule, error) {
	if id != morningBus.ID {
		return nil, repository.ErrScheduleNotFound
	}
	s := morningBus
	return &s, nil
}

func (fakeCatalog) ListSeats(context.Context, uint64) ([]model.Seat, error) {
	return []model.Seat{
		{ID: "A1", Label: "1A", Status: model.SeatAvailable},
		{ID: "A2", Label: "1B", Status: model.SeatAvailable},
		{ID: "A3", Label: "2A", Status: model.SeatBooked},
	}, nil
}

type fakeGateway struct {
	id  string
	err error
}

func (g *fakeGateway) Submit(context.Context, model.Draft) (string, error) { return g.id, g.err }

type fakeCache struct{ purged []string }

func (f *fakeCache) Purge(_ context.Context, path string) { f.purged = append(f.purged, path) }

type fakeReservations struct{}

func (fakeReservations) ListByUser(_ context.Context, uid uint64) ([]repository.ReservationDetail, error) {
	if uid != 42 {
		return []repository.ReservationDetail{}, nil
	}
	d := repository.ReservationDetail{Origin: "Lahore", Destination: "Islamabad"}
	d.ConfirmationID = "BK-ABC"
	return []repository.ReservationDetail{d}, nil
}

func (fakeReservations) GetByConfirmation(_ context.Context, id string, uid uint64) (*repository.ReservationDetail, error) {
	if id != "BK-ABC" || uid != 42 {
		return nil, repository.ErrReservationNotFound
	}
	d := repository.ReservationDetail{}
	d.ConfirmationID = id
	return &d, nil
}

type testServer struct {
	e     *echo.Echo
	cache *fakeCache
	token string
}

func newServer(t *testing.T, gw reservation.Gateway) *testServer {
	t.Helper()
	cache := &fakeCache{}
	machines := reservation.NewRegistry(func(string) *reservation.Machine {
		return reservation.New(reservation.Options{Gateway: gw})
	})
	booking := &BookingHandler{Catalog: fakeCatalog{}, Machines: machines, Cache: cache}
	catalog := &CatalogHandler{Catalog: fakeCatalog{}}
	res := &ReservationHandler{Reservations: fakeReservations{}}

	e := echo.New()
	e.GET("/v1/routes", catalog.ListRoutes)
	e.GET("/v1/routes/:id/schedules", catalog.ListSchedules)
	e.GET("/v1/schedules/:id/seats", catalog.ListSeats)
	g := e.Group("/v1", middleware.JWTAuth(secret))
	g.GET("/booking", booking.Get)
	g.POST("/booking/events", booking.Dispatch)
	g.POST("/booking/submit", booking.Submit)
	g.DELETE("/booking", booking.Reset)
	g.GET("/reservations", res.List)
	g.GET("/reservations/:confirmation", res.Get)

	tok, err := utils.NewAccessToken(secret, 42, utils.RoleCustomer, 5)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return &testServer{e: e, cache: cache, token: tok.Token}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) event(t *testing.T, body string) BookingView {
	t.Helper()
	rec := s.do(http.MethodPost, "/v1/booking/events", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("event %s: status %d body %s", body, rec.Code, rec.Body.String())
	}
	return decodeView(t, rec)
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) BookingView {
	t.Helper()
	var v BookingView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view: %v (%s)", err, rec.Body.String())
	}
	return v
}

const (
	passengerJSON = `{"type":"SET_PASSENGER","passenger":{"first_name":"Ayesha","last_name":"Malik","email":"ayesha@example.com","phone":"0300-1234567"}}`
	cardJSON      = `{"type":"SET_PAYMENT","payment":{"method":"card","card":{"number":"4532 0151 1283 0366","holder_name":"Ayesha Malik","expiry":"12/30","cvv":"123"}}}`
)

func toPayment(t *testing.T, s *testServer) BookingView {
	t.Helper()
	s.event(t, `{"type":"SELECT_ROUTE","route_id":1}`)
	s.event(t, `{"type":"SELECT_SCHEDULE","schedule_id":7}`)
	s.event(t, `{"type":"SELECT_SEAT","seat_id":"A1"}`)
	s.event(t, passengerJSON)
	v := s.event(t, cardJSON)
	if v.Step != model.StepPayment || len(v.ValidationErrors) != 0 {
		t.Fatalf("not at payment: %s %v", v.Step, v.ValidationErrors)
	}
	return v
}

func TestCatalog_Endpoints(t *testing.T) {
	s := newServer(t, nil)
	if rec := s.do(http.MethodGet, "/v1/routes", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Lahore") {
		t.Fatalf("routes: %d %s", rec.Code, rec.Body.String())
	}
	rec := s.do(http.MethodGet, "/v1/routes/1/schedules", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"available_seats":3`) {
		t.Fatalf("schedules: %d %s", rec.Code, rec.Body.String())
	}
	cases := map[string]int{
		"/v1/routes/9/schedules": http.StatusNotFound,
		"/v1/routes/x/schedules": http.StatusBadRequest,
		"/v1/schedules/8/seats":  http.StatusNotFound,
		"/v1/schedules/7/seats":  http.StatusOK,
	}
	for path, code := range cases {
		if rec := s.do(http.MethodGet, path, ""); rec.Code != code {
			t.Fatalf("%s: want %d, got %d", path, code, rec.Code)
		}
	}
}

func TestBooking_FlowThroughSubmit(t *testing.T) {
	s := newServer(t, &fakeGateway{id: "BK-SERVER1"})
	v := toPayment(t, s)
	if v.Quote.Total != 1050 || v.Draft.TotalAmount != 1050 {
		t.Fatalf("unexpected quote %+v", v.Quote)
	}
	if v.Draft.Payment.Card.Number != "************0366" || v.Draft.Payment.Card.CVV != "" {
		t.Fatalf("card details leaked: %+v", v.Draft.Payment.Card)
	}
	if len(v.Holds) != 1 || v.HoldExpiresAt == nil {
		t.Fatalf("expected one hold, got %v", v.Holds)
	}

	rec := s.do(http.MethodPost, "/v1/booking/submit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	v = decodeView(t, rec)
	if v.Step != model.StepConfirmed || v.Draft.ConfirmationID != "BK-SERVER1" {
		t.Fatalf("not confirmed: %s %q", v.Step, v.Draft.ConfirmationID)
	}
	if len(s.cache.purged) != 1 || s.cache.purged[0] != "/v1/schedules/7/seats" {
		t.Fatalf("seat map not purged: %v", s.cache.purged)
	}
}

func TestBooking_SubmitConflict(t *testing.T) {
	s := newServer(t, &fakeGateway{err: errors.New("one or more selected seats are no longer available")})
	toPayment(t, s)
	rec := s.do(http.MethodPost, "/v1/booking/submit", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d", rec.Code)
	}
	if v := decodeView(t, rec); v.SubmitError == "" || v.Step != model.StepPayment {
		t.Fatalf("unexpected view %+v", v)
	}
	if len(s.cache.purged) != 0 {
		t.Fatalf("nothing was sold, nothing should be purged")
	}
}

func TestBooking_ConfirmEventUsesGateway(t *testing.T) {
	s := newServer(t, &fakeGateway{id: "BK-GW"})
	toPayment(t, s)
	v := decodeView(t, s.do(http.MethodPost, "/v1/booking/events", `{"type":"CONFIRM"}`))
	if v.Draft.ConfirmationID != "BK-GW" {
		t.Fatalf("CONFIRM bypassed the gateway: %q", v.Draft.ConfirmationID)
	}
}

func TestBooking_RejectionsKeepStep(t *testing.T) {
	s := newServer(t, nil)
	s.event(t, `{"type":"SELECT_ROUTE","route_id":1}`)
	v := s.event(t, `{"type":"NEXT"}`)
	if v.Step != model.StepSelectingDatetime || v.ValidationErrors["schedule"] == "" {
		t.Fatalf("NEXT without schedule: %s %v", v.Step, v.ValidationErrors)
	}

	s.event(t, `{"type":"SELECT_SCHEDULE","schedule_id":7}`)
	v = s.event(t, `{"type":"SELECT_SEAT","seat_id":"A3"}`)
	if len(v.Draft.Seats) != 0 {
		t.Fatalf("booked seat was selected")
	}
	v = s.event(t, `{"type":"SELECT_SEAT","seat_id":"Z9"}`)
	if len(v.Draft.Seats) != 0 {
		t.Fatalf("unknown seat was selected")
	}
	v = s.event(t, `{"type":"GOTO","step":"payment"}`)
	if v.Step == model.StepPayment {
		t.Fatalf("forward goto skipped passenger details")
	}

	rec := s.do(http.MethodPost, "/v1/booking/submit", "")
	if rec.Code != http.StatusOK && rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected submit status %d", rec.Code)
	}
	if decodeView(t, rec).Step == model.StepConfirmed {
		t.Fatalf("incomplete draft confirmed")
	}
}

func TestBooking_BadRequests(t *testing.T) {
	s := newServer(t, nil)
	cases := []struct {
		body string
		code int
	}{
		{`{"type":"FLY"}`, http.StatusBadRequest},
		{`{"type":"GOTO","step":"boarding"}`, http.StatusBadRequest},
		{`{"type":"SET_DATE_RANGE","range":{"start":"tomorrow","end":"later"}}`, http.StatusBadRequest},
		{`{"type":"SET_PASSENGER"}`, http.StatusBadRequest},
		{`{"type":"SELECT_ROUTE","route_id":99}`, http.StatusNotFound},
		{`{"type":"SELECT_SCHEDULE","schedule_id":99}`, http.StatusNotFound},
		{`not json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := s.do(http.MethodPost, "/v1/booking/events", tc.body); rec.Code != tc.code {
			t.Fatalf("%s: want %d, got %d (%s)", tc.body, tc.code, rec.Code, rec.Body.String())
		}
	}
}

func TestBooking_DateRange(t *testing.T) {
	s := newServer(t, nil)
	s.event(t, `{"type":"SELECT_ROUTE","route_id":1}`)
	s.event(t, `{"type":"SELECT_SCHEDULE","schedule_id":7}`)
	start := time.Now().UTC().AddDate(0, 0, 2).Format(dateLayout)
	end := time.Now().UTC().AddDate(0, 0, 5).Format(dateLayout)
	v := s.event(t, `{"type":"SET_DATE_RANGE","range":{"start":"`+start+`","end":"`+end+`"}}`)
	if v.Draft.DateRange == nil || v.Quote.Subtotal != 3000 {
		t.Fatalf("three rental days expected, got %+v", v.Quote)
	}
	v = s.event(t, `{"type":"SET_DATE_RANGE","range":null}`)
	if v.Draft.DateRange != nil {
		t.Fatalf("range not cleared")
	}
}

func TestBooking_ResetAndGet(t *testing.T) {
	s := newServer(t, nil)
	s.event(t, `{"type":"SELECT_ROUTE","route_id":1}`)
	if v := decodeView(t, s.do(http.MethodGet, "/v1/booking", "")); v.Draft.Route == nil {
		t.Fatalf("session not kept between requests")
	}
	v := decodeView(t, s.do(http.MethodDelete, "/v1/booking", ""))
	if v.Step != model.StepIdle || v.Draft.Route != nil {
		t.Fatalf("reset left %s %+v", v.Step, v.Draft.Route)
	}
}

func TestBooking_RequiresToken(t *testing.T) {
	s := newServer(t, nil)
	s.token = ""
	if rec := s.do(http.MethodGet, "/v1/booking", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func TestReservations(t *testing.T) {
	s := newServer(t, nil)
	rec := s.do(http.MethodGet, "/v1/reservations", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "BK-ABC") {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(http.MethodGet, "/v1/reservations/bk-abc", ""); rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/v1/reservations/BK-NOPE", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing: %d", rec.Code)
	}
}

func TestMaskCard(t *testing.T) {
	if got := maskCard("4532 0151 1283 0366"); got != "************0366" {
		t.Fatalf("mask: %q", got)
	}
	if got := maskCard("123"); got != "***" {
		t.Fatalf("short mask: %q", got)
	}
}
