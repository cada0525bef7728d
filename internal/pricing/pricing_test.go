package pricing

import (
	"testing"
	"time"

	"github.com/iliyamo/intercity-reservation/internal/model"
)

func TestComputeTotal_CardOnlyPolicy(t *testing.T) {
	cases := []struct {
		name   string
		base   int64
		units  int64
		method model.PaymentMethod
		want   Quote
	}{
		{"cash two seats", 1000, 2, model.MethodCash, Quote{Subtotal: 2000, Fee: 0, Total: 2000}},
		{"card two seats", 1000, 2, model.MethodCard, Quote{Subtotal: 2000, Fee: 100, Total: 2100}},
		{"wallet no fee", 1500, 1, model.MethodJazzCash, Quote{Subtotal: 1500, Fee: 0, Total: 1500}},
		{"zero units floors at one", 1000, 0, model.MethodCash, Quote{Subtotal: 1000, Total: 1000}},
		{"negative units floors at one", 1000, -3, model.MethodCard, Quote{Subtotal: 1000, Fee: 50, Total: 1050}},
		{"no method", 700, 3, "", Quote{Subtotal: 2100, Total: 2100}},
	}
	for _, tc := range cases {
		got := ComputeTotal(tc.base, tc.units, tc.method)
		if got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
	}
}

func TestComputeTotal_AllMethodsPolicy(t *testing.T) {
	e := Engine{Policy: PolicyAllMethods}
	got := e.ComputeTotal(1000, 2, model.MethodCash)
	if got.Fee != 100 || got.Total != 2100 {
		t.Fatalf("all-methods policy should charge cash, got %+v", got)
	}
}

func TestComputeTotal_RoundsHalfUp(t *testing.T) {
	// 5% of 1010 is 50.5 -> 51; 5% of 1009 is 50.45 -> 50
	if fee := ComputeTotal(1010, 1, model.MethodCard).Fee; fee != 51 {
		t.Fatalf("expected 51, got %d", fee)
	}
	if fee := ComputeTotal(1009, 1, model.MethodCard).Fee; fee != 50 {
		t.Fatalf("expected 50, got %d", fee)
	}
}

func TestEngineDraft_UsesDateRangeDays(t *testing.T) {
	d := model.Draft{
		Route: &model.Route{ID: 1, BasePrice: 500},
		Seats: []model.Seat{{ID: "A1"}},
	}
	if got := (Engine{}).Draft(d).Total; got != 500 {
		t.Fatalf("expected 500, got %d", got)
	}
	d.Payment = &model.Payment{Method: model.MethodCard, Card: &model.CardDetails{}}
	if got := (Engine{}).Draft(d).Total; got != 525 {
		t.Fatalf("expected 525, got %d", got)
	}
	start := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)
	d.DateRange = &model.DateRange{Start: start, End: start.AddDate(0, 0, 3)}
	if got := (Engine{}).Draft(d).Subtotal; got != 1500 {
		t.Fatalf("expected three days to price 1500, got %d", got)
	}
}

func TestParsePolicy(t *testing.T) {
	if ParsePolicy("all") != PolicyAllMethods {
		t.Fatalf("all should charge every method")
	}
	for _, v := range []string{"card", "", "bogus"} {
		if ParsePolicy(v) != PolicyCardOnly {
			t.Fatalf("%q should fall back to card-only", v)
		}
	}
}
