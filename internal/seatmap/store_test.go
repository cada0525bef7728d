package seatmap

import (
	"testing"
	"time"

	"github.com/iliyamo/intercity-reservation/internal/model"
)

var t0 = time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

func layout() []model.Seat {
	return []model.Seat{
		{ID: "A1", Label: "1A", Status: model.SeatAvailable},
		{ID: "A2", Label: "2A", Status: model.SeatAvailable},
		{ID: "B1", Label: "1B", Status: model.SeatBooked},
		{ID: "B2", Label: "2B", Status: model.SeatDisabled},
	}
}

func newStore() *Store {
	n := 0
	return New(layout(), time.Minute).WithTokenFunc(func() string {
		n++
		return "tok-" + string(rune('0'+n))
	})
}

func TestToggle_AvailableAndSelected(t *testing.T) {
	s := newStore()
	seat, changed := s.Toggle("A1", t0)
	if !changed || seat.Status != model.SeatSelected {
		t.Fatalf("expected A1 selected, got %+v changed=%v", seat, changed)
	}
	holds := s.Holds()
	if len(holds) != 1 || holds[0].SeatID != "A1" || !holds[0].ExpiresAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("unexpected holds %+v", holds)
	}
	seat, changed = s.Toggle("A1", t0)
	if !changed || seat.Status != model.SeatAvailable || len(s.Holds()) != 0 {
		t.Fatalf("expected A1 released, got %+v holds=%v", seat, s.Holds())
	}
}

func TestToggle_ProtectedSeatsAreSilentNoOps(t *testing.T) {
	s := newStore()
	for _, id := range []string{"B1", "B2", "ZZ"} {
		if _, changed := s.Toggle(id, t0); changed {
			t.Fatalf("%s must not change", id)
		}
	}
	if got, _ := s.Lookup("B1"); got.Status != model.SeatBooked {
		t.Fatalf("booked seat was mutated: %+v", got)
	}
	if got, _ := s.Lookup("B2"); got.Status != model.SeatDisabled {
		t.Fatalf("disabled seat was mutated: %+v", got)
	}
}

func TestExpire_ReleasesLapsedHolds(t *testing.T) {
	s := newStore()
	s.Select("A1", t0)
	s.Select("A2", t0.Add(30*time.Second))

	if released := s.Expire(t0.Add(59 * time.Second)); len(released) != 0 {
		t.Fatalf("nothing should expire yet, got %v", released)
	}
	released := s.Expire(t0.Add(time.Minute))
	if len(released) != 1 || released[0] != "A1" {
		t.Fatalf("expected A1 to expire, got %v", released)
	}
	if sel := s.Selected(); len(sel) != 1 || sel[0].ID != "A2" {
		t.Fatalf("expected only A2 selected, got %+v", sel)
	}
	if next, ok := s.NextExpiry(); !ok || !next.Equal(t0.Add(90*time.Second)) {
		t.Fatalf("unexpected next expiry %v %v", next, ok)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	s := newStore()
	c := s.Clone()
	c.Select("A1", t0)
	if got, _ := s.Lookup("A1"); got.Status != model.SeatAvailable {
		t.Fatalf("original store changed through clone")
	}
	if len(s.Holds()) != 0 {
		t.Fatalf("original store gained a hold")
	}
}

func TestRestore_DropsOrphans(t *testing.T) {
	seats := []model.Seat{
		{ID: "A1", Status: model.SeatSelected},
		{ID: "A2", Status: model.SeatSelected},
		{ID: "B1", Status: model.SeatBooked},
	}
	holds := []model.Hold{
		{SeatID: "A1", Token: "x", HeldAt: t0, ExpiresAt: t0.Add(time.Minute)},
		{SeatID: "B1", Token: "y", HeldAt: t0, ExpiresAt: t0.Add(time.Minute)},
	}
	s := Restore(seats, holds, time.Minute)
	if sel := s.Selected(); len(sel) != 1 || sel[0].ID != "A1" {
		t.Fatalf("only A1 should remain selected, got %+v", sel)
	}
	if h := s.Holds(); len(h) != 1 || h[0].SeatID != "A1" {
		t.Fatalf("only the A1 hold should survive, got %+v", h)
	}
}
