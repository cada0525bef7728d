package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/intercity-reservation/internal/model"
)

func TestRegistry_GetCreatesOncePerOwner(t *testing.T) {
	built := 0
	r := NewRegistry(func(string) *Machine {
		built++
		return New(Options{})
	})
	a := r.Get("7")
	if r.Get("7") != a || built != 1 {
		t.Fatalf("expected one machine per owner, built %d", built)
	}
	r.Get("8")
	if r.Len() != 2 {
		t.Fatalf("expected 2 machines, got %d", r.Len())
	}
	r.Drop("7")
	if r.Get("7") == a {
		t.Fatalf("dropped machine was returned again")
	}
}

func TestSweeper_ReleasesAcrossOwners(t *testing.T) {
	clk := newTestClock()
	r := NewRegistry(func(string) *Machine { return newTestMachine(clk, nil) })
	toSeatStep(t, r.Get("1"), "A1", "A2")
	toSeatStep(t, r.Get("2"), "A1")

	sw := &Sweeper{Registry: r}
	if n := sw.Sweep(context.Background()); n != 0 {
		t.Fatalf("nothing should lapse yet, released %d", n)
	}
	clk.Advance(6 * time.Minute)
	if n := sw.Sweep(context.Background()); n != 3 {
		t.Fatalf("expected 3 released seats, got %d", n)
	}
	s := r.Get("1").Snapshot()
	if len(s.Draft.Seats) != 0 || s.Step != model.StepPassengerDetails {
		t.Fatalf("unexpected state after sweep: %s %+v", s.Step, s.Draft.Seats)
	}
}

func TestRegistry_FactoryDoesNotBlockOtherOwners(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	r := NewRegistry(func(owner string) *Machine {
		if owner == "slow" {
			close(started)
			<-release
		}
		return New(Options{})
	})
	fast := r.Get("fast")

	slow := make(chan *Machine, 1)
	go func() { slow <- r.Get("slow") }()
	<-started

	got := make(chan *Machine, 1)
	go func() { got <- r.Get("fast") }()
	select {
	case m := <-got:
		if m != fast {
			t.Fatalf("expected the existing machine")
		}
	case <-time.After(time.Second):
		t.Fatalf("Get blocked behind another owner's factory")
	}

	close(release)
	if m := <-slow; m == nil || r.Get("slow") != m {
		t.Fatalf("slow owner's machine was not stored")
	}
}

func TestSweeper_DropsUnusedSessions(t *testing.T) {
	clk := newTestClock()
	stores := map[string]*memPersister{"empty": {}, "done": {}, "open": {}}
	r := NewRegistry(func(owner string) *Machine { return newTestMachine(clk, stores[owner]) })
	r.Get("empty")
	readyToSubmit(t, r.Get("done"))
	if s := r.Get("done").Dispatch(Confirm{}); s.Step != model.StepConfirmed {
		t.Fatalf("expected confirmed, got %s", s.Step)
	}
	toSeatStep(t, r.Get("open"), "A1")

	sw := &Sweeper{Registry: r}
	sw.Sweep(context.Background())
	if r.Len() != 3 {
		t.Fatalf("fresh sessions dropped, %d left", r.Len())
	}

	clk.Advance(3 * time.Minute)
	sw.Sweep(context.Background())
	if r.Len() != 1 {
		t.Fatalf("expected only the open session to stay, %d left", r.Len())
	}

	clk.Advance(DefaultIdleTTL)
	sw.Sweep(context.Background())
	if r.Len() != 0 {
		t.Fatalf("idle session kept, %d left", r.Len())
	}

	// an evicted session comes back from its persister
	s := r.Get("open").Snapshot()
	if s.Step != model.StepPassengerDetails || len(s.Draft.Seats) != 0 {
		t.Fatalf("unexpected rehydrated state %s %+v", s.Step, s.Draft.Seats)
	}
}

func TestSweeper_ActivityKeepsSessions(t *testing.T) {
	clk := newTestClock()
	r := NewRegistry(func(string) *Machine { return newTestMachine(clk, nil) })
	toSeatStep(t, r.Get("1"), "A1")
	sw := &Sweeper{Registry: r, IdleTTL: 10 * time.Minute}

	clk.Advance(8 * time.Minute)
	r.Get("1").Dispatch(Prev{})
	clk.Advance(8 * time.Minute)
	sw.Sweep(context.Background())
	if r.Len() != 1 {
		t.Fatalf("recently used session dropped")
	}
}

func TestSweeper_KeepsSubmittingSessions(t *testing.T) {
	clk := newTestClock()
	gw := &stubGateway{id: "BK-SLOW", release: make(chan struct{})}
	r := NewRegistry(func(string) *Machine { return New(Options{Gateway: gw, Now: clk.Now}) })
	m := r.Get("1")
	readyToSubmit(t, m)

	done := make(chan Snapshot, 1)
	go func() { done <- m.Submit(context.Background()) }()
	deadline := time.Now().Add(2 * time.Second)
	for !m.Snapshot().IsSubmitting {
		if time.Now().After(deadline) {
			t.Fatalf("submission never started")
		}
		time.Sleep(time.Millisecond)
	}

	clk.Advance(time.Hour)
	(&Sweeper{Registry: r}).Sweep(context.Background())
	if r.Len() != 1 {
		t.Fatalf("session dropped while submitting")
	}
	close(gw.release)
	if s := <-done; s.Step != model.StepConfirmed {
		t.Fatalf("expected confirmed, got %s", s.Step)
	}
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	sw := &Sweeper{Registry: NewRegistry(nil), Interval: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop")
	}
}
