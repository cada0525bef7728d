// Package reservation implements the reservation state machine: the
// step cursor, the accumulating draft, guarded transitions between
// steps, seat hold expiry and hand-off to the submission gateway.
//
// A Machine owns its draft exclusively.  Dispatch never returns an error
// and never panics on a bad event; rejected transitions come back as a
// snapshot whose ValidationErrors map is non-empty and whose step did
// not move.
package reservation

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/intercity-reservation/internal/model"
	"github.com/iliyamo/intercity-reservation/internal/pricing"
	"github.com/iliyamo/intercity-reservation/internal/seatmap"
)

// DefaultConfirmationPrefix prefixes locally generated confirmation ids.
const DefaultConfirmationPrefix = "BK"

// Persister stores the in-progress draft between process restarts.
// Implementations must swallow their own failures: a persistence error
// never becomes a reservation error.
type Persister interface {
	Save(ctx context.Context, rec model.Record)
	Load(ctx context.Context) (model.Record, bool)
	Clear(ctx context.Context)
}

// Gateway accepts a finished draft and returns a confirmation id.
type Gateway interface {
	Submit(ctx context.Context, d model.Draft) (string, error)
}

// Options configures a Machine.  Zero values select sensible defaults.
type Options struct {
	Persister Persister
	Gateway   Gateway
	Pricing   pricing.Engine
	HoldTTL   time.Duration
	Now       func() time.Time
	NewID     func(time.Time) string
	NewToken  func() string
}

// Machine is the reservation state machine.  Dispatches are serialized;
// it is safe to share a Machine between goroutines.
type Machine struct {
	mu   sync.Mutex
	cur  Snapshot
	opts Options

	// unix nanos of the owner's last request
	lastUsed atomic.Int64
}

// New builds a machine, rehydrating from opts.Persister when it holds a
// resumable draft.
func New(opts Options) *Machine {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = NewConfirmationID(DefaultConfirmationPrefix)
	}
	if opts.HoldTTL <= 0 {
		opts.HoldTTL = seatmap.DefaultHoldTTL
	}
	if opts.Persister == nil {
		opts.Persister = NopPersister{}
	}
	m := &Machine{opts: opts}
	m.touch()
	m.cur = m.initial()
	if rec, ok := opts.Persister.Load(context.Background()); ok {
		if s, ok := m.restore(rec); ok {
			m.cur = s
		}
	}
	return m
}

// NewConfirmationID returns a generator of ids shaped
// PREFIX-<base36 millisecond timestamp>.
func NewConfirmationID(prefix string) func(time.Time) string {
	return func(t time.Time) string {
		return prefix + "-" + strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))
	}
}

// Snapshot returns the current state without changing it.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur.clone()
}

// Dispatch applies e and returns the resulting snapshot.
func (m *Machine) Dispatch(e Event) Snapshot {
	return m.DispatchContext(context.Background(), e)
}

// DispatchContext is Dispatch with a context for the persistence call.
func (m *Machine) DispatchContext(ctx context.Context, e Event) Snapshot {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(ctx, e)
	return m.cur.clone()
}

// ExpireHolds releases lapsed seat holds as of the machine clock and
// returns the ids of the seats that left the draft.
func (m *Machine) ExpireHolds(ctx context.Context) (Snapshot, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := m.cur.Draft.Seats
	m.apply(ctx, ExpireHolds{Now: m.opts.Now()})
	return m.cur.clone(), lostSeats(before, m.cur.Draft.Seats)
}

func (m *Machine) touch() {
	m.lastUsed.Store(m.opts.Now().UnixNano())
}

// reapable reports whether a registry may forget m.  Confirmed and
// empty sessions go after done, anything else after idle.  A machine
// that is busy or waiting on the gateway is never reapable.
func (m *Machine) reapable(idle, done time.Duration) bool {
	if !m.mu.TryLock() {
		return false
	}
	defer m.mu.Unlock()
	if m.cur.IsSubmitting {
		return false
	}
	ttl := idle
	empty := m.cur.Step == model.StepIdle && m.cur.Draft.Route == nil && len(m.cur.Draft.Seats) == 0
	if m.cur.Step == model.StepConfirmed || empty {
		ttl = done
	}
	return m.opts.Now().Sub(time.Unix(0, m.lastUsed.Load())) >= ttl
}

// apply runs one transition and persists the outcome.  m.mu must be held.
func (m *Machine) apply(ctx context.Context, e Event) {
	prev := m.cur
	next, changed := m.reduce(prev, e)
	m.cur = next
	if !changed {
		return
	}
	switch {
	case isReset(e):
		m.opts.Persister.Clear(ctx)
	case next.Step == model.StepConfirmed:
		m.opts.Persister.Clear(ctx)
	default:
		m.opts.Persister.Save(ctx, next.Record(m.opts.Now()))
	}
}

func isReset(e Event) bool {
	_, ok := e.(Reset)
	return ok
}

// initial is the canonical empty snapshot.
func (m *Machine) initial() Snapshot {
	return Snapshot{
		Step:  model.StepIdle,
		Draft: model.Draft{Seats: []model.Seat{}},
		seats: m.newStore(nil),
	}
}

func (m *Machine) newStore(seats []model.Seat) *seatmap.Store {
	return seatmap.New(seats, m.opts.HoldTTL).WithTokenFunc(m.opts.NewToken)
}

// restore rebuilds a snapshot from a persisted record.  Confirmed or
// malformed records are ignored.  The total is recomputed rather than
// trusted and seats whose hold was lost are dropped from the draft.
func (m *Machine) restore(rec model.Record) (Snapshot, bool) {
	if !rec.Step.Valid() || rec.Step == model.StepConfirmed {
		return Snapshot{}, false
	}
	store := seatmap.Restore(rec.SeatMap, rec.Holds, m.opts.HoldTTL).WithTokenFunc(m.opts.NewToken)
	// holds that lapsed while the session was away are released first
	released := store.Expire(m.opts.Now())
	d := rec.Draft.Clone()
	d.ConfirmationID = ""
	kept := make([]model.Seat, 0, len(d.Seats))
	for _, seat := range d.Seats {
		if got, ok := store.Lookup(seat.ID); ok && got.Status == model.SeatSelected {
			kept = append(kept, got)
		}
	}
	d.Seats = kept
	s := Snapshot{Step: rec.Step, Draft: d, seats: store}
	if len(released) > 0 {
		s.ValidationErrors = map[string]string{"seats": expiredNotice(released)}
	}
	m.reprice(&s)
	return s, true
}

func (m *Machine) reprice(s *Snapshot) {
	s.Quote = m.opts.Pricing.Draft(s.Draft)
	s.Draft.TotalAmount = s.Quote.Total
}
