package reservation

import (
	"context"
	"log"

	"github.com/iliyamo/intercity-reservation/internal/model"
)

// NopPersister discards everything.  It is the default when no
// persistence is configured.
type NopPersister struct{}

func (NopPersister) Save(context.Context, model.Record)        {}
func (NopPersister) Load(context.Context) (model.Record, bool) { return model.Record{}, false }
func (NopPersister) Clear(context.Context)                     {}

// Submit hands the draft to the gateway and settles the session on its
// answer.  Without a gateway it behaves like Dispatch(Confirm{}).
//
// The machine lock is released while the gateway runs.  In that window
// the snapshot reports IsSubmitting and every other event is refused.
func (m *Machine) Submit(ctx context.Context) Snapshot {
	m.touch()
	m.mu.Lock()
	if m.opts.Gateway == nil || m.cur.IsSubmitting || m.cur.Step != model.StepPayment {
		m.apply(ctx, Confirm{})
		out := m.cur.clone()
		m.mu.Unlock()
		return out
	}
	now := m.opts.Now()
	before := m.cur.Draft.Seats
	m.apply(ctx, ExpireHolds{Now: now})
	if len(lostSeats(before, m.cur.Draft.Seats)) > 0 {
		out := m.cur.clone()
		m.mu.Unlock()
		return out
	}
	if errs := checkRange(m.cur.Draft, 0, model.StepConfirmed.Index(), now); errs != nil {
		m.cur = reject(m.cur, errs)
		out := m.cur.clone()
		m.mu.Unlock()
		return out
	}
	m.apply(ctx, submitStarted{})
	draft := m.cur.Draft.Clone()
	m.mu.Unlock()

	id, err := m.opts.Gateway.Submit(ctx, draft)

	m.mu.Lock()
	defer m.mu.Unlock()
	// settle even when the caller has gone away
	settle := context.WithoutCancel(ctx)
	if err != nil {
		log.Printf("reservation: submit failed: %v", err)
		m.apply(settle, submitFailed{Message: err.Error()})
		return m.cur.clone()
	}
	if id == "" {
		id = m.opts.NewID(m.opts.Now())
	}
	m.apply(settle, submitSucceeded{ConfirmationID: id})
	return m.cur.clone()
}
