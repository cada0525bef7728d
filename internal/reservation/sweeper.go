package reservation

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/intercity-reservation/internal/model"
)

const (
	// DefaultSweepInterval is how often the sweeper checks for lapsed holds.
	DefaultSweepInterval = 15 * time.Second
	// DefaultIdleTTL is how long an open session stays in memory unused.
	DefaultIdleTTL = 30 * time.Minute
	// DefaultConfirmedTTL is how long confirmed and empty sessions stay.
	DefaultConfirmedTTL = 2 * time.Minute
)

// Sweeper releases lapsed seat holds across every machine in a registry
// and evicts sessions nobody uses any more.
type Sweeper struct {
	Registry     *Registry
	Interval     time.Duration
	IdleTTL      time.Duration
	ConfirmedTTL time.Duration
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Printf("hold-sweeper: started, interval=%s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("hold-sweeper: stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns the number of seats released.
// Evicted sessions rehydrate from their persister on the next request.
func (s *Sweeper) Sweep(ctx context.Context) int {
	idle, done := s.IdleTTL, s.ConfirmedTTL
	if idle <= 0 {
		idle = DefaultIdleTTL
	}
	if done <= 0 {
		done = DefaultConfirmedTTL
	}
	released := 0
	s.Registry.Each(func(owner string, m *Machine) {
		if _, lost := m.ExpireHolds(ctx); len(lost) > 0 {
			released += len(lost)
			log.Printf("hold-sweeper: released %s for %s", strings.Join(lost, ","), owner)
		}
		if s.Registry.reap(owner, m, idle, done) {
			log.Printf("hold-sweeper: dropped session of %s", owner)
		}
	})
	return released
}

func lostSeats(before, after []model.Seat) []string {
	kept := make(map[string]struct{}, len(after))
	for _, seat := range after {
		kept[seat.ID] = struct{}{}
	}
	var lost []string
	for _, seat := range before {
		if _, ok := kept[seat.ID]; !ok {
			lost = append(lost, seat.ID)
		}
	}
	return lost
}
