// Package seatmap tracks seat availability for one departure as seen by
// a single reservation session, together with the time-limited holds
// placed on the seats this session selected.
package seatmap

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/intercity-reservation/internal/model"
)

// DefaultHoldTTL is how long a selected seat stays held.
const DefaultHoldTTL = 5 * time.Minute

// Store is the seat selection store.  It is not safe for concurrent
// use; the reservation machine owns one per snapshot and clones it
// before every mutation.
type Store struct {
	seats    []model.Seat
	index    map[string]int
	holds    map[string]model.Hold
	ttl      time.Duration
	newToken func() string
}

// New returns a store loaded with seats.  Seats arriving as selected
// are treated as available; this session's selections are only ever
// made through Select or Toggle.
func New(seats []model.Seat, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	s := &Store{
		index:    make(map[string]int, len(seats)),
		holds:    make(map[string]model.Hold),
		ttl:      ttl,
		newToken: uuid.NewString,
	}
	for _, seat := range seats {
		s.add(seat)
	}
	return s
}

// Restore rebuilds a store from a persisted seat map and its holds.
// Holds for seats that are missing or not selected are dropped.
func Restore(seats []model.Seat, holds []model.Hold, ttl time.Duration) *Store {
	s := New(nil, ttl)
	for _, seat := range seats {
		if _, ok := s.index[seat.ID]; ok || seat.ID == "" {
			continue
		}
		s.index[seat.ID] = len(s.seats)
		s.seats = append(s.seats, seat)
	}
	for _, h := range holds {
		if i, ok := s.index[h.SeatID]; ok && s.seats[i].Status == model.SeatSelected {
			s.holds[h.SeatID] = h
		}
	}
	// a selected seat without a hold would never expire
	for i, seat := range s.seats {
		if _, ok := s.holds[seat.ID]; seat.Status == model.SeatSelected && !ok {
			s.seats[i].Status = model.SeatAvailable
		}
	}
	return s
}

// WithTokenFunc replaces the hold token generator.
func (s *Store) WithTokenFunc(f func() string) *Store {
	if f != nil {
		s.newToken = f
	}
	return s
}

func (s *Store) add(seat model.Seat) {
	if seat.ID == "" {
		return
	}
	if _, ok := s.index[seat.ID]; ok {
		return
	}
	if seat.Status == model.SeatSelected || seat.Status == "" {
		seat.Status = model.SeatAvailable
	}
	s.index[seat.ID] = len(s.seats)
	s.seats = append(s.seats, seat)
}

// Ensure adds seat to the map when its id is unknown.  Known seats are
// left untouched so catalog statuses cannot be overwritten.
func (s *Store) Ensure(seat model.Seat) {
	s.add(seat)
}

// Clone returns an independent copy of the store.
func (s *Store) Clone() *Store {
	out := &Store{
		seats:    append([]model.Seat(nil), s.seats...),
		index:    make(map[string]int, len(s.index)),
		holds:    make(map[string]model.Hold, len(s.holds)),
		ttl:      s.ttl,
		newToken: s.newToken,
	}
	for k, v := range s.index {
		out.index[k] = v
	}
	for k, v := range s.holds {
		out.holds[k] = v
	}
	return out
}

// Lookup returns the seat with the given id.
func (s *Store) Lookup(id string) (model.Seat, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.Seat{}, false
	}
	return s.seats[i], true
}

// Toggle flips an available seat to selected (arming a hold) and a
// selected seat back to available (releasing it).  Booked, disabled and
// unknown seats are left alone and changed is false.
func (s *Store) Toggle(id string, now time.Time) (seat model.Seat, changed bool) {
	i, ok := s.index[id]
	if !ok {
		return model.Seat{}, false
	}
	switch s.seats[i].Status {
	case model.SeatAvailable:
		return s.Select(id, now)
	case model.SeatSelected:
		return s.Release(id)
	default:
		return s.seats[i], false
	}
}

// Select moves an available seat to selected and arms its hold.
func (s *Store) Select(id string, now time.Time) (model.Seat, bool) {
	i, ok := s.index[id]
	if !ok || s.seats[i].Status != model.SeatAvailable {
		if ok {
			return s.seats[i], false
		}
		return model.Seat{}, false
	}
	s.seats[i].Status = model.SeatSelected
	s.holds[id] = model.Hold{
		SeatID:    id,
		Token:     s.newToken(),
		HeldAt:    now,
		ExpiresAt: now.Add(s.ttl),
	}
	return s.seats[i], true
}

// Release moves a selected seat back to available and drops its hold.
func (s *Store) Release(id string) (model.Seat, bool) {
	i, ok := s.index[id]
	if !ok || s.seats[i].Status != model.SeatSelected {
		if ok {
			return s.seats[i], false
		}
		return model.Seat{}, false
	}
	s.seats[i].Status = model.SeatAvailable
	delete(s.holds, id)
	return s.seats[i], true
}

// Expire releases every hold whose deadline is at or before now and
// returns the released seat ids in seat-map order.
func (s *Store) Expire(now time.Time) []string {
	var released []string
	for _, seat := range s.seats {
		h, ok := s.holds[seat.ID]
		if !ok || h.ExpiresAt.After(now) {
			continue
		}
		s.Release(seat.ID)
		released = append(released, seat.ID)
	}
	return released
}

// Seats returns a copy of the seat map in its original order.
func (s *Store) Seats() []model.Seat {
	return append([]model.Seat(nil), s.seats...)
}

// Selected returns the selected seats in seat-map order.
func (s *Store) Selected() []model.Seat {
	var out []model.Seat
	for _, seat := range s.seats {
		if seat.Status == model.SeatSelected {
			out = append(out, seat)
		}
	}
	return out
}

// Holds returns the active holds ordered by expiry, then seat id.
func (s *Store) Holds() []model.Hold {
	out := make([]model.Hold, 0, len(s.holds))
	for _, h := range s.holds {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].SeatID < out[j].SeatID
	})
	return out
}

// NextExpiry returns the earliest hold deadline, if any hold exists.
func (s *Store) NextExpiry() (time.Time, bool) {
	holds := s.Holds()
	if len(holds) == 0 {
		return time.Time{}, false
	}
	return holds[0].ExpiresAt, true
}

// TTL returns the hold duration used by the store.
func (s *Store) TTL() time.Duration { return s.ttl }

// Commit drops every hold, leaving selected seats selected.  It is
// called once the reservation is confirmed and the seats are sold.
func (s *Store) Commit() {
	for id := range s.holds {
		delete(s.holds, id)
	}
}
