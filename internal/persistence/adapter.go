// Package persistence keeps in-progress reservation drafts across
// process restarts.  An Adapter serializes records to JSON, optionally
// seals them, and stores the bytes in a Backend under a per-owner key.
//
// Storage failures never reach the reservation flow: they are logged
// and the draft simply is not persisted.
package persistence

import (
	"context"
	"encoding/json"
	"log"

	"github.com/iliyamo/intercity-reservation/internal/model"
)

// Backend is a byte store keyed by string.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// KeyPrefix namespaces draft keys.
const KeyPrefix = "draft:"

// Adapter stores one owner's draft.
type Adapter struct {
	backend Backend
	key     string
	sealer  *Sealer
}

// NewAdapter returns an adapter storing under KeyPrefix+owner.  A nil
// sealer stores plain JSON with card security codes removed.
func NewAdapter(b Backend, owner string, s *Sealer) *Adapter {
	return &Adapter{backend: b, key: KeyPrefix + owner, sealer: s}
}

// ForOwner returns a constructor of per-owner adapters sharing b and s.
func ForOwner(b Backend, s *Sealer) func(owner string) *Adapter {
	return func(owner string) *Adapter { return NewAdapter(b, owner, s) }
}

// Key returns the backend key used by the adapter.
func (a *Adapter) Key() string { return a.key }

// Save stores rec.
func (a *Adapter) Save(ctx context.Context, rec model.Record) {
	if a.sealer == nil {
		rec = redact(rec)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		log.Printf("draft-store: encode %s: %v", a.key, err)
		return
	}
	if a.sealer != nil {
		if raw, err = a.sealer.Seal(raw); err != nil {
			log.Printf("draft-store: seal %s: %v", a.key, err)
			return
		}
	}
	if err := a.backend.Put(ctx, a.key, raw); err != nil {
		log.Printf("draft-store: save %s: %v", a.key, err)
	}
}

// Load returns the stored record.  Unreadable payloads are logged and
// reported as absent.
func (a *Adapter) Load(ctx context.Context) (model.Record, bool) {
	raw, found, err := a.backend.Get(ctx, a.key)
	if err != nil {
		log.Printf("draft-store: load %s: %v", a.key, err)
		return model.Record{}, false
	}
	if !found {
		return model.Record{}, false
	}
	if a.sealer != nil {
		if raw, err = a.sealer.Open(raw); err != nil {
			log.Printf("draft-store: open %s: %v", a.key, err)
			return model.Record{}, false
		}
	}
	var rec model.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		log.Printf("draft-store: decode %s: %v", a.key, err)
		return model.Record{}, false
	}
	return rec, true
}

// Clear removes the stored record.
func (a *Adapter) Clear(ctx context.Context) {
	if err := a.backend.Delete(ctx, a.key); err != nil {
		log.Printf("draft-store: clear %s: %v", a.key, err)
	}
}

// redact drops the card security code so it never rests in plain text.
func redact(rec model.Record) model.Record {
	if rec.Draft.Payment == nil || rec.Draft.Payment.Card == nil || rec.Draft.Payment.Card.CVV == "" {
		return rec
	}
	rec.Draft = rec.Draft.Clone()
	rec.Draft.Payment.Card.CVV = ""
	return rec
}
