package repository

import (
	"context"
	"database/sql"
	"errors"
)

// DraftRepo stores opaque in-progress draft payloads keyed by owner.
type DraftRepo struct {
	db *sql.DB
}

// NewDraftRepo returns a DraftRepo bound to db.
func NewDraftRepo(db *sql.DB) *DraftRepo { return &DraftRepo{db: db} }

// Get returns the payload stored for owner.  found is false when there
// is none.
func (r *DraftRepo) Get(ctx context.Context, owner string) (payload []byte, found bool, err error) {
	const q = `SELECT payload FROM reservation_drafts WHERE owner = ?`
	err = r.db.QueryRowContext(ctx, q, owner).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// Put inserts or replaces the payload for owner.
func (r *DraftRepo) Put(ctx context.Context, owner string, payload []byte) error {
	const q = `INSERT INTO reservation_drafts (owner, payload) VALUES (?, ?)
	           ON DUPLICATE KEY UPDATE payload = VALUES(payload)`
	_, err := r.db.ExecContext(ctx, q, owner, payload)
	return err
}

// Delete removes the payload for owner.  Deleting a missing row is not
// an error.
func (r *DraftRepo) Delete(ctx context.Context, owner string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reservation_drafts WHERE owner = ?`, owner)
	return err
}
