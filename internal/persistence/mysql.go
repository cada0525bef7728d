package persistence

import (
	"context"
	"strings"

	"github.com/iliyamo/intercity-reservation/internal/repository"
)

// MySQL stores drafts in the reservation_drafts table.  The table is
// keyed by owner, so the draft key prefix is stripped.
type MySQL struct {
	repo *repository.DraftRepo
}

// NewMySQL returns a MySQL backend over repo.
func NewMySQL(repo *repository.DraftRepo) *MySQL { return &MySQL{repo: repo} }

func owner(key string) string { return strings.TrimPrefix(key, KeyPrefix) }

func (m *MySQL) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return m.repo.Get(ctx, owner(key))
}

func (m *MySQL) Put(ctx context.Context, key string, value []byte) error {
	return m.repo.Put(ctx, owner(key), value)
}

func (m *MySQL) Delete(ctx context.Context, key string) error {
	return m.repo.Delete(ctx, owner(key))
}
