package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// LogRepo implements repository.LogRepository in memory.
type LogRepo struct{ s *Store }

// EnsureTable marks the table as created.
func (r *LogRepo) EnsureTable(context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.logTable = true
	return nil
}

// Insert stores one audit row.
func (r *LogRepo) Insert(_ context.Context, l *model.Log) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.logTable {
		return 0, fmt.Errorf("relation %q does not exist", "logs")
	}
	row := *l
	row.Detail = maps.Clone(l.Detail)
	if _, ok := r.s.users[row.UserID]; row.UserID > 0 && !ok {
		return 0, fmt.Errorf("logs.user_id %d: no such user", row.UserID)
	}
	if row.UserID < 0 {
		row.UserID = 0
	}
	row.ID = r.s.next("logs")
	r.s.logs[row.ID] = row
	return row.ID, nil
}

// Get loads one audit row.
func (r *LogRepo) Get(_ context.Context, id int64) (*model.Log, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.logs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	l.Detail = maps.Clone(l.Detail)
	return &l, nil
}

// List returns audit rows newest first.
func (r *LogRepo) List(_ context.Context, q model.LogQuery) ([]model.Log, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Log
	for _, l := range r.s.logs {
		switch {
		case q.Action != "" && l.Action != q.Action:
		case q.ObjectType != "" && l.ObjectType != q.ObjectType:
		case q.ObjectID > 0 && l.ObjectID != q.ObjectID:
		case q.UserID > 0 && l.UserID != q.UserID:
		default:
			l.Detail = maps.Clone(l.Detail)
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID > out[j].ID
		}
		return out[i].Date.After(out[j].Date)
	})
	return page(out, q.Limit, q.Offset), nil
}
