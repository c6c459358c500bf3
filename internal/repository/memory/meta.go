package memory

import (
	"context"
	"fmt"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// MetaRepo implements repository.MetaRepository in memory.
type MetaRepo struct{ s *Store }

func (r *MetaRepo) table(t model.ObjectType) (map[int64]model.MetaRow, error) {
	tbl, ok := r.s.meta[t]
	if !ok {
		return nil, fmt.Errorf("%w: no meta for object type %q", errs.ErrInvalid, t)
	}
	return tbl, nil
}

// List returns the rows of one object ordered by meta id.
func (r *MetaRepo) List(_ context.Context, t model.ObjectType, objectID int64, key string) ([]model.MetaRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tbl, err := r.table(t)
	if err != nil {
		return nil, err
	}
	var out []model.MetaRow
	for _, id := range sortedKeys(tbl) {
		m := tbl[id]
		if m.ObjectID == objectID && (key == "" || m.Key == key) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Get loads one row by meta id.
func (r *MetaRepo) Get(_ context.Context, t model.ObjectType, metaID int64) (model.MetaRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tbl, err := r.table(t)
	if err != nil {
		return model.MetaRow{}, err
	}
	m, ok := tbl[metaID]
	if !ok {
		return model.MetaRow{}, errs.ErrNotFound
	}
	return m, nil
}

// Insert adds a row.
func (r *MetaRepo) Insert(_ context.Context, t model.ObjectType, objectID int64, key, value string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tbl, err := r.table(t)
	if err != nil {
		return 0, err
	}
	id := r.s.next(string(t) + "meta")
	tbl[id] = model.MetaRow{ID: id, ObjectID: objectID, Key: key, Value: value}
	return id, nil
}

// UpdateValue rewrites the value of one row.
func (r *MetaRepo) UpdateValue(_ context.Context, t model.ObjectType, metaID int64, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tbl, err := r.table(t)
	if err != nil {
		return err
	}
	m, ok := tbl[metaID]
	if !ok {
		return errs.ErrNotFound
	}
	m.Value = value
	tbl[metaID] = m
	return nil
}

// Delete removes one row.
func (r *MetaRepo) Delete(_ context.Context, t model.ObjectType, metaID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tbl, err := r.table(t)
	if err != nil {
		return err
	}
	if _, ok := tbl[metaID]; !ok {
		return errs.ErrNotFound
	}
	delete(tbl, metaID)
	return nil
}
