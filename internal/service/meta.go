package service

import (
	"context"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository"
)

// Status is the non-error outcome of a meta write.
type Status int

const (
	// StatusUpdated means a row was written.
	StatusUpdated Status = iota
	// StatusUnchanged means the new value equals the stored one and nothing was written.
	StatusUnchanged
)

func (s Status) String() string {
	if s == StatusUnchanged {
		return "unchanged"
	}
	return "updated"
}

// MetaService reads and writes the key/value rows attached to posts, users,
// terms, sites and networks.
type MetaService struct {
	repo repository.MetaRepository
	bus  *event.Bus
}

// NewMetaService constructs MetaService.
func NewMetaService(repo repository.MetaRepository, bus *event.Bus) *MetaService {
	return &MetaService{repo: repo, bus: bus}
}

func checkType(op string, t model.ObjectType) error {
	if !t.HasMeta() {
		return invalid(op, "object type %q has no meta", t)
	}
	return nil
}

// All returns every key of an object. A key with one row maps to its value,
// a key with several rows maps to []any in row order.
func (s *MetaService) All(ctx context.Context, t model.ObjectType, objectID int64) (map[string]any, error) {
	const op = "meta.all"
	if err := checkType(op, t); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, t, objectID, "")
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	grouped := map[string][]any{}
	var order []string
	for _, r := range rows {
		if _, seen := grouped[r.Key]; !seen {
			order = append(order, r.Key)
		}
		grouped[r.Key] = append(grouped[r.Key], model.UnserializeMeta(r.Value))
	}
	out := make(map[string]any, len(grouped))
	for _, k := range order {
		if vs := grouped[k]; len(vs) == 1 {
			out[k] = vs[0]
		} else {
			out[k] = vs
		}
	}
	return out, nil
}

// Values returns every value stored under key, in row order.
func (s *MetaService) Values(ctx context.Context, t model.ObjectType, objectID int64, key string) ([]any, error) {
	rows, err := s.Rows(ctx, t, objectID, key)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.Value)
	}
	return out, nil
}

// Single returns the first value stored under key.
func (s *MetaService) Single(ctx context.Context, t model.ObjectType, objectID int64, key string) (any, error) {
	const op = "meta.single"
	rows, err := s.Rows(ctx, t, objectID, key)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.New(op, errs.CodeNotFound, "%s %d has no meta %q", t, objectID, key)
	}
	return rows[0].Value, nil
}

// Rows returns the decoded rows of key with their ids, so that duplicate
// keys can be told apart.
func (s *MetaService) Rows(ctx context.Context, t model.ObjectType, objectID int64, key string) ([]model.Meta, error) {
	const op = "meta.rows"
	if err := checkType(op, t); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, invalid(op, "empty meta key")
	}
	rows, err := s.repo.List(ctx, t, objectID, key)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	out := make([]model.Meta, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Decode(t))
	}
	return out, nil
}

// FromID loads one row by meta id.
func (s *MetaService) FromID(ctx context.Context, t model.ObjectType, metaID int64) (*model.Meta, error) {
	const op = "meta.from_id"
	if err := checkType(op, t); err != nil {
		return nil, err
	}
	row, err := s.repo.Get(ctx, t, metaID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	m := row.Decode(t)
	return &m, nil
}

// Add stores a new row. With unique set, an existing key fails with already_exists.
func (s *MetaService) Add(ctx context.Context, t model.ObjectType, objectID int64, key string, value any, unique bool) (*model.Meta, error) {
	const op = "meta.add"
	if err := checkType(op, t); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, invalid(op, "empty meta key")
	}
	if objectID <= 0 {
		return nil, invalid(op, "object id must be positive")
	}
	if unique {
		rows, err := s.repo.List(ctx, t, objectID, key)
		if err != nil {
			return nil, errs.Wrap(op, err)
		}
		if len(rows) > 0 {
			return nil, errs.New(op, errs.CodeAlreadyExists, "%s %d already has meta %q", t, objectID, key)
		}
	}
	raw, err := model.SerializeMeta(value)
	if err != nil {
		return nil, invalid(op, "%v", err)
	}
	id, err := s.repo.Insert(ctx, t, objectID, key, raw)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	m := model.Meta{ID: id, ObjectType: t, ObjectID: objectID, Key: key, Value: model.UnserializeMeta(raw)}
	s.bus.Publish(ctx, event.MetaAdded{Meta: m})
	return &m, nil
}

// Update writes value into the row m, compared against the value m was loaded with.
// An equal value reports StatusUnchanged and performs no write.
func (s *MetaService) Update(ctx context.Context, m *model.Meta, value any) (Status, error) {
	const op = "meta.update"
	if !m.Exists() {
		return StatusUnchanged, notPersisted(op, "meta")
	}
	if err := checkType(op, m.ObjectType); err != nil {
		return StatusUnchanged, err
	}
	if model.SameMetaValue(m.Value, value) {
		return StatusUnchanged, nil
	}
	raw, err := model.SerializeMeta(value)
	if err != nil {
		return StatusUnchanged, invalid(op, "%v", err)
	}
	if err := s.repo.UpdateValue(ctx, m.ObjectType, m.ID, raw); err != nil {
		return StatusUnchanged, errs.Wrap(op, err)
	}
	m.PrevValue, m.Value = m.Value, model.UnserializeMeta(raw)
	s.bus.Publish(ctx, event.MetaUpdated{Meta: *m})
	return StatusUpdated, nil
}

// Set updates every row of key to value, or adds a row when the key is absent.
func (s *MetaService) Set(ctx context.Context, t model.ObjectType, objectID int64, key string, value any) (Status, error) {
	rows, err := s.Rows(ctx, t, objectID, key)
	if err != nil {
		return StatusUnchanged, err
	}
	if len(rows) == 0 {
		if _, err := s.Add(ctx, t, objectID, key, value, false); err != nil {
			return StatusUnchanged, err
		}
		return StatusUpdated, nil
	}
	st := StatusUnchanged
	for i := range rows {
		got, err := s.Update(ctx, &rows[i], value)
		if err != nil {
			return st, err
		}
		if got == StatusUpdated {
			st = StatusUpdated
		}
	}
	return st, nil
}

// Save adds m when it is not stored yet, otherwise writes its current value.
func (s *MetaService) Save(ctx context.Context, m *model.Meta) (Status, error) {
	if !m.Exists() {
		added, err := s.Add(ctx, m.ObjectType, m.ObjectID, m.Key, m.Value, false)
		if err != nil {
			return StatusUnchanged, err
		}
		*m = *added
		return StatusUpdated, nil
	}
	stored, err := s.FromID(ctx, m.ObjectType, m.ID)
	if err != nil {
		return StatusUnchanged, err
	}
	st, err := s.Update(ctx, stored, m.Value)
	if err != nil {
		return st, err
	}
	m.PrevValue = stored.PrevValue
	return st, nil
}

// DeleteByID removes exactly one row, leaving other rows of the same key alone.
func (s *MetaService) DeleteByID(ctx context.Context, t model.ObjectType, metaID int64) error {
	const op = "meta.delete"
	if err := checkType(op, t); err != nil {
		return err
	}
	row, err := s.repo.Get(ctx, t, metaID)
	if err != nil {
		return errs.Wrap(op, err)
	}
	if err := s.repo.Delete(ctx, t, metaID); err != nil {
		return errs.Wrap(op, err)
	}
	s.bus.Publish(ctx, event.MetaDeleted{Meta: row.Decode(t)})
	return nil
}

// Delete removes the row behind m and marks m unsaved.
func (s *MetaService) Delete(ctx context.Context, m *model.Meta) error {
	if !m.Exists() {
		return notPersisted("meta.delete", "meta")
	}
	if err := s.DeleteByID(ctx, m.ObjectType, m.ID); err != nil {
		return err
	}
	m.ID = 0
	return nil
}

// DeleteKey removes every row of key and reports how many were removed.
func (s *MetaService) DeleteKey(ctx context.Context, t model.ObjectType, objectID int64, key string) (int, error) {
	rows, err := s.Rows(ctx, t, objectID, key)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range rows {
		if err := s.DeleteByID(ctx, t, m.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
