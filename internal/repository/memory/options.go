package memory

import (
	"context"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// OptionRepo implements repository.OptionRepository in memory.
type OptionRepo struct{ s *Store }

// Get loads an option by name.
func (r *OptionRepo) Get(_ context.Context, name string) (*model.Option, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.options[name]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &o, nil
}

// Upsert stores value under name.
func (r *OptionRepo) Upsert(_ context.Context, name, value string, autoload bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.options[name]
	if !ok {
		o = model.Option{ID: r.s.next("options"), Name: name}
	}
	o.Value, o.Autoload = value, autoload
	r.s.options[name] = o
	return nil
}

// Delete removes an option.
func (r *OptionRepo) Delete(_ context.Context, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.options[name]; !ok {
		return errs.ErrNotFound
	}
	delete(r.s.options, name)
	return nil
}
