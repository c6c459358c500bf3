package service

import (
	"context"
	"errors"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository"
)

// OptionService reads and writes named site options. Values go through the
// meta value codec, so structured values round-trip.
type OptionService struct {
	options repository.OptionRepository
}

// NewOptionService constructs OptionService.
func NewOptionService(options repository.OptionRepository) *OptionService {
	return &OptionService{options: options}
}

// Get returns the decoded value of name.
func (s *OptionService) Get(ctx context.Context, name string) (any, error) {
	o, err := s.options.Get(ctx, name)
	if err != nil {
		return nil, errs.Wrap("option.get", err)
	}
	return model.UnserializeMeta(o.Value), nil
}

// Value returns the decoded value of name, or def when it is not stored.
func (s *OptionService) Value(ctx context.Context, name string, def any) (any, error) {
	v, err := s.Get(ctx, name)
	if errors.Is(err, errs.ErrNotFound) {
		return def, nil
	}
	return v, err
}

// Set stores value under name.
func (s *OptionService) Set(ctx context.Context, name string, value any, autoload bool) error {
	const op = "option.set"
	if name == "" {
		return invalid(op, "option name is empty")
	}
	raw, err := model.SerializeMeta(value)
	if err != nil {
		return invalid(op, "%v", err)
	}
	return errs.Wrap(op, s.options.Upsert(ctx, name, raw, autoload))
}

// Delete removes name.
func (s *OptionService) Delete(ctx context.Context, name string) error {
	return errs.Wrap("option.delete", s.options.Delete(ctx, name))
}
