package service

import (
	"context"
	"strings"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository"
)

// TermService resolves and persists taxonomy terms and their relationships.
type TermService struct {
	terms repository.TermRepository
	bus   *event.Bus
}

// NewTermService constructs TermService.
func NewTermService(terms repository.TermRepository, bus *event.Bus) *TermService {
	return &TermService{terms: terms, bus: bus}
}

func found(op string, t *model.Term, err error) (*model.Term, error) {
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	return t, nil
}

// FromID loads a term by term_id. An empty taxonomy matches any.
func (s *TermService) FromID(ctx context.Context, id int64, taxonomy string) (*model.Term, error) {
	t, err := s.terms.Get(ctx, id, taxonomy)
	return found("term.from_id", t, err)
}

// FromTaxonomyID loads a term by term_taxonomy_id.
func (s *TermService) FromTaxonomyID(ctx context.Context, id int64) (*model.Term, error) {
	t, err := s.terms.GetByTaxonomyID(ctx, id)
	return found("term.from_taxonomy_id", t, err)
}

// FromSlug loads a term by slug within a taxonomy.
func (s *TermService) FromSlug(ctx context.Context, slug, taxonomy string) (*model.Term, error) {
	t, err := s.terms.GetBySlug(ctx, slug, taxonomy)
	return found("term.from_slug", t, err)
}

// FromName loads a term by name within a taxonomy.
func (s *TermService) FromName(ctx context.Context, name, taxonomy string) (*model.Term, error) {
	t, err := s.terms.GetByName(ctx, name, taxonomy)
	return found("term.from_name", t, err)
}

// Query lists terms.
func (s *TermService) Query(ctx context.Context, q model.TermQuery) ([]model.Term, error) {
	out, err := s.terms.Query(ctx, q)
	if err != nil {
		return nil, errs.Wrap("term.query", err)
	}
	return out, nil
}

// ObjectTerms lists the terms attached to objectID. An empty taxonomy matches any.
func (s *TermService) ObjectTerms(ctx context.Context, objectID int64, taxonomy string) ([]model.Term, error) {
	out, err := s.terms.ObjectTerms(ctx, objectID, taxonomy)
	if err != nil {
		return nil, errs.Wrap("term.object_terms", err)
	}
	return out, nil
}

func (s *TermService) prepare(ctx context.Context, op string, t *model.Term) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return invalid(op, "term name is empty")
	}
	if t.Taxonomy == "" {
		return invalid(op, "term taxonomy is empty")
	}
	if t.Parent > 0 {
		if _, err := s.terms.Get(ctx, t.Parent, t.Taxonomy); err != nil {
			return errs.Wrap(op, err)
		}
	}
	dup, err := s.terms.NameExists(ctx, t.Name, t.Taxonomy, t.Parent, t.ID)
	if err != nil {
		return errs.Wrap(op, err)
	}
	if dup {
		return errs.New(op, errs.CodeAlreadyExists, "a term named %q already exists in %s", t.Name, t.Taxonomy)
	}
	base := model.SanitizeSlug(t.Slug)
	if base == "" {
		base = model.SanitizeSlug(t.Name)
	}
	if base == "" {
		return invalid(op, "cannot derive a slug from %q", t.Name)
	}
	slug, err := model.UniqueSlug(base, func(slug string) (bool, error) {
		return s.terms.SlugExists(ctx, slug, t.Taxonomy, t.ID)
	})
	if err != nil {
		return errs.Wrap(op, err)
	}
	t.Slug = slug
	return nil
}

// Create inserts t into its taxonomy.
func (s *TermService) Create(ctx context.Context, t *model.Term) (int64, error) {
	const op = "term.create"
	if t.Exists() {
		return 0, alreadyPersisted(op, "term", t.ID)
	}
	if err := s.prepare(ctx, op, t); err != nil {
		return 0, err
	}
	termID, taxID, err := s.terms.Insert(ctx, t)
	if err != nil {
		return 0, errs.Wrap(op, err)
	}
	t.ID, t.TaxonomyID, t.Count = termID, taxID, 0
	s.bus.Publish(ctx, event.TermCreated{Term: *t})
	return termID, nil
}

// Update writes the name, slug, description and parent of t.
func (s *TermService) Update(ctx context.Context, t *model.Term) error {
	const op = "term.update"
	if !t.Exists() {
		return notPersisted(op, "term")
	}
	before, err := s.terms.Get(ctx, t.ID, t.Taxonomy)
	if err != nil {
		return errs.Wrap(op, err)
	}
	if t.Parent == t.ID {
		return invalid(op, "term %d cannot be its own parent", t.ID)
	}
	t.TaxonomyID = before.TaxonomyID
	if err := s.prepare(ctx, op, t); err != nil {
		return err
	}
	if err := s.terms.Update(ctx, t); err != nil {
		return errs.Wrap(op, err)
	}
	t.Count = before.Count
	s.bus.Publish(ctx, event.TermEdited{Term: *t, Before: before})
	return nil
}

// Save creates t when it is unsaved, otherwise updates it.
func (s *TermService) Save(ctx context.Context, t *model.Term) (int64, error) {
	if !t.Exists() {
		return s.Create(ctx, t)
	}
	return t.ID, s.Update(ctx, t)
}

// Delete removes t from its taxonomy together with its relationships.
func (s *TermService) Delete(ctx context.Context, t *model.Term) error {
	const op = "term.delete"
	if !t.Exists() {
		return notPersisted(op, "term")
	}
	if err := s.resolveTaxonomy(ctx, t); err != nil {
		return errs.Wrap(op, err)
	}
	if err := s.terms.Delete(ctx, t.TaxonomyID); err != nil {
		return errs.Wrap(op, err)
	}
	s.bus.Publish(ctx, event.TermDeleted{Term: *t})
	t.ID, t.TaxonomyID = 0, 0
	return nil
}

// resolveTaxonomy fills t.TaxonomyID from the stored term when the caller
// only knows the term id.
func (s *TermService) resolveTaxonomy(ctx context.Context, t *model.Term) error {
	if t.TaxonomyID != 0 {
		return nil
	}
	stored, err := s.terms.Get(ctx, t.ID, t.Taxonomy)
	if err != nil {
		return err
	}
	t.TaxonomyID = stored.TaxonomyID
	return nil
}

// AddObjectTerm attaches objectID to t. Attaching twice is a no-op.
func (s *TermService) AddObjectTerm(ctx context.Context, objectID int64, t *model.Term) error {
	const op = "term.add_object"
	if !t.Exists() {
		return notPersisted(op, "term")
	}
	if err := s.resolveTaxonomy(ctx, t); err != nil {
		return errs.Wrap(op, err)
	}
	added, err := s.terms.AddRelationship(ctx, objectID, t.TaxonomyID)
	if err != nil {
		return errs.Wrap(op, err)
	}
	if added {
		t.Count++
		s.bus.Publish(ctx, event.TermRelAdded{ObjectID: objectID, Term: *t})
	}
	return nil
}

// RemoveObjectTerm detaches objectID from t. Detaching twice is a no-op.
func (s *TermService) RemoveObjectTerm(ctx context.Context, objectID int64, t *model.Term) error {
	const op = "term.remove_object"
	if !t.Exists() {
		return notPersisted(op, "term")
	}
	if err := s.resolveTaxonomy(ctx, t); err != nil {
		return errs.Wrap(op, err)
	}
	removed, err := s.terms.RemoveRelationship(ctx, objectID, t.TaxonomyID)
	if err != nil {
		return errs.Wrap(op, err)
	}
	if removed {
		if t.Count > 0 {
			t.Count--
		}
		s.bus.Publish(ctx, event.TermRelDeleted{ObjectID: objectID, Term: *t})
	}
	return nil
}
