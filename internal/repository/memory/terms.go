package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// TermRepo implements repository.TermRepository in memory.
type TermRepo struct{ s *Store }

func (s *Store) joinTerm(tx taxRow) model.Term {
	t := s.terms[tx.TermID]
	return model.Term{
		ID: t.ID, Name: t.Name, Slug: t.Slug, Group: t.Group,
		TaxonomyID: tx.ID, Taxonomy: tx.Taxonomy, Description: tx.Description,
		Parent: tx.Parent, Count: tx.Count,
	}
}

func (r *TermRepo) find(match func(model.Term) bool) (*model.Term, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, id := range sortedKeys(r.s.taxonomy) {
		if t := r.s.joinTerm(r.s.taxonomy[id]); match(t) {
			return &t, nil
		}
	}
	return nil, errs.ErrNotFound
}

// Insert stores the term and its taxonomy row.
func (r *TermRepo) Insert(_ context.Context, t *model.Term) (int64, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	termID := r.s.next("terms")
	r.s.terms[termID] = termRow{ID: termID, Name: t.Name, Slug: t.Slug, Group: t.Group}
	taxID := r.s.next("term_taxonomy")
	r.s.taxonomy[taxID] = taxRow{ID: taxID, TermID: termID, Taxonomy: t.Taxonomy, Description: t.Description, Parent: t.Parent}
	return termID, taxID, nil
}

// Update overwrites the term and its taxonomy row.
func (r *TermRepo) Update(_ context.Context, t *model.Term) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.terms[t.ID]
	if !ok {
		return errs.ErrNotFound
	}
	row.Name, row.Slug, row.Group = t.Name, t.Slug, t.Group
	r.s.terms[t.ID] = row
	if tx, ok := r.s.taxonomy[t.TaxonomyID]; ok {
		tx.Description, tx.Parent = t.Description, t.Parent
		r.s.taxonomy[t.TaxonomyID] = tx
	}
	return nil
}

// Get loads a term by term_id; an empty taxonomy matches any.
func (r *TermRepo) Get(_ context.Context, termID int64, taxonomy string) (*model.Term, error) {
	return r.find(func(t model.Term) bool {
		return t.ID == termID && (taxonomy == "" || t.Taxonomy == taxonomy)
	})
}

// GetByTaxonomyID loads a term by term_taxonomy_id.
func (r *TermRepo) GetByTaxonomyID(_ context.Context, taxonomyID int64) (*model.Term, error) {
	return r.find(func(t model.Term) bool { return t.TaxonomyID == taxonomyID })
}

// GetBySlug loads a term by slug within a taxonomy.
func (r *TermRepo) GetBySlug(_ context.Context, slug, taxonomy string) (*model.Term, error) {
	return r.find(func(t model.Term) bool { return t.Slug == slug && t.Taxonomy == taxonomy })
}

// GetByName loads a term by name within a taxonomy.
func (r *TermRepo) GetByName(_ context.Context, name, taxonomy string) (*model.Term, error) {
	return r.find(func(t model.Term) bool { return t.Name == name && t.Taxonomy == taxonomy })
}

// SlugExists reports whether another term of the taxonomy uses slug.
func (r *TermRepo) SlugExists(ctx context.Context, slug, taxonomy string, excludeTermID int64) (bool, error) {
	_, err := r.find(func(t model.Term) bool {
		return t.Slug == slug && t.Taxonomy == taxonomy && t.ID != excludeTermID
	})
	return err == nil, nil
}

// NameExists reports whether a sibling term with the same name exists.
func (r *TermRepo) NameExists(ctx context.Context, name, taxonomy string, parent, excludeTermID int64) (bool, error) {
	_, err := r.find(func(t model.Term) bool {
		return strings.EqualFold(t.Name, name) && t.Taxonomy == taxonomy && t.Parent == parent && t.ID != excludeTermID
	})
	return err == nil, nil
}

// Query lists terms ordered by name.
func (r *TermRepo) Query(_ context.Context, q model.TermQuery) ([]model.Term, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Term
	for _, tx := range r.s.taxonomy {
		t := r.s.joinTerm(tx)
		switch {
		case q.Taxonomy != "" && t.Taxonomy != q.Taxonomy:
		case q.Parent != nil && t.Parent != *q.Parent:
		case q.HideEmpty && t.Count <= 0:
		case q.Search != "" && !contains(t.Name, q.Search) && !contains(t.Slug, q.Search):
		default:
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].TaxonomyID < out[j].TaxonomyID
		}
		return out[i].Name < out[j].Name
	})
	return page(out, q.Limit, q.Offset), nil
}

// Delete removes a taxonomy row, its relationships, and the orphaned term.
func (r *TermRepo) Delete(_ context.Context, taxonomyID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.taxonomy[taxonomyID]
	if !ok {
		return errs.ErrNotFound
	}
	for k := range r.s.rels {
		if k.taxID == taxonomyID {
			delete(r.s.rels, k)
		}
	}
	for id, other := range r.s.taxonomy {
		if other.Parent == tx.TermID {
			other.Parent = 0
			r.s.taxonomy[id] = other
		}
	}
	delete(r.s.taxonomy, taxonomyID)
	for _, other := range r.s.taxonomy {
		if other.TermID == tx.TermID {
			return nil
		}
	}
	delete(r.s.terms, tx.TermID)
	r.s.deleteMetaOf(model.ObjectTerm, tx.TermID)
	return nil
}

// AddRelationship attaches objectID to the term.
func (r *TermRepo) AddRelationship(_ context.Context, objectID, taxonomyID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.taxonomy[taxonomyID]
	if !ok {
		return false, errs.ErrNotFound
	}
	k := relKey{objectID, taxonomyID}
	if _, ok := r.s.rels[k]; ok {
		return false, nil
	}
	r.s.rels[k] = struct{}{}
	tx.Count++
	r.s.taxonomy[taxonomyID] = tx
	return true, nil
}

// RemoveRelationship detaches objectID from the term.
func (r *TermRepo) RemoveRelationship(_ context.Context, objectID, taxonomyID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := relKey{objectID, taxonomyID}
	if _, ok := r.s.rels[k]; !ok {
		return false, nil
	}
	delete(r.s.rels, k)
	if tx, ok := r.s.taxonomy[taxonomyID]; ok && tx.Count > 0 {
		tx.Count--
		r.s.taxonomy[taxonomyID] = tx
	}
	return true, nil
}

// ObjectTerms lists the terms attached to objectID.
func (r *TermRepo) ObjectTerms(_ context.Context, objectID int64, taxonomy string) ([]model.Term, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Term
	for k := range r.s.rels {
		if k.objectID != objectID {
			continue
		}
		tx, ok := r.s.taxonomy[k.taxID]
		if !ok || (taxonomy != "" && tx.Taxonomy != taxonomy) {
			continue
		}
		out = append(out, r.s.joinTerm(tx))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
