package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/model"
)

func TestTerm_CreateUniqueNameAndSlug(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	created := record[event.TermCreated](s.bus)

	news := &model.Term{Name: "News", Taxonomy: model.TaxonomyCategory}
	_, err := s.terms.Create(ctx, news)
	require.NoError(t, err)
	require.Positive(t, news.TaxonomyID)
	require.Equal(t, "news", news.Slug)

	_, err = s.terms.Create(ctx, &model.Term{Name: "news", Taxonomy: model.TaxonomyCategory})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	child := &model.Term{Name: "News", Taxonomy: model.TaxonomyCategory, Parent: news.ID}
	_, err = s.terms.Create(ctx, child)
	require.NoError(t, err)
	require.Equal(t, "news-2", child.Slug)

	tag := &model.Term{Name: "News", Taxonomy: model.TaxonomyPostTag}
	_, err = s.terms.Create(ctx, tag)
	require.NoError(t, err)
	require.Equal(t, "news", tag.Slug)

	_, err = s.terms.Create(ctx, &model.Term{Name: "x"})
	require.ErrorIs(t, err, errs.ErrInvalid)
	require.Len(t, *created, 3)

	got, err := s.terms.FromSlug(ctx, "news-2", model.TaxonomyCategory)
	require.NoError(t, err)
	require.Equal(t, child.ID, got.ID)
	got, err = s.terms.FromName(ctx, "News", model.TaxonomyPostTag)
	require.NoError(t, err)
	require.Equal(t, tag.TaxonomyID, got.TaxonomyID)
}

func TestTerm_UpdateAndDelete(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	edited := record[event.TermEdited](s.bus)

	term := &model.Term{Name: "Go", Taxonomy: model.TaxonomyPostTag}
	_, err := s.terms.Save(ctx, term)
	require.NoError(t, err)

	term.Name = "Golang"
	term.Slug = ""
	_, err = s.terms.Save(ctx, term)
	require.NoError(t, err)
	require.Equal(t, "golang", term.Slug)
	require.Len(t, *edited, 1)
	require.Equal(t, "Go", (*edited)[0].Before.Name)

	taxID := term.TaxonomyID
	require.NoError(t, s.terms.Delete(ctx, term))
	require.False(t, term.Exists())
	_, err = s.terms.FromTaxonomyID(ctx, taxID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, s.terms.Delete(ctx, term), errs.ErrNotPersisted)
}

func TestTerm_ObjectRelationshipsMaintainCount(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	added := record[event.TermRelAdded](s.bus)
	removed := record[event.TermRelDeleted](s.bus)

	cat := &model.Term{Name: "Tech", Taxonomy: model.TaxonomyCategory}
	_, err := s.terms.Create(ctx, cat)
	require.NoError(t, err)
	p := &model.Post{Title: "Gadgets"}
	_, err = s.posts.Create(ctx, p)
	require.NoError(t, err)

	require.NoError(t, s.terms.AddObjectTerm(ctx, p.ID, cat))
	require.NoError(t, s.terms.AddObjectTerm(ctx, p.ID, cat))
	require.Equal(t, int64(1), cat.Count)
	require.Len(t, *added, 1)

	attached, err := s.terms.ObjectTerms(ctx, p.ID, model.TaxonomyCategory)
	require.NoError(t, err)
	require.Len(t, attached, 1)
	stored, err := s.terms.FromID(ctx, cat.ID, model.TaxonomyCategory)
	require.NoError(t, err)
	require.Equal(t, int64(1), stored.Count)

	require.NoError(t, s.terms.RemoveObjectTerm(ctx, p.ID, cat))
	require.NoError(t, s.terms.RemoveObjectTerm(ctx, p.ID, cat))
	require.Zero(t, cat.Count)
	require.Len(t, *removed, 1)
}

func TestTerm_ObjectTermByIDOnly(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	tag := &model.Term{Name: "Go", Taxonomy: model.TaxonomyPostTag}
	_, err := s.terms.Create(ctx, tag)
	require.NoError(t, err)
	p := &model.Post{Title: "Gophers"}
	_, err = s.posts.Create(ctx, p)
	require.NoError(t, err)

	byID := &model.Term{ID: tag.ID, Taxonomy: model.TaxonomyPostTag}
	require.NoError(t, s.terms.AddObjectTerm(ctx, p.ID, byID))
	require.Equal(t, tag.TaxonomyID, byID.TaxonomyID)

	attached, err := s.terms.ObjectTerms(ctx, p.ID, model.TaxonomyPostTag)
	require.NoError(t, err)
	require.Len(t, attached, 1)

	require.NoError(t, s.terms.RemoveObjectTerm(ctx, p.ID, &model.Term{ID: tag.ID}))
	attached, err = s.terms.ObjectTerms(ctx, p.ID, model.TaxonomyPostTag)
	require.NoError(t, err)
	require.Empty(t, attached)

	err = s.terms.AddObjectTerm(ctx, p.ID, &model.Term{ID: 999})
	require.ErrorIs(t, err, errs.ErrNotFound)
}
