package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository"
)

var (
	_ repository.PostRepository    = (*PostRepo)(nil)
	_ repository.UserRepository    = (*UserRepo)(nil)
	_ repository.TermRepository    = (*TermRepo)(nil)
	_ repository.SiteRepository    = (*SiteRepo)(nil)
	_ repository.NetworkRepository = (*NetworkRepo)(nil)
	_ repository.MetaRepository    = (*MetaRepo)(nil)
	_ repository.OptionRepository  = (*OptionRepo)(nil)
	_ repository.LogRepository     = (*LogRepo)(nil)
)

func TestPosts_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Posts().Insert(ctx, &model.Post{Title: "A", Type: "post"})
	require.NoError(t, err)
	_, err = s.Meta().Insert(ctx, model.ObjectPost, id, "k", "v")
	require.NoError(t, err)
	_, taxID, err := s.Terms().Insert(ctx, &model.Term{Name: "News", Slug: "news", Taxonomy: "category"})
	require.NoError(t, err)
	added, err := s.Terms().AddRelationship(ctx, id, taxID)
	require.NoError(t, err)
	require.True(t, added)

	require.NoError(t, s.Posts().Delete(ctx, id))

	rows, err := s.Meta().List(ctx, model.ObjectPost, id, "")
	require.NoError(t, err)
	require.Empty(t, rows)
	term, err := s.Terms().GetByTaxonomyID(ctx, taxID)
	require.NoError(t, err)
	require.Zero(t, term.Count)

	_, err = s.Posts().Get(ctx, id)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPosts_QueryOrderAndPage(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"c", "a", "b"} {
		_, err := s.Posts().Insert(ctx, &model.Post{Title: title, Type: "post", Status: "publish", Date: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	out, err := s.Posts().Query(ctx, model.PostQuery{OrderBy: "post_title", Limit: 2})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].Title)
	require.Equal(t, "b", out[1].Title)

	out, err = s.Posts().Query(ctx, model.PostQuery{Desc: true})
	require.NoError(t, err)
	require.Equal(t, "b", out[0].Title)

	_, err = s.Posts().Query(ctx, model.PostQuery{OrderBy: "nope"})
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestUsers_UniqueLoginAndEmail(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Users().Insert(ctx, &model.User{Login: "bob", Email: "bob@example.com"})
	require.NoError(t, err)
	_, err = s.Users().Insert(ctx, &model.User{Login: "bob"})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	_, err = s.Users().Insert(ctx, &model.User{Login: "rob", Email: "BOB@example.com"})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	u, err := s.Users().GetByEmail(ctx, "Bob@Example.com")
	require.NoError(t, err)
	require.Equal(t, "bob", u.Login)
}

func TestUsers_QueryByRole(t *testing.T) {
	ctx := context.Background()
	s := New()
	ed, _ := s.Users().Insert(ctx, &model.User{Login: "ed"})
	_, _ = s.Users().Insert(ctx, &model.User{Login: "sub"})
	_, err := s.Meta().Insert(ctx, model.ObjectUser, ed, model.MetaCapabilities, `{"editor":true}`)
	require.NoError(t, err)

	out, err := s.Users().Query(ctx, model.UserQuery{Role: "editor"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "ed", out[0].Login)
}

func TestTerms_DeleteReparentsChildren(t *testing.T) {
	ctx := context.Background()
	s := New()
	parentID, parentTax, _ := s.Terms().Insert(ctx, &model.Term{Name: "P", Slug: "p", Taxonomy: "category"})
	_, childTax, _ := s.Terms().Insert(ctx, &model.Term{Name: "C", Slug: "c", Taxonomy: "category", Parent: parentID})

	require.NoError(t, s.Terms().Delete(ctx, parentTax))
	child, err := s.Terms().GetByTaxonomyID(ctx, childTax)
	require.NoError(t, err)
	require.Zero(t, child.Parent)

	_, err = s.Terms().Get(ctx, parentID, "")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestLogs_UserDeleteNullsActor(t *testing.T) {
	ctx := context.Background()
	s := New()
	logs := s.Logs()
	_, err := logs.Insert(ctx, &model.Log{Action: "x"})
	require.Error(t, err)
	require.NoError(t, logs.EnsureTable(ctx))

	uid, _ := s.Users().Insert(ctx, &model.User{Login: "bob"})
	id, err := logs.Insert(ctx, &model.Log{UserID: uid, Action: model.ActionLogin, Date: time.Now()})
	require.NoError(t, err)
	_, err = logs.Insert(ctx, &model.Log{UserID: 999, Action: model.ActionLogin})
	require.Error(t, err)

	require.NoError(t, s.Users().Delete(ctx, uid))
	l, err := logs.Get(ctx, id)
	require.NoError(t, err)
	require.Zero(t, l.UserID)
}
