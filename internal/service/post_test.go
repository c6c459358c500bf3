package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository"
)

func TestPost_CreateDefaultsAndSlug(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	saved := record[event.PostSaved](s.bus)

	p := &model.Post{Title: "Hello World"}
	require.False(t, p.Exists())
	id, err := s.posts.Create(ctx, p)
	require.NoError(t, err)
	require.Positive(t, id)
	require.True(t, p.Exists())
	require.Equal(t, model.StatusDraft, p.Status)
	require.Equal(t, model.PostTypePost, p.Type)
	require.Equal(t, "open", p.CommentStatus)
	require.Equal(t, "hello-world", p.Slug)
	require.Contains(t, p.GUID, "urn:uuid:")
	require.True(t, p.Date.Equal(fixedNow))

	second := &model.Post{Title: "Hello world!", Status: model.StatusPublish}
	_, err = s.posts.Create(ctx, second)
	require.NoError(t, err)
	require.Equal(t, "hello-world-2", second.Slug)

	page := &model.Post{Title: "Hello World", Type: model.PostTypePage}
	_, err = s.posts.Create(ctx, page)
	require.NoError(t, err)
	require.Equal(t, "hello-world", page.Slug, "slugs are unique per post type")

	require.Len(t, *saved, 3)
	require.False(t, (*saved)[0].Update)
	require.Nil(t, (*saved)[0].Before)
}

func TestPost_StateMachineGuardsSkipGateway(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	counting := &countingPosts{PostRepository: s.store.Posts()}
	posts := NewPostService(counting, s.meta, s.bus)

	_, err := posts.Create(ctx, &model.Post{ID: 3, Title: "x"})
	require.ErrorIs(t, err, errs.ErrAlreadyPersisted)
	require.Equal(t, errs.CodeAlreadyPersisted, errs.CodeOf(err))

	unsaved := &model.Post{Title: "x"}
	require.ErrorIs(t, posts.Update(ctx, unsaved), errs.ErrNotPersisted)
	require.ErrorIs(t, posts.Delete(ctx, unsaved), errs.ErrNotPersisted)
	require.ErrorIs(t, posts.Trash(ctx, unsaved), errs.ErrNotPersisted)
	require.ErrorIs(t, posts.Restore(ctx, unsaved), errs.ErrNotPersisted)
	require.Zero(t, counting.writes)
}

func TestPost_SaveDispatchAndReload(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	saved := record[event.PostSaved](s.bus)

	p := &model.Post{Title: "Hello", Status: model.StatusDraft}
	id, err := s.posts.Save(ctx, p)
	require.NoError(t, err)
	require.Positive(t, id)

	p.Status = model.StatusPublish
	again, err := s.posts.Save(ctx, p)
	require.NoError(t, err)
	require.Equal(t, id, again)

	fresh := &model.Post{ID: id}
	require.NoError(t, s.posts.Reload(ctx, fresh))
	require.Equal(t, model.StatusPublish, fresh.Status)

	require.Len(t, *saved, 2)
	upd := (*saved)[1]
	require.True(t, upd.Update)
	require.Equal(t, model.StatusDraft, upd.Before.Status)
	require.Equal(t, map[string]model.FieldChange{
		"post_status": {Old: model.StatusDraft, New: model.StatusPublish},
	}, upd.Post.Changes(upd.Before))
}

func TestPost_TrashAndRestore(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	p := &model.Post{Title: "Bin me", Status: model.StatusPublish}
	_, err := s.posts.Create(ctx, p)
	require.NoError(t, err)

	require.NoError(t, s.posts.Trash(ctx, p))
	require.Equal(t, model.StatusTrash, p.Status)
	prev, err := s.meta.Single(ctx, model.ObjectPost, p.ID, model.MetaTrashStatus)
	require.NoError(t, err)
	require.Equal(t, model.StatusPublish, prev)
	require.ErrorIs(t, s.posts.Trash(ctx, p), errs.ErrInvalid)

	require.NoError(t, s.posts.Restore(ctx, p))
	require.Equal(t, model.StatusPublish, p.Status)
	all, err := s.meta.All(ctx, model.ObjectPost, p.ID)
	require.NoError(t, err)
	require.Empty(t, all)
}

// rejectingPosts fails every Update.
type rejectingPosts struct {
	repository.PostRepository
}

func (rejectingPosts) Update(context.Context, *model.Post) error {
	return errs.New("test.update", errs.CodeStorage, "disk full")
}

func TestPost_TrashLeavesNoMetaWhenUpdateFails(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	trashed := record[event.PostTrashed](s.bus)

	p := &model.Post{Title: "Stuck", Status: model.StatusPublish}
	_, err := s.posts.Create(ctx, p)
	require.NoError(t, err)

	s.posts.posts = rejectingPosts{PostRepository: s.store.Posts()}
	require.Error(t, s.posts.Trash(ctx, p))
	require.Equal(t, model.StatusPublish, p.Status)
	require.Empty(t, *trashed)

	all, err := s.meta.All(ctx, model.ObjectPost, p.ID)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestPost_RestoreWithoutStoredStatusFallsBackToDraft(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	p := &model.Post{Title: "Old", Status: model.StatusTrash}
	_, err := s.posts.Create(ctx, p)
	require.NoError(t, err)
	require.NoError(t, s.posts.Restore(ctx, p))
	require.Equal(t, model.StatusDraft, p.Status)
}

func TestPost_DeleteResetsID(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	deleted := record[event.PostDeleted](s.bus)

	p := &model.Post{Title: "Gone"}
	id, err := s.posts.Create(ctx, p)
	require.NoError(t, err)
	_, err = s.meta.Add(ctx, model.ObjectPost, id, "color", "red", false)
	require.NoError(t, err)

	require.NoError(t, s.posts.Delete(ctx, p))
	require.False(t, p.Exists())
	require.Len(t, *deleted, 1)
	require.Equal(t, id, (*deleted)[0].Post.ID)

	_, err = s.posts.FromID(ctx, id)
	require.ErrorIs(t, err, errs.ErrNotFound)
	vals, err := s.meta.Values(ctx, model.ObjectPost, id, "color")
	require.NoError(t, err)
	require.Empty(t, vals)
}

func TestPost_FromSlugDefaultsToPostType(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	_, err := s.posts.Create(ctx, &model.Post{Title: "About", Status: model.StatusPublish})
	require.NoError(t, err)
	p, err := s.posts.FromSlug(ctx, "about", "")
	require.NoError(t, err)
	require.Equal(t, "About", p.Title)

	p, err = s.posts.FromSlug(ctx, "about", model.PostTypePage)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Nil(t, p)
}
