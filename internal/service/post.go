package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository"
)

// PostService resolves and persists posts.
type PostService struct {
	posts repository.PostRepository
	meta  *MetaService
	bus   *event.Bus
	clock clock
}

// NewPostService constructs PostService.
func NewPostService(posts repository.PostRepository, meta *MetaService, bus *event.Bus) *PostService {
	return &PostService{posts: posts, meta: meta, bus: bus}
}

// FromID loads a post by id.
func (s *PostService) FromID(ctx context.Context, id int64) (*model.Post, error) {
	p, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, errs.Wrap("post.from_id", err)
	}
	return p, nil
}

// FromSlug loads a post by slug within a post type; an empty type means "post".
func (s *PostService) FromSlug(ctx context.Context, slug, postType string) (*model.Post, error) {
	if postType == "" {
		postType = model.PostTypePost
	}
	p, err := s.posts.GetBySlug(ctx, slug, postType)
	if err != nil {
		return nil, errs.Wrap("post.from_slug", err)
	}
	return p, nil
}

// Query lists posts.
func (s *PostService) Query(ctx context.Context, q model.PostQuery) ([]model.Post, error) {
	out, err := s.posts.Query(ctx, q)
	if err != nil {
		return nil, errs.Wrap("post.query", err)
	}
	return out, nil
}

func (s *PostService) uniqueSlug(ctx context.Context, p *model.Post) error {
	base := p.Slug
	if base == "" {
		base = model.SanitizeSlug(p.Title)
	} else {
		base = model.SanitizeSlug(base)
	}
	if base == "" {
		if p.Status == model.StatusDraft || p.Status == model.StatusAutoDraft {
			p.Slug = ""
			return nil
		}
		base = strconv.FormatInt(p.ID, 10)
		if p.ID == 0 {
			base = p.Type
		}
	}
	slug, err := model.UniqueSlug(base, func(slug string) (bool, error) {
		return s.posts.SlugExists(ctx, slug, p.Type, p.ID)
	})
	if err != nil {
		return err
	}
	p.Slug = slug
	return nil
}

func (s *PostService) defaults(p *model.Post) error {
	now := s.clock.now()
	if p.Status == "" {
		p.Status = model.StatusDraft
	}
	if p.Type == "" {
		p.Type = model.PostTypePost
	}
	if p.CommentStatus == "" {
		p.CommentStatus = "open"
	}
	if p.PingStatus == "" {
		p.PingStatus = "open"
	}
	if p.Date.IsZero() {
		p.Date = now
	}
	if p.DateGMT.IsZero() {
		p.DateGMT = p.Date.UTC()
	}
	p.Modified, p.ModifiedGMT = now, now.UTC()
	if p.GUID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		p.GUID = "urn:uuid:" + id.String()
	}
	return nil
}

// Create inserts p and assigns its id.
func (s *PostService) Create(ctx context.Context, p *model.Post) (int64, error) {
	const op = "post.create"
	if p.Exists() {
		return 0, alreadyPersisted(op, "post", p.ID)
	}
	if err := s.defaults(p); err != nil {
		return 0, errs.Wrap(op, err)
	}
	if err := s.uniqueSlug(ctx, p); err != nil {
		return 0, errs.Wrap(op, err)
	}
	id, err := s.posts.Insert(ctx, p)
	if err != nil {
		return 0, errs.Wrap(op, err)
	}
	p.ID = id
	s.bus.Publish(ctx, event.PostSaved{Post: *p})
	return id, nil
}

// Update writes every field of p.
func (s *PostService) Update(ctx context.Context, p *model.Post) error {
	const op = "post.update"
	if !p.Exists() {
		return notPersisted(op, "post")
	}
	before, err := s.posts.Get(ctx, p.ID)
	if err != nil {
		return errs.Wrap(op, err)
	}
	if p.Slug != before.Slug || p.Type != before.Type || p.Slug == "" {
		if err := s.uniqueSlug(ctx, p); err != nil {
			return errs.Wrap(op, err)
		}
	}
	now := s.clock.now()
	p.Modified, p.ModifiedGMT = now, now.UTC()
	if err := s.posts.Update(ctx, p); err != nil {
		return errs.Wrap(op, err)
	}
	s.bus.Publish(ctx, event.PostSaved{Post: *p, Before: before, Update: true})
	return nil
}

// Save creates p when it is unsaved, otherwise updates it.
func (s *PostService) Save(ctx context.Context, p *model.Post) (int64, error) {
	if !p.Exists() {
		return s.Create(ctx, p)
	}
	return p.ID, s.Update(ctx, p)
}

// Reload replaces p with the stored row.
func (s *PostService) Reload(ctx context.Context, p *model.Post) error {
	const op = "post.reload"
	if !p.Exists() {
		return notPersisted(op, "post")
	}
	fresh, err := s.posts.Get(ctx, p.ID)
	if err != nil {
		return errs.Wrap(op, err)
	}
	*p = *fresh
	return nil
}

// Trash moves p to the trash, remembering its status for Restore.
func (s *PostService) Trash(ctx context.Context, p *model.Post) error {
	const op = "post.trash"
	if !p.Exists() {
		return notPersisted(op, "post")
	}
	if p.Status == model.StatusTrash {
		return invalid(op, "post %d is already in the trash", p.ID)
	}
	prev := p.Status
	p.Status = model.StatusTrash
	if err := s.posts.Update(ctx, p); err != nil {
		p.Status = prev
		return errs.Wrap(op, err)
	}
	if err := s.markTrashed(ctx, p.ID, prev); err != nil {
		p.Status = prev
		return errs.Wrap(op, errors.Join(err, s.posts.Update(ctx, p), s.clearTrashed(ctx, p.ID)))
	}
	s.bus.Publish(ctx, event.PostTrashed{Post: *p})
	return nil
}

// markTrashed stores the trash meta once the status change is written.
func (s *PostService) markTrashed(ctx context.Context, id int64, prev string) error {
	if _, err := s.meta.Set(ctx, model.ObjectPost, id, model.MetaTrashStatus, prev); err != nil {
		return err
	}
	_, err := s.meta.Set(ctx, model.ObjectPost, id, model.MetaTrashTime, s.clock.now().Unix())
	return err
}

func (s *PostService) clearTrashed(ctx context.Context, id int64) error {
	for _, k := range []string{model.MetaTrashStatus, model.MetaTrashTime} {
		if _, err := s.meta.DeleteKey(ctx, model.ObjectPost, id, k); err != nil {
			return err
		}
	}
	return nil
}

// Restore takes p out of the trash and puts back the status it had before.
func (s *PostService) Restore(ctx context.Context, p *model.Post) error {
	const op = "post.restore"
	if !p.Exists() {
		return notPersisted(op, "post")
	}
	if p.Status != model.StatusTrash {
		return invalid(op, "post %d is not in the trash", p.ID)
	}
	status := model.StatusDraft
	v, err := s.meta.Single(ctx, model.ObjectPost, p.ID, model.MetaTrashStatus)
	switch {
	case err == nil:
		if str, ok := v.(string); ok && str != "" {
			status = str
		}
	case !errors.Is(err, errs.ErrNotFound):
		return errs.Wrap(op, err)
	}
	p.Status = status
	if err := s.posts.Update(ctx, p); err != nil {
		p.Status = model.StatusTrash
		return errs.Wrap(op, err)
	}
	if err := s.clearTrashed(ctx, p.ID); err != nil {
		return errs.Wrap(op, err)
	}
	s.bus.Publish(ctx, event.PostRestored{Post: *p})
	return nil
}

// Delete removes p with its meta and term relationships and marks it unsaved.
func (s *PostService) Delete(ctx context.Context, p *model.Post) error {
	const op = "post.delete"
	if !p.Exists() {
		return notPersisted(op, "post")
	}
	if err := s.posts.Delete(ctx, p.ID); err != nil {
		return errs.Wrap(op, err)
	}
	s.bus.Publish(ctx, event.PostDeleted{Post: *p})
	p.ID = 0
	return nil
}
