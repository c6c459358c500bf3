package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// PostRepo implements repository.PostRepository in memory.
type PostRepo struct{ s *Store }

// Insert stores a new post.
func (r *PostRepo) Insert(_ context.Context, p *model.Post) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := *p
	row.ID = r.s.next("posts")
	r.s.posts[row.ID] = row
	return row.ID, nil
}

// Update overwrites an existing post.
func (r *PostRepo) Update(_ context.Context, p *model.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[p.ID]; !ok {
		return errs.ErrNotFound
	}
	r.s.posts[p.ID] = *p
	return nil
}

// Get loads a post by id.
func (r *PostRepo) Get(_ context.Context, id int64) (*model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &p, nil
}

// GetBySlug loads the oldest post of a type with slug.
func (r *PostRepo) GetBySlug(_ context.Context, slug, postType string) (*model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, id := range sortedKeys(r.s.posts) {
		if p := r.s.posts[id]; p.Slug == slug && p.Type == postType {
			return &p, nil
		}
	}
	return nil, errs.ErrNotFound
}

// SlugExists reports whether another post of the type uses slug.
func (r *PostRepo) SlugExists(_ context.Context, slug, postType string, excludeID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for id, p := range r.s.posts {
		if id != excludeID && p.Slug == slug && p.Type == postType {
			return true, nil
		}
	}
	return false, nil
}

func postLess(orderBy string) (func(a, b model.Post) bool, error) {
	switch orderBy {
	case "", "post_date":
		return func(a, b model.Post) bool {
			if a.Date.Equal(b.Date) {
				return a.ID < b.ID
			}
			return a.Date.Before(b.Date)
		}, nil
	case "ID":
		return func(a, b model.Post) bool { return a.ID < b.ID }, nil
	case "post_title":
		return func(a, b model.Post) bool {
			if a.Title == b.Title {
				return a.ID < b.ID
			}
			return a.Title < b.Title
		}, nil
	case "menu_order":
		return func(a, b model.Post) bool {
			if a.MenuOrder == b.MenuOrder {
				return a.ID < b.ID
			}
			return a.MenuOrder < b.MenuOrder
		}, nil
	default:
		return nil, fmt.Errorf("%w: order by %q", errs.ErrInvalid, orderBy)
	}
}

// Query lists posts matching q.
func (r *PostRepo) Query(_ context.Context, q model.PostQuery) ([]model.Post, error) {
	less, err := postLess(q.OrderBy)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	statuses := map[string]bool{}
	for _, st := range q.Status {
		statuses[st] = true
	}
	var out []model.Post
	for _, p := range r.s.posts {
		switch {
		case q.Type != "" && p.Type != q.Type:
		case len(statuses) > 0 && !statuses[p.Status]:
		case q.Author > 0 && p.Author != q.Author:
		case q.Parent != nil && p.Parent != *q.Parent:
		case q.Search != "" && !contains(p.Title, q.Search) && !contains(p.Content, q.Search):
		default:
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if q.Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return page(out, q.Limit, q.Offset), nil
}

// Delete removes a post with its meta and term relationships.
func (r *PostRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return errs.ErrNotFound
	}
	r.s.deleteMetaOf(model.ObjectPost, id)
	for k := range r.s.rels {
		if k.objectID == id {
			delete(r.s.rels, k)
			if tx, ok := r.s.taxonomy[k.taxID]; ok {
				tx.Count--
				r.s.taxonomy[k.taxID] = tx
			}
		}
	}
	delete(r.s.posts, id)
	return nil
}

// ReassignAuthor moves every post of from to to.
func (r *PostRepo) ReassignAuthor(_ context.Context, from, to int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, p := range r.s.posts {
		if p.Author == from {
			p.Author = to
			r.s.posts[id] = p
			n++
		}
	}
	return n, nil
}
