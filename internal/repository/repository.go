// Package repository defines the storage gateways implemented by concrete backends.
//
// Lookups that miss return errs.ErrNotFound. Unique violations surface as
// errs.ErrAlreadyExists. Everything else is the backend's own error.
package repository

import (
	"context"

	"github.com/and161185/charm/internal/model"
)

// PostRepository provides access to the posts table.
type PostRepository interface {
	// Insert stores a new post and returns its id.
	Insert(ctx context.Context, p *model.Post) (int64, error)
	// Update overwrites every column of an existing post.
	Update(ctx context.Context, p *model.Post) error
	// Get loads a post by id.
	Get(ctx context.Context, id int64) (*model.Post, error)
	// GetBySlug loads a post by post_name within a post type.
	GetBySlug(ctx context.Context, slug, postType string) (*model.Post, error)
	// SlugExists reports whether another post of the type already uses slug.
	SlugExists(ctx context.Context, slug, postType string, excludeID int64) (bool, error)
	// Query lists posts matching q.
	Query(ctx context.Context, q model.PostQuery) ([]model.Post, error)
	// Delete removes a post with its meta and term relationships.
	Delete(ctx context.Context, id int64) error
	// ReassignAuthor moves every post of one author to another and returns the count.
	ReassignAuthor(ctx context.Context, from, to int64) (int64, error)
}

// UserRepository provides access to the users table.
type UserRepository interface {
	// Insert stores a new user and returns its id.
	Insert(ctx context.Context, u *model.User) (int64, error)
	// Update overwrites an existing user row.
	Update(ctx context.Context, u *model.User) error
	// Get loads a user by id.
	Get(ctx context.Context, id int64) (*model.User, error)
	// GetByLogin loads a user by user_login.
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	// GetByEmail loads a user by user_email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetBySlug loads a user by user_nicename.
	GetBySlug(ctx context.Context, slug string) (*model.User, error)
	// Query lists users matching q.
	Query(ctx context.Context, q model.UserQuery) ([]model.User, error)
	// Delete removes a user with its meta.
	Delete(ctx context.Context, id int64) error
}

// TermRepository provides access to terms, term_taxonomy and term_relationships.
type TermRepository interface {
	// Insert stores the term and its taxonomy row; returns term_id and term_taxonomy_id.
	Insert(ctx context.Context, t *model.Term) (termID, taxonomyID int64, err error)
	// Update overwrites the term and its taxonomy row.
	Update(ctx context.Context, t *model.Term) error
	// Get loads a term by term_id; an empty taxonomy matches any.
	Get(ctx context.Context, termID int64, taxonomy string) (*model.Term, error)
	// GetByTaxonomyID loads a term by term_taxonomy_id.
	GetByTaxonomyID(ctx context.Context, taxonomyID int64) (*model.Term, error)
	// GetBySlug loads a term by slug within a taxonomy.
	GetBySlug(ctx context.Context, slug, taxonomy string) (*model.Term, error)
	// GetByName loads a term by name within a taxonomy.
	GetByName(ctx context.Context, name, taxonomy string) (*model.Term, error)
	// SlugExists reports whether another term of the taxonomy uses slug.
	SlugExists(ctx context.Context, slug, taxonomy string, excludeTermID int64) (bool, error)
	// NameExists reports whether another term with the same name and parent exists in the taxonomy.
	NameExists(ctx context.Context, name, taxonomy string, parent, excludeTermID int64) (bool, error)
	// Query lists terms matching q.
	Query(ctx context.Context, q model.TermQuery) ([]model.Term, error)
	// Delete removes a taxonomy row, its relationships, and the term when nothing else uses it.
	Delete(ctx context.Context, taxonomyID int64) error
	// AddRelationship attaches an object to a term; false if it already was.
	AddRelationship(ctx context.Context, objectID, taxonomyID int64) (bool, error)
	// RemoveRelationship detaches an object from a term; false if it was not attached.
	RemoveRelationship(ctx context.Context, objectID, taxonomyID int64) (bool, error)
	// ObjectTerms lists the terms attached to an object; an empty taxonomy matches any.
	ObjectTerms(ctx context.Context, objectID int64, taxonomy string) ([]model.Term, error)
}

// SiteRepository provides access to the sites table.
type SiteRepository interface {
	Insert(ctx context.Context, s *model.Site) (int64, error)
	Update(ctx context.Context, s *model.Site) error
	Get(ctx context.Context, id int64) (*model.Site, error)
	GetByDomainPath(ctx context.Context, domain, path string) (*model.Site, error)
	// Query lists sites of a network; networkID 0 lists all.
	Query(ctx context.Context, networkID int64, limit, offset int) ([]model.Site, error)
	Delete(ctx context.Context, id int64) error
}

// NetworkRepository provides access to the networks table.
type NetworkRepository interface {
	Insert(ctx context.Context, n *model.Network) (int64, error)
	Update(ctx context.Context, n *model.Network) error
	Get(ctx context.Context, id int64) (*model.Network, error)
	GetByDomainPath(ctx context.Context, domain, path string) (*model.Network, error)
	List(ctx context.Context) ([]model.Network, error)
	Delete(ctx context.Context, id int64) error
}

// MetaRepository provides access to the per-type meta tables. Values are
// stored serialized; decoding is left to the caller.
type MetaRepository interface {
	// List returns the rows of an object ordered by meta id; an empty key lists all keys.
	List(ctx context.Context, t model.ObjectType, objectID int64, key string) ([]model.MetaRow, error)
	// Get loads one row by meta id.
	Get(ctx context.Context, t model.ObjectType, metaID int64) (model.MetaRow, error)
	// Insert adds a row and returns its meta id.
	Insert(ctx context.Context, t model.ObjectType, objectID int64, key, value string) (int64, error)
	// UpdateValue rewrites the value of one row.
	UpdateValue(ctx context.Context, t model.ObjectType, metaID int64, value string) error
	// Delete removes one row.
	Delete(ctx context.Context, t model.ObjectType, metaID int64) error
}

// OptionRepository provides access to the options table.
type OptionRepository interface {
	Get(ctx context.Context, name string) (*model.Option, error)
	// Upsert stores value under name, replacing any previous value.
	Upsert(ctx context.Context, name, value string, autoload bool) error
	Delete(ctx context.Context, name string) error
}

// LogRepository provides access to the audit table.
type LogRepository interface {
	// EnsureTable creates the table if it does not exist yet.
	EnsureTable(ctx context.Context) error
	Insert(ctx context.Context, l *model.Log) (int64, error)
	Get(ctx context.Context, id int64) (*model.Log, error)
	List(ctx context.Context, q model.LogQuery) ([]model.Log, error)
}
