package service

import (
	"context"
	"strconv"

	"github.com/and161185/charm/internal/model"
)

// NameResolver returns the display name of one object.
type NameResolver func(ctx context.Context, id int64) (string, error)

// Objects maps an object type to the resolver of its display names.
type Objects struct {
	resolvers map[model.ObjectType]NameResolver
}

// NewObjects wires the stock resolvers. Nil services are skipped.
func NewObjects(posts *PostService, users *UserService, terms *TermService, sites *SiteService, networks *NetworkService) *Objects {
	o := &Objects{resolvers: map[model.ObjectType]NameResolver{}}
	if posts != nil {
		o.Register(model.ObjectPost, func(ctx context.Context, id int64) (string, error) {
			p, err := posts.FromID(ctx, id)
			if err != nil {
				return "", err
			}
			return p.Title, nil
		})
	}
	if users != nil {
		o.Register(model.ObjectUser, func(ctx context.Context, id int64) (string, error) {
			u, err := users.users.Get(ctx, id)
			if err != nil {
				return "", err
			}
			return u.DisplayName, nil
		})
	}
	if terms != nil {
		o.Register(model.ObjectTerm, func(ctx context.Context, id int64) (string, error) {
			t, err := terms.FromID(ctx, id, "")
			if err != nil {
				return "", err
			}
			return t.Name, nil
		})
	}
	if sites != nil {
		o.Register(model.ObjectSite, func(ctx context.Context, id int64) (string, error) {
			site, err := sites.FromID(ctx, id)
			if err != nil {
				return "", err
			}
			return site.Domain + site.Path, nil
		})
	}
	if networks != nil {
		o.Register(model.ObjectNetwork, func(ctx context.Context, id int64) (string, error) {
			n, err := networks.FromID(ctx, id)
			if err != nil {
				return "", err
			}
			return n.Domain + n.Path, nil
		})
	}
	return o
}

// Register binds fn to t, replacing any previous resolver.
func (o *Objects) Register(t model.ObjectType, fn NameResolver) {
	o.resolvers[t] = fn
}

// Has reports whether t has a resolver.
func (o *Objects) Has(t model.ObjectType) bool {
	_, ok := o.resolvers[t]
	return ok
}

// Name resolves the display name of (t, id).
func (o *Objects) Name(ctx context.Context, t model.ObjectType, id int64) (string, error) {
	const op = "objects.name"
	fn, ok := o.resolvers[t]
	if !ok {
		return "", invalid(op, "no resolver for object type %q", t)
	}
	if id <= 0 {
		return "", invalid(op, "bad %s id %s", t, strconv.FormatInt(id, 10))
	}
	return fn(ctx, id)
}
