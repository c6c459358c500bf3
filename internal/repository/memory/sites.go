package memory

import (
	"context"
	"fmt"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// SiteRepo implements repository.SiteRepository in memory.
type SiteRepo struct{ s *Store }

func (r *SiteRepo) taken(s *model.Site) bool {
	for id, other := range r.s.sites {
		if id != s.ID && other.Domain == s.Domain && other.Path == s.Path {
			return true
		}
	}
	return false
}

// Insert stores a new site.
func (r *SiteRepo) Insert(_ context.Context, s *model.Site) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := *s
	row.ID = 0
	if r.taken(&row) {
		return 0, dup("site domain/path")
	}
	row.ID = r.s.next("sites")
	r.s.sites[row.ID] = row
	return row.ID, nil
}

// Update overwrites an existing site.
func (r *SiteRepo) Update(_ context.Context, s *model.Site) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.sites[s.ID]
	if !ok {
		return errs.ErrNotFound
	}
	if r.taken(s) {
		return dup("site domain/path")
	}
	row := *s
	row.Registered = prev.Registered
	r.s.sites[s.ID] = row
	return nil
}

// Get loads a site by id.
func (r *SiteRepo) Get(_ context.Context, id int64) (*model.Site, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	s, ok := r.s.sites[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &s, nil
}

// GetByDomainPath loads a site by address.
func (r *SiteRepo) GetByDomainPath(_ context.Context, domain, path string) (*model.Site, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, s := range r.s.sites {
		if s.Domain == domain && s.Path == path {
			return &s, nil
		}
	}
	return nil, errs.ErrNotFound
}

// Query lists the sites of a network ordered by id.
func (r *SiteRepo) Query(_ context.Context, networkID int64, limit, offset int) ([]model.Site, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Site
	for _, id := range sortedKeys(r.s.sites) {
		if s := r.s.sites[id]; networkID <= 0 || s.NetworkID == networkID {
			out = append(out, s)
		}
	}
	return page(out, limit, offset), nil
}

// Delete removes a site with its meta.
func (r *SiteRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sites[id]; !ok {
		return errs.ErrNotFound
	}
	r.s.deleteMetaOf(model.ObjectSite, id)
	delete(r.s.sites, id)
	return nil
}

// NetworkRepo implements repository.NetworkRepository in memory.
type NetworkRepo struct{ s *Store }

func (r *NetworkRepo) taken(n *model.Network) bool {
	for id, other := range r.s.networks {
		if id != n.ID && other.Domain == n.Domain && other.Path == n.Path {
			return true
		}
	}
	return false
}

// Insert stores a new network.
func (r *NetworkRepo) Insert(_ context.Context, n *model.Network) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := *n
	row.ID = 0
	if r.taken(&row) {
		return 0, dup("network domain/path")
	}
	row.ID = r.s.next("networks")
	r.s.networks[row.ID] = row
	return row.ID, nil
}

// Update overwrites an existing network.
func (r *NetworkRepo) Update(_ context.Context, n *model.Network) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.networks[n.ID]; !ok {
		return errs.ErrNotFound
	}
	if r.taken(n) {
		return dup("network domain/path")
	}
	r.s.networks[n.ID] = *n
	return nil
}

// Get loads a network by id.
func (r *NetworkRepo) Get(_ context.Context, id int64) (*model.Network, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n, ok := r.s.networks[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &n, nil
}

// GetByDomainPath loads a network by address.
func (r *NetworkRepo) GetByDomainPath(_ context.Context, domain, path string) (*model.Network, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, n := range r.s.networks {
		if n.Domain == domain && n.Path == path {
			return &n, nil
		}
	}
	return nil, errs.ErrNotFound
}

// List returns every network ordered by id.
func (r *NetworkRepo) List(_ context.Context) ([]model.Network, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Network, 0, len(r.s.networks))
	for _, id := range sortedKeys(r.s.networks) {
		out = append(out, r.s.networks[id])
	}
	return out, nil
}

// Delete removes a network with its meta.
func (r *NetworkRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.networks[id]; !ok {
		return errs.ErrNotFound
	}
	for _, s := range r.s.sites {
		if s.NetworkID == id {
			return fmt.Errorf("%w: network %d still has sites", errs.ErrInvalid, id)
		}
	}
	r.s.deleteMetaOf(model.ObjectNetwork, id)
	delete(r.s.networks, id)
	return nil
}
