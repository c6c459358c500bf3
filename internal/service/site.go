package service

import (
	"context"
	"strings"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository"
)

func normPath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}

// SiteService resolves and persists the blogs of a network.
type SiteService struct {
	sites repository.SiteRepository
	clock clock
}

// NewSiteService constructs SiteService.
func NewSiteService(sites repository.SiteRepository) *SiteService {
	return &SiteService{sites: sites}
}

// FromID loads a site by blog id.
func (s *SiteService) FromID(ctx context.Context, id int64) (*model.Site, error) {
	site, err := s.sites.Get(ctx, id)
	if err != nil {
		return nil, errs.Wrap("site.from_id", err)
	}
	return site, nil
}

// FromDomainPath loads a site by its domain and path.
func (s *SiteService) FromDomainPath(ctx context.Context, domain, path string) (*model.Site, error) {
	site, err := s.sites.GetByDomainPath(ctx, strings.ToLower(domain), normPath(path))
	if err != nil {
		return nil, errs.Wrap("site.from_domain_path", err)
	}
	return site, nil
}

// Query lists the sites of a network; networkID 0 lists all.
func (s *SiteService) Query(ctx context.Context, networkID int64, limit, offset int) ([]model.Site, error) {
	out, err := s.sites.Query(ctx, networkID, limit, offset)
	if err != nil {
		return nil, errs.Wrap("site.query", err)
	}
	return out, nil
}

func (s *SiteService) prepare(op string, site *model.Site) error {
	site.Domain = strings.ToLower(strings.TrimSpace(site.Domain))
	if site.Domain == "" {
		return invalid(op, "site domain is empty")
	}
	site.Path = normPath(site.Path)
	site.LastUpdated = s.clock.now().UTC()
	return nil
}

// Create inserts site.
func (s *SiteService) Create(ctx context.Context, site *model.Site) (int64, error) {
	const op = "site.create"
	if site.Exists() {
		return 0, alreadyPersisted(op, "site", site.ID)
	}
	if err := s.prepare(op, site); err != nil {
		return 0, err
	}
	if site.Registered.IsZero() {
		site.Registered = site.LastUpdated
	}
	id, err := s.sites.Insert(ctx, site)
	if err != nil {
		return 0, errs.Wrap(op, err)
	}
	site.ID = id
	return id, nil
}

// Update writes site.
func (s *SiteService) Update(ctx context.Context, site *model.Site) error {
	const op = "site.update"
	if !site.Exists() {
		return notPersisted(op, "site")
	}
	if err := s.prepare(op, site); err != nil {
		return err
	}
	return errs.Wrap(op, s.sites.Update(ctx, site))
}

// Save creates site when it is unsaved, otherwise updates it.
func (s *SiteService) Save(ctx context.Context, site *model.Site) (int64, error) {
	if !site.Exists() {
		return s.Create(ctx, site)
	}
	return site.ID, s.Update(ctx, site)
}

// Delete removes site and its meta.
func (s *SiteService) Delete(ctx context.Context, site *model.Site) error {
	const op = "site.delete"
	if !site.Exists() {
		return notPersisted(op, "site")
	}
	if err := s.sites.Delete(ctx, site.ID); err != nil {
		return errs.Wrap(op, err)
	}
	site.ID = 0
	return nil
}

// NetworkService resolves and persists networks.
type NetworkService struct {
	networks repository.NetworkRepository
}

// NewNetworkService constructs NetworkService.
func NewNetworkService(networks repository.NetworkRepository) *NetworkService {
	return &NetworkService{networks: networks}
}

// FromID loads a network by id.
func (s *NetworkService) FromID(ctx context.Context, id int64) (*model.Network, error) {
	n, err := s.networks.Get(ctx, id)
	if err != nil {
		return nil, errs.Wrap("network.from_id", err)
	}
	return n, nil
}

// FromDomainPath loads a network by its domain and path.
func (s *NetworkService) FromDomainPath(ctx context.Context, domain, path string) (*model.Network, error) {
	n, err := s.networks.GetByDomainPath(ctx, strings.ToLower(domain), normPath(path))
	if err != nil {
		return nil, errs.Wrap("network.from_domain_path", err)
	}
	return n, nil
}

// List returns every network.
func (s *NetworkService) List(ctx context.Context) ([]model.Network, error) {
	out, err := s.networks.List(ctx)
	if err != nil {
		return nil, errs.Wrap("network.list", err)
	}
	return out, nil
}

func prepareNetwork(op string, n *model.Network) error {
	n.Domain = strings.ToLower(strings.TrimSpace(n.Domain))
	if n.Domain == "" {
		return invalid(op, "network domain is empty")
	}
	n.Path = normPath(n.Path)
	return nil
}

// Create inserts n.
func (s *NetworkService) Create(ctx context.Context, n *model.Network) (int64, error) {
	const op = "network.create"
	if n.Exists() {
		return 0, alreadyPersisted(op, "network", n.ID)
	}
	if err := prepareNetwork(op, n); err != nil {
		return 0, err
	}
	id, err := s.networks.Insert(ctx, n)
	if err != nil {
		return 0, errs.Wrap(op, err)
	}
	n.ID = id
	return id, nil
}

// Update writes n.
func (s *NetworkService) Update(ctx context.Context, n *model.Network) error {
	const op = "network.update"
	if !n.Exists() {
		return notPersisted(op, "network")
	}
	if err := prepareNetwork(op, n); err != nil {
		return err
	}
	return errs.Wrap(op, s.networks.Update(ctx, n))
}

// Save creates n when it is unsaved, otherwise updates it.
func (s *NetworkService) Save(ctx context.Context, n *model.Network) (int64, error) {
	if !n.Exists() {
		return s.Create(ctx, n)
	}
	return n.ID, s.Update(ctx, n)
}

// Delete removes n. A network that still has sites is refused.
func (s *NetworkService) Delete(ctx context.Context, n *model.Network) error {
	const op = "network.delete"
	if !n.Exists() {
		return notPersisted(op, "network")
	}
	if err := s.networks.Delete(ctx, n.ID); err != nil {
		return errs.Wrap(op, err)
	}
	n.ID = 0
	return nil
}
