package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository"
)

// RoleService keeps role definitions in the user_roles option.
type RoleService struct {
	options repository.OptionRepository
}

// NewRoleService constructs RoleService.
func NewRoleService(options repository.OptionRepository) *RoleService {
	return &RoleService{options: options}
}

func (s *RoleService) load(ctx context.Context) (map[string]model.Role, error) {
	o, err := s.options.Get(ctx, model.OptionUserRoles)
	if errors.Is(err, errs.ErrNotFound) {
		return map[string]model.Role{}, nil
	}
	if err != nil {
		return nil, err
	}
	roles := map[string]model.Role{}
	if o.Value == "" {
		return roles, nil
	}
	if err := json.Unmarshal([]byte(o.Value), &roles); err != nil {
		return nil, err
	}
	for name, r := range roles {
		r.Name, r.Persisted = name, true
		roles[name] = r
	}
	return roles, nil
}

func (s *RoleService) store(ctx context.Context, roles map[string]model.Role) error {
	b, err := json.Marshal(roles)
	if err != nil {
		return err
	}
	return s.options.Upsert(ctx, model.OptionUserRoles, string(b), true)
}

// Get loads a role by name.
func (s *RoleService) Get(ctx context.Context, name string) (*model.Role, error) {
	const op = "role.get"
	roles, err := s.load(ctx)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	r, ok := roles[name]
	if !ok {
		return nil, errs.New(op, errs.CodeNotFound, "role %q", name)
	}
	return &r, nil
}

// List returns every role ordered by name.
func (s *RoleService) List(ctx context.Context) ([]model.Role, error) {
	roles, err := s.load(ctx)
	if err != nil {
		return nil, errs.Wrap("role.list", err)
	}
	out := make([]model.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Create stores a new role.
func (s *RoleService) Create(ctx context.Context, r *model.Role) error {
	const op = "role.create"
	if r.Exists() {
		return errs.New(op, errs.CodeAlreadyPersisted, "role %q is already stored", r.Name)
	}
	if r.Name == "" {
		return invalid(op, "empty role name")
	}
	roles, err := s.load(ctx)
	if err != nil {
		return errs.Wrap(op, err)
	}
	if _, ok := roles[r.Name]; ok {
		return errs.New(op, errs.CodeAlreadyExists, "role %q", r.Name)
	}
	if r.DisplayName == "" {
		r.DisplayName = r.Name
	}
	if r.Capabilities == nil {
		r.Capabilities = map[string]bool{}
	}
	roles[r.Name] = *r
	if err := s.store(ctx, roles); err != nil {
		return errs.Wrap(op, err)
	}
	r.Persisted = true
	return nil
}

// Update overwrites a stored role.
func (s *RoleService) Update(ctx context.Context, r *model.Role) error {
	const op = "role.update"
	if !r.Exists() {
		return notPersisted(op, "role")
	}
	roles, err := s.load(ctx)
	if err != nil {
		return errs.Wrap(op, err)
	}
	if _, ok := roles[r.Name]; !ok {
		return errs.New(op, errs.CodeNotFound, "role %q", r.Name)
	}
	roles[r.Name] = *r
	return errs.Wrap(op, s.store(ctx, roles))
}

// Save creates r when it is unsaved, otherwise updates it.
func (s *RoleService) Save(ctx context.Context, r *model.Role) error {
	if !r.Exists() {
		return s.Create(ctx, r)
	}
	return s.Update(ctx, r)
}

// Delete removes a role definition. Users keep the name in their capabilities
// but it grants nothing until the role is created again.
func (s *RoleService) Delete(ctx context.Context, r *model.Role) error {
	const op = "role.delete"
	if !r.Exists() {
		return notPersisted(op, "role")
	}
	roles, err := s.load(ctx)
	if err != nil {
		return errs.Wrap(op, err)
	}
	if _, ok := roles[r.Name]; !ok {
		return errs.New(op, errs.CodeNotFound, "role %q", r.Name)
	}
	delete(roles, r.Name)
	if err := s.store(ctx, roles); err != nil {
		return errs.Wrap(op, err)
	}
	r.Persisted = false
	return nil
}

// InstallDefaults adds the stock roles that are missing and reports how many were added.
func (s *RoleService) InstallDefaults(ctx context.Context) (int, error) {
	const op = "role.install_defaults"
	roles, err := s.load(ctx)
	if err != nil {
		return 0, errs.Wrap(op, err)
	}
	n := 0
	for _, r := range model.DefaultRoles() {
		if _, ok := roles[r.Name]; ok {
			continue
		}
		roles[r.Name] = r
		n++
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.store(ctx, roles); err != nil {
		return 0, errs.Wrap(op, err)
	}
	return n, nil
}

// Grants reports whether any of roles grants capability.
func (s *RoleService) Grants(ctx context.Context, roles []string, capability string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	all, err := s.load(ctx)
	if err != nil {
		return false, errs.Wrap("role.grants", err)
	}
	for _, name := range roles {
		if r, ok := all[name]; ok && r.Has(capability) {
			return true, nil
		}
	}
	return false, nil
}
