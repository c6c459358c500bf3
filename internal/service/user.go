package service

import (
	"context"
	"encoding/base64"
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/and161185/charm/internal/auth"
	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository"
)

// DefaultRole is given to users created without roles.
const DefaultRole = "subscriber"

// UserService resolves and persists users and their roles.
type UserService struct {
	users repository.UserRepository
	meta  repository.MetaRepository
	posts *PostService
	roles *RoleService
	bus   *event.Bus
	clock clock
}

// NewUserService constructs UserService. Roles are stored in usermeta
// directly; they change through SetRole and friends, not through MetaService.
func NewUserService(users repository.UserRepository, meta repository.MetaRepository, posts *PostService, roles *RoleService, bus *event.Bus) *UserService {
	return &UserService{users: users, meta: meta, posts: posts, roles: roles, bus: bus}
}

func (s *UserService) withRoles(ctx context.Context, op string, u *model.User, err error) (*model.User, error) {
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	roles, err := s.loadRoles(ctx, u.ID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	u.Roles = roles
	return u, nil
}

// FromID loads a user by id.
func (s *UserService) FromID(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.Get(ctx, id)
	return s.withRoles(ctx, "user.from_id", u, err)
}

// FromLogin loads a user by login.
func (s *UserService) FromLogin(ctx context.Context, login string) (*model.User, error) {
	u, err := s.users.GetByLogin(ctx, strings.TrimSpace(login))
	return s.withRoles(ctx, "user.from_login", u, err)
}

// FromEmail loads a user by email.
func (s *UserService) FromEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	return s.withRoles(ctx, "user.from_email", u, err)
}

// FromSlug loads a user by nicename.
func (s *UserService) FromSlug(ctx context.Context, slug string) (*model.User, error) {
	u, err := s.users.GetBySlug(ctx, slug)
	return s.withRoles(ctx, "user.from_slug", u, err)
}

// Query lists users with their roles.
func (s *UserService) Query(ctx context.Context, q model.UserQuery) ([]model.User, error) {
	const op = "user.query"
	out, err := s.users.Query(ctx, q)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	for i := range out {
		if out[i].Roles, err = s.loadRoles(ctx, out[i].ID); err != nil {
			return nil, errs.Wrap(op, err)
		}
	}
	return out, nil
}

// CheckPassword reports whether password matches the stored hash of u.
func (s *UserService) CheckPassword(u *model.User, password string) bool {
	return u != nil && u.PassHash != "" && auth.VerifyPassword(password, u.PassHash)
}

func (s *UserService) unique(ctx context.Context, op string, u *model.User) error {
	other, err := s.users.GetByLogin(ctx, u.Login)
	switch {
	case err == nil && other.ID != u.ID:
		return errs.New(op, errs.CodeAlreadyExists, "login %q is taken", u.Login)
	case err != nil && !errors.Is(err, errs.ErrNotFound):
		return errs.Wrap(op, err)
	}
	if u.Email == "" {
		return nil
	}
	other, err = s.users.GetByEmail(ctx, u.Email)
	switch {
	case err == nil && other.ID != u.ID:
		return errs.New(op, errs.CodeAlreadyExists, "email %q is taken", u.Email)
	case err != nil && !errors.Is(err, errs.ErrNotFound):
		return errs.Wrap(op, err)
	}
	return nil
}

func (s *UserService) prepare(op string, u *model.User) error {
	u.Login = strings.TrimSpace(u.Login)
	u.Email = strings.TrimSpace(u.Email)
	if u.Login == "" {
		return invalid(op, "empty user_login")
	}
	if u.Nicename == "" {
		u.Nicename = model.SanitizeSlug(u.Login)
		if len(u.Nicename) > 50 {
			u.Nicename = u.Nicename[:50]
		}
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Login
	}
	if u.Password != "" {
		h, err := auth.HashPassword(u.Password)
		if err != nil {
			return errs.Wrap(op, err)
		}
		u.PassHash, u.Password = h, ""
	}
	return nil
}

// Create inserts u, hashing its plaintext password. Users without roles get DefaultRole.
func (s *UserService) Create(ctx context.Context, u *model.User) (int64, error) {
	const op = "user.create"
	if u.Exists() {
		return 0, alreadyPersisted(op, "user", u.ID)
	}
	if err := s.prepare(op, u); err != nil {
		return 0, err
	}
	if u.PassHash == "" {
		random, err := auth.RandBytes(24)
		if err != nil {
			return 0, errs.Wrap(op, err)
		}
		if u.PassHash, err = auth.HashPassword(base64.RawURLEncoding.EncodeToString(random)); err != nil {
			return 0, errs.Wrap(op, err)
		}
	}
	if err := s.unique(ctx, op, u); err != nil {
		return 0, err
	}
	if u.Registered.IsZero() {
		u.Registered = s.clock.now().UTC()
	}
	id, err := s.users.Insert(ctx, u)
	if err != nil {
		return 0, errs.Wrap(op, err)
	}
	u.ID = id
	if len(u.Roles) == 0 {
		u.Roles = []string{DefaultRole}
	}
	if err := s.storeRoles(ctx, u.ID, u.Roles); err != nil {
		if derr := s.users.Delete(ctx, id); derr != nil {
			return 0, errs.Wrap(op, errors.Join(err, derr))
		}
		u.ID = 0
		return 0, errs.Wrap(op, err)
	}
	s.bus.Publish(ctx, event.UserRegistered{User: *u})
	return id, nil
}

// Update writes u. A non-empty Password replaces the stored hash; a non-nil
// Roles replaces the stored roles.
func (s *UserService) Update(ctx context.Context, u *model.User) error {
	const op = "user.update"
	if !u.Exists() {
		return notPersisted(op, "user")
	}
	before, err := s.FromID(ctx, u.ID)
	if err != nil {
		return err
	}
	if err := s.prepare(op, u); err != nil {
		return err
	}
	if u.PassHash == "" {
		u.PassHash = before.PassHash
	}
	if err := s.unique(ctx, op, u); err != nil {
		return err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return errs.Wrap(op, err)
	}
	if u.Roles == nil {
		u.Roles = before.Roles
	} else if !sameRoles(u.Roles, before.Roles) {
		if err := s.storeRoles(ctx, u.ID, u.Roles); err != nil {
			return errs.Wrap(op, err)
		}
	}
	s.bus.Publish(ctx, event.UserUpdated{User: *u, Before: before})
	return nil
}

// Save creates u when it is unsaved, otherwise updates it.
func (s *UserService) Save(ctx context.Context, u *model.User) (int64, error) {
	if !u.Exists() {
		return s.Create(ctx, u)
	}
	return u.ID, s.Update(ctx, u)
}

// Delete removes u. With reassignTo > 0 its posts move to that user,
// otherwise they are deleted with it.
func (s *UserService) Delete(ctx context.Context, u *model.User, reassignTo int64) error {
	const op = "user.delete"
	if !u.Exists() {
		return notPersisted(op, "user")
	}
	if reassignTo == u.ID {
		return invalid(op, "cannot reassign posts of user %d to itself", u.ID)
	}
	if reassignTo > 0 {
		if _, err := s.users.Get(ctx, reassignTo); err != nil {
			return errs.Wrap(op, err)
		}
		if _, err := s.posts.posts.ReassignAuthor(ctx, u.ID, reassignTo); err != nil {
			return errs.Wrap(op, err)
		}
	} else {
		owned, err := s.posts.Query(ctx, model.PostQuery{Author: u.ID, OrderBy: "ID"})
		if err != nil {
			return errs.Wrap(op, err)
		}
		for i := range owned {
			if err := s.posts.Delete(ctx, &owned[i]); err != nil {
				return errs.Wrap(op, err)
			}
		}
	}
	// delete_user fires while the row still exists, so a user removing
	// their own account can still be named as the actor.
	s.bus.Publish(ctx, event.UserDeleted{User: *u, ReassignTo: reassignTo})
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return errs.Wrap(op, err)
	}
	u.ID = 0
	return nil
}

// SetRole replaces every role of u with role.
func (s *UserService) SetRole(ctx context.Context, u *model.User, role string) error {
	roles := []string{}
	if role != "" {
		roles = []string{role}
	}
	return s.changeRoles(ctx, "user.set_role", u, roles)
}

// AddRole grants role to u.
func (s *UserService) AddRole(ctx context.Context, u *model.User, role string) error {
	if u.HasRole(role) {
		return nil
	}
	return s.changeRoles(ctx, "user.add_role", u, append(slices.Clone(u.Roles), role))
}

// RemoveRole takes role away from u.
func (s *UserService) RemoveRole(ctx context.Context, u *model.User, role string) error {
	if !u.HasRole(role) {
		return nil
	}
	return s.changeRoles(ctx, "user.remove_role", u, slices.DeleteFunc(slices.Clone(u.Roles), func(r string) bool { return r == role }))
}

func (s *UserService) changeRoles(ctx context.Context, op string, u *model.User, roles []string) error {
	if !u.Exists() {
		return notPersisted(op, "user")
	}
	for _, name := range roles {
		if _, err := s.roles.Get(ctx, name); err != nil {
			return errs.Wrap(op, err)
		}
	}
	before := *u
	if err := s.storeRoles(ctx, u.ID, roles); err != nil {
		return errs.Wrap(op, err)
	}
	u.Roles = roles
	s.bus.Publish(ctx, event.UserUpdated{User: *u, Before: &before})
	return nil
}

// HasCap reports whether any role of u grants capability.
func (s *UserService) HasCap(ctx context.Context, u *model.User, capability string) (bool, error) {
	if u == nil {
		return false, nil
	}
	return s.roles.Grants(ctx, u.Roles, capability)
}

// UserCan reports whether the user stored under userID holds capability.
// An unknown user holds nothing.
func (s *UserService) UserCan(ctx context.Context, userID int64, capability string) (bool, error) {
	u, err := s.FromID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.HasCap(ctx, u, capability)
}

func (s *UserService) loadRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.meta.List(ctx, model.ObjectUser, userID, model.MetaCapabilities)
	if err != nil {
		return nil, err
	}
	var roles []string
	for _, r := range rows {
		caps, ok := model.UnserializeMeta(r.Value).(map[string]any)
		if !ok {
			continue
		}
		for name, on := range caps {
			if b, ok := on.(bool); ok && b {
				roles = append(roles, name)
			}
		}
	}
	sort.Strings(roles)
	return roles, nil
}

func (s *UserService) storeRoles(ctx context.Context, userID int64, roles []string) error {
	caps := make(map[string]bool, len(roles))
	for _, r := range roles {
		caps[r] = true
	}
	raw, err := model.SerializeMeta(caps)
	if err != nil {
		return err
	}
	rows, err := s.meta.List(ctx, model.ObjectUser, userID, model.MetaCapabilities)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		_, err = s.meta.Insert(ctx, model.ObjectUser, userID, model.MetaCapabilities, raw)
		return err
	}
	for _, r := range rows {
		if err := s.meta.UpdateValue(ctx, model.ObjectUser, r.ID, raw); err != nil {
			return err
		}
	}
	return nil
}

func sameRoles(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	sort.Strings(a)
	sort.Strings(b)
	return slices.Equal(a, b)
}
