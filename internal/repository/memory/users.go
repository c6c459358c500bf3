package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// UserRepo implements repository.UserRepository in memory.
type UserRepo struct{ s *Store }

func (r *UserRepo) conflict(u *model.User) error {
	for id, other := range r.s.users {
		if id == u.ID {
			continue
		}
		if other.Login == u.Login {
			return dup("user_login")
		}
		if u.Email != "" && strings.EqualFold(other.Email, u.Email) {
			return dup("user_email")
		}
	}
	return nil
}

func stored(u model.User) model.User {
	u.Password = ""
	u.Roles = nil
	return u
}

// Insert stores a new user.
func (r *UserRepo) Insert(_ context.Context, u *model.User) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := stored(*u)
	row.ID = 0
	if err := r.conflict(&row); err != nil {
		return 0, err
	}
	row.ID = r.s.next("users")
	r.s.users[row.ID] = row
	return row.ID, nil
}

// Update overwrites an existing user.
func (r *UserRepo) Update(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.users[u.ID]
	if !ok {
		return errs.ErrNotFound
	}
	if err := r.conflict(u); err != nil {
		return err
	}
	row := stored(*u)
	row.Registered = prev.Registered
	r.s.users[u.ID] = row
	return nil
}

func (r *UserRepo) find(match func(model.User) bool) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, id := range sortedKeys(r.s.users) {
		if u := r.s.users[id]; match(u) {
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

// Get loads a user by id.
func (r *UserRepo) Get(_ context.Context, id int64) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id })
}

// GetByLogin loads a user by login.
func (r *UserRepo) GetByLogin(_ context.Context, login string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Login == login })
}

// GetByEmail loads a user by email, case-insensitively.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return strings.EqualFold(u.Email, email) })
}

// GetBySlug loads a user by nicename.
func (r *UserRepo) GetBySlug(_ context.Context, slug string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Nicename == slug })
}

func (r *UserRepo) hasRole(userID int64, role string) bool {
	for _, m := range r.s.meta[model.ObjectUser] {
		if m.ObjectID != userID || m.Key != model.MetaCapabilities {
			continue
		}
		if caps, ok := model.UnserializeMeta(m.Value).(map[string]any); ok {
			if _, ok := caps[role]; ok {
				return true
			}
		}
	}
	return false
}

// Query lists users ordered by login.
func (r *UserRepo) Query(_ context.Context, q model.UserQuery) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.User
	for _, u := range r.s.users {
		if q.Search != "" && !contains(u.Login, q.Search) && !contains(u.Email, q.Search) && !contains(u.DisplayName, q.Search) {
			continue
		}
		if q.Role != "" && !r.hasRole(u.ID, q.Role) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Login < out[j].Login })
	return page(out, q.Limit, q.Offset), nil
}

// Delete removes a user with its meta.
func (r *UserRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return errs.ErrNotFound
	}
	r.s.deleteMetaOf(model.ObjectUser, id)
	delete(r.s.users, id)
	for lid, l := range r.s.logs {
		if l.UserID == id {
			l.UserID = 0
			r.s.logs[lid] = l
		}
	}
	return nil
}
