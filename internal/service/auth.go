package service

import (
	"context"
	"strings"

	"github.com/and161185/charm/internal/auth"
	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/limiter"
	"github.com/and161185/charm/internal/model"
)

// AuthService defines the login/logout operations exposed by the admin API.
type AuthService interface {
	// LoginWithIP applies rate-limiting and authenticates the user.
	LoginWithIP(ctx context.Context, login, password, ip string) (tokens model.Tokens, user model.User, err error)
	// Logout ends the session of userID.
	Logout(ctx context.Context, userID int64) error
}

type AuthServiceImpl struct {
	users  *UserService
	tokens *auth.Tokens
	lim    limiter.Limiter
	bus    *event.Bus
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users *UserService, tokens *auth.Tokens, lim limiter.Limiter, bus *event.Bus) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, tokens: tokens, lim: lim, bus: bus}
}

// LoginWithIP authenticates by login or email with rate limiting by (login, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, login, password, ip string) (model.Tokens, model.User, error) {
	const op = "auth.login"
	login = strings.TrimSpace(login)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, login, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, errs.Wrap(op, err)
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.New(op, errs.CodeRateLimited, "too many failed logins")
	}

	var u *model.User
	if strings.Contains(login, "@") {
		u, err = s.users.FromEmail(ctx, login)
	} else {
		u, err = s.users.FromLogin(ctx, login)
	}
	if err != nil || !s.users.CheckPassword(u, password) {
		if blocked, _, ferr := s.lim.Failure(ctx, login, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.New(op, errs.CodeRateLimited, "too many failed logins")
		}
		// unknown login and wrong password look the same
		return model.Tokens{}, model.User{}, errs.New(op, errs.CodeUnauthorized, "invalid credentials")
	}

	_ = s.lim.Success(ctx, login, ipHash)

	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, errs.Wrap(op, err)
	}
	s.bus.Publish(auth.WithUserID(ctx, u.ID), event.UserLogin{User: *u})
	return tok, *u, nil
}

// Logout fires the logout event for userID. Tokens are stateless and simply expire.
func (s *AuthServiceImpl) Logout(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return errs.New("auth.logout", errs.CodeUnauthorized, "not signed in")
	}
	s.bus.Publish(auth.WithUserID(ctx, userID), event.UserLogout{UserID: userID})
	return nil
}
