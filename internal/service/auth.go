package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/sweetshop/internal/events"
	"github.com/Skotchmaster/sweetshop/internal/hash"
	"github.com/Skotchmaster/sweetshop/internal/metrics"
	"github.com/Skotchmaster/sweetshop/internal/models"
	"github.com/Skotchmaster/sweetshop/internal/repo"
	"github.com/Skotchmaster/sweetshop/internal/tokens"
	"github.com/Skotchmaster/sweetshop/pkg/logging"
)

const bearerPrefix = "Bearer "

type AuthService struct {
	Repo      *repo.GormRepo
	Hasher    hash.Hasher
	Tokens    *tokens.Service
	Publisher events.Publisher
	Metrics   *metrics.Metrics
}

type AdminAccount struct {
	Username string
	Email    string
	Password string
}

type AuthResult struct {
	Token    string
	Type     string
	Username string
	Role     models.Role
	IsAdmin  bool
}

// Bootstrap creates the admin account unless a user with its email exists.
// It reports whether an account was created.
func (s *AuthService) Bootstrap(ctx context.Context, admin AdminAccount) (bool, error) {
	exists, err := s.Repo.EmailExists(ctx, admin.Email)
	if err != nil {
		return false, fmt.Errorf("bootstrap: check admin: %w", err)
	}
	if exists {
		return false, nil
	}

	pwHash, err := s.Hasher.Hash(admin.Password)
	if err != nil {
		return false, fmt.Errorf("bootstrap: hash: %w", err)
	}
	user := &models.User{
		Username:     admin.Username,
		Email:        admin.Email,
		PasswordHash: pwHash,
		Role:         models.RoleAdmin,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return false, fmt.Errorf("bootstrap: admin username %q is taken: %w", admin.Username, err)
		}
		return false, fmt.Errorf("bootstrap: create admin: %w", err)
	}
	return true, nil
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if err := validateRegistration(username, email, password); err != nil {
		s.Metrics.Auth("register", "invalid")
		return nil, err
	}

	if err := s.checkAvailable(ctx, username, email); err != nil {
		s.Metrics.Auth("register", "duplicate")
		return nil, err
	}

	pwHash, err := s.Hasher.Hash(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, err
		}
		// Lost a race with a concurrent registration; the unique index decided.
		s.Metrics.Auth("register", "duplicate")
		if err := s.checkAvailable(ctx, username, email); err != nil {
			return nil, err
		}
		return nil, ErrDuplicateUsername
	}

	res, err := s.issue(user)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot issue token", "error", err)
		return nil, err
	}
	s.Metrics.Auth("register", "ok")
	s.publish(ctx, events.UserRegistered, user)
	return res, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Metrics.Auth("login", "invalid")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.Hasher.Verify(password, user.PasswordHash) {
		s.Metrics.Auth("login", "invalid")
		return nil, ErrInvalidCredentials
	}

	res, err := s.issue(user)
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot issue token", "error", err)
		return nil, err
	}
	s.Metrics.Auth("login", "ok")
	s.publish(ctx, events.UserLoggedIn, user)
	return res, nil
}

// ResolveIdentity returns the user behind a bearer Authorization header, or
// nil when the header is absent, malformed, invalid, or names no user.
func (s *AuthService) ResolveIdentity(ctx context.Context, header string) (*models.User, error) {
	raw, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return nil, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || !s.Tokens.Validate(raw) {
		return nil, nil
	}
	username, err := s.Tokens.ExtractSubject(raw)
	if err != nil {
		return nil, nil
	}

	user, err := s.Repo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) IsAdmin(user *models.User) bool {
	return user.IsAdmin()
}

func (s *AuthService) checkAvailable(ctx context.Context, username, email string) error {
	taken, err := s.Repo.UsernameExists(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateUsername
	}
	taken, err = s.Repo.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateEmail
	}
	return nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.Tokens.Issue(user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:    token,
		Type:     "Bearer",
		Username: user.Username,
		Role:     user.Role,
		IsAdmin:  user.IsAdmin(),
	}, nil
}

func (s *AuthService) publish(ctx context.Context, typ string, user *models.User) {
	if s.Publisher == nil {
		return
	}
	ev := events.Event{
		Type: typ,
		Key:  user.ID.String(),
		Payload: map[string]any{
			"username": user.Username,
			"role":     user.Role,
		},
	}
	if err := s.Publisher.Publish(ctx, events.TopicUsers, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_error", "event", typ, "error", err)
	}
}

func validateRegistration(username, email, password string) error {
	switch {
	case username == "":
		return validation("username is required")
	case email == "":
		return validation("email is required")
	case !strings.Contains(email, "@"):
		return validation("email is invalid")
	case password == "":
		return validation("password is required")
	}
	return nil
}
