package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/internal/blog/store"
	"github.com/milan-stefanik/flyhigh/pkg/cryptox"
	"github.com/milan-stefanik/flyhigh/pkg/idx"
	"github.com/milan-stefanik/flyhigh/pkg/slogx"
)

// DefaultSessionTTL applies when AuthService.SessionTTL is unset.
const DefaultSessionTTL = 30 * 24 * time.Hour

type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Confirm   string
}

func (in RegisterInput) validate() error {
	v := &ValidationError{}
	v.profileFields(in.FirstName, in.LastName, in.Username, in.Email)
	v.required("password", in.Password)
	v.equal("confirm_password", in.Confirm, in.Password)
	return v.err()
}

// Login is the outcome of a successful sign in. Token goes into the session
// cookie; only its fingerprint is stored.
type Login struct {
	User    domain.User
	Session domain.Session
	Token   string
}

type AuthService struct {
	Store      store.Store
	Hasher     *cryptox.Hasher
	SessionTTL time.Duration
	Now        func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Register creates an account. Username and email uniqueness is decided by
// the database, so two racing registrations cannot both win.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	log := slogx.FromContext(ctx)

	if err := in.validate(); err != nil {
		return domain.User{}, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	now := s.now()
	u := domain.User{
		ID:           idx.New().String(),
		FirstName:    normalizeName(in.FirstName),
		LastName:     normalizeName(in.LastName),
		Username:     strings.TrimSpace(in.Username),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Info("registration rejected, username or email taken", slog.String("username", u.Username))
			return domain.User{}, ErrDuplicateUser
		}
		log.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("user registered", slog.String("user_id", u.ID), slog.String("username", u.Username))
	return u, nil
}

// Login checks email and password and opens a session. Unknown emails and
// wrong passwords fail the same way and take about the same time.
func (s *AuthService) Login(ctx context.Context, email, password string) (Login, error) {
	log := slogx.FromContext(ctx)

	v := &ValidationError{}
	v.email("email", email)
	v.required("password", password)
	if err := v.err(); err != nil {
		return Login{}, err
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = s.Hasher.Verify(password, s.dummy())
		log.Info("login failed", slog.String("reason", "unknown email"))
		return Login{}, ErrInvalidCredentials
	case err != nil:
		log.Error("failed to look up user", slog.Any("error", err))
		return Login{}, err
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Error("stored password hash unusable", slog.String("user_id", u.ID), slog.Any("error", err))
		}
		log.Info("login failed", slog.String("reason", "wrong password"), slog.String("user_id", u.ID))
		return Login{}, ErrInvalidCredentials
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return Login{}, err
	}

	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := s.now()
	sess := domain.Session{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		log.Error("failed to create session", slog.Any("error", err))
		return Login{}, err
	}

	log.Info("user logged in", slog.String("user_id", u.ID), slog.String("session_id", sess.ID))
	return Login{User: u, Session: sess, Token: token}, nil
}

// Logout ends the session behind token. Unknown tokens are fine.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.Store.Sessions().DeleteSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
}

// CurrentUser resolves a session token to its user. Anything short of a
// live session for an existing user is anonymous.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (domain.User, bool) {
	if token == "" {
		return domain.User{}, false
	}
	log := slogx.FromContext(ctx)

	sess, err := s.Store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("failed to look up session", slog.Any("error", err))
		}
		return domain.User{}, false
	}

	if sess.Expired(s.now()) {
		return domain.User{}, false
	}

	u, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("failed to load session user", slog.Any("error", err))
		}
		return domain.User{}, false
	}
	return u, true
}

// dummy is a hash of nothing in particular, verified against when the email
// is unknown.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("flyhigh-dummy-password")
	})
	return s.dummyHash
}
