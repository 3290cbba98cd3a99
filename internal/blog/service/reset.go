package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/internal/blog/store"
	"github.com/milan-stefanik/flyhigh/pkg/cryptox"
	"github.com/milan-stefanik/flyhigh/pkg/jwtx"
	"github.com/milan-stefanik/flyhigh/pkg/mailx"
	"github.com/milan-stefanik/flyhigh/pkg/slogx"
)

// ResetSubject is the subject line of the reset email.
const ResetSubject = "Password Reset Request"

const resetBody = `To reset your password, visit the following link:
%s

If you did not make this request then simply ignore this email and no changes will be made.
`

// ResetService runs the emailed password reset flow. Tokens are stateless
// JWTs; the password stamp inside makes each one single use.
type ResetService struct {
	Store   store.Store
	Hasher  *cryptox.Hasher
	Signer  *jwtx.HS256
	Mailer  mailx.Sender
	BaseURL string
	TTL     time.Duration
}

func (s *ResetService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return jwtx.DefaultResetTokenTTL
}

// stamp ties a token to the password it was issued against.
func stamp(u domain.User) string {
	return cryptox.FingerprintToken(u.PasswordHash)
}

// Issue mints a reset token for u.
func (s *ResetService) Issue(u domain.User) (string, error) {
	return s.Signer.Issue(u.ID, jwtx.PurposePasswordReset, stamp(u), s.ttl())
}

// Verify resolves token to its user. Bad signatures, expired or malformed
// tokens, deleted users and already used tokens all yield false.
func (s *ResetService) Verify(ctx context.Context, token string) (domain.User, bool) {
	log := slogx.FromContext(ctx)

	claims, err := s.Signer.Verify(token, jwtx.PurposePasswordReset)
	if err != nil {
		log.Info("reset token rejected", slog.Any("reason", err))
		return domain.User{}, false
	}

	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("failed to load reset token user", slog.Any("error", err))
		}
		return domain.User{}, false
	}

	if claims.Stamp != stamp(u) {
		log.Info("reset token rejected", slog.String("reason", "password changed since issue"), slog.String("user_id", u.ID))
		return domain.User{}, false
	}
	return u, true
}

// Link is the URL mailed to the user.
func (s *ResetService) Link(token string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/reset_password/" + token
}

// RequestReset mails a reset link when email belongs to an account. It
// reports success either way so the form does not reveal who is registered;
// failures to mint or mail the link are only logged for the same reason.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)

	v := &ValidationError{}
	v.email("email", email)
	if err := v.err(); err != nil {
		return err
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Info("password reset requested for unknown email")
		return nil
	case err != nil:
		log.Error("failed to look up user", slog.Any("error", err))
		return err
	}

	token, err := s.Issue(u)
	if err != nil {
		log.Error("failed to issue reset token", slog.String("user_id", u.ID), slog.Any("error", err))
		return nil
	}

	msg := mailx.Message{
		To:      u.Email,
		Subject: ResetSubject,
		Body:    fmt.Sprintf(resetBody, s.Link(token)),
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		log.Error("failed to send reset email", slog.String("user_id", u.ID), slog.Any("error", err))
		return nil
	}

	log.Info("password reset email sent", slog.String("user_id", u.ID))
	return nil
}

// CompleteReset sets a new password for the token's user and signs them out
// everywhere.
func (s *ResetService) CompleteReset(ctx context.Context, token, password, confirm string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	u, ok := s.Verify(ctx, token)
	if !ok {
		return domain.User{}, ErrTokenInvalidOrExpired
	}

	v := &ValidationError{}
	v.required("password", password)
	v.equal("confirm_password", confirm, password)
	if err := v.err(); err != nil {
		return domain.User{}, err
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
			return err
		}
		return tx.Sessions().DeleteUserSessions(ctx, u.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrTokenInvalidOrExpired
		}
		log.Error("failed to reset password", slog.String("user_id", u.ID), slog.Any("error", err))
		return domain.User{}, err
	}

	u.PasswordHash = hash
	log.Info("password reset", slog.String("user_id", u.ID))
	return u, nil
}
