package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/internal/blog/media"
	"github.com/milan-stefanik/flyhigh/internal/blog/store"
	"github.com/milan-stefanik/flyhigh/pkg/slogx"
)

// AccountInput is the submitted account form. Image is optional.
type AccountInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Image     io.Reader
	ImageName string
}

func (in AccountInput) validate() error {
	v := &ValidationError{}
	v.profileFields(in.FirstName, in.LastName, in.Username, in.Email)
	if in.Image != nil {
		v.image("picture", in.ImageName, false)
	}
	return v.err()
}

type AccountService struct {
	Store store.Store
	Media *media.Pipeline
}

// Get loads the account of userID.
func (s *AccountService) Get(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

// Update rewrites the profile of userID. A new picture replaces the old one
// before the record is written.
func (s *AccountService) Update(ctx context.Context, userID string, in AccountInput) (domain.User, error) {
	log := slogx.FromContext(ctx)

	u, err := s.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if err := in.validate(); err != nil {
		return domain.User{}, err
	}

	u.FirstName = normalizeName(in.FirstName)
	u.LastName = normalizeName(in.LastName)
	u.Username = strings.TrimSpace(in.Username)
	u.Email = normalizeEmail(in.Email)

	if err := s.checkAvailable(ctx, u); err != nil {
		return domain.User{}, err
	}

	if in.Image != nil && in.ImageName != "" {
		ref, err := s.Media.Replace(ctx, u.ImageFile, in.Image, in.ImageName, media.ProfileImage)
		if err != nil {
			return domain.User{}, err
		}
		u.ImageFile = ref
	}

	if err := s.Store.Users().UpdateProfile(ctx, u); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return domain.User{}, ErrDuplicateUser
		case errors.Is(err, store.ErrNotFound):
			return domain.User{}, ErrNotFound
		}
		log.Error("failed to update profile", slog.String("user_id", userID), slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("account updated", slog.String("user_id", userID))
	return u, nil
}

// checkAvailable rejects a username or email held by someone else before
// any picture is touched. The unique indexes still decide races.
func (s *AccountService) checkAvailable(ctx context.Context, u domain.User) error {
	other, err := s.Store.Users().GetUserByUsername(ctx, u.Username)
	switch {
	case err == nil && other.ID != u.ID:
		return ErrDuplicateUser
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}

	other, err = s.Store.Users().GetUserByEmail(ctx, u.Email)
	switch {
	case err == nil && other.ID != u.ID:
		return ErrDuplicateUser
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}
	return nil
}
