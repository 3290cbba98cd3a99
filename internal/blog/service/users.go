package service

import (
	"context"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/internal/blog/store"
)

type UserService struct {
	Store store.Store
}

// Authors lists every user by first name for the navigation sidebar.
func (s *UserService) Authors(ctx context.Context) ([]domain.Author, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Author, len(users))
	for i, u := range users {
		out[i] = domain.AuthorOf(u)
	}
	return out, nil
}
