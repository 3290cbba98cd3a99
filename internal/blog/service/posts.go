package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/internal/blog/media"
	"github.com/milan-stefanik/flyhigh/internal/blog/store"
	"github.com/milan-stefanik/flyhigh/pkg/idx"
	"github.com/milan-stefanik/flyhigh/pkg/slogx"
)

// DefaultPerPage is the number of posts on one listing page.
const DefaultPerPage = 5

// PostInput is the submitted post form. Image may be nil on update.
type PostInput struct {
	Title     string
	Content   string
	Image     io.Reader
	ImageName string
}

func (in PostInput) validate(imageRequired bool) error {
	v := &ValidationError{}
	v.required("title", in.Title)
	v.required("content", in.Content)
	name := in.ImageName
	if in.Image == nil {
		name = ""
	}
	v.image("picture", name, imageRequired)
	return v.err()
}

func (in PostInput) hasImage() bool { return in.Image != nil && in.ImageName != "" }

type PostService struct {
	Store   store.Store
	Media   *media.Pipeline
	PerPage int
	Now     func() time.Time
}

func (s *PostService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *PostService) perPage() int {
	if s.PerPage > 0 {
		return s.PerPage
	}
	return DefaultPerPage
}

// Create stores the picture and then the post pointing at it.
func (s *PostService) Create(ctx context.Context, authorID string, in PostInput) (domain.Post, error) {
	log := slogx.FromContext(ctx)

	if err := in.validate(true); err != nil {
		return domain.Post{}, err
	}

	ref, err := s.Media.Store(ctx, in.Image, in.ImageName, media.PostImage)
	if err != nil {
		return domain.Post{}, err
	}

	now := s.now()
	p := domain.Post{
		ID:        idx.New().String(),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		AuthorID:  authorID,
		ImageFile: ref,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Posts().CreatePost(ctx, p); err != nil {
		log.Error("failed to create post", slog.String("image_file", ref), slog.Any("error", err))
		return domain.Post{}, err
	}

	log.Info("post created", slog.String("post_id", p.ID), slog.String("author_id", authorID))
	return p, nil
}

// Get returns a post with its author.
func (s *PostService) Get(ctx context.Context, id string) (domain.PostView, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return domain.PostView{}, err
	}
	return s.view(ctx, p)
}

// List returns one page of all posts, newest first.
func (s *PostService) List(ctx context.Context, page int) (domain.Page[domain.PostView], error) {
	total, err := s.Store.Posts().CountPosts(ctx)
	if err != nil {
		return domain.Page[domain.PostView]{}, err
	}

	page, perPage := clampPage(page), s.perPage()
	posts, err := s.Store.Posts().ListPosts(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return domain.Page[domain.PostView]{}, err
	}
	return s.page(ctx, posts, page, perPage, total)
}

// ListByAuthor returns one page of the posts written by username.
func (s *PostService) ListByAuthor(ctx context.Context, username string, page int) (domain.Author, domain.Page[domain.PostView], error) {
	u, err := s.Store.Users().GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Author{}, domain.Page[domain.PostView]{}, ErrNotFound
		}
		return domain.Author{}, domain.Page[domain.PostView]{}, err
	}

	total, err := s.Store.Posts().CountPostsByAuthor(ctx, u.ID)
	if err != nil {
		return domain.Author{}, domain.Page[domain.PostView]{}, err
	}

	page, perPage := clampPage(page), s.perPage()
	posts, err := s.Store.Posts().ListPostsByAuthor(ctx, u.ID, perPage, (page-1)*perPage)
	if err != nil {
		return domain.Author{}, domain.Page[domain.PostView]{}, err
	}

	views, err := s.page(ctx, posts, page, perPage, total)
	return domain.AuthorOf(u), views, err
}

// Update rewrites title and content, replacing the picture first when a new
// one was uploaded.
func (s *PostService) Update(ctx context.Context, id, actorID string, in PostInput) (domain.Post, error) {
	log := slogx.FromContext(ctx)

	p, err := s.owned(ctx, id, actorID)
	if err != nil {
		return domain.Post{}, err
	}
	if err := in.validate(false); err != nil {
		return domain.Post{}, err
	}

	if in.hasImage() {
		ref, err := s.Media.Replace(ctx, p.ImageFile, in.Image, in.ImageName, media.PostImage)
		if err != nil {
			return domain.Post{}, err
		}
		p.ImageFile = ref
	}

	p.Title = strings.TrimSpace(in.Title)
	p.Content = in.Content
	if err := s.Store.Posts().UpdatePost(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Post{}, ErrNotFound
		}
		log.Error("failed to update post", slog.String("post_id", id), slog.Any("error", err))
		return domain.Post{}, err
	}

	log.Info("post updated", slog.String("post_id", id))
	return p, nil
}

// Delete removes the picture and then the post. A crash in between leaves a
// post without its picture, never an unreferenced picture.
func (s *PostService) Delete(ctx context.Context, id, actorID string) error {
	log := slogx.FromContext(ctx)

	p, err := s.owned(ctx, id, actorID)
	if err != nil {
		return err
	}

	if p.ImageFile != "" {
		if err := s.Media.DeleteQuietly(ctx, p.ImageFile); err != nil {
			log.Error("failed to delete post image", slog.String("post_id", id), slog.Any("error", err))
			return err
		}
	}

	if err := s.Store.Posts().DeletePost(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	log.Info("post deleted", slog.String("post_id", id))
	return nil
}

// Authorize checks that actorID may change post id. Existence is checked
// before ownership so strangers learn nothing beyond a 404.
func (s *PostService) Authorize(ctx context.Context, id, actorID string) (domain.Post, error) {
	return s.owned(ctx, id, actorID)
}

func (s *PostService) owned(ctx context.Context, id, actorID string) (domain.Post, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return domain.Post{}, err
	}
	if actorID == "" || p.AuthorID != actorID {
		slogx.FromContext(ctx).Warn("post change refused",
			slog.String("post_id", id),
			slog.String("actor_id", actorID),
		)
		return domain.Post{}, ErrForbidden
	}
	return p, nil
}

func (s *PostService) load(ctx context.Context, id string) (domain.Post, error) {
	if !idx.Valid(id) {
		return domain.Post{}, ErrNotFound
	}
	p, err := s.Store.Posts().GetPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Post{}, ErrNotFound
		}
		return domain.Post{}, err
	}
	return p, nil
}

// view joins the author with a point lookup per post.
func (s *PostService) view(ctx context.Context, p domain.Post) (domain.PostView, error) {
	u, err := s.Store.Users().GetUserByID(ctx, p.AuthorID)
	if err != nil {
		return domain.PostView{}, err
	}
	return domain.PostView{Post: p, Author: domain.AuthorOf(u)}, nil
}

func (s *PostService) page(ctx context.Context, posts []domain.Post, page, perPage, total int) (domain.Page[domain.PostView], error) {
	views := make([]domain.PostView, 0, len(posts))
	for _, p := range posts {
		v, err := s.view(ctx, p)
		if err != nil {
			return domain.Page[domain.PostView]{}, err
		}
		views = append(views, v)
	}
	return domain.Page[domain.PostView]{Items: views, Page: page, PerPage: perPage, Total: total}, nil
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
