package service

import (
	"context"
	"testing"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/internal/blog/media"
	"github.com/milan-stefanik/flyhigh/pkg/idx"
	"github.com/milan-stefanik/flyhigh/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingRunOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ada := f.register(t, "ada", "ada@example.com")

	// Blob timestamps come from the wall clock, so housekeeping runs on a
	// clock two hours ahead of it.
	later := time.Now().UTC().Add(2 * time.Hour)

	stale, err := f.auth.Login(ctx, "ada@example.com", "s3cret-pass")
	require.NoError(t, err)
	live := domain.Session{
		ID:        idx.New().String(),
		UserID:    ada.ID,
		TokenHash: "live-session-hash",
		ExpiresAt: later.Add(24 * time.Hour),
		CreatedAt: later,
	}
	require.NoError(t, f.store.Sessions().CreateSession(ctx, live))

	post, err := f.posts.Create(ctx, ada.ID, PostInput{Title: "t", Content: "c", Image: pngUpload(t, 10, 10), ImageName: "a.png"})
	require.NoError(t, err)
	orphan, err := f.media.Store(ctx, pngUpload(t, 10, 10), "lost.png", media.PostImage)
	require.NoError(t, err)

	hk := NewHousekeepingService(f.store, f.media, slogx.Discard(), time.Minute, 3*time.Hour)
	hk.Now = func() time.Time { return later }

	hk.RunOnce(ctx)
	_, err = f.store.Sessions().GetSessionByTokenHash(ctx, stale.Session.TokenHash)
	require.Error(t, err)
	_, err = f.store.Sessions().GetSessionByTokenHash(ctx, live.TokenHash)
	require.NoError(t, err)
	require.True(t, f.blobExists(t, orphan), "orphan inside grace period kept")

	hk.OrphanGrace = time.Hour
	hk.RunOnce(ctx)
	require.False(t, f.blobExists(t, orphan))
	require.True(t, f.blobExists(t, post.ImageFile))
}

func TestHousekeepingStartStop(t *testing.T) {
	f := newFixture(t)
	hk := NewHousekeepingService(f.store, f.media, slogx.Discard(), time.Hour, 0)
	require.Equal(t, DefaultOrphanGrace, hk.OrphanGrace)

	hk.Start()
	done := make(chan struct{})
	go func() {
		hk.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("housekeeping did not stop")
	}
}
