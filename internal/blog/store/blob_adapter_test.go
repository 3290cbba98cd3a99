package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/milan-stefanik/flyhigh/internal/blog/media"
	"github.com/milan-stefanik/flyhigh/internal/blog/store"
	"github.com/milan-stefanik/flyhigh/internal/blog/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func TestBlobStoreAdapter(t *testing.T) {
	ctx := context.Background()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations(ctx))

	a := store.NewBlobStoreAdapter(s)

	require.NoError(t, a.Put(ctx, "0123456789abcdef.jpg", "image/jpeg", strings.NewReader("jpeg"), 4))

	b, err := a.Get(ctx, "0123456789abcdef.jpg")
	require.NoError(t, err)
	require.Equal(t, "jpeg", string(b.Data))
	require.Equal(t, int64(4), b.Size)

	infos, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	require.NoError(t, a.Delete(ctx, "0123456789abcdef.jpg"))
	require.ErrorIs(t, a.Delete(ctx, "0123456789abcdef.jpg"), media.ErrNotFound)

	_, err = a.Get(ctx, "0123456789abcdef.jpg")
	require.ErrorIs(t, err, media.ErrNotFound)
}
