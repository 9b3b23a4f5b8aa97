package objectstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutExistsDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	url, err := s.Put(ctx, "ebooks", "b1.pdf", strings.NewReader("%PDF"), 4, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "memory://ebooks/b1.pdf", url)

	ok, err := s.Exists(ctx, "ebooks", "b1.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "book-covers", "b1.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	data, ct, err := s.Get("ebooks", "b1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
	assert.Equal(t, "application/pdf", ct)

	require.NoError(t, s.Delete(ctx, "ebooks", "b1.pdf"))
	require.NoError(t, s.Delete(ctx, "ebooks", "b1.pdf"))
	assert.Empty(t, s.Keys("ebooks"))
	assert.Equal(t, 1, s.PutCount())
}

func TestMemoryStore_PutSizeMismatch(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Put(context.Background(), "ebooks", "k", strings.NewReader("abc"), 10, "")
	require.Error(t, err)
	assert.Zero(t, s.PutCount())
}

func TestMemoryStore_Presign(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	fixed := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return fixed }

	_, err := s.Presign(ctx, "ebooks", "missing", time.Minute)
	require.ErrorIs(t, err, ErrObjectNotFound)

	_, err = s.Put(ctx, "ebooks", "b/chap-1/page-001.jpg", strings.NewReader("x"), 1, "image/jpeg")
	require.NoError(t, err)
	link, err := s.Presign(ctx, "ebooks", "b/chap-1/page-001.jpg", 600*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "memory://ebooks/b/chap-1/page-001.jpg?expires=1700000600", link)
}
