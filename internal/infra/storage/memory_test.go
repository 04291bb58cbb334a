package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
)

func TestMemory_PutGetDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	src := []byte{0xff, 0xd8, 0xff}

	url, err := m.Put(ctx, "sessions/a/1.jpg", src, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "mem://sessions/a/1.jpg", url)

	src[0] = 0 // caller buffer reuse must not change the stored photo
	data, ct, err := m.Get(ctx, "sessions/a/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
	assert.Equal(t, "image/jpeg", ct)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(ctx, "sessions/a/1.jpg"))
	require.NoError(t, m.Delete(ctx, "sessions/a/1.jpg"))
	_, _, err = m.Get(ctx, "sessions/a/1.jpg")
	assert.ErrorIs(t, err, reading.ErrImageNotFound)
	assert.Zero(t, m.Len())
}
