package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/palm-oracle/internal/domain/reading"
	"github.com/bryanwahyu/palm-oracle/internal/infra/db/memory"
	"github.com/bryanwahyu/palm-oracle/internal/infra/storage"
)

func seed(t *testing.T, n int) (*Service, *memory.ReadingRepository, *storage.Memory) {
	t.Helper()
	repo := memory.NewReadingRepository()
	images := storage.NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("sessions/s%d/p.jpg", i)
		_, err := images.Put(ctx, key, []byte{0xff, 0xd8, byte(i)}, "image/jpeg")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, &domain.Reading{
			ID:        domain.ReadingID(fmt.Sprintf("r%d", i)),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Profile:   domain.Profile{Age: 20 + i, Gender: domain.GenderFemale},
			ImageKey:  key,
			Analysis:  domain.PalmAnalysis{Overall: fmt.Sprintf("reading %d", i)},
		}))
	}
	return &Service{Repo: repo, Images: images}, repo, images
}

func TestService_ListCapsPageSize(t *testing.T) {
	svc, _, _ := seed(t, 3)
	res, err := svc.List(context.Background(), 1, 500)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, res.PageSize)
	require.Len(t, res.Data, 3)
	assert.Equal(t, domain.ReadingID("r2"), res.Data[0].ID, "newest first")
}

func TestService_DeleteRemovesPhoto(t *testing.T) {
	svc, _, images := seed(t, 2)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "r0"))
	assert.Equal(t, 1, images.Len())
	_, err := svc.Get(ctx, "r0")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "r0"), domain.ErrNotFound)
}

func TestService_Clear(t *testing.T) {
	svc, _, images := seed(t, MaxPageSize+5)
	n, err := svc.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(MaxPageSize+5), n)
	assert.Zero(t, images.Len())
}

func TestService_Report(t *testing.T) {
	svc, _, images := seed(t, 1)
	ctx := context.Background()

	d, err := svc.Report(ctx, "r0")
	require.NoError(t, err)
	assert.Equal(t, "reading 0", d.Analysis.Overall)
	assert.Equal(t, "image/jpeg", d.ImageMIME)
	assert.NotEmpty(t, d.DataURL())

	// photo gone: the report still renders
	require.NoError(t, images.Delete(ctx, "sessions/s0/p.jpg"))
	d, err = svc.Report(ctx, "r0")
	require.NoError(t, err)
	assert.Empty(t, d.Image)

	_, err = svc.Report(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
