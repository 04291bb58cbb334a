package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/palm-oracle/internal/domain/reading"
)

var readingCols = []string{"id", "created_at", "age", "gender", "image_key", "image_url", "provider", "model", "result_json"}

func TestReadingRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewReadingRepository(db)
	ctx := context.Background()
	created := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("save upserts", func(t *testing.T) {
		mock.ExpectExec(`ON CONFLICT \(id\) DO UPDATE`).
			WithArgs("r-1", created, 60, "male", "-", "-", "gemini", "-", "The Elder", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		err := repo.Save(ctx, &domain.Reading{
			ID: "r-1", CreatedAt: created, Provider: "gemini",
			Profile:  domain.Profile{Age: 60, Gender: domain.GenderMale},
			Analysis: domain.PalmAnalysis{Archetype: domain.Archetype{Name: "The Elder"}},
		})
		require.NoError(t, err)
	})

	t.Run("get", func(t *testing.T) {
		mock.ExpectQuery(`WHERE id=\$1`).WithArgs(domain.ReadingID("r-1")).
			WillReturnRows(sqlmock.NewRows(readingCols).
				AddRow("r-1", created, 60, "male", "-", "http://minio/palm/x.jpg", "gemini", "-", []byte(`{"overall":"wise"}`)))
		rd, err := repo.Get(ctx, "r-1")
		require.NoError(t, err)
		assert.Equal(t, "wise", rd.Analysis.Overall)
		assert.Equal(t, "http://minio/palm/x.jpg", rd.ImageURL)
		assert.Empty(t, rd.ImageKey)
	})

	t.Run("get missing", func(t *testing.T) {
		mock.ExpectQuery(`WHERE id=\$1`).WithArgs(domain.ReadingID("x")).WillReturnError(sql.ErrNoRows)
		_, err := repo.Get(ctx, "x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("paginate", func(t *testing.T) {
		mock.ExpectQuery(`LIMIT \$1 OFFSET \$2`).WithArgs(10, 0).
			WillReturnRows(sqlmock.NewRows(readingCols).
				AddRow("r-1", created, 60, "male", "-", "-", "gemini", "-", []byte(`{}`)))
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
		res, err := repo.Paginate(ctx, 1, 10)
		require.NoError(t, err)
		assert.Len(t, res.Data, 1)
		assert.Equal(t, 2, res.TotalPages)
	})

	t.Run("delete and clear", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM palm_readings WHERE id=\$1`).WithArgs(domain.ReadingID("gone")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.Delete(ctx, "gone"), domain.ErrNotFound)

		mock.ExpectExec(`DELETE FROM palm_readings`).WillReturnResult(sqlmock.NewResult(0, 3))
		n, err := repo.Clear(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
