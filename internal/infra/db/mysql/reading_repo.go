package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	domain "github.com/bryanwahyu/palm-oracle/internal/domain/reading"
)

// Schema dipakai oleh Migrate, aman dijalankan berulang
const Schema = `
CREATE TABLE IF NOT EXISTS palm_readings (
  id          VARCHAR(36)  NOT NULL PRIMARY KEY,
  created_at  DATETIME(6)  NOT NULL,
  age         INT          NOT NULL,
  gender      VARCHAR(16)  NOT NULL,
  image_key   VARCHAR(255) NOT NULL,
  image_url   VARCHAR(512) NOT NULL,
  provider    VARCHAR(32)  NOT NULL,
  model       VARCHAR(64)  NOT NULL,
  archetype   VARCHAR(128) NOT NULL,
  result_json JSON         NOT NULL,
  KEY idx_palm_readings_created (created_at)
);`

func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}

type ReadingRepository struct {
	db *sql.DB
}

func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Save inserts or updates a reading
func (r *ReadingRepository) Save(ctx context.Context, rd *domain.Reading) error {
	const q = `
INSERT INTO palm_readings
  (id, created_at, age, gender, image_key, image_url, provider, model, archetype, result_json)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  image_key=VALUES(image_key), image_url=VALUES(image_url), archetype=VALUES(archetype), result_json=VALUES(result_json);
`
	result, err := json.Marshal(rd.Analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	createdAt := rd.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = r.db.ExecContext(ctx, q,
		rd.ID, createdAt, rd.Profile.Age, string(rd.Profile.Gender),
		stringOrDash(rd.ImageKey), stringOrDash(rd.ImageURL),
		stringOrDash(rd.Provider), stringOrDash(rd.Model),
		rd.Analysis.ArchetypeName(), string(result),
	)
	return err
}

const selectCols = `SELECT id, created_at, age, gender, image_key, image_url, provider, model, result_json FROM palm_readings`

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(row scanner) (*domain.Reading, error) {
	var rd domain.Reading
	var gender, result string
	if err := row.Scan(&rd.ID, &rd.CreatedAt, &rd.Profile.Age, &gender,
		&rd.ImageKey, &rd.ImageURL, &rd.Provider, &rd.Model, &result); err != nil {
		return nil, err
	}
	rd.Profile.Gender = domain.Gender(gender)
	rd.ImageKey = dashToEmpty(rd.ImageKey)
	rd.ImageURL = dashToEmpty(rd.ImageURL)
	if err := json.Unmarshal([]byte(result), &rd.Analysis); err != nil {
		return nil, fmt.Errorf("decode result_json of %s: %w", rd.ID, err)
	}
	return &rd, nil
}

// Get by ID
func (r *ReadingRepository) Get(ctx context.Context, id domain.ReadingID) (*domain.Reading, error) {
	row := r.db.QueryRowContext(ctx, selectCols+" WHERE id=? LIMIT 1", id)
	rd, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rd, err
}

// Paginate returns readings newest first
func (r *ReadingRepository) Paginate(ctx context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	rows, err := r.db.QueryContext(ctx, selectCols+"\nORDER BY created_at DESC, id DESC\nLIMIT ? OFFSET ?", pageSize, offset)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Reading, 0, pageSize)
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, rd)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	total, err := r.Count(ctx)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       out,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func (r *ReadingRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM palm_readings").Scan(&n)
	return n, err
}

func (r *ReadingRepository) Delete(ctx context.Context, id domain.ReadingID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM palm_readings WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Clear hapus semua history, return jumlah row
func (r *ReadingRepository) Clear(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM palm_readings")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
