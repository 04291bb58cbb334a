package history

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domain "github.com/bryanwahyu/palm-oracle/internal/domain/reading"
	"github.com/bryanwahyu/palm-oracle/internal/report"
)

const MaxPageSize = 100

// Service implements use-cases untuk history reading
type Service struct {
	Repo   domain.Repository
	Images domain.ImageStore // optional, photos are not removed without it
	Log    *zap.Logger
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// List returns one page, newest first.
func (s *Service) List(ctx context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return s.Repo.Paginate(ctx, page, pageSize)
}

func (s *Service) Get(ctx context.Context, id domain.ReadingID) (*domain.Reading, error) {
	return s.Repo.Get(ctx, id)
}

// Delete removes the entry and its photo.
func (s *Service) Delete(ctx context.Context, id domain.ReadingID) error {
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete reading %s: %w", id, err)
	}
	s.dropImage(ctx, r.ImageKey)
	return nil
}

// Clear wipes the whole history. Photos are collected first since the rows
// are the only index of them.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	var keys []string
	if s.Images != nil {
		for page := 1; ; page++ {
			res, err := s.Repo.Paginate(ctx, page, MaxPageSize)
			if err != nil {
				return 0, fmt.Errorf("collect photos: %w", err)
			}
			for _, r := range res.Data {
				keys = append(keys, r.ImageKey)
			}
			if page >= res.TotalPages {
				break
			}
		}
	}
	n, err := s.Repo.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	for _, k := range keys {
		s.dropImage(ctx, k)
	}
	s.log().Info("history cleared", zap.Int64("rows", n), zap.Int("photos", len(keys)))
	return n, nil
}

// Report builds the printable report data of a stored reading.
func (s *Service) Report(ctx context.Context, id domain.ReadingID) (report.Data, error) {
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return report.Data{}, err
	}
	d := report.Data{Profile: r.Profile, Analysis: &r.Analysis, CreatedAt: r.CreatedAt}
	if s.Images != nil && r.ImageKey != "" {
		data, mime, err := s.Images.Get(ctx, r.ImageKey)
		if err != nil {
			s.log().Warn("report without photo", zap.String("reading", string(id)), zap.Error(err))
		} else {
			d.Image, d.ImageMIME = data, mime
		}
	}
	return d, nil
}

func (s *Service) dropImage(ctx context.Context, key string) {
	if s.Images == nil || key == "" {
		return
	}
	if err := s.Images.Delete(ctx, key); err != nil {
		s.log().Warn("image cleanup failed", zap.String("key", key), zap.Error(err))
	}
}
