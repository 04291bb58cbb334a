package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	domain "github.com/bryanwahyu/palm-oracle/internal/domain/reading"
)

// ReadingRepository keeps history in process (database.driver: memory).
type ReadingRepository struct {
	mu   sync.RWMutex
	rows map[domain.ReadingID]domain.Reading
}

func NewReadingRepository() *ReadingRepository {
	return &ReadingRepository{rows: make(map[domain.ReadingID]domain.Reading)}
}

func (r *ReadingRepository) Save(_ context.Context, rd *domain.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[rd.ID] = *rd
	return nil
}

func (r *ReadingRepository) Get(_ context.Context, id domain.ReadingID) (*domain.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rd, nil
}

// Paginate orders like the SQL repositories: created_at desc, id desc.
func (r *ReadingRepository) Paginate(_ context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	r.mu.RLock()
	all := make([]domain.Reading, 0, len(r.rows))
	for _, rd := range r.rows {
		all = append(all, rd)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	start := min((page-1)*pageSize, len(all))
	end := min(start+pageSize, len(all))
	out := make([]*domain.Reading, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, &all[i])
	}

	total := int64(len(all))
	return domain.PaginatedResult{
		Data:       out,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func (r *ReadingRepository) Delete(_ context.Context, id domain.ReadingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *ReadingRepository) Clear(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.rows))
	r.rows = make(map[domain.ReadingID]domain.Reading)
	return n, nil
}
