package session

import (
	"context"
	"errors"
)

// ErrConflict means Update kept losing to concurrent writers.
var ErrConflict = errors.New("session changed concurrently")

// Store port (interface untuk persistence session)
type Store interface {
	Get(ctx context.Context, id ID) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id ID) error
	// Update loads, applies fn and saves as one atomic step. Nothing is written
	// when fn returns an error. fn may run more than once, so it must only touch s.
	Update(ctx context.Context, id ID, fn func(s *Session) error) (*Session, error)
}
