package patient

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("patient not found")
	ErrStorageFull = errors.New("patient storage is almost full")
)

// Repository is a last-write-wins store keyed by patient id. Each call is
// atomic on its own; nothing is transactional across calls.
type Repository interface {
	Save(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// List returns every record, most recently saved first.
	List(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
	Clear(ctx context.Context) error
	// Size is the number of bytes the stored records occupy.
	Size(ctx context.Context) (int64, error)
}
