package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type BatchRepository interface {
	Create(ctx context.Context, b *Batch) error
	GetByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	Update(ctx context.Context, b *Batch) error
	UpdateQuantityStatus(ctx context.Context, id uuid.UUID, quantity int, status string) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Batch, int, error)
	// ListForDispense returns all non-expired, non-recalled batches of the
	// drug with quantity > 0, ordered by expiry date ascending. Rows are
	// locked for the duration of the surrounding transaction.
	ListForDispense(ctx context.Context, drugID uuid.UUID, now time.Time) ([]*Batch, error)
	ListLowStock(ctx context.Context, limit, offset int) ([]*Batch, int, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time, limit, offset int) ([]*Batch, int, error)
}
