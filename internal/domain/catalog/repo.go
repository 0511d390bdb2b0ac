package catalog

import (
	"context"

	"github.com/google/uuid"
)

type DrugRepository interface {
	Create(ctx context.Context, d *Drug) error
	GetByID(ctx context.Context, id uuid.UUID) (*Drug, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Drug, error)
	Update(ctx context.Context, d *Drug) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Drug, int, error)
}
