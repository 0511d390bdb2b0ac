package prescription

import (
	"context"

	"github.com/google/uuid"
)

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	// RecordDispense persists the outcome of a dispense action: prescription
	// status and dispensing record plus per-line dispensed quantities and
	// batch allocations.
	RecordDispense(ctx context.Context, p *Prescription) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Prescription, int, error)
	Count(ctx context.Context) (int, error)
}
