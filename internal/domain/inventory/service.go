package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmd/pharmd/internal/platform/apperror"
	"github.com/pharmd/pharmd/internal/platform/db"
)

type Service struct {
	batches BatchRepository
	pool    *pgxpool.Pool
	now     func() time.Time
}

// NewService creates the inventory service. The pool is used only to open the
// dispensing transaction; pass nil when every call site supplies its own
// transaction on the context.
func NewService(batches BatchRepository, pool *pgxpool.Pool) *Service {
	return &Service{
		batches: batches,
		pool:    pool,
		now:     time.Now,
	}
}

// SetClock overrides the service's notion of now.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func validateBatch(b *Batch) []apperror.FieldError {
	var fields []apperror.FieldError
	if b.DrugID == uuid.Nil {
		fields = append(fields, apperror.FieldError{Field: "drugId", Message: "drugId is required"})
	}
	if b.BatchNumber == "" {
		fields = append(fields, apperror.FieldError{Field: "batchNumber", Message: "batchNumber is required"})
	}
	if b.Quantity < 0 {
		fields = append(fields, apperror.FieldError{Field: "quantity", Message: "quantity must be non-negative"})
	}
	if b.UnitPrice < 0 {
		fields = append(fields, apperror.FieldError{Field: "unitPrice", Message: "unitPrice must be non-negative"})
	}
	if b.ExpiryDate.IsZero() {
		fields = append(fields, apperror.FieldError{Field: "expiryDate", Message: "expiryDate is required"})
	}
	if b.ManufacturingDate.IsZero() {
		fields = append(fields, apperror.FieldError{Field: "manufacturingDate", Message: "manufacturingDate is required"})
	}
	if b.Supplier.Name == "" {
		fields = append(fields, apperror.FieldError{Field: "supplier.name", Message: "supplier name is required"})
	}
	if b.MinimumStock < 0 {
		fields = append(fields, apperror.FieldError{Field: "minimumStock", Message: "minimumStock must be non-negative"})
	}
	return fields
}

func (s *Service) Create(ctx context.Context, b *Batch) error {
	if fields := validateBatch(b); len(fields) > 0 {
		return apperror.Validation(fields...)
	}
	if b.MinimumStock == 0 {
		b.MinimumStock = DefaultMinimumStock
	}
	b.Status = DeriveStatus(b.Quantity, b.MinimumStock, b.ExpiryDate, s.now(), "")
	return s.batches.Create(ctx, b)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Batch, error) {
	return s.batches.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, b *Batch) error {
	if fields := validateBatch(b); len(fields) > 0 {
		return apperror.Validation(fields...)
	}
	existing, err := s.batches.GetByID(ctx, b.ID)
	if err != nil {
		return err
	}
	if b.MinimumStock == 0 {
		b.MinimumStock = DefaultMinimumStock
	}
	b.DrugID = existing.DrugID
	b.Status = DeriveStatus(b.Quantity, b.MinimumStock, b.ExpiryDate, s.now(), existing.Status)
	return s.batches.Update(ctx, b)
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Batch, int, error) {
	if filter.ExpiringSoon && filter.ExpiringBefore.IsZero() {
		filter.ExpiringBefore = s.now().AddDate(0, 0, 30)
	}
	return s.batches.List(ctx, filter, limit, offset)
}

// Dispense removes quantity units of the drug from inventory, drawing from
// the soonest-to-expire batches first. The sufficiency check and all
// decrements commit as one transaction; a failed call leaves every batch
// untouched. Returns the per-batch allocations for the dispensing record.
func (s *Service) Dispense(ctx context.Context, drugID uuid.UUID, quantity int) ([]Allocation, error) {
	if quantity <= 0 {
		return nil, apperror.Validationf("quantity must be positive")
	}

	// Reuse a transaction already on the context (the prescription workflow
	// dispenses several lines atomically); otherwise open one here.
	if db.TxFromContext(ctx) != nil || s.pool == nil {
		return s.dispense(ctx, drugID, quantity)
	}

	var allocations []Allocation
	err := db.RunInTx(ctx, s.pool, func(ctx context.Context) error {
		var err error
		allocations, err = s.dispense(ctx, drugID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (s *Service) dispense(ctx context.Context, drugID uuid.UUID, quantity int) ([]Allocation, error) {
	now := s.now()
	batches, err := s.batches.ListForDispense(ctx, drugID, now)
	if err != nil {
		return nil, err
	}

	available := 0
	for _, b := range batches {
		available += b.Quantity
	}
	if available < quantity {
		return nil, apperror.InsufficientStock(
			"insufficient stock: requested %d, available %d", quantity, available)
	}

	var allocations []Allocation
	remaining := quantity
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		take := remaining
		if b.Quantity < take {
			take = b.Quantity
		}
		b.Quantity -= take
		b.Status = DeriveStatus(b.Quantity, b.MinimumStock, b.ExpiryDate, now, b.Status)
		if err := s.batches.UpdateQuantityStatus(ctx, b.ID, b.Quantity, b.Status); err != nil {
			return nil, err
		}
		allocations = append(allocations, Allocation{
			BatchID:       b.ID,
			BatchNumber:   b.BatchNumber,
			QuantityTaken: take,
		})
		remaining -= take
	}
	return allocations, nil
}

// Recall marks a batch unusable regardless of quantity or expiry. The
// override is sticky until Release.
func (s *Service) Recall(ctx context.Context, id uuid.UUID) error {
	if _, err := s.batches.GetByID(ctx, id); err != nil {
		return err
	}
	return s.batches.SetStatus(ctx, id, StatusRecalled)
}

// Release clears a recall and restores the derived status.
func (s *Service) Release(ctx context.Context, id uuid.UUID) error {
	b, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != StatusRecalled {
		return apperror.Validationf("batch is not recalled")
	}
	status := DeriveStatus(b.Quantity, b.MinimumStock, b.ExpiryDate, s.now(), "")
	return s.batches.SetStatus(ctx, id, status)
}

func (s *Service) LowStock(ctx context.Context, limit, offset int) ([]*Batch, int, error) {
	return s.batches.ListLowStock(ctx, limit, offset)
}

// ExpiringWithin lists batches whose expiry falls inside the next days days.
func (s *Service) ExpiringWithin(ctx context.Context, days, limit, offset int) ([]*Batch, int, error) {
	if days <= 0 {
		days = 30
	}
	now := s.now()
	return s.batches.ListExpiringBetween(ctx, now, now.AddDate(0, 0, days), limit, offset)
}
