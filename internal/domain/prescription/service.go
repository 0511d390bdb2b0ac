package prescription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmd/pharmd/internal/domain/catalog"
	"github.com/pharmd/pharmd/internal/domain/inventory"
	"github.com/pharmd/pharmd/internal/platform/apperror"
	"github.com/pharmd/pharmd/internal/platform/db"
)

// Dispenser is the slice of the inventory service the workflow needs.
type Dispenser interface {
	Dispense(ctx context.Context, drugID uuid.UUID, quantity int) ([]inventory.Allocation, error)
}

type Service struct {
	prescriptions PrescriptionRepository
	drugs         catalog.DrugRepository
	dispenser     Dispenser
	pool          *pgxpool.Pool
	now           func() time.Time
}

// NewService creates the prescription workflow service. The pool is used to
// span one transaction across all lines of a dispense call; pass nil in tests.
func NewService(prescriptions PrescriptionRepository, drugs catalog.DrugRepository, dispenser Dispenser, pool *pgxpool.Pool) *Service {
	return &Service{
		prescriptions: prescriptions,
		drugs:         drugs,
		dispenser:     dispenser,
		pool:          pool,
		now:           time.Now,
	}
}

// SetClock overrides the service's notion of now.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

var validGenders = map[string]bool{"male": true, "female": true, "other": true}

func validatePrescription(p *Prescription) []apperror.FieldError {
	var fields []apperror.FieldError
	if p.Patient.Name == "" {
		fields = append(fields, apperror.FieldError{Field: "patient.name", Message: "patient name is required"})
	}
	if p.Patient.Age <= 0 {
		fields = append(fields, apperror.FieldError{Field: "patient.age", Message: "patient age must be positive"})
	}
	if !validGenders[p.Patient.Gender] {
		fields = append(fields, apperror.FieldError{Field: "patient.gender", Message: "invalid gender"})
	}
	if p.Doctor.Name == "" {
		fields = append(fields, apperror.FieldError{Field: "doctor.name", Message: "doctor name is required"})
	}
	if p.Doctor.License == "" {
		fields = append(fields, apperror.FieldError{Field: "doctor.license", Message: "doctor license is required"})
	}
	if len(p.Medications) == 0 {
		fields = append(fields, apperror.FieldError{Field: "medications", Message: "at least one medication is required"})
	}
	for i, l := range p.Medications {
		if l.DrugID == uuid.Nil {
			fields = append(fields, apperror.FieldError{Field: fmt.Sprintf("medications[%d].drugId", i), Message: "drugId is required"})
		}
		if l.Quantity <= 0 {
			fields = append(fields, apperror.FieldError{Field: fmt.Sprintf("medications[%d].quantity", i), Message: "quantity must be positive"})
		}
	}
	return fields
}

// Create validates the prescription, prices its lines against the current
// catalog and persists it in the pending state. The total amount is fixed at
// creation time and never re-derived.
func (s *Service) Create(ctx context.Context, p *Prescription) error {
	if fields := validatePrescription(p); len(fields) > 0 {
		return apperror.Validation(fields...)
	}

	ids := make([]uuid.UUID, 0, len(p.Medications))
	for _, l := range p.Medications {
		ids = append(ids, l.DrugID)
	}
	drugs, err := s.drugs.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*catalog.Drug, len(drugs))
	for _, d := range drugs {
		byID[d.ID] = d
	}

	total := 0.0
	for i := range p.Medications {
		l := &p.Medications[i]
		d, ok := byID[l.DrugID]
		if !ok {
			return apperror.NotFound("drug")
		}
		l.DrugName = d.Name
		l.QuantityDispensed = 0
		l.Batches = nil
		total += d.Price * float64(l.Quantity)
	}
	p.TotalAmount = total
	p.Status = StatusPending
	p.DispensedBy = nil
	if p.PrescriptionDate.IsZero() {
		p.PrescriptionDate = s.now()
	}

	number, err := s.nextNumber(ctx)
	if err != nil {
		return err
	}
	p.Number = number

	return s.prescriptions.Create(ctx, p)
}

// nextNumber generates a human-readable prescription number from the current
// timestamp and a zero-padded sequence.
func (s *Service) nextNumber(ctx context.Context) (string, error) {
	count, err := s.prescriptions.Count(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RX%d%04d", s.now().UnixMilli(), count+1), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.List(ctx, filter, limit, offset)
}

// PatientHistory lists all prescriptions captured for the given patient,
// newest first.
func (s *Service) PatientHistory(ctx context.Context, patientID string, limit, offset int) ([]*Prescription, int, error) {
	if patientID == "" {
		return nil, 0, apperror.Validationf("patientId is required")
	}
	return s.prescriptions.List(ctx, ListFilter{PatientID: patientID}, limit, offset)
}

// Verify moves a pending prescription to verified.
func (s *Service) Verify(ctx context.Context, id uuid.UUID) error {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Status != StatusPending {
		return apperror.InvalidTransition("cannot verify prescription in status %s", p.Status)
	}
	return s.prescriptions.UpdateStatus(ctx, id, StatusVerified)
}

// Cancel is allowed from any non-terminal state.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch p.Status {
	case StatusPending, StatusVerified, StatusPartiallyDispensed:
		return s.prescriptions.UpdateStatus(ctx, id, StatusCancelled)
	default:
		return apperror.InvalidTransition("cannot cancel prescription in status %s", p.Status)
	}
}

// Dispense fulfils the requested lines against inventory. All lines commit in
// one transaction: if any line lacks stock, nothing is mutated. The
// prescription becomes dispensed once every line's cumulative dispensed
// quantity covers the prescribed quantity, else partially_dispensed.
func (s *Service) Dispense(ctx context.Context, id uuid.UUID, lines []LineDispense, pharmacistID, pharmacistName string) (*Prescription, error) {
	if len(lines) == 0 {
		return nil, apperror.Validationf("at least one medication line is required")
	}
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperror.Validation(apperror.FieldError{
				Field:   fmt.Sprintf("medications[%d].quantityDispensed", i),
				Message: "quantity must be positive",
			})
		}
	}

	if db.TxFromContext(ctx) != nil || s.pool == nil {
		return s.dispense(ctx, id, lines, pharmacistID, pharmacistName)
	}

	var p *Prescription
	err := db.RunInTx(ctx, s.pool, func(ctx context.Context) error {
		var err error
		p, err = s.dispense(ctx, id, lines, pharmacistID, pharmacistName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) dispense(ctx context.Context, id uuid.UUID, lines []LineDispense, pharmacistID, pharmacistName string) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusVerified && p.Status != StatusPartiallyDispensed {
		return nil, apperror.InvalidTransition("cannot dispense prescription in status %s", p.Status)
	}

	byLineID := make(map[uuid.UUID]*MedicationLine, len(p.Medications))
	for i := range p.Medications {
		byLineID[p.Medications[i].ID] = &p.Medications[i]
	}

	for _, req := range lines {
		line, ok := byLineID[req.MedicationLineID]
		if !ok {
			return nil, apperror.NotFound("medication line")
		}
		allocations, err := s.dispenser.Dispense(ctx, line.DrugID, req.Quantity)
		if err != nil {
			return nil, err
		}
		line.QuantityDispensed += req.Quantity
		line.Batches = append(line.Batches, allocations...)
	}

	complete := true
	for _, l := range p.Medications {
		if l.QuantityDispensed < l.Quantity {
			complete = false
			break
		}
	}
	if complete {
		p.Status = StatusDispensed
	} else {
		p.Status = StatusPartiallyDispensed
	}
	p.DispensedBy = &DispenseRecord{
		PharmacistID:   pharmacistID,
		PharmacistName: pharmacistName,
		DispensedAt:    s.now(),
	}

	if err := s.prescriptions.RecordDispense(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
