package prescription

import (
	"time"

	"github.com/google/uuid"

	"github.com/pharmd/pharmd/internal/domain/inventory"
)

// Prescription statuses. dispensed and cancelled are terminal;
// partially_dispensed may still be dispensed further.
const (
	StatusPending            = "pending"
	StatusVerified           = "verified"
	StatusDispensed          = "dispensed"
	StatusPartiallyDispensed = "partially_dispensed"
	StatusCancelled          = "cancelled"
)

// Prescription is the aggregate root. Patient and doctor details are
// snapshots captured at prescription time, not live references.
type Prescription struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	Number           string           `db:"number" json:"prescriptionNumber"`
	Patient          Patient          `db:"patient" json:"patient"`
	Doctor           Doctor           `db:"doctor" json:"doctor"`
	Medications      []MedicationLine `json:"medications"`
	PrescriptionDate time.Time        `db:"prescription_date" json:"prescriptionDate"`
	Status           string           `db:"status" json:"status"`
	DispensedBy      *DispenseRecord  `db:"dispensed_by" json:"dispensedBy,omitempty"`
	TotalAmount      float64          `db:"total_amount" json:"totalAmount"`
	Insurance        *Insurance       `db:"insurance" json:"insurance,omitempty"`
	Notes            string           `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updatedAt"`
}

type Patient struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Gender    string   `json:"gender"`
	Phone     string   `json:"phone,omitempty"`
	Address   string   `json:"address,omitempty"`
	Allergies []string `json:"allergies,omitempty"`
}

type Doctor struct {
	Name      string `json:"name"`
	License   string `json:"license"`
	Specialty string `json:"specialty,omitempty"`
	Hospital  string `json:"hospital,omitempty"`
}

type Insurance struct {
	Provider     string  `json:"provider"`
	PolicyNumber string  `json:"policyNumber"`
	Coverage     float64 `json:"coverage,omitempty"`
}

// DispenseRecord identifies the pharmacist and time of the latest dispensing
// action. It is overwritten on every dispense.
type DispenseRecord struct {
	PharmacistID   string    `json:"pharmacistId"`
	PharmacistName string    `json:"pharmacistName"`
	DispensedAt    time.Time `json:"dispensedAt"`
}

// MedicationLine is one ordered drug on a prescription. The drug reference is
// weak: the catalog entry's own lifecycle is independent.
type MedicationLine struct {
	ID                  uuid.UUID              `db:"id" json:"id"`
	PrescriptionID      uuid.UUID              `db:"prescription_id" json:"-"`
	DrugID              uuid.UUID              `db:"drug_id" json:"drugId"`
	DrugName            string                 `db:"drug_name" json:"drugName"`
	Dosage              string                 `db:"dosage" json:"dosage"`
	Frequency           string                 `db:"frequency" json:"frequency"`
	Duration            string                 `db:"duration" json:"duration"`
	Quantity            int                    `db:"quantity" json:"quantity"`
	Instructions        string                 `db:"instructions" json:"instructions,omitempty"`
	SubstitutionAllowed bool                   `db:"substitution_allowed" json:"substitutionAllowed"`
	QuantityDispensed   int                    `db:"quantity_dispensed" json:"quantityDispensed"`
	Batches             []inventory.Allocation `db:"batches" json:"batches,omitempty"`
}

// LineDispense is one entry of a dispense request.
type LineDispense struct {
	MedicationLineID uuid.UUID `json:"medicationId"`
	Quantity         int       `json:"quantityDispensed"`
}

// ListFilter narrows prescription listings.
type ListFilter struct {
	Status    string
	PatientID string
	Search    string // matches prescription number and patient name
	DateFrom  time.Time
	DateTo    time.Time
}
