package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Batch statuses. Recalled is an administrative override; the other three are
// derived from quantity, threshold and expiry (see DeriveStatus).
const (
	StatusAvailable = "available"
	StatusLowStock  = "low_stock"
	StatusExpired   = "expired"
	StatusRecalled  = "recalled"
)

const DefaultMinimumStock = 10

// Batch maps to the inventory_batch table: one row per (drug, batchNumber)
// lot. Rows are never physically deleted so dispensing history stays auditable.
type Batch struct {
	ID                uuid.UUID `db:"id" json:"id"`
	DrugID            uuid.UUID `db:"drug_id" json:"drugId"`
	BatchNumber       string    `db:"batch_number" json:"batchNumber"`
	Quantity          int       `db:"quantity" json:"quantity"`
	UnitPrice         float64   `db:"unit_price" json:"unitPrice"`
	ExpiryDate        time.Time `db:"expiry_date" json:"expiryDate"`
	ManufacturingDate time.Time `db:"manufacturing_date" json:"manufacturingDate"`
	Supplier          Supplier  `json:"supplier"`
	Location          Location  `json:"location"`
	MinimumStock      int       `db:"minimum_stock" json:"minimumStock"`
	Status            string    `db:"status" json:"status"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// Supplier is stored as flattened columns and presented as a nested object.
type Supplier struct {
	Name    string `db:"supplier_name" json:"name"`
	Contact string `db:"supplier_contact" json:"contact,omitempty"`
	Email   string `db:"supplier_email" json:"email,omitempty"`
}

// Location is stored as flattened columns and presented as a nested object.
type Location struct {
	Room    string `db:"location_room" json:"room,omitempty"`
	Section string `db:"location_section" json:"section,omitempty"`
	Shelf   string `db:"location_shelf" json:"shelf,omitempty"`
}

// Allocation records how much of a dispense request one batch satisfied.
type Allocation struct {
	BatchID       uuid.UUID `json:"batchId"`
	BatchNumber   string    `json:"batchNumber"`
	QuantityTaken int       `json:"quantityTaken"`
}

// ListFilter narrows inventory listings.
type ListFilter struct {
	DrugID         uuid.UUID
	Status         string
	Search         string // matches batch number
	LowStock       bool
	ExpiringSoon   bool      // expiring within 30 days
	ExpiringBefore time.Time // cutoff resolved by the service when ExpiringSoon is set
}
