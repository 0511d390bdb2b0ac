package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Drug maps to the drug table (the pharmacy's reference catalog).
type Drug struct {
	ID                uuid.UUID     `db:"id" json:"id"`
	Name              string        `db:"name" json:"name"`
	GenericName       string        `db:"generic_name" json:"genericName"`
	BrandName         string        `db:"brand_name" json:"brandName,omitempty"`
	DosageForm        string        `db:"dosage_form" json:"dosageForm"`
	Strength          string        `db:"strength" json:"strength"`
	Manufacturer      string        `db:"manufacturer" json:"manufacturer"`
	Category          string        `db:"category" json:"category"`
	Description       string        `db:"description" json:"description,omitempty"`
	SideEffects       []string      `db:"side_effects" json:"sideEffects"`
	Contraindications []string      `db:"contraindications" json:"contraindications"`
	Interactions      []Interaction `db:"interactions" json:"interactions"`
	Price             float64       `db:"price" json:"price"`
	IsActive          bool          `db:"is_active" json:"isActive"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updatedAt"`
}

// Interaction is a declared drug-drug interaction, stored as part of the
// declaring drug's catalog entry.
type Interaction struct {
	DrugName    string `json:"drugName"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// InteractionMatch is one detected interaction between a pair of requested drugs.
type InteractionMatch struct {
	DrugID          uuid.UUID `json:"drugId"`
	DrugName        string    `json:"drugName"`
	InteractsWithID uuid.UUID `json:"interactsWithId"`
	InteractsWith   string    `json:"interactsWith"`
	Severity        string    `json:"severity"`
	Description     string    `json:"description"`
}

// ListFilter narrows catalog listings. IsActive accepts "true", "false" or
// "all"; an empty value lists active drugs only.
type ListFilter struct {
	Search     string
	Category   string
	DosageForm string
	IsActive   string
}
