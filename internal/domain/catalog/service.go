package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pharmd/pharmd/internal/platform/apperror"
)

type Service struct {
	drugs DrugRepository
}

func NewService(drugs DrugRepository) *Service {
	return &Service{drugs: drugs}
}

var validDosageForms = map[string]bool{
	"tablet": true, "capsule": true, "syrup": true, "injection": true,
	"cream": true, "drops": true, "inhaler": true,
}

var validCategories = map[string]bool{
	"antibiotic": true, "analgesic": true, "antihypertensive": true,
	"antidiabetic": true, "vitamin": true, "other": true,
}

var validSeverities = map[string]bool{
	"mild": true, "moderate": true, "severe": true,
}

// validate collects every violated field so the caller sees all problems at once.
func validate(d *Drug) []apperror.FieldError {
	var fields []apperror.FieldError
	if d.Name == "" {
		fields = append(fields, apperror.FieldError{Field: "name", Message: "name is required"})
	}
	if d.GenericName == "" {
		fields = append(fields, apperror.FieldError{Field: "genericName", Message: "genericName is required"})
	}
	if d.DosageForm == "" {
		fields = append(fields, apperror.FieldError{Field: "dosageForm", Message: "dosageForm is required"})
	} else if !validDosageForms[d.DosageForm] {
		fields = append(fields, apperror.FieldError{Field: "dosageForm", Message: fmt.Sprintf("invalid dosage form: %s", d.DosageForm)})
	}
	if d.Strength == "" {
		fields = append(fields, apperror.FieldError{Field: "strength", Message: "strength is required"})
	}
	if d.Manufacturer == "" {
		fields = append(fields, apperror.FieldError{Field: "manufacturer", Message: "manufacturer is required"})
	}
	if d.Category == "" {
		fields = append(fields, apperror.FieldError{Field: "category", Message: "category is required"})
	} else if !validCategories[d.Category] {
		fields = append(fields, apperror.FieldError{Field: "category", Message: fmt.Sprintf("invalid category: %s", d.Category)})
	}
	if d.Price < 0 {
		fields = append(fields, apperror.FieldError{Field: "price", Message: "price must be non-negative"})
	}
	for i, in := range d.Interactions {
		if in.DrugName == "" {
			fields = append(fields, apperror.FieldError{Field: fmt.Sprintf("interactions[%d].drugName", i), Message: "drugName is required"})
		}
		if !validSeverities[in.Severity] {
			fields = append(fields, apperror.FieldError{Field: fmt.Sprintf("interactions[%d].severity", i), Message: fmt.Sprintf("invalid severity: %s", in.Severity)})
		}
	}
	return fields
}

func (s *Service) Create(ctx context.Context, d *Drug) error {
	if fields := validate(d); len(fields) > 0 {
		return apperror.Validation(fields...)
	}
	d.IsActive = true
	return s.drugs.Create(ctx, d)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Drug, error) {
	return s.drugs.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, d *Drug) error {
	if fields := validate(d); len(fields) > 0 {
		return apperror.Validation(fields...)
	}
	existing, err := s.drugs.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	d.IsActive = existing.IsActive
	return s.drugs.Update(ctx, d)
}

// Deactivate is the catalog's only delete. The row stays so historical
// batches and prescriptions keep a valid reference.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.drugs.Deactivate(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Drug, int, error) {
	return s.drugs.List(ctx, filter, limit, offset)
}

// CheckInteractions inspects every unordered pair of the given drugs and
// reports pairs where either side declares an interaction naming the other,
// matched case-insensitively against name and generic name.
func (s *Service) CheckInteractions(ctx context.Context, ids []uuid.UUID) ([]InteractionMatch, error) {
	if len(ids) < 2 {
		return nil, apperror.Validationf("at least two drug ids are required")
	}

	drugs, err := s.drugs.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	matches := []InteractionMatch{}
	for i := 0; i < len(drugs); i++ {
		for j := i + 1; j < len(drugs); j++ {
			if m, ok := declaredInteraction(drugs[i], drugs[j]); ok {
				matches = append(matches, m)
			} else if m, ok := declaredInteraction(drugs[j], drugs[i]); ok {
				matches = append(matches, m)
			}
		}
	}
	return matches, nil
}

// declaredInteraction reports whether a's catalog entry names b as an interaction.
func declaredInteraction(a, b *Drug) (InteractionMatch, bool) {
	for _, in := range a.Interactions {
		if strings.EqualFold(in.DrugName, b.Name) || strings.EqualFold(in.DrugName, b.GenericName) {
			return InteractionMatch{
				DrugID:          a.ID,
				DrugName:        a.Name,
				InteractsWithID: b.ID,
				InteractsWith:   b.Name,
				Severity:        in.Severity,
				Description:     in.Description,
			}, true
		}
	}
	return InteractionMatch{}, false
}
