package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pharmd/pharmd/internal/platform/apperror"
)

// -- Mock Repository --

type mockDrugRepo struct {
	drugs map[uuid.UUID]*Drug
}

func newMockDrugRepo() *mockDrugRepo {
	return &mockDrugRepo{drugs: make(map[uuid.UUID]*Drug)}
}

func (m *mockDrugRepo) Create(_ context.Context, d *Drug) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()
	m.drugs[d.ID] = d
	return nil
}

func (m *mockDrugRepo) GetByID(_ context.Context, id uuid.UUID) (*Drug, error) {
	d, ok := m.drugs[id]
	if !ok {
		return nil, apperror.NotFound("drug")
	}
	return d, nil
}

func (m *mockDrugRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*Drug, error) {
	var result []*Drug
	for _, id := range ids {
		if d, ok := m.drugs[id]; ok {
			result = append(result, d)
		}
	}
	return result, nil
}

func (m *mockDrugRepo) Update(_ context.Context, d *Drug) error {
	if _, ok := m.drugs[d.ID]; !ok {
		return apperror.NotFound("drug")
	}
	m.drugs[d.ID] = d
	return nil
}

func (m *mockDrugRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	d, ok := m.drugs[id]
	if !ok {
		return apperror.NotFound("drug")
	}
	d.IsActive = false
	return nil
}

func (m *mockDrugRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Drug, int, error) {
	var result []*Drug
	for _, d := range m.drugs {
		if filter.Category != "" && d.Category != filter.Category {
			continue
		}
		if filter.IsActive != "all" && filter.IsActive != "false" && !d.IsActive {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(filter.Search)) {
			continue
		}
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	total := len(result)
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func validDrug() *Drug {
	return &Drug{
		Name:         "Amoxil",
		GenericName:  "Amoxicillin",
		DosageForm:   "capsule",
		Strength:     "500mg",
		Manufacturer: "GSK",
		Category:     "antibiotic",
		Price:        8.50,
	}
}

func TestCreateDrug(t *testing.T) {
	svc := NewService(newMockDrugRepo())

	d := validDrug()
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if d.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if !d.IsActive {
		t.Error("expected new drug to be active")
	}
}

func TestCreateDrug_OptionalFieldsOmitted(t *testing.T) {
	svc := NewService(newMockDrugRepo())

	// brandName and description left unset: creation succeeds and the
	// serialized entry drops the empty keys.
	d := validDrug()
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	for _, key := range []string{"brandName", "description"} {
		if v, ok := decoded[key]; ok {
			t.Errorf("expected %s to be omitted, got %v", key, v)
		}
	}
}

func TestCreateDrug_CollectsAllViolations(t *testing.T) {
	svc := NewService(newMockDrugRepo())

	err := svc.Create(context.Background(), &Drug{
		DosageForm: "powder",
		Category:   "antibiotic",
		Price:      -1,
	})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.Error, got %T", err)
	}
	// name, genericName, dosageForm, strength, manufacturer, price all violated
	if len(appErr.Fields) != 6 {
		t.Errorf("expected 6 field errors, got %d: %+v", len(appErr.Fields), appErr.Fields)
	}
}

func TestCreateDrug_InvalidInteractionSeverity(t *testing.T) {
	svc := NewService(newMockDrugRepo())

	d := validDrug()
	d.Interactions = []Interaction{{DrugName: "Warfarin", Severity: "catastrophic"}}
	err := svc.Create(context.Background(), d)
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUpdateDrug_NotFound(t *testing.T) {
	svc := NewService(newMockDrugRepo())

	d := validDrug()
	d.ID = uuid.New()
	err := svc.Update(context.Background(), d)
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeactivateDrug(t *testing.T) {
	repo := newMockDrugRepo()
	svc := NewService(repo)

	d := validDrug()
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := svc.Deactivate(context.Background(), d.ID); err != nil {
		t.Fatalf("Deactivate() error: %v", err)
	}
	if repo.drugs[d.ID].IsActive {
		t.Error("expected drug to be inactive")
	}

	err := svc.Deactivate(context.Background(), uuid.New())
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("expected not found for unknown id, got %v", err)
	}
}

func TestCheckInteractions_RequiresTwoIDs(t *testing.T) {
	svc := NewService(newMockDrugRepo())

	_, err := svc.CheckInteractions(context.Background(), []uuid.UUID{uuid.New()})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("expected validation error for single id, got %v", err)
	}
}

func TestCheckInteractions_MatchesGenericNameCaseInsensitive(t *testing.T) {
	repo := newMockDrugRepo()
	svc := NewService(repo)

	a := validDrug()
	a.Interactions = []Interaction{{
		DrugName:    "WARFARIN",
		Severity:    "severe",
		Description: "increased bleeding risk",
	}}
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	b := &Drug{
		Name:         "Coumadin",
		GenericName:  "warfarin",
		DosageForm:   "tablet",
		Strength:     "5mg",
		Manufacturer: "BMS",
		Category:     "other",
		Price:        12.00,
	}
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	matches, err := svc.CheckInteractions(context.Background(), []uuid.UUID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("CheckInteractions() error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Severity != "severe" {
		t.Errorf("expected declared severity, got %s", matches[0].Severity)
	}
	if matches[0].InteractsWith != "Coumadin" {
		t.Errorf("expected counterpart Coumadin, got %s", matches[0].InteractsWith)
	}
}

func TestCheckInteractions_NoDeclaredInteraction(t *testing.T) {
	repo := newMockDrugRepo()
	svc := NewService(repo)

	a := validDrug()
	b := validDrug()
	b.Name = "Paracetamol"
	b.GenericName = "Acetaminophen"
	b.Category = "analgesic"
	for _, d := range []*Drug{a, b} {
		if err := svc.Create(context.Background(), d); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	matches, err := svc.CheckInteractions(context.Background(), []uuid.UUID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("CheckInteractions() error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestListDrugs_SortedByName(t *testing.T) {
	svc := NewService(newMockDrugRepo())

	for _, name := range []string{"Zinc", "Amoxil", "Metformin"} {
		d := validDrug()
		d.Name = name
		if err := svc.Create(context.Background(), d); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	items, total, err := svc.List(context.Background(), ListFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if items[0].Name != "Amoxil" || items[2].Name != "Zinc" {
		t.Errorf("expected name-ascending order, got %s..%s", items[0].Name, items[2].Name)
	}
}
