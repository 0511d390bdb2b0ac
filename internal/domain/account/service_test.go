package account

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pharmd/pharmd/internal/platform/apperror"
	"github.com/pharmd/pharmd/internal/platform/auth"
)

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return apperror.Conflict("username or email already exists")
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	copied := *u
	m.users[u.ID] = &copied
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user")
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepo) GetByLogin(_ context.Context, login string) (*User, error) {
	for _, u := range m.users {
		if u.Username == login || u.Email == login {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user")
}

func (m *mockUserRepo) RecordLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user")
	}
	u.LastLogin = &at
	return nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user")
	}
	u.IsActive = active
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		copied := *u
		result = append(result, &copied)
	}
	return result, len(result), nil
}

var loginNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService() (*Service, *mockUserRepo, *auth.TokenIssuer) {
	repo := newMockUserRepo()
	issuer := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	svc := NewService(repo, issuer)
	svc.SetClock(func() time.Time { return loginNow })
	return svc, repo, issuer
}

func testUser(role string) *User {
	return &User{
		Username: "jdoe",
		Email:    "jdoe@pharmacy.test",
		Role:     role,
		Profile:  Profile{FirstName: "Jane", LastName: "Doe"},
	}
}

func TestRegister_DefaultPermissionsPerRole(t *testing.T) {
	cases := []struct {
		role string
		want []string
	}{
		{RolePharmacist, []string{"view_inventory", "manage_inventory", "dispense_medication", "view_prescriptions"}},
		{RolePharmacyTech, []string{"view_inventory", "view_prescriptions"}},
		{RoleAdmin, []string{"view_inventory", "manage_inventory", "dispense_medication", "view_prescriptions", "manage_users", "generate_reports"}},
		{RoleDoctor, []string{"view_prescriptions"}},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			svc, _, _ := newTestService()
			u := testUser(tc.role)
			token, err := svc.Register(context.Background(), u, "secret1")
			if err != nil {
				t.Fatalf("Register() error: %v", err)
			}
			if token == "" {
				t.Error("expected a token")
			}
			if !reflect.DeepEqual(u.Permissions, tc.want) {
				t.Errorf("permissions = %v, want %v", u.Permissions, tc.want)
			}
			if !u.IsActive {
				t.Error("expected new account to be active")
			}
		})
	}
}

func TestRegister_SuppliedPermissionsIgnored(t *testing.T) {
	svc, _, _ := newTestService()
	u := testUser(RolePharmacyTech)
	u.Permissions = []string{"manage_users", "generate_reports"}

	if _, err := svc.Register(context.Background(), u, "secret1"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if !reflect.DeepEqual(u.Permissions, DefaultPermissions(RolePharmacyTech)) {
		t.Errorf("expected role defaults to replace supplied permissions, got %v", u.Permissions)
	}
}

func TestRegister_CollectsAllViolations(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), &User{Username: "ab", Role: "superuser"}, "12345")
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperror.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(appErr.Fields) != 6 {
		t.Errorf("expected 6 field errors, got %d: %+v", len(appErr.Fields), appErr.Fields)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Register(context.Background(), testUser(RolePharmacist), "secret1"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	dup := testUser(RoleDoctor)
	dup.Email = "other@pharmacy.test"
	_, err := svc.Register(context.Background(), dup, "secret1")
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, repo, issuer := newTestService()
	u := testUser(RolePharmacist)
	if _, err := svc.Register(context.Background(), u, "secret1"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	token, got, err := svc.Login(context.Background(), "jdoe", "secret1")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if got.LastLogin == nil || !got.LastLogin.Equal(loginNow) {
		t.Errorf("expected last login %v, got %v", loginNow, got.LastLogin)
	}
	stored, _ := repo.GetByID(context.Background(), u.ID)
	if stored.LastLogin == nil {
		t.Error("expected last login persisted")
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if claims.Subject != u.ID.String() {
		t.Errorf("token subject = %s, want %s", claims.Subject, u.ID)
	}
	if claims.Role != RolePharmacist {
		t.Errorf("token role = %s, want pharmacist", claims.Role)
	}
	if claims.Name != "Jane Doe" {
		t.Errorf("token name = %s, want Jane Doe", claims.Name)
	}
	if !reflect.DeepEqual(claims.Permissions, u.Permissions) {
		t.Errorf("token permissions = %v, want %v", claims.Permissions, u.Permissions)
	}
}

func TestLogin_ByEmail(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Register(context.Background(), testUser(RolePharmacist), "secret1"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "jdoe@pharmacy.test", "secret1"); err != nil {
		t.Fatalf("Login() by email error: %v", err)
	}
}

func TestLogin_Rejected(t *testing.T) {
	svc, _, _ := newTestService()
	u := testUser(RolePharmacist)
	if _, err := svc.Register(context.Background(), u, "secret1"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "jdoe", "wrong"); !apperror.IsKind(err, apperror.KindUnauthorized) {
		t.Errorf("wrong password: expected unauthorized, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody", "secret1"); !apperror.IsKind(err, apperror.KindUnauthorized) {
		t.Errorf("unknown login: expected unauthorized, got %v", err)
	}

	if err := svc.Deactivate(context.Background(), u.ID); err != nil {
		t.Fatalf("Deactivate() error: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "jdoe", "secret1"); !apperror.IsKind(err, apperror.KindUnauthorized) {
		t.Errorf("disabled account: expected unauthorized, got %v", err)
	}
}

func TestMe(t *testing.T) {
	svc, _, _ := newTestService()
	u := testUser(RolePharmacist)
	if _, err := svc.Register(context.Background(), u, "secret1"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	got, err := svc.Me(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if got.Username != "jdoe" {
		t.Errorf("expected jdoe, got %s", got.Username)
	}

	if err := svc.Deactivate(context.Background(), u.ID); err != nil {
		t.Fatalf("Deactivate() error: %v", err)
	}
	if _, err := svc.Me(context.Background(), u.ID); !apperror.IsKind(err, apperror.KindUnauthorized) {
		t.Errorf("deactivated: expected unauthorized, got %v", err)
	}

	if _, err := svc.Me(context.Background(), uuid.New()); !apperror.IsKind(err, apperror.KindUnauthorized) {
		t.Errorf("unknown id: expected unauthorized, got %v", err)
	}
}
