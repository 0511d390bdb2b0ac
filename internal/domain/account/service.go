package account

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pharmd/pharmd/internal/platform/apperror"
	"github.com/pharmd/pharmd/internal/platform/auth"
)

var validRoles = map[string]bool{
	RolePharmacist:   true,
	RolePharmacyTech: true,
	RoleAdmin:        true,
	RoleDoctor:       true,
}

// rolePermissions is the permission set each role receives at registration.
var rolePermissions = map[string][]string{
	RolePharmacist:   {"view_inventory", "manage_inventory", "dispense_medication", "view_prescriptions"},
	RolePharmacyTech: {"view_inventory", "view_prescriptions"},
	RoleAdmin:        {"view_inventory", "manage_inventory", "dispense_medication", "view_prescriptions", "manage_users", "generate_reports"},
	RoleDoctor:       {"view_prescriptions"},
}

// DefaultPermissions returns the permission set a role starts with.
func DefaultPermissions(role string) []string {
	return append([]string(nil), rolePermissions[role]...)
}

type Service struct {
	users  UserRepository
	issuer *auth.TokenIssuer
	now    func() time.Time
}

func NewService(users UserRepository, issuer *auth.TokenIssuer) *Service {
	return &Service{users: users, issuer: issuer, now: time.Now}
}

// SetClock overrides the service clock in tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func validateRegistration(u *User, password string) error {
	var fields []apperror.FieldError
	if len(strings.TrimSpace(u.Username)) < 3 {
		fields = append(fields, apperror.FieldError{Field: "username", Message: "username must be at least 3 characters"})
	}
	if !strings.Contains(u.Email, "@") {
		fields = append(fields, apperror.FieldError{Field: "email", Message: "please provide a valid email"})
	}
	if len(password) < 6 {
		fields = append(fields, apperror.FieldError{Field: "password", Message: "password must be at least 6 characters"})
	}
	if !validRoles[u.Role] {
		fields = append(fields, apperror.FieldError{Field: "role", Message: "invalid role"})
	}
	if strings.TrimSpace(u.Profile.FirstName) == "" {
		fields = append(fields, apperror.FieldError{Field: "profile.firstName", Message: "first name is required"})
	}
	if strings.TrimSpace(u.Profile.LastName) == "" {
		fields = append(fields, apperror.FieldError{Field: "profile.lastName", Message: "last name is required"})
	}
	if len(fields) > 0 {
		return apperror.Validation(fields...)
	}
	return nil
}

// Register creates the account and returns a session token for it.
func (s *Service) Register(ctx context.Context, u *User, password string) (string, error) {
	if err := validateRegistration(u, password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	u.PasswordHash = string(hash)
	u.Permissions = DefaultPermissions(u.Role)
	u.IsActive = true
	if err := s.users.Create(ctx, u); err != nil {
		return "", err
	}
	return s.issuer.Issue(u.ID.String(), u.FullName(), u.Role, u.Permissions)
}

// Login authenticates by username or email. Disabled accounts and unknown
// logins are indistinguishable from a wrong password.
func (s *Service) Login(ctx context.Context, login, password string) (string, *User, error) {
	if login == "" || password == "" {
		return "", nil, apperror.Validationf("username and password are required")
	}
	u, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return "", nil, apperror.Unauthorized("invalid credentials")
		}
		return "", nil, err
	}
	if !u.IsActive {
		return "", nil, apperror.Unauthorized("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, apperror.Unauthorized("invalid credentials")
	}

	at := s.now()
	if err := s.users.RecordLogin(ctx, u.ID, at); err != nil {
		return "", nil, err
	}
	u.LastLogin = &at

	token, err := s.issuer.Issue(u.ID.String(), u.FullName(), u.Role, u.Permissions)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Me resolves the authenticated user. A deactivated account invalidates any
// token it still holds.
func (s *Service) Me(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.Unauthorized("token is not valid")
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, apperror.Unauthorized("token is not valid")
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, filter, limit, offset)
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.users.SetActive(ctx, id, false)
}

func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	return s.users.SetActive(ctx, id, true)
}
