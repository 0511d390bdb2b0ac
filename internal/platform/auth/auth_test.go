package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pharmd/pharmd/internal/platform/apperror"
)

var testIssuer = NewTokenIssuer([]byte("test-secret"), time.Hour)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	token, err := testIssuer.Issue("user-1", "Jane Doe", "pharmacist", []string{"dispense_medication", "view_inventory"})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	claims, err := testIssuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %s", claims.Subject)
	}
	if claims.Role != "pharmacist" {
		t.Errorf("expected role pharmacist, got %s", claims.Role)
	}
	if len(claims.Permissions) != 2 {
		t.Errorf("expected 2 permissions, got %d", len(claims.Permissions))
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	token, err := testIssuer.Issue("user-1", "Jane Doe", "pharmacist", nil)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	other := NewTokenIssuer([]byte("different-secret"), time.Hour)
	if _, err := other.Parse(token); err == nil {
		t.Error("expected parse failure with wrong secret")
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	expired := NewTokenIssuer([]byte("test-secret"), -time.Minute)
	token, err := expired.Issue("user-1", "Jane Doe", "pharmacist", nil)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if _, err := testIssuer.Parse(token); err == nil {
		t.Error("expected parse failure for expired token")
	}
}

func newAuthContext(header string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/drugs", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token, err := testIssuer.Issue("user-1", "Jane Doe", "pharmacist", []string{"view_inventory"})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	c := newAuthContext("Bearer " + token)
	var gotID, gotRole string
	handler := JWTMiddleware(testIssuer, nil)(func(c echo.Context) error {
		ctx := c.Request().Context()
		gotID = UserIDFromContext(ctx)
		gotRole = RoleFromContext(ctx)
		return nil
	})

	if err := handler(c); err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	if gotID != "user-1" {
		t.Errorf("expected user-1 in context, got %s", gotID)
	}
	if gotRole != "pharmacist" {
		t.Errorf("expected pharmacist in context, got %s", gotRole)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	c := newAuthContext("")
	handler := JWTMiddleware(testIssuer, nil)(func(c echo.Context) error { return nil })
	err := handler(c)
	if !apperror.IsKind(err, apperror.KindUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestJWTMiddleware_MalformedHeader(t *testing.T) {
	c := newAuthContext("Basic abc123")
	handler := JWTMiddleware(testIssuer, nil)(func(c echo.Context) error { return nil })
	err := handler(c)
	if !apperror.IsKind(err, apperror.KindUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestJWTMiddleware_Skipper(t *testing.T) {
	c := newAuthContext("")
	skip := func(c echo.Context) bool {
		return strings.HasPrefix(c.Request().URL.Path, "/api/v1")
	}
	called := false
	handler := JWTMiddleware(testIssuer, skip)(func(c echo.Context) error {
		called = true
		return nil
	})
	if err := handler(c); err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	if !called {
		t.Error("expected skipped request to reach handler")
	}
}

func permissionContext(role string, perms []string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRoleKey, role)
	ctx = context.WithValue(ctx, UserPermissionsKey, perms)
	return e.NewContext(req.WithContext(ctx), httptest.NewRecorder())
}

func TestRequirePermission(t *testing.T) {
	cases := []struct {
		name     string
		role     string
		perms    []string
		required []string
		allowed  bool
	}{
		{"has permission", "pharmacist", []string{"dispense_medication"}, []string{"dispense_medication"}, true},
		{"missing permission", "pharmacy_tech", []string{"view_inventory"}, []string{"dispense_medication"}, false},
		{"admin bypasses", "admin", nil, []string{"manage_users"}, true},
		{"any of several", "pharmacist", []string{"view_prescriptions"}, []string{"manage_inventory", "view_prescriptions"}, true},
		{"no permissions at all", "doctor", nil, []string{"manage_inventory"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := permissionContext(tc.role, tc.perms)
			handler := RequirePermission(tc.required...)(func(c echo.Context) error { return nil })
			err := handler(c)
			if tc.allowed && err != nil {
				t.Errorf("expected access, got %v", err)
			}
			if !tc.allowed && !apperror.IsKind(err, apperror.KindForbidden) {
				t.Errorf("expected forbidden, got %v", err)
			}
		})
	}
}
