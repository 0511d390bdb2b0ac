package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pharmd/pharmd/internal/platform/apperror"
)

type contextKey string

const (
	UserIDKey          contextKey = "user_id"
	UserNameKey        contextKey = "user_name"
	UserRoleKey        contextKey = "user_role"
	UserPermissionsKey contextKey = "user_permissions"
)

// Skipper decides whether a request bypasses authentication.
type Skipper func(c echo.Context) bool

// JWTMiddleware validates the bearer token on each request and stores the
// caller's identity on the request context.
func JWTMiddleware(issuer *TokenIssuer, skip Skipper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return apperror.Unauthorized("missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return apperror.Unauthorized("invalid authorization format")
			}

			claims, err := issuer.Parse(parts[1])
			if err != nil {
				return apperror.Unauthorized("invalid token")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserNameKey, claims.Name)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			ctx = context.WithValue(ctx, UserPermissionsKey, claims.Permissions)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequirePermission returns middleware that checks if the caller holds at
// least one of the given permission flags. Admins pass every check.
func RequirePermission(permissions ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if RoleFromContext(ctx) == "admin" {
				return next(c)
			}
			granted := PermissionsFromContext(ctx)
			for _, required := range permissions {
				for _, has := range granted {
					if has == required {
						return next(c)
					}
				}
			}
			return apperror.Forbidden("insufficient permissions")
		}
	}
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func UserNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(UserNameKey).(string)
	return name
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

func PermissionsFromContext(ctx context.Context) []string {
	perms, _ := ctx.Value(UserPermissionsKey).([]string)
	return perms
}
