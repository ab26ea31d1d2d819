package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Header names set by the upstream authentication gateway. This service
// trusts them; authentication itself happens before requests reach us.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
)

// Context keys for the authenticated identity.
const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
)

// IdentityMiddleware extracts the caller identity forwarded by the gateway.
type IdentityMiddleware struct{}

// NewIdentityMiddleware is the constructor for IdentityMiddleware.
func NewIdentityMiddleware() *IdentityMiddleware {
	return &IdentityMiddleware{}
}

// Require rejects requests without a forwarded identity.
func (m *IdentityMiddleware) Require(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		idHeader := c.Request().Header.Get(HeaderUserID)
		if idHeader == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "identity headers missing"})
		}

		userID, err := uuid.Parse(idHeader)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user ID format"})
		}

		email := c.Request().Header.Get(HeaderUserEmail)
		if email == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "identity headers missing"})
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserEmail, email)

		return next(c)
	}
}

// UserID reads the authenticated user ID from the context.
func UserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(ContextUserID).(uuid.UUID)

	return id, ok
}

// UserEmail reads the authenticated email from the context.
func UserEmail(c echo.Context) (string, bool) {
	email, ok := c.Get(ContextUserEmail).(string)

	return email, ok
}
