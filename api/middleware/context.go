package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const contextPrincipalKey = "auth_principal"

// Principal is the caller identity carried by a verified access token.
type Principal struct {
	UserID      uuid.UUID
	SessionID   uuid.UUID
	UserType    string
	IsStaff     bool
	IsSuperuser bool
}

func SetAuthContext(c echo.Context, principal Principal) {
	c.Set(contextPrincipalKey, principal)
}

func PrincipalFromContext(c echo.Context) (Principal, bool) {
	principal, ok := c.Get(contextPrincipalKey).(Principal)
	return principal, ok
}

func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	principal, ok := PrincipalFromContext(c)
	return principal.UserID, ok
}

func SessionIDFromContext(c echo.Context) (uuid.UUID, bool) {
	principal, ok := PrincipalFromContext(c)
	return principal.SessionID, ok
}
