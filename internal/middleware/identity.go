package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// identity names the caller for rate limiting: the authenticated user ID,
// or "anon" before JWTAuth has run.
func identity(c echo.Context) string {
	if id, ok := c.Get(CtxUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
