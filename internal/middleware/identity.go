package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// identity is the caller label used in rate limit keys and request logs:
// the decimal user id, or "anon" before authentication.
func identity(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
