package middleware

// identity.go defines helpers shared across middleware files. It
// provides the user identifier used in rate limit and cache keys,
// read from the context values JWTAuth stores.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns a stable string identifier for the
// authenticated user, or "anon" for guests. JWT numeric claims decode
// as float64, so both representations are handled.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}
