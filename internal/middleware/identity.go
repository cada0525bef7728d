package middleware

import (
	"encoding/json"
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated customer id stored by JWTAuth.  ok is
// false for anonymous requests.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id != 0
}

// subjectID accepts the sub claim either as a number (how tokens are
// issued) or as a decimal string.
func subjectID(v interface{}) (uint64, bool) {
	switch s := v.(type) {
	case float64:
		if s <= 0 || s != float64(uint64(s)) {
			return 0, false
		}
		return uint64(s), true
	case json.Number:
		n, err := strconv.ParseUint(s.String(), 10, 64)
		return n, err == nil && n != 0
	case string:
		n, err := strconv.ParseUint(s, 10, 64)
		return n, err == nil && n != 0
	}
	return 0, false
}

// currentUserID is the rate-limit and log identity of the caller.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
