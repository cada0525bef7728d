package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/intercity-reservation/internal/config"
	"github.com/iliyamo/intercity-reservation/internal/utils"
)

const secret = "test-secret"

func protected() *echo.Echo {
	e := echo.New()
	g := e.Group("/v1", JWTAuth(secret), RequireRole(utils.RoleCustomer))
	g.GET("/whoami", func(c echo.Context) error {
		id, _ := UserID(c)
		return c.String(http.StatusOK, strconv.FormatUint(id, 10))
	})
	return e
}

func get(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth_AcceptsCustomerToken(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, 42, utils.RoleCustomer, 5)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	rec := get(protected(), "/v1/whoami", tok.Token)
	if rec.Code != http.StatusOK || rec.Body.String() != "42" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestJWTAuth_Rejections(t *testing.T) {
	e := protected()
	wrongSecret, _ := utils.NewAccessToken("other", 42, utils.RoleCustomer, 5)
	owner, _ := utils.NewAccessToken(secret, 42, "OWNER", 5)
	expired, _ := utils.NewAccessToken(secret, 42, utils.RoleCustomer, -5)
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 42, "role": utils.RoleCustomer}).
		SignedString([]byte(secret))
	badSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice", "role": utils.RoleCustomer, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))

	cases := []struct {
		name  string
		token string
		code  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", wrongSecret.Token, http.StatusUnauthorized},
		{"expired", expired.Token, http.StatusUnauthorized},
		{"no exp", noExp, http.StatusUnauthorized},
		{"bad subject", badSub, http.StatusUnauthorized},
		{"wrong role", owner.Token, http.StatusForbidden},
	}
	for _, tc := range cases {
		if rec := get(e, "/v1/whoami", tc.token); rec.Code != tc.code {
			t.Fatalf("%s: want %d, got %d", tc.name, tc.code, rec.Code)
		}
	}
}

func TestSubjectID(t *testing.T) {
	if id, ok := subjectID("17"); !ok || id != 17 {
		t.Fatalf("string subject: %d %v", id, ok)
	}
	if _, ok := subjectID(1.5); ok {
		t.Fatalf("fractional subject accepted")
	}
	if _, ok := subjectID(float64(0)); ok {
		t.Fatalf("zero subject accepted")
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestTokenBucket_BlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip", Prefix: "rl",
	}
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	for i := 0; i < 2; i++ {
		if rec := get(e, "/ping", ""); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: unexpected %d", i, rec.Code)
		}
	}
	rec := get(e, "/ping", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("missing rate limit headers: %v", rec.Header())
	}
}

func TestTokenBucket_DisabledWithoutRedis(t *testing.T) {
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))
	for i := 0; i < 3; i++ {
		if rec := get(e, "/ping", ""); rec.Code != http.StatusNoContent {
			t.Fatalf("pass-through expected, got %d", rec.Code)
		}
	}
}

func TestResponseCache_HitMissAndPurge(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache",
	}, rdb)
	calls := 0
	e := echo.New()
	e.GET("/v1/schedules/:id/seats", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"schedule": c.Param("id"), "calls": calls})
	}, rc.Middleware())

	first := get(e, "/v1/schedules/7/seats", "")
	second := get(e, "/v1/schedules/7/seats", "")
	if first.Header().Get("X-Cache") != "MISS" || second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("unexpected cache headers %q %q", first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
	}
	if first.Body.String() != second.Body.String() || calls != 1 {
		t.Fatalf("cached body differs or handler re-ran (%d calls)", calls)
	}

	if other := get(e, "/v1/schedules/8/seats", ""); other.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("different schedules must not share a cache entry")
	}

	rc.Purge(context.Background(), "/v1/schedules/7/seats")
	if again := get(e, "/v1/schedules/7/seats", ""); again.Header().Get("X-Cache") != "MISS" || calls != 3 {
		t.Fatalf("purge did not drop the entry (calls=%d)", calls)
	}
}

func TestResponseCache_SkipsErrors(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "c"}, rdb)
	e := echo.New()
	e.GET("/missing", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}, rc.Middleware())
	get(e, "/missing", "")
	if rec := get(e, "/missing", ""); rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("error responses must not be cached")
	}
}
