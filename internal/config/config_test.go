package config

import (
	"testing"
	"time"
)

func TestLoadBookingConfig_Defaults(t *testing.T) {
	c := LoadBookingConfig()
	if c.HoldTTL != 5*time.Minute || c.SweepInterval != 15*time.Second || c.SessionIdleTTL != 30*time.Minute {
		t.Fatalf("unexpected durations %+v", c)
	}
	if c.ConfirmationPrefix != "BK" || c.FeePolicy != "card" || c.DraftBackend != "redis" {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func TestLoadBookingConfig_Overrides(t *testing.T) {
	t.Setenv("BOOKING_HOLD_TTL", "90s")
	t.Setenv("BOOKING_CONFIRMATION_PREFIX", "ixr")
	t.Setenv("BOOKING_DRAFT_BACKEND", "MySQL")
	t.Setenv("BOOKING_SWEEP_INTERVAL", "-1s")
	c := LoadBookingConfig()
	if c.HoldTTL != 90*time.Second {
		t.Fatalf("hold ttl: got %s", c.HoldTTL)
	}
	if c.ConfirmationPrefix != "IXR" || c.DraftBackend != "mysql" {
		t.Fatalf("unexpected %+v", c)
	}
	if c.SweepInterval != 15*time.Second {
		t.Fatalf("non-positive interval should fall back, got %s", c.SweepInterval)
	}
}

func TestLoadBookingConfig_SessionIdleOutlivesHolds(t *testing.T) {
	t.Setenv("BOOKING_HOLD_TTL", "10m")
	t.Setenv("BOOKING_SESSION_IDLE_TTL", "1m")
	if c := LoadBookingConfig(); c.SessionIdleTTL != 10*time.Minute {
		t.Fatalf("idle ttl should not undercut the hold ttl, got %s", c.SessionIdleTTL)
	}
}

func TestLoadBookingConfig_UnknownBackendFallsBack(t *testing.T) {
	t.Setenv("BOOKING_DRAFT_BACKEND", "etcd")
	if c := LoadBookingConfig(); c.DraftBackend != "memory" {
		t.Fatalf("expected memory, got %s", c.DraftBackend)
	}
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	c := LoadRateLimitConfig()
	if c.Capacity != 1 {
		t.Fatalf("capacity should clamp to 1, got %d", c.Capacity)
	}
	if c.TTL != 10*time.Second {
		t.Fatalf("ttl should be at least five refill intervals, got %s", c.TTL)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "Off")
	if envBool("X_FLAG", true) {
		t.Fatalf("Off should be false")
	}
	t.Setenv("X_FLAG", "maybe")
	if !envBool("X_FLAG", true) {
		t.Fatalf("unrecognised value should keep the default")
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	if !c.Methods["GET"] || !c.Methods["HEAD"] || len(c.Methods) != 2 {
		t.Fatalf("unexpected methods %v", c.Methods)
	}
}
