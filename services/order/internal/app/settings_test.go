package app

import (
	"testing"
	"time"

	"github.com/appetiteclub/apt"
)

func mapLookup(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	s := loadSettings(mapLookup(nil), apt.NewNoopLogger())

	if s.dbDriver != driverMongo {
		t.Errorf("dbDriver = %q, want mongo", s.dbDriver)
	}
	if s.cartTTL != 4*time.Hour {
		t.Errorf("cartTTL = %s, want 4h", s.cartTTL)
	}
	if s.board.Tick != 15*time.Second || s.board.RetryAttempts != 3 || s.board.IdleAfter != 30*time.Minute {
		t.Errorf("board = %+v", s.board)
	}
	if s.streamEnabled || s.seedDemo {
		t.Error("toggles should default to off")
	}
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		check  func(t *testing.T, s settings)
	}{
		{
			name:   "postgresDriver",
			values: map[string]string{"db.driver": "postgres"},
			check: func(t *testing.T, s settings) {
				if s.dbDriver != driverPostgres {
					t.Errorf("dbDriver = %q", s.dbDriver)
				}
			},
		},
		{
			name:   "unknownDriverFallsBack",
			values: map[string]string{"db.driver": "sqlite"},
			check: func(t *testing.T, s settings) {
				if s.dbDriver != driverMongo {
					t.Errorf("dbDriver = %q", s.dbDriver)
				}
			},
		},
		{
			name: "durations",
			values: map[string]string{
				"cart.ttl":            "30m",
				"board.tick":          "5s",
				"board.stale.after":   "10m",
				"board.retry.backoff": "1s",
				"board.idle.after":    "2h",
			},
			check: func(t *testing.T, s settings) {
				if s.cartTTL != 30*time.Minute || s.board.Tick != 5*time.Second ||
					s.board.StaleAfter != 10*time.Minute || s.board.RetryBackoff != time.Second ||
					s.board.IdleAfter != 2*time.Hour {
					t.Errorf("settings = %+v", s)
				}
			},
		},
		{
			name:   "malformedValuesUseDefaults",
			values: map[string]string{"cart.ttl": "soon", "board.retry.attempts": "-2"},
			check: func(t *testing.T, s settings) {
				if s.cartTTL != 4*time.Hour || s.board.RetryAttempts != 3 {
					t.Errorf("cartTTL = %s, attempts = %d", s.cartTTL, s.board.RetryAttempts)
				}
			},
		},
		{
			name:   "toggles",
			values: map[string]string{"nats.stream.enabled": "true", "seeding.demo": "true"},
			check: func(t *testing.T, s settings) {
				if !s.streamEnabled || !s.seedDemo {
					t.Errorf("toggles = %v %v", s.streamEnabled, s.seedDemo)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, loadSettings(mapLookup(tt.values), apt.NewNoopLogger()))
		})
	}
}
