package config

import (
	"log/slog"
	"testing"

	"github.com/spf13/viper"

	"scrumboard/internal/board"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Addr", cfg.Addr, ":8080"},
		{"DBPath", cfg.DBPath, "data/scrumboard.db"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"SprintPolicy", cfg.SprintPolicy, "preserve"},
		{"GinMode", cfg.GinMode, "release"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "addr",
			envKey: "SCRUMBOARD_ADDR",
			envVal: ":9090",
			field:  func(c Config) any { return c.Addr },
			want:   ":9090",
		},
		{
			name:   "db_path",
			envKey: "SCRUMBOARD_DB_PATH",
			envVal: "/tmp/board.db",
			field:  func(c Config) any { return c.DBPath },
			want:   "/tmp/board.db",
		},
		{
			name:   "sprint_policy",
			envKey: "SCRUMBOARD_SPRINT_POLICY",
			envVal: "reresolve",
			field:  func(c Config) any { return c.SprintPolicy },
			want:   "reresolve",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			viper.SetEnvPrefix("SCRUMBOARD")
			viper.AutomaticEnv()
			t.Setenv(tt.envKey, tt.envVal)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			if got := tt.field(cfg); got != tt.want {
				t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestLoad_RejectsUnknownPolicy(t *testing.T) {
	resetViper()
	viper.Set("sprint_policy", "sometimes")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted an unknown sprint policy")
	}
}

func TestConfigAccessors(t *testing.T) {
	cfg := Config{LogLevel: "debug", SprintPolicy: "reresolve"}

	level, err := cfg.Level()
	if err != nil {
		t.Fatalf("Level(): %v", err)
	}
	if level != slog.LevelDebug {
		t.Errorf("Level() = %v, want %v", level, slog.LevelDebug)
	}

	policy, err := cfg.Policy()
	if err != nil {
		t.Fatalf("Policy(): %v", err)
	}
	if policy != board.PolicyReresolve {
		t.Errorf("Policy() = %v, want %v", policy, board.PolicyReresolve)
	}
}
