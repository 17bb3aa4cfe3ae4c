package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/velo/engine/core"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
[window]
title = "test"
width = 640

[renderer]
frames_in_flight = 3
multi_material = true

[camera]
rotation_speed = 120
`)
	cfg := Default()
	if err := Parse(data, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Window.Title != "test" || cfg.Window.Width != 640 {
		t.Fatalf("window not overridden: %+v", cfg.Window)
	}
	if cfg.Window.Height != 720 {
		t.Fatalf("height default lost: %d", cfg.Window.Height)
	}
	if cfg.Renderer.FramesInFlight != 3 || !cfg.Renderer.MultiMaterial {
		t.Fatalf("renderer not overridden: %+v", cfg.Renderer)
	}
	if cfg.Camera.RotationSpeed != 120 {
		t.Fatalf("rotation speed = %f", cfg.Camera.RotationSpeed)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero frames", func(c *Config) { c.Renderer.FramesInFlight = 0 }},
		{"too many frames", func(c *Config) { c.Renderer.FramesInFlight = 4 }},
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"rotation too fast", func(c *Config) { c.Camera.RotationSpeed = 151 }},
		{"multi material without slots", func(c *Config) {
			c.Renderer.MultiMaterial = true
			c.Renderer.MaxTextures = 2
		}},
		{"missing texture", func(c *Config) { c.Assets.Texture = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !core.IsProtocolViolation(err) {
				t.Fatalf("expected protocol violation, got %v", err)
			}
		})
	}
}

func TestParseReportsSyntaxErrors(t *testing.T) {
	err := Parse([]byte("[window\nwidth = 1"), Default())
	if !core.IsProtocolViolation(err) {
		t.Fatalf("expected protocol violation, got %v", err)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Renderer.FramesInFlight != 2 {
		t.Fatalf("expected defaults, got %+v", cfg.Renderer)
	}
}

func TestPathHonoursEnv(t *testing.T) {
	t.Setenv(EnvPath, "/tmp/velo.toml")
	if Path() != "/tmp/velo.toml" {
		t.Fatalf("env override ignored")
	}
	os.Unsetenv(EnvPath)
	if Path() != DefaultPath {
		t.Fatalf("default path = %s", Path())
	}
}
