// Package config loads the renderer settings from a TOML file.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/velo/engine/core"
)

// EnvPath overrides the default config file location.
const EnvPath = "VELO_CONFIG"

const DefaultPath = "config.toml"

const (
	MaxFramesInFlight  uint32  = 3
	MaxRotationSpeed   float32 = 150
	RotationSpeedStep  float32 = 10
	DefaultTextureSize uint32  = 4
)

type Window struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type Renderer struct {
	FramesInFlight uint32 `toml:"frames_in_flight"`
	Validation     bool   `toml:"validation"`
	MultiMaterial  bool   `toml:"multi_material"`
	MaxTextures    uint32 `toml:"max_textures"`
	// Forces FIFO presentation even when mailbox is available.
	VSyncOnly bool `toml:"vsync_only"`
}

type Assets struct {
	Dir            string `toml:"dir"`
	Model          string `toml:"model"`
	Texture        string `toml:"texture"`
	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`
}

type Log struct {
	Level string `toml:"level"`
}

type Camera struct {
	Speed         float32    `toml:"speed"`
	RotationSpeed float32    `toml:"rotation_speed"`
	Position      [3]float32 `toml:"position"`
}

// Config is passed by reference to every component that needs it.
type Config struct {
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Assets   Assets   `toml:"assets"`
	Log      Log      `toml:"log"`
	Camera   Camera   `toml:"camera"`
}

func Default() *Config {
	return &Config{
		Window: Window{
			Title:  "Velo",
			Width:  1280,
			Height: 720,
		},
		Renderer: Renderer{
			FramesInFlight: 2,
			Validation:     false,
			MultiMaterial:  false,
			MaxTextures:    DefaultTextureSize,
		},
		Assets: Assets{
			Dir:            "assets",
			Model:          "models/viking_room.obj",
			Texture:        "textures/viking_room.png",
			VertexShader:   "shaders/vert.spv",
			FragmentShader: "shaders/frag.spv",
		},
		Log: Log{
			Level: "info",
		},
		Camera: Camera{
			Speed:         1.0,
			RotationSpeed: 90,
			Position:      [3]float32{2, 2, 2},
		},
	}
}

// Path returns the config file location, honouring VELO_CONFIG.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.LogWarn("config file %s not found, using defaults", path)
			return cfg, cfg.Validate()
		}
		return nil, core.Fatal(err, "reading config")
	}
	if err := Parse(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return core.Protocolf("config: %s at line %d column %d", derr.Error(), row, col)
		}
		return core.Protocolf("config: %v", err)
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return core.Protocolf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight == 0 || c.Renderer.FramesInFlight > MaxFramesInFlight {
		return core.Protocolf("frames_in_flight must be in [1,%d], got %d", MaxFramesInFlight, c.Renderer.FramesInFlight)
	}
	if c.Renderer.MaxTextures == 0 {
		return core.Protocolf("max_textures must be positive")
	}
	if c.Renderer.MultiMaterial && c.Renderer.MaxTextures < DefaultTextureSize {
		return core.Protocolf("multi_material needs max_textures >= %d, got %d", DefaultTextureSize, c.Renderer.MaxTextures)
	}
	if c.Camera.RotationSpeed < 0 || c.Camera.RotationSpeed > MaxRotationSpeed {
		return core.Protocolf("camera rotation_speed must be in [0,%.0f], got %.1f", MaxRotationSpeed, c.Camera.RotationSpeed)
	}
	if c.Assets.Model == "" || c.Assets.VertexShader == "" || c.Assets.FragmentShader == "" {
		return core.Protocolf("assets model and shaders must be set")
	}
	if !c.Renderer.MultiMaterial && c.Assets.Texture == "" {
		return core.Protocolf("assets texture must be set unless multi_material is on")
	}
	return nil
}
