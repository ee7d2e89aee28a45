package sapling

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds settings for a game window and the drawing defaults. The zero
// value is not useful; start from [DefaultConfig].
type Config struct {
	Title      string  `toml:"title" yaml:"title"`
	Width      int     `toml:"width" yaml:"width"`
	Height     int     `toml:"height" yaml:"height"`
	FPS        float64 `toml:"fps" yaml:"fps"`
	ShowFPS    bool    `toml:"show_fps" yaml:"show_fps"`
	Debug      bool    `toml:"debug" yaml:"debug"`
	Background string  `toml:"background" yaml:"background"` // #rgb, #rrggbb or #rrggbbaa
	ImageDir   string  `toml:"image_dir" yaml:"image_dir"`
	Screenshot string  `toml:"screenshot_dir" yaml:"screenshot_dir"`

	RotateThreshold       float64 `toml:"rotate_threshold" yaml:"rotate_threshold"`
	FlipPartialCostAlpha  float64 `toml:"flip_partial_cost_alpha" yaml:"flip_partial_cost_alpha"`
	FlipPartialCostOpaque float64 `toml:"flip_partial_cost_opaque" yaml:"flip_partial_cost_opaque"`

	// Bindings maps button names to binding specs; see [ParseBinding].
	Bindings map[string][]string `toml:"bindings" yaml:"bindings"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Title:                 "sapling",
		Width:                 640,
		Height:                480,
		FPS:                   DefaultFPS,
		Background:            "#000000",
		ImageDir:              "img",
		Screenshot:            "screenshots",
		RotateThreshold:       DefaultRotateThreshold,
		FlipPartialCostAlpha:  FlipPartialCostAlpha,
		FlipPartialCostOpaque: FlipPartialCostOpaque,
	}
}

// DefaultConfigPath returns ~/.config/<ident>/conf.toml.
func DefaultConfigPath(ident string) (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("sapling: config path: %w", err)
	}
	return filepath.Join(home, ".config", ident, "conf.toml"), nil
}

// LoadConfig reads settings from a TOML or YAML file, chosen by extension,
// over [DefaultConfig]. A leading ~ in path is expanded. Unknown keys are an
// error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("sapling: config %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("sapling: config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
	default:
		return cfg, fmt.Errorf("sapling: config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("sapling: config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("sapling: config %s: %w", path, err)
	}
	Logger().Debug("config loaded", "path", path)
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("window size %dx%d must be positive", c.Width, c.Height)
	case c.FPS <= 0:
		return fmt.Errorf("fps %v must be positive", c.FPS)
	case c.RotateThreshold < 0:
		return fmt.Errorf("rotate_threshold %v must not be negative", c.RotateThreshold)
	}
	for name, specs := range c.Bindings {
		for _, s := range specs {
			if _, err := ParseBinding(s); err != nil {
				return fmt.Errorf("bindings.%s: %w", name, err)
			}
		}
	}
	_, err := c.BackgroundColour()
	return err
}

// BackgroundColour parses Background.
func (c Config) BackgroundColour() (color.NRGBA, error) {
	return ParseColour(c.Background)
}

// Apply sets the package-wide drawing defaults from c. Graphics created
// afterwards use the new rotate threshold.
func (c Config) Apply() {
	DefaultRotateThreshold = c.RotateThreshold
	FlipPartialCostAlpha = c.FlipPartialCostAlpha
	FlipPartialCostOpaque = c.FlipPartialCostOpaque
}

// ParseColour parses "#rgb", "#rrggbb" or "#rrggbbaa".
func ParseColour(s string) (color.NRGBA, error) {
	hex, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return color.NRGBA{}, fmt.Errorf("colour %q: missing #", s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("colour %q: want 3, 6 or 8 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, err)
	}
	return color.NRGBA{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}
