// Package config loads the YAML defaults used by the command line tool.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/Lllllllleong/pdftoolbox/internal/compress"
	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
	"github.com/Lllllllleong/pdftoolbox/internal/tools"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "PDFTOOLBOX_CONFIG"

// MaxSize limits the config file size.
const MaxSize = 1 << 20

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrConfigInvalid  = errors.New("invalid config")
)

// Config holds the defaults of every tool.
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Compress  CompressConfig  `yaml:"compress"`
	Convert   ConvertConfig   `yaml:"convert"`
	Watermark WatermarkConfig `yaml:"watermark"`
	Sign      SignConfig      `yaml:"sign"`
}

// OutputConfig defines where results are written.
type OutputConfig struct {
	Dir string `yaml:"dir"` // empty = current directory
}

// CompressConfig defines compression defaults.
type CompressConfig struct {
	Level string `yaml:"level"`
}

// ConvertConfig defines image conversion defaults in both directions.
type ConvertConfig struct {
	PageSize    string  `yaml:"pageSize"`
	Orientation string  `yaml:"orientation"`
	Margin      float64 `yaml:"margin"`
	Scale       float64 `yaml:"scale"`
	Quality     float64 `yaml:"quality"`
	Format      string  `yaml:"format"`
	Zip         bool    `yaml:"zip"`
}

// WatermarkConfig defines watermark defaults.
type WatermarkConfig struct {
	Text       string  `yaml:"text"`
	FontSize   float64 `yaml:"fontSize"`
	Color      string  `yaml:"color"`
	Opacity    float64 `yaml:"opacity"`
	Rotation   float64 `yaml:"rotation"`
	Position   string  `yaml:"position"`
	Scope      string  `yaml:"scope"`
	ImageWidth float64 `yaml:"imageWidth"` // percent of page width
}

// SignConfig defines signature defaults.
type SignConfig struct {
	Opacity float64 `yaml:"opacity"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Compress: CompressConfig{Level: string(compress.DefaultLevel)},
		Convert: ConvertConfig{
			PageSize:    string(tools.A4),
			Orientation: string(tools.Auto),
			Margin:      0,
			Scale:       1.5,
			Quality:     0.9,
			Format:      string(raster.JPEG),
		},
		Watermark: WatermarkConfig{
			Text:       "CONFIDENTIAL",
			FontSize:   60,
			Color:      "#1a1a1a",
			Opacity:    0.25,
			Rotation:   -45,
			Position:   layout.Center.String(),
			Scope:      string(tools.ScopeAll),
			ImageWidth: 30,
		},
		Sign: SignConfig{Opacity: 1},
	}
}

// Load reads path over the defaults. Keys not present keep their default;
// unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrConfigParse, len(data), MaxSize)
	}
	cfg := Default()
	if len(data) > 0 {
		if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value against the tool it configures.
func (c *Config) Validate() error {
	if _, err := compress.ParseLevel(c.Compress.Level); err != nil {
		return invalid("compress", err)
	}

	anchor, err := layout.ParseAnchor(c.Watermark.Position)
	if err != nil {
		return invalid("watermark", err)
	}
	if err := c.WatermarkParams(anchor).Validate(); err != nil {
		return invalid("watermark", err)
	}

	img := tools.ImagesToPDFParams{
		Images:      []models.File{{Name: "x"}},
		PageSize:    tools.PageSize(c.Convert.PageSize),
		Orientation: tools.Orientation(c.Convert.Orientation),
		Margin:      c.Convert.Margin,
	}
	if err := img.Validate(); err != nil {
		return invalid("convert", err)
	}
	if err := c.PDFToImagesParams().Validate(); err != nil {
		return invalid("convert", err)
	}

	if c.Sign.Opacity <= 0 || c.Sign.Opacity > 1 {
		return fmt.Errorf("%w: sign: opacity %v outside (0,1]", ErrConfigInvalid, c.Sign.Opacity)
	}
	return nil
}

func invalid(section string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrConfigInvalid, section, err)
}

// WatermarkParams returns the configured text watermark.
func (c *Config) WatermarkParams(anchor layout.Anchor) tools.WatermarkParams {
	w := c.Watermark
	return tools.WatermarkParams{
		Kind:       tools.TextWatermark,
		Text:       w.Text,
		FontSize:   w.FontSize,
		Color:      w.Color,
		Rotation:   w.Rotation,
		ImageWidth: w.ImageWidth,
		Opacity:    w.Opacity,
		Anchor:     anchor,
		Scope:      tools.Scope(w.Scope),
	}
}

// PDFToImagesParams returns the configured export settings.
func (c *Config) PDFToImagesParams() tools.PDFToImagesParams {
	return tools.PDFToImagesParams{
		Scale:   c.Convert.Scale,
		Quality: c.Convert.Quality,
		Format:  raster.Format(c.Convert.Format),
		Zip:     c.Convert.Zip,
	}
}
