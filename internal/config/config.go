// Package config holds the settings of one LUT fitting run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"lutfit/internal/colorset"
	"lutfit/internal/cube"
	"lutfit/internal/errs"
	"lutfit/internal/model"
)

// Config is the full configuration surface. It can be loaded from a JSON
// file and then overridden field by field from the command line.
type Config struct {
	// Input and output
	Source    string `json:"source"`
	Target    string `json:"target"`
	Output    string `json:"output,omitempty"` // empty means output.<format ext>
	Delimiter string `json:"delimiter"`        // space, comma, semicolon, tab or the character itself
	Format    string `json:"format"`           // cube or spi3d
	Precision int    `json:"precision"`
	CubeSize  int    `json:"cube_size"`
	Clamp     bool   `json:"clamp"`

	// Fitting
	Method  string `json:"method"` // scattered or regression
	Workers int    `json:"workers"`

	// Scattered interpolant
	BaseRadius     float64 `json:"rbf_radius"`
	Layers         int     `json:"rbf_layers"`
	Regularization float64 `json:"rbf_smoothing"`

	// Regression network
	HiddenWidth   int     `json:"mlp_hidden"`
	Restarts      int     `json:"mlp_restarts"`
	MaxIterations int     `json:"mlp_max_iterations"`
	WeightDecay   float64 `json:"mlp_weight_decay"`
	Seed          uint64  `json:"seed"` // 0 picks a seed per run
}

// Default returns a Config with every tuning value set.
func Default() *Config {
	sc := model.DefaultScatteredConfig()
	nc := model.DefaultNetworkConfig()
	return &Config{
		Delimiter:      "space",
		Format:         string(cube.FormatCube),
		Precision:      cube.DefaultPrecision,
		CubeSize:       33,
		Method:         model.MethodScattered,
		BaseRadius:     sc.BaseRadius,
		Layers:         sc.Layers,
		Regularization: sc.Regularization,
		HiddenWidth:    nc.HiddenWidth,
		Restarts:       nc.Restarts,
		MaxIterations:  nc.MaxIterations,
		WeightDecay:    nc.WeightDecay,
	}
}

// Load reads a JSON config file on top of Default. Fields missing from the
// file keep their default. The result is not validated, so that command line
// overrides can be applied first.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("%w: config file must have .json extension, got %q", errs.ErrConfig, ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat config file: %v", errs.ErrIO, err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", errs.ErrConfig, fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read config file: %v", errs.ErrIO, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config JSON: %v", errs.ErrConfig, err)
	}
	return cfg, nil
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("%w: source path is required", errs.ErrConfig)
	}
	if c.Target == "" {
		return fmt.Errorf("%w: target path is required", errs.ErrConfig)
	}
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	if _, err := cube.ParseFormat(c.Format); err != nil {
		return err
	}
	if c.Precision < 0 || c.Precision > 17 {
		return fmt.Errorf("%w: precision must be in [0,17], got %d", errs.ErrConfig, c.Precision)
	}
	if c.CubeSize < 1 {
		return fmt.Errorf("%w: cube size must be at least 1, got %d", errs.ErrConfig, c.CubeSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", errs.ErrConfig, c.Workers)
	}
	if _, err := c.Fitter(); err != nil {
		return err
	}
	return nil
}

// DelimiterRune resolves Delimiter to the separator character.
func (c *Config) DelimiterRune() (rune, error) {
	switch c.Delimiter {
	case "space", " ", "":
		return colorset.Space, nil
	case "comma", ",":
		return colorset.Comma, nil
	case "semicolon", ";":
		return colorset.Semicolon, nil
	case "tab", "\t", `\t`:
		return colorset.Tab, nil
	}
	return 0, fmt.Errorf("%w: unsupported delimiter %q, use space, comma, semicolon or tab", errs.ErrConfig, c.Delimiter)
}

// LutFormat returns the parsed output format.
func (c *Config) LutFormat() (cube.Format, error) {
	return cube.ParseFormat(c.Format)
}

// OutputPath returns Output, or output.cube / output.spi3d when unset.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	f, err := c.LutFormat()
	if err != nil {
		f = cube.FormatCube
	}
	return "output" + f.Ext()
}

// ScatteredConfig returns the interpolant settings.
func (c *Config) ScatteredConfig() model.ScatteredConfig {
	return model.ScatteredConfig{
		BaseRadius:     c.BaseRadius,
		Layers:         c.Layers,
		Regularization: c.Regularization,
	}
}

// NetworkConfig returns the network settings.
func (c *Config) NetworkConfig() model.NetworkConfig {
	return model.NetworkConfig{
		HiddenWidth:   c.HiddenWidth,
		Restarts:      c.Restarts,
		MaxIterations: c.MaxIterations,
		WeightDecay:   c.WeightDecay,
		Seed:          c.Seed,
	}
}

// Fitter returns the configured model fitter.
func (c *Config) Fitter() (model.Fitter, error) {
	return model.NewFitter(c.Method, c.ScatteredConfig(), c.NetworkConfig())
}
