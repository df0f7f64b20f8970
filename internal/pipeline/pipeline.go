// Package pipeline runs one LUT fit end to end: read correspondences, fit a
// model, bake it on a grid and write the LUT file.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lutfit/internal/colorset"
	"lutfit/internal/config"
	"lutfit/internal/cube"
	"lutfit/internal/grid"
	"lutfit/internal/model"
)

// Report describes a finished run.
type Report struct {
	Method string
	Output string
	Size   int
	Seed   uint64
	Fit    model.Report
}

// Run executes cfg. Nothing is written unless fitting succeeds, and a failed
// write leaves no partial file behind.
func Run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Report, error) {
	c := *cfg
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Method == model.MethodRegression && c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
		log.WithField("seed", c.Seed).Info("no seed configured, picked one")
	}

	set, err := Load(&c)
	if err != nil {
		return nil, err
	}
	log.WithField("points", set.Len()).Info("loaded correspondences")

	m, err := Fit(ctx, &c, set)
	if err != nil {
		return nil, err
	}
	rep, err := model.Assess(ctx, m, set, c.Workers)
	if err != nil {
		return nil, err
	}
	fields := logrus.Fields{
		"method":    c.Method,
		"points":    rep.Points,
		"rms_error": rep.RMSError,
		"max_error": rep.MaxError,
	}
	switch fm := m.(type) {
	case *model.Scattered:
		fields["layers"] = fm.Layers()
	case *model.Network:
		fields["restart"] = fm.Restart()
		fields["training_loss"] = fm.TrainingLoss()
	}
	log.WithFields(fields).Info("fitted model")

	g, err := grid.New(c.CubeSize)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	lut, err := cube.Build(ctx, m, g, c.Workers)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"samples": len(lut.Values), "elapsed": time.Since(start)}).Debug("evaluated grid")

	format, err := c.LutFormat()
	if err != nil {
		return nil, err
	}
	out := c.OutputPath()
	opts := cube.Options{Precision: c.Precision, Clamp: c.Clamp}
	if err := cube.WriteFile(out, lut, format, opts); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"output": out, "size": c.CubeSize, "format": format}).Info("wrote lut")

	return &Report{
		Method: c.Method,
		Output: out,
		Size:   c.CubeSize,
		Seed:   c.Seed,
		Fit:    rep,
	}, nil
}

// Load reads the source and target files of cfg into a correspondence set.
func Load(cfg *config.Config) (*colorset.Set, error) {
	delim, err := cfg.DelimiterRune()
	if err != nil {
		return nil, err
	}
	sources, err := colorset.ReadFile(cfg.Source, delim)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	targets, err := colorset.ReadFile(cfg.Target, delim)
	if err != nil {
		return nil, fmt.Errorf("read target: %w", err)
	}
	return colorset.New(sources, targets), nil
}

// Fit validates set against the configured method and fits it.
func Fit(ctx context.Context, cfg *config.Config, set *colorset.Set) (model.Model, error) {
	f, err := cfg.Fitter()
	if err != nil {
		return nil, err
	}
	if err := set.Validate(f.MinPoints()); err != nil {
		return nil, err
	}
	m, err := f.Fit(ctx, set)
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", cfg.Method, err)
	}
	return m, nil
}
