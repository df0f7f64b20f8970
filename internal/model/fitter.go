package model

import (
	"fmt"

	"lutfit/internal/errs"
)

// NewFitter returns the fitter for method, configured by scattered or
// network as appropriate.
func NewFitter(method string, scattered ScatteredConfig, network NetworkConfig) (Fitter, error) {
	var f interface {
		Fitter
		Validate() error
	}
	switch method {
	case MethodScattered:
		f = scattered
	case MethodRegression:
		f = network
	default:
		return nil, fmt.Errorf("%w: unknown method %q, use %s or %s", errs.ErrConfig, method, MethodScattered, MethodRegression)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
