// Package errs holds the error kinds shared by every stage of a LUT fit.
// Stages wrap one of these with context, callers match with errors.Is.
package errs

import "errors"

var (
	// ErrDataMismatch: source and target sets differ in length.
	ErrDataMismatch = errors.New("source and target point counts differ")
	// ErrInsufficientData: fewer points than the model needs.
	ErrInsufficientData = errors.New("not enough correspondence points")
	// ErrSingularFit: the fitting system is ill-conditioned beyond tolerance.
	ErrSingularFit = errors.New("singular fit")
	// ErrIO: missing or malformed input, or unwritable output.
	ErrIO = errors.New("i/o error")
	// ErrConfig: a tuning parameter is out of range.
	ErrConfig = errors.New("invalid configuration")
)
