// Package colorset holds measured color correspondences: pairs of a source
// color and the target color it should map to.
package colorset

import (
	"fmt"

	"lutfit/internal/errs"
)

// Point3 is one color sample, one value per channel. Values are nominally
// in [0,1] but are never clamped.
type Point3 [3]float64

// Correspondence pairs a source color with its target.
type Correspondence struct {
	Source Point3
	Target Point3
}

// Set is an index-paired sequence of source and target points.
// A Set is never modified after New.
type Set struct {
	sources []Point3
	targets []Point3
}

// New copies sources and targets into a Set. Call Validate before fitting.
func New(sources, targets []Point3) *Set {
	s := &Set{
		sources: make([]Point3, len(sources)),
		targets: make([]Point3, len(targets)),
	}
	copy(s.sources, sources)
	copy(s.targets, targets)
	return s
}

// FromPairs builds a Set from correspondences.
func FromPairs(pairs []Correspondence) *Set {
	s := &Set{
		sources: make([]Point3, len(pairs)),
		targets: make([]Point3, len(pairs)),
	}
	for i, p := range pairs {
		s.sources[i] = p.Source
		s.targets[i] = p.Target
	}
	return s
}

// Validate checks that both sides have the same length and that there are at
// least minPoints correspondences.
func (s *Set) Validate(minPoints int) error {
	if len(s.sources) != len(s.targets) {
		return fmt.Errorf("%w: %d source, %d target", errs.ErrDataMismatch, len(s.sources), len(s.targets))
	}
	if len(s.sources) < minPoints || len(s.sources) == 0 {
		return fmt.Errorf("%w: have %d, need %d", errs.ErrInsufficientData, len(s.sources), minPoints)
	}
	return nil
}

// Len returns the number of correspondences. Only meaningful after Validate.
func (s *Set) Len() int {
	return len(s.sources)
}

// Sources returns a copy of the source points.
func (s *Set) Sources() []Point3 {
	out := make([]Point3, len(s.sources))
	copy(out, s.sources)
	return out
}

// Targets returns a copy of the target points.
func (s *Set) Targets() []Point3 {
	out := make([]Point3, len(s.targets))
	copy(out, s.targets)
	return out
}

// Pairs returns the correspondences in order.
func (s *Set) Pairs() []Correspondence {
	n := min(len(s.sources), len(s.targets))
	out := make([]Correspondence, n)
	for i := 0; i < n; i++ {
		out[i] = Correspondence{Source: s.sources[i], Target: s.targets[i]}
	}
	return out
}
