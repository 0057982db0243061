/*
Package sequence turns the flat observation table into fixed-length per-entity
sequences: a 3D tensor [entity, step, column] plus a padding mask, and the
one-step-shifted input/target views models train on.

A padded step is detected by its row being entirely the sentinel value. A
genuine observation row that happens to equal the sentinel in every column is
indistinguishable from padding under this rule; this is a known limitation of
the format, not something this package tries to repair.
*/
package sequence

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/stemike/mimic-model/internal/frame"
)

// ErrShapeMismatch is returned when derived tensor and mask shapes disagree.
var ErrShapeMismatch = errors.New("tensor and mask shapes differ")

// Tensor is a dense row-major [E, T, F] array.
type Tensor struct {
	E, T, F int
	Data    []float64
}

// NewTensor allocates a zero tensor of the given shape.
func NewTensor(e, t, f int) *Tensor {
	return &Tensor{E: e, T: t, F: f, Data: make([]float64, e*t*f)}
}

func (x *Tensor) idx(e, t, f int) int { return (e*x.T+t)*x.F + f }

// At returns the value at [e, t, f].
func (x *Tensor) At(e, t, f int) float64 { return x.Data[x.idx(e, t, f)] }

// Set stores a value at [e, t, f].
func (x *Tensor) Set(e, t, f int, v float64) { x.Data[x.idx(e, t, f)] = v }

// Mask is a dense row-major [E, T, F] boolean array, true where the matching
// tensor cell is padding.
type Mask struct {
	E, T, F int
	Data    []bool
}

// NewMask allocates an all-false mask of the given shape.
func NewMask(e, t, f int) *Mask {
	return &Mask{E: e, T: t, F: f, Data: make([]bool, e*t*f)}
}

func (m *Mask) idx(e, t, f int) int { return (e*m.T+t)*m.F + f }

// At returns the flag at [e, t, f].
func (m *Mask) At(e, t, f int) bool { return m.Data[m.idx(e, t, f)] }

// FilterLengths removes entities with fewer than minLen rows and truncates
// entities to their first maxLen rows.
func FilterLengths(f *frame.Frame, minLen, maxLen int) *frame.Frame {

	var idx []int
	dropped, truncated := 0, 0
	for _, sp := range f.Spans() {
		n := sp.Len()
		if n < minLen {
			dropped++
			continue
		}
		if n > maxLen {
			truncated++
			n = maxLen
		}
		for i := sp.Start; i < sp.Start+n; i++ {
			idx = append(idx, i)
		}
	}

	out := f.SelectRows(idx)

	log.Info().
		Int("dropped", dropped).
		Int("truncated", truncated).
		Int("rows", out.NumRows()).
		Msg("filtered sequence lengths")

	return out
}

// Pad reshapes the table into an [E, T, F] tensor, one entity per contiguous
// identifier run, padding short sequences with the sentinel and truncating
// long ones. The entity-identifier column is omitted from the value columns.
// Returns the tensor, the padding mask, and the value column names in order.
func Pad(f *frame.Frame, timeSteps int, sentinel float64) (*Tensor, *Mask, []string, error) {

	if timeSteps < 1 {
		return nil, nil, nil, fmt.Errorf("sequence: %d time steps", timeSteps)
	}

	var names []string
	for _, na := range f.Names() {
		if na != f.IDCol() {
			names = append(names, na)
		}
	}
	if len(names) == 0 {
		return nil, nil, nil, errors.New("sequence: no value columns")
	}

	cols := make([][]float64, len(names))
	for j, na := range names {
		c, err := f.Col(na)
		if err != nil {
			return nil, nil, nil, err
		}
		cols[j] = c
	}

	spans := f.Spans()
	x := NewTensor(len(spans), timeSteps, len(names))

	for e, sp := range spans {
		n := sp.Len()
		if n > timeSteps {
			n = timeSteps
		}
		for t := 0; t < timeSteps; t++ {
			if t < n {
				for j := range cols {
					x.Set(e, t, j, cols[j][sp.Start+t])
				}
			} else {
				for j := range cols {
					x.Set(e, t, j, sentinel)
				}
			}
		}
	}

	// A step is padding when its whole row is the sentinel.
	m := NewMask(x.E, x.T, x.F)
	for e := 0; e < x.E; e++ {
		for t := 0; t < x.T; t++ {
			pad := true
			for j := 0; j < x.F; j++ {
				if x.At(e, t, j) != sentinel {
					pad = false
					break
				}
			}
			if pad {
				for j := 0; j < x.F; j++ {
					m.Data[m.idx(e, t, j)] = true
				}
			}
		}
	}

	log.Info().Int("entities", x.E).Int("steps", x.T).Int("columns", x.F).Msg("padded sequences")

	return x, m, names, nil
}

// XY holds the next-step-prediction views of a padded tensor: inputs stop one
// step early, targets start one step late.
type XY struct {
	Input       *Tensor
	Targets     *Tensor
	InputMask   *Mask
	TargetsMask *Mask
}

// slice3 copies the [e, t0:t1, f0:f1] block of x into a new tensor.
func slice3(x *Tensor, t0, t1, f0, f1 int) *Tensor {
	out := NewTensor(x.E, t1-t0, f1-f0)
	for e := 0; e < x.E; e++ {
		for t := t0; t < t1; t++ {
			for f := f0; f < f1; f++ {
				out.Set(e, t-t0, f-f0, x.At(e, t, f))
			}
		}
	}
	return out
}

// sliceMask copies the [e, t0:t1, f0:f1] block of m into a new mask.
func sliceMask(m *Mask, t0, t1, f0, f1 int) *Mask {
	out := NewMask(m.E, t1-t0, f1-f0)
	for e := 0; e < m.E; e++ {
		for t := t0; t < t1; t++ {
			for f := f0; f < f1; f++ {
				out.Data[out.idx(e, t-t0, f-f0)] = m.At(e, t, f)
			}
		}
	}
	return out
}

// SplitXY derives the shifted input and target views from a padded tensor
// whose last nTargets columns are the targets. The targets for step t are the
// target columns at step t+1; the last step has no target and is dropped.
func SplitXY(x *Tensor, m *Mask, nTargets int) (*XY, error) {

	if x.E != m.E || x.T != m.T || x.F != m.F {
		return nil, fmt.Errorf("sequence: %w: tensor [%d %d %d], mask [%d %d %d]",
			ErrShapeMismatch, x.E, x.T, x.F, m.E, m.T, m.F)
	}
	if nTargets <= 0 || nTargets >= x.F {
		return nil, fmt.Errorf("sequence: %d targets with %d columns", nTargets, x.F)
	}
	if x.T < 2 {
		return nil, fmt.Errorf("sequence: %d time steps cannot be shifted", x.T)
	}

	xy := &XY{
		Input:       slice3(x, 0, x.T-1, 0, x.F-nTargets),
		Targets:     slice3(x, 1, x.T, x.F-nTargets, x.F),
		InputMask:   sliceMask(m, 0, x.T-1, 0, x.F-nTargets),
		TargetsMask: sliceMask(m, 1, x.T, x.F-nTargets, x.F),
	}

	if xy.Input.E != xy.InputMask.E || xy.Input.T != xy.InputMask.T || xy.Input.F != xy.InputMask.F {
		return nil, fmt.Errorf("sequence: input views: %w", ErrShapeMismatch)
	}
	if xy.Targets.E != xy.TargetsMask.E || xy.Targets.T != xy.TargetsMask.T || xy.Targets.F != xy.TargetsMask.F {
		return nil, fmt.Errorf("sequence: target views: %w", ErrShapeMismatch)
	}

	return xy, nil
}

// PositiveEntities counts, for each target column, the entities with at least
// one nonzero step.
func PositiveEntities(targets *Tensor) []int {

	counts := make([]int, targets.F)
	for f := 0; f < targets.F; f++ {
		for e := 0; e < targets.E; e++ {
			sum := 0.0
			for t := 0; t < targets.T; t++ {
				sum += targets.At(e, t, f)
			}
			if sum != 0 {
				counts[f]++
			}
		}
	}

	return counts
}
