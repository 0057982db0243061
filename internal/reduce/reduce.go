/*
Package reduce standardizes the feature columns and projects them onto a
smaller set of orthogonal components that preserve a configured share of the
training variance. All statistics come from the training side only; the test
side is transformed with the training means, scales and components.
*/
package reduce

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/stemike/mimic-model/internal/frame"
)

// Backend selects the decomposition used to find the components.
type Backend int

const (
	// Exact computes principal components from the full decomposition.
	Exact Backend = iota

	// Randomized uses an approximate SVD with power iterations, suitable
	// for wide tables.
	Randomized
)

func (b Backend) String() string {
	switch b {
	case Exact:
		return "exact"
	case Randomized:
		return "randomized"
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// ParseBackend converts a configuration string to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "exact":
		return Exact, nil
	case "randomized":
		return Randomized, nil
	}
	return 0, fmt.Errorf("reduce: unknown backend %q", s)
}

// Config controls the reduction.
type Config struct {

	// Cumulative share of training variance the kept components must explain
	Threshold float64

	Backend Backend

	// Factors to extract with the randomized backend
	MaxComponents int

	// Power iterations for the randomized backend
	PowerIters int

	Seed int64
}

// Result describes what the reduction kept.
type Result struct {

	// Number of components retained
	Components int

	// Share of training variance the retained components explain
	Variance float64

	// Synthetic names of the new feature columns
	Features []string
}

// featureMatrix copies the named columns of f into a dense row-major matrix.
func featureMatrix(f *frame.Frame, names []string) (*mat.Dense, error) {
	x := mat.NewDense(f.NumRows(), len(names), nil)
	for j, na := range names {
		col, err := f.Col(na)
		if err != nil {
			return nil, err
		}
		for i, v := range col {
			x.Set(i, j, v)
		}
	}
	return x, nil
}

// trainStats returns the column means and sample standard deviations of x.
// Columns with zero spread get a unit scale so they standardize to zero.
func trainStats(x *mat.Dense) ([]float64, []float64) {

	nrow, ncol := x.Dims()
	means := make([]float64, ncol)
	stds := make([]float64, ncol)

	col := make([]float64, nrow)
	for j := 0; j < ncol; j++ {
		mat.Col(col, j, x)
		means[j] = stat.Mean(col, nil)
		stds[j] = stat.StdDev(col, nil)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	return means, stds
}

// standardize centers and scales the columns of x in place.
func standardize(x *mat.Dense, means, stds []float64) {
	nrow, ncol := x.Dims()
	for i := 0; i < nrow; i++ {
		for j := 0; j < ncol; j++ {
			x.Set(i, j, (x.At(i, j)-means[j])/stds[j])
		}
	}
}

// exactComponents finds the smallest set of leading principal components of x
// whose cumulative variance share reaches the threshold, returning the
// projection matrix, the component count and the share achieved.
func exactComponents(x *mat.Dense, threshold float64) (mat.Matrix, int, float64, error) {

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, 0, 0, errors.New("reduce: principal component decomposition failed")
	}

	vars := pc.VarsTo(nil)
	total := floats.Sum(vars)

	k := len(vars)
	run := 0.0
	for i, v := range vars {
		run += v
		if run/total >= threshold {
			k = i + 1
			break
		}
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	p, _ := vecs.Dims()

	achieved := 0.0
	if total > 0 {
		achieved = floats.Sum(vars[:k]) / total
	}

	return vecs.Slice(0, p, 0, k), k, achieved, nil
}

// Transform standardizes the feature columns of train and test and replaces
// them with the leading components fit on train. The last nTargets columns
// and the entity-identifier column pass through unchanged, in their usual
// positions: components first, then the identifier, then the targets.
func Transform(train, test *frame.Frame, nTargets int, cfg Config) (*frame.Frame, *frame.Frame, *Result, error) {

	names := train.Names()
	if nTargets <= 0 || nTargets >= len(names) {
		return nil, nil, nil, fmt.Errorf("reduce: %d targets in a %d column table", nTargets, len(names))
	}

	targets := names[len(names)-nTargets:]
	var feats []string
	for _, na := range names[:len(names)-nTargets] {
		if na != train.IDCol() {
			feats = append(feats, na)
		}
	}
	if len(feats) == 0 {
		return nil, nil, nil, errors.New("reduce: no feature columns")
	}
	if train.NumRows() == 0 {
		return nil, nil, nil, errors.New("reduce: empty training set")
	}

	xtr, err := featureMatrix(train, feats)
	if err != nil {
		return nil, nil, nil, err
	}
	means, stds := trainStats(xtr)
	standardize(xtr, means, stds)

	var proj mat.Matrix
	var k int
	var achieved float64
	switch cfg.Backend {
	case Exact:
		proj, k, achieved, err = exactComponents(xtr, cfg.Threshold)
	case Randomized:
		proj, k, achieved, err = randomComponents(xtr, cfg)
	default:
		err = fmt.Errorf("reduce: unknown backend %v", cfg.Backend)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	res := &Result{Components: k, Variance: achieved}
	for j := 0; j < k; j++ {
		res.Features = append(res.Features, fmt.Sprintf("pc%d", j))
	}

	var ttr mat.Dense
	ttr.Mul(xtr, proj)

	trainOut, err := composeFrame(train, &ttr, res.Features, targets)
	if err != nil {
		return nil, nil, nil, err
	}

	var testOut *frame.Frame
	if test.NumRows() > 0 {
		xte, err := featureMatrix(test, feats)
		if err != nil {
			return nil, nil, nil, err
		}
		standardize(xte, means, stds)

		var tte mat.Dense
		tte.Mul(xte, proj)

		testOut, err = composeFrame(test, &tte, res.Features, targets)
		if err != nil {
			return nil, nil, nil, err
		}
	} else {
		testOut, err = composeFrame(test, nil, res.Features, targets)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	log.Info().
		Str("backend", cfg.Backend.String()).
		Int("from", len(feats)).
		Int("to", k).
		Float64("variance", achieved).
		Msg("reduced features")

	return trainOut, testOut, res, nil
}

// composeFrame assembles a reduced frame: component columns, then the entity
// identifier, then the target columns.
func composeFrame(src *frame.Frame, scores *mat.Dense, pcNames, targets []string) (*frame.Frame, error) {

	names := make([]string, 0, len(pcNames)+1+len(targets))
	cols := make(map[string][]float64, len(pcNames)+1+len(targets))

	for j, na := range pcNames {
		c := make([]float64, src.NumRows())
		if scores != nil {
			mat.Col(c, j, scores)
		}
		names = append(names, na)
		cols[na] = c
	}

	names = append(names, src.IDCol())
	cols[src.IDCol()] = append([]float64(nil), src.IDs()...)

	for _, na := range targets {
		c, err := src.Col(na)
		if err != nil {
			return nil, err
		}
		names = append(names, na)
		cols[na] = append([]float64(nil), c...)
	}

	return frame.New(src.IDCol(), names, cols)
}
