/*
Package pipeline runs the preprocessing stages end to end: label derivation,
length filtering, the entity-level train/test split, optional feature
reduction, class balancing, sequence padding and artifact persistence. It is
the only component that writes artifacts; the stages it calls are pure
data-in/data-out transformations.
*/
package pipeline

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/stemike/mimic-model/internal/balance"
	"github.com/stemike/mimic-model/internal/frame"
	"github.com/stemike/mimic-model/internal/labels"
	"github.com/stemike/mimic-model/internal/npy"
	"github.com/stemike/mimic-model/internal/persist"
	"github.com/stemike/mimic-model/internal/reduce"
	"github.com/stemike/mimic-model/internal/sequence"
	"github.com/stemike/mimic-model/internal/split"
)

// ErrMissingTarget is returned when a requested target yields no label column.
var ErrMissingTarget = errors.New("target column was not derived")

// Value that padding rows carry in the padded tensors
const padValue = 0

// Config holds every knob of a preprocessing run.
type Config struct {

	// MIMIC version tag used in artifact naming
	Version int

	// Artifact root directory
	OutDir string

	// Requested target set, order kept
	Targets []string

	// Training-data fractions to sweep
	Percentages []float64

	// Share of entities assigned to the training side
	TrainFraction float64

	// Fixed sequence length T
	TimeSteps int

	// Entities with fewer rows are dropped
	MinSeqLength int

	// Seed for every stochastic stage
	Seed int64

	// Balance the training classes
	Balance bool

	// Oversample the minority instead of undersampling the majority
	Oversample bool

	// Majority-to-minority ratio kept when undersampling
	Imbalance float64

	// Additionally produce reduced artifact variants
	Reduce bool

	// Feature-reduction settings for the reduced variants
	Reducer reduce.Config

	// Scalar type of the stored tensors
	DType npy.DType

	// Compress artifacts with zstd
	Compress bool
}

// Run executes one preprocessing configuration: derive the given target
// labels, filter and split the entities, optionally reduce the features,
// balance the training classes, pad both halves to fixed-length sequences
// and persist the shifted input/target tensors with their masks.
func Run(cfg Config, fr *frame.Frame, targets []string, percent float64, reduced bool) error {

	log.Info().
		Strs("targets", targets).
		Float64("percent", percent).
		Bool("reduced", reduced).
		Msg("preprocessing configuration")

	df, err := labels.Derive(fr, targets)
	if err != nil {
		return err
	}
	for _, na := range targets {
		if !df.HasCol(na) {
			return fmt.Errorf("pipeline: %w: %s", ErrMissingTarget, na)
		}
	}

	df = sequence.FilterLengths(df, cfg.MinSeqLength, cfg.TimeSteps)

	train, test := split.Split(df, cfg.TrainFraction, cfg.Seed)
	train = split.Subset(train, percent, cfg.Seed)

	if reduced {
		tr, te, _, err := reduce.Transform(train, test, len(targets), cfg.Reducer)
		if err != nil {
			return err
		}
		train, test = tr, te
	}

	if err := train.CheckNoNaN(); err != nil {
		return fmt.Errorf("pipeline: training data: %w", err)
	}
	if err := test.CheckNoNaN(); err != nil {
		return fmt.Errorf("pipeline: test data: %w", err)
	}

	if cfg.Balance {
		train, err = balance.Balance(train, len(targets), !cfg.Oversample, cfg.Imbalance, cfg.Seed)
		if err != nil {
			return err
		}
	}

	xtr, mtr, names, err := sequence.Pad(train, cfg.TimeSteps, padValue)
	if err != nil {
		return err
	}
	xte, mte, _, err := sequence.Pad(test, cfg.TimeSteps, padValue)
	if err != nil {
		return err
	}

	xytr, err := sequence.SplitXY(xtr, mtr, len(targets))
	if err != nil {
		return err
	}
	xyte, err := sequence.SplitXY(xte, mte, len(targets))
	if err != nil {
		return err
	}

	w, err := persist.New(persist.Dir(cfg.OutDir, cfg.Version, cfg.TimeSteps, cfg.Seed, percent), cfg.DType, cfg.Compress)
	if err != nil {
		return err
	}
	prefix := persist.Prefix(targets, reduced)
	if err := w.SaveXY(prefix, "train", xytr); err != nil {
		return err
	}
	if err := w.SaveXY(prefix, "test", xyte); err != nil {
		return err
	}
	return w.WriteFeatures(prefix, names[:len(names)-len(targets)])
}

// Sweep runs every configured combination: each percentage, the full target
// set plus each single target when more than one is requested, and the plain
// and reduced variants. A failed configuration is logged and the sweep moves
// on. Returns the number of failed runs and the number attempted.
func Sweep(cfg Config, fr *frame.Frame) (failed, total int) {

	sets := [][]string{cfg.Targets}
	if len(cfg.Targets) > 1 {
		for _, na := range cfg.Targets {
			sets = append(sets, []string{na})
		}
	}

	variants := []bool{false}
	if cfg.Reduce {
		variants = append(variants, true)
	}

	for _, percent := range cfg.Percentages {
		for _, targets := range sets {
			for _, reduced := range variants {
				total++
				if err := Run(cfg, fr, targets, percent, reduced); err != nil {
					failed++
					log.Error().Err(err).
						Strs("targets", targets).
						Float64("percent", percent).
						Bool("reduced", reduced).
						Msg("configuration failed")
				}
			}
		}
	}

	return failed, total
}
