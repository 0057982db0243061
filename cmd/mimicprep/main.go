/*
mimicprep turns a parsed MIMIC critical-care CSV into model-ready tensors.

The observation table is cached as binary columns on first use. Labels are
derived for the requested targets, short stays are dropped, the entities
are split into train and test sets, the training classes are balanced and
the padded sequences are written as numpy arrays together with their
padding masks and the ordered feature list. Every configured combination
of data percentage, target set and feature-reduction variant produces its
own artifact set under the output directory.
*/
package main

import (
	"flag"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/stemike/mimic-model/internal/bcols"
	"github.com/stemike/mimic-model/internal/config"
	"github.com/stemike/mimic-model/internal/npy"
	"github.com/stemike/mimic-model/internal/pipeline"
	"github.com/stemike/mimic-model/internal/reduce"
)

// Share of training variance the reduced features must keep
const varianceThreshold = 0.99

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}

	var targets string
	flag.StringVar(&cfg.CSVPath, "csv", cfg.CSVPath, "parsed MIMIC record CSV")
	flag.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "artifact output directory")
	flag.StringVar(&targets, "targets", strings.Join(cfg.Targets, ","), "comma-separated targets")
	flag.IntVar(&cfg.TimeSteps, "steps", cfg.TimeSteps, "fixed sequence length")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed for every random operation")
	flag.Parse()

	var tg []string
	for _, na := range strings.Split(targets, ",") {
		if na = strings.TrimSpace(na); na != "" {
			tg = append(tg, na)
		}
	}
	cfg.Targets = tg

	if err := config.InitLogger(cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("initializing logger")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	dtype, err := npy.ParseDType(cfg.DType)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	backend, err := reduce.ParseBackend(cfg.ReducerBackend)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if bcols.HasCache(cfg.CacheDir) {
		log.Info().Str("dir", cfg.CacheDir).Msg("reusing cached columns")
	} else {
		if _, err := bcols.Convert(cfg.CSVPath, cfg.CacheDir); err != nil {
			log.Fatal().Err(err).Str("csv", cfg.CSVPath).Msg("converting observations")
		}
	}

	fr, err := bcols.Load(cfg.CacheDir, cfg.IDCol)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.CacheDir).Msg("loading cached columns")
	}

	pcfg := pipeline.Config{
		Version:       cfg.Version,
		OutDir:        cfg.OutputDir,
		Targets:       cfg.Targets,
		Percentages:   cfg.Percentages,
		TrainFraction: cfg.TrainFraction,
		TimeSteps:     cfg.TimeSteps,
		MinSeqLength:  cfg.MinSeqLength,
		Seed:          cfg.Seed,
		Balance:       cfg.Balance,
		Oversample:    cfg.Oversample,
		Imbalance:     cfg.ImbalanceRatio,
		Reduce:        cfg.ReduceFeatures,
		Reducer: reduce.Config{
			Threshold:     varianceThreshold,
			Backend:       backend,
			MaxComponents: cfg.RSVDComponents,
			PowerIters:    cfg.RSVDPowerIters,
			Seed:          cfg.Seed,
		},
		DType:    dtype,
		Compress: cfg.Compression == "zstd",
	}

	failed, total := pipeline.Sweep(pcfg, fr)
	if failed == total {
		log.Fatal().Int("failed", failed).Msg("every configuration failed")
	}
	log.Info().Int("failed", failed).Int("total", total).Msg("preprocessing finished")
}
