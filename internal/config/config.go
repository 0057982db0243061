/*
Package config reads the preprocessing settings from the environment and
initializes the global logger. Every variable has a default except the
input CSV path.
*/
package config

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config carries every knob of a preprocessing run.
type Config struct {
	CSVPath        string
	Version        int
	OutputDir      string
	CacheDir       string
	IDCol          string
	Targets        []string
	Percentages    []float64
	TrainFraction  float64
	TimeSteps      int
	MinSeqLength   int
	Seed           int64
	Balance        bool
	Oversample     bool
	ImbalanceRatio float64
	ReduceFeatures bool
	ReducerBackend string
	RSVDComponents int
	RSVDPowerIters int
	DType          string
	Compression    string
	LogLevel       string
}

// Load reads the configuration from the environment. The number of time
// steps defaults to fourteen days of windows unless TIME_STEPS is given.
func Load() (Config, error) {

	viper.AutomaticEnv()

	viper.SetDefault("MIMIC_VERSION", 4)
	viper.SetDefault("OUTPUT_DIR", "data/preprocessed")
	viper.SetDefault("ID_COL", "hadm_id")
	viper.SetDefault("TARGETS", "MI,SEPSIS,VANCOMYCIN")
	viper.SetDefault("PERCENTAGES", "1.0")
	viper.SetDefault("TRAIN_PERCENTAGE", 0.8)
	viper.SetDefault("WINDOW_SIZE_HOURS", 24)
	viper.SetDefault("MIN_SEQ_LENGTH", 2)
	viper.SetDefault("RANDOM_SEED", 0)
	viper.SetDefault("BALANCE", true)
	viper.SetDefault("OVERSAMPLE", false)
	viper.SetDefault("IMBALANCE_RATIO", 1.5)
	viper.SetDefault("REDUCE_FEATURES", true)
	viper.SetDefault("REDUCER_BACKEND", "exact")
	viper.SetDefault("RSVD_COMPONENTS", 20)
	viper.SetDefault("RSVD_POWER_ITERS", 5)
	viper.SetDefault("ARTIFACT_DTYPE", "float64")
	viper.SetDefault("ARTIFACT_COMPRESSION", "none")
	viper.SetDefault("APP_LOG_LEVEL", "info")

	window := viper.GetInt("WINDOW_SIZE_HOURS")
	if window <= 0 || window > 24 {
		return Config{}, fmt.Errorf("invalid WINDOW_SIZE_HOURS: %d", window)
	}
	steps := viper.GetInt("TIME_STEPS")
	if steps == 0 {
		// Fourteen days of windows
		steps = (24 / window) * 14
	}

	out := viper.GetString("OUTPUT_DIR")
	cache := viper.GetString("CACHE_DIR")
	if cache == "" {
		cache = path.Join(out, "bcols")
	}

	percentages, err := parseFloats("PERCENTAGES", viper.GetString("PERCENTAGES"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		CSVPath:        viper.GetString("MIMIC_CSV_PATH"),
		Version:        viper.GetInt("MIMIC_VERSION"),
		OutputDir:      out,
		CacheDir:       cache,
		IDCol:          viper.GetString("ID_COL"),
		Targets:        parseList(viper.GetString("TARGETS")),
		Percentages:    percentages,
		TrainFraction:  viper.GetFloat64("TRAIN_PERCENTAGE"),
		TimeSteps:      steps,
		MinSeqLength:   viper.GetInt("MIN_SEQ_LENGTH"),
		Seed:           viper.GetInt64("RANDOM_SEED"),
		Balance:        viper.GetBool("BALANCE"),
		Oversample:     viper.GetBool("OVERSAMPLE"),
		ImbalanceRatio: viper.GetFloat64("IMBALANCE_RATIO"),
		ReduceFeatures: viper.GetBool("REDUCE_FEATURES"),
		ReducerBackend: viper.GetString("REDUCER_BACKEND"),
		RSVDComponents: viper.GetInt("RSVD_COMPONENTS"),
		RSVDPowerIters: viper.GetInt("RSVD_POWER_ITERS"),
		DType:          viper.GetString("ARTIFACT_DTYPE"),
		Compression:    viper.GetString("ARTIFACT_COMPRESSION"),
		LogLevel:       viper.GetString("APP_LOG_LEVEL"),
	}, nil
}

// Validate checks the semantic constraints after any flag overrides.
func (c Config) Validate() error {

	if strings.TrimSpace(c.CSVPath) == "" {
		return fmt.Errorf("invalid MIMIC_CSV_PATH: cannot be empty")
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("invalid TARGETS: cannot be empty")
	}
	if c.TrainFraction <= 0 || c.TrainFraction > 1 {
		return fmt.Errorf("invalid TRAIN_PERCENTAGE: %g", c.TrainFraction)
	}
	if c.TimeSteps < 2 {
		return fmt.Errorf("invalid TIME_STEPS: %d", c.TimeSteps)
	}
	if c.MinSeqLength < 1 {
		return fmt.Errorf("invalid MIN_SEQ_LENGTH: %d", c.MinSeqLength)
	}
	for _, p := range c.Percentages {
		if p <= 0 || p > 1 {
			return fmt.Errorf("invalid PERCENTAGES: %g", p)
		}
	}
	if c.Balance && !c.Oversample && c.ImbalanceRatio <= 0 {
		return fmt.Errorf("invalid IMBALANCE_RATIO: %g", c.ImbalanceRatio)
	}
	if c.Compression != "none" && c.Compression != "zstd" {
		return fmt.Errorf("invalid ARTIFACT_COMPRESSION: %q", c.Compression)
	}
	return nil
}

func parseFloats(name, raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", name, raw)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// InitLogger sets the global log level and a console writer.
func InitLogger(level string) error {

	switch strings.ToUpper(level) {
	case "DEBUG":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "INFO":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "WARN":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "ERROR":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "FATAL":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "DISABLED":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		return fmt.Errorf("incorrect log level %q", level)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05.000",
	})

	return nil
}
