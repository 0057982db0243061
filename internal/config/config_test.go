package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every configuration variable so the defaults apply
// regardless of the ambient environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, na := range []string{
		"MIMIC_CSV_PATH", "MIMIC_VERSION", "OUTPUT_DIR", "CACHE_DIR", "ID_COL",
		"TARGETS", "PERCENTAGES", "TRAIN_PERCENTAGE", "WINDOW_SIZE_HOURS",
		"TIME_STEPS", "MIN_SEQ_LENGTH", "RANDOM_SEED", "BALANCE", "OVERSAMPLE",
		"IMBALANCE_RATIO", "REDUCE_FEATURES", "REDUCER_BACKEND",
		"RSVD_COMPONENTS", "RSVD_POWER_ITERS", "ARTIFACT_DTYPE",
		"ARTIFACT_COMPRESSION", "APP_LOG_LEVEL",
	} {
		t.Setenv(na, "")
	}
}

func TestLoadDefaults(t *testing.T) {

	clearEnv(t)
	t.Setenv("MIMIC_CSV_PATH", "data/mimic4.csv")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/mimic4.csv", cfg.CSVPath)
	assert.Equal(t, 4, cfg.Version)
	assert.Equal(t, "data/preprocessed", cfg.OutputDir)
	assert.Equal(t, "data/preprocessed/bcols", cfg.CacheDir)
	assert.Equal(t, "hadm_id", cfg.IDCol)
	assert.Equal(t, []string{"MI", "SEPSIS", "VANCOMYCIN"}, cfg.Targets)
	assert.Equal(t, []float64{1.0}, cfg.Percentages)
	assert.Equal(t, 0.8, cfg.TrainFraction)
	assert.Equal(t, 14, cfg.TimeSteps)
	assert.Equal(t, 2, cfg.MinSeqLength)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.True(t, cfg.Balance)
	assert.False(t, cfg.Oversample)
	assert.Equal(t, 1.5, cfg.ImbalanceRatio)
	assert.True(t, cfg.ReduceFeatures)
	assert.Equal(t, "exact", cfg.ReducerBackend)
	assert.Equal(t, 20, cfg.RSVDComponents)
	assert.Equal(t, 5, cfg.RSVDPowerIters)
	assert.Equal(t, "float64", cfg.DType)
	assert.Equal(t, "none", cfg.Compression)
	assert.Equal(t, "info", cfg.LogLevel)

	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {

	clearEnv(t)
	t.Setenv("MIMIC_CSV_PATH", "mimic3.csv")
	t.Setenv("MIMIC_VERSION", "3")
	t.Setenv("WINDOW_SIZE_HOURS", "12")
	t.Setenv("TARGETS", "MI, SEPSIS")
	t.Setenv("PERCENTAGES", "0.1,0.5,1.0")
	t.Setenv("CACHE_DIR", "/tmp/cache")
	t.Setenv("ARTIFACT_COMPRESSION", "zstd")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Version)
	assert.Equal(t, 28, cfg.TimeSteps)
	assert.Equal(t, []string{"MI", "SEPSIS"}, cfg.Targets)
	assert.Equal(t, []float64{0.1, 0.5, 1.0}, cfg.Percentages)
	assert.Equal(t, "/tmp/cache", cfg.CacheDir)
	assert.Equal(t, "zstd", cfg.Compression)

	require.NoError(t, cfg.Validate())
}

func TestLoadExplicitTimeSteps(t *testing.T) {

	clearEnv(t)
	t.Setenv("MIMIC_CSV_PATH", "mimic4.csv")
	t.Setenv("WINDOW_SIZE_HOURS", "12")
	t.Setenv("TIME_STEPS", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.TimeSteps)
}

func TestLoadErrors(t *testing.T) {

	clearEnv(t)
	t.Setenv("MIMIC_CSV_PATH", "mimic4.csv")
	t.Setenv("WINDOW_SIZE_HOURS", "0")
	_, err := Load()
	assert.ErrorContains(t, err, "WINDOW_SIZE_HOURS")

	clearEnv(t)
	t.Setenv("MIMIC_CSV_PATH", "mimic4.csv")
	t.Setenv("PERCENTAGES", "ten")
	_, err = Load()
	assert.ErrorContains(t, err, "PERCENTAGES")
}

func TestValidate(t *testing.T) {

	clearEnv(t)
	t.Setenv("MIMIC_CSV_PATH", "mimic4.csv")
	base, err := Load()
	require.NoError(t, err)

	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"missing csv", func(c *Config) { c.CSVPath = " " }, "MIMIC_CSV_PATH"},
		{"no targets", func(c *Config) { c.Targets = nil }, "TARGETS"},
		{"fraction zero", func(c *Config) { c.TrainFraction = 0 }, "TRAIN_PERCENTAGE"},
		{"fraction above one", func(c *Config) { c.TrainFraction = 1.2 }, "TRAIN_PERCENTAGE"},
		{"one step", func(c *Config) { c.TimeSteps = 1 }, "TIME_STEPS"},
		{"percentage above one", func(c *Config) { c.Percentages = []float64{1.5} }, "PERCENTAGES"},
		{"imbalance zero", func(c *Config) { c.ImbalanceRatio = 0 }, "IMBALANCE_RATIO"},
		{"unknown compression", func(c *Config) { c.Compression = "gzip" }, "ARTIFACT_COMPRESSION"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.msg)
		})
	}
}

func TestInitLogger(t *testing.T) {
	assert.Error(t, InitLogger("verbose"))
	assert.NoError(t, InitLogger("warn"))
	assert.NoError(t, InitLogger("info"))
}
