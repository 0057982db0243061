package labels

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemike/mimic-model/internal/frame"
)

func obsFrame(t *testing.T, cols map[string][]float64) *frame.Frame {
	t.Helper()
	names := []string{
		"hadm_id", "heart rate", "respiratory rate", "wbcs", "temperature (f)",
		"troponin", "ckd", "infection", "vancomycin",
	}
	f, err := frame.New("hadm_id", names, cols)
	require.NoError(t, err)
	return f
}

func baseCols(n int) map[string][]float64 {
	zeros := func() []float64 { return make([]float64, n) }
	ids := make([]float64, n)
	for i := range ids {
		ids[i] = 1
	}
	return map[string][]float64{
		"hadm_id":          ids,
		"heart rate":       zeros(),
		"respiratory rate": zeros(),
		"wbcs":             zeros(),
		"temperature (f)":  zeros(),
		"troponin":         zeros(),
		"ckd":              zeros(),
		"infection":        zeros(),
		"vancomycin":       zeros(),
	}
}

func TestDeriveMI(t *testing.T) {

	cols := baseCols(4)
	cols["troponin"] = []float64{0.5, 0.5, 0.4, math.NaN()}
	cols["ckd"] = []float64{0, 1, 0, 0}

	df, err := Derive(obsFrame(t, cols), []string{"MI"})
	require.NoError(t, err)

	mi, err := df.Col("MI")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 0}, mi)

	// The label source and the leaky summaries are gone.
	assert.False(t, df.HasCol("troponin"))
	assert.False(t, df.HasCol("ckd"))
}

func TestDeriveSepsis(t *testing.T) {

	// Row 0: two criteria and infection. Row 1: two criteria, no infection.
	// Row 2: one criterion with infection. Row 3: abnormal wbc and temp with
	// infection. Row 4: wbc and temp of exactly zero never count.
	cols := baseCols(5)
	cols["heart rate"] = []float64{95, 95, 95, 80, 80}
	cols["respiratory rate"] = []float64{25, 25, 15, 15, 15}
	cols["wbcs"] = []float64{8, 8, 8, 13, 0}
	cols["temperature (f)"] = []float64{98.5, 98.5, 98.5, 96.0, 0}
	cols["infection"] = []float64{1, 0, 1, 1, 1}

	df, err := Derive(obsFrame(t, cols), []string{"SEPSIS"})
	require.NoError(t, err)

	sepsis, err := df.Col("SEPSIS")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 1, 0}, sepsis)

	// SIRS vitals stay available as features.
	assert.True(t, df.HasCol("heart rate"))
	assert.True(t, df.HasCol("wbcs"))
	assert.False(t, df.HasCol("infection"))
}

func TestDeriveVancomycin(t *testing.T) {

	cols := baseCols(3)
	cols["vancomycin"] = []float64{0, 2.3, math.NaN()}

	df, err := Derive(obsFrame(t, cols), []string{"VANCOMYCIN"})
	require.NoError(t, err)

	v, err := df.Col("VANCOMYCIN")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, v)
	assert.False(t, df.HasCol("vancomycin"))
}

func TestDeriveRequestOrder(t *testing.T) {

	df, err := Derive(obsFrame(t, baseCols(2)), []string{"VANCOMYCIN", "MI"})
	require.NoError(t, err)

	names := df.Names()
	require.GreaterOrEqual(t, len(names), 2)
	assert.Equal(t, "VANCOMYCIN", names[len(names)-2])
	assert.Equal(t, "MI", names[len(names)-1])
}

func TestDeriveUnknownTargetSkipped(t *testing.T) {

	df, err := Derive(obsFrame(t, baseCols(2)), []string{"DIALYSIS"})
	require.NoError(t, err)
	assert.False(t, df.HasCol("DIALYSIS"))
}

func TestDeriveMissingSourceColumn(t *testing.T) {

	f, err := frame.New("hadm_id", []string{"hadm_id", "heart rate"}, map[string][]float64{
		"hadm_id":    {1, 1},
		"heart rate": {80, 90},
	})
	require.NoError(t, err)

	_, err = Derive(f, []string{"MI"})
	require.Error(t, err)
	assert.ErrorIs(t, err, frame.ErrMissingColumn)
}

func TestDeriveDropsTrivialWhenPresent(t *testing.T) {

	cols := baseCols(2)
	cols["subject_id"] = []float64{7, 7}
	cols["yob"] = []float64{1950, 1950}

	names := []string{
		"hadm_id", "subject_id", "yob", "heart rate", "respiratory rate",
		"wbcs", "temperature (f)", "troponin", "ckd", "infection", "vancomycin",
	}
	f, err := frame.New("hadm_id", names, cols)
	require.NoError(t, err)

	df, err := Derive(f, []string{"SEPSIS"})
	require.NoError(t, err)

	for _, na := range []string{"subject_id", "yob", "ckd", "infection"} {
		assert.False(t, df.HasCol(na), na)
	}

	// Columns that only leak other targets stay when not requested.
	assert.True(t, df.HasCol("troponin"))
	assert.True(t, df.HasCol("vancomycin"))
}

func TestCriteria(t *testing.T) {

	for _, tc := range []struct {
		x    float64
		want bool
	}{
		{13, true}, {3, true}, {0, false}, {8, false}, {12, false}, {4, false},
	} {
		assert.Equal(t, tc.want, wbcCriterion(tc.x), "wbc %v", tc.x)
	}

	for _, tc := range []struct {
		x    float64
		want bool
	}{
		{101, true}, {95, true}, {0, false}, {98.6, false}, {100.4, false}, {96.8, false},
	} {
		assert.Equal(t, tc.want, tempCriterion(tc.x), "temp %v", tc.x)
	}
}
