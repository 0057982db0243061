package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := New("hadm_id", []string{"hadm_id", "hr", "mi"}, map[string][]float64{
		"hadm_id": {1, 1, 2, 3, 3, 3},
		"hr":      {80, 90, 70, 60, 65, 75},
		"mi":      {0, 0, 1, 0, 0, 0},
	})
	require.NoError(t, err)
	return f
}

func TestNewValidation(t *testing.T) {
	_, err := New("hadm_id", []string{"hadm_id", "hr"}, map[string][]float64{
		"hadm_id": {1, 2},
		"hr":      {80},
	})
	assert.Error(t, err)

	_, err = New("hadm_id", []string{"hr"}, map[string][]float64{
		"hr": {80},
	})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestColAndHasCol(t *testing.T) {
	f := testFrame(t)

	assert.True(t, f.HasCol("hr"))
	assert.False(t, f.HasCol("temperature"))

	c, err := f.Col("hr")
	require.NoError(t, err)
	assert.Equal(t, []float64{80, 90, 70, 60, 65, 75}, c)

	_, err = f.Col("temperature")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestDropCols(t *testing.T) {
	f := testFrame(t)

	// Absent names are tolerated, the id column is protected.
	f.DropCols("mi", "no_such_column", "hadm_id")

	assert.Equal(t, []string{"hadm_id", "hr"}, f.Names())
	assert.False(t, f.HasCol("mi"))
	assert.True(t, f.HasCol("hadm_id"))
}

func TestCloneIsDeep(t *testing.T) {
	f := testFrame(t)
	g := f.Clone()

	gc, err := g.Col("hr")
	require.NoError(t, err)
	gc[0] = -1

	fc, err := f.Col("hr")
	require.NoError(t, err)
	assert.Equal(t, 80.0, fc[0])
}

func TestSelectRowsPreservesOrder(t *testing.T) {
	f := testFrame(t)
	g := f.SelectRows([]int{3, 0, 5})

	assert.Equal(t, 3, g.NumRows())
	assert.Equal(t, []float64{3, 1, 3}, g.IDs())

	c, err := g.Col("hr")
	require.NoError(t, err)
	assert.Equal(t, []float64{60, 80, 75}, c)
}

func TestAppendRows(t *testing.T) {
	f := testFrame(t)
	g := f.SelectRows([]int{2})

	require.NoError(t, f.AppendRows(g))
	assert.Equal(t, 7, f.NumRows())
	assert.Equal(t, []float64{1, 1, 2, 3, 3, 3, 2}, f.IDs())

	bad, err := New("hadm_id", []string{"hadm_id"}, map[string][]float64{"hadm_id": {9}})
	require.NoError(t, err)
	assert.Error(t, f.AppendRows(bad))
}

func TestSpans(t *testing.T) {
	f := testFrame(t)

	// Entity 2 reappears as a separate block after appending, so it
	// yields a second, distinct run.
	require.NoError(t, f.AppendRows(f.SelectRows([]int{2})))

	spans := f.Spans()
	require.Len(t, spans, 4)
	assert.Equal(t, Span{ID: 1, Start: 0, End: 2}, spans[0])
	assert.Equal(t, Span{ID: 2, Start: 2, End: 3}, spans[1])
	assert.Equal(t, Span{ID: 3, Start: 3, End: 6}, spans[2])
	assert.Equal(t, Span{ID: 2, Start: 6, End: 7}, spans[3])
	assert.Equal(t, 3, spans[2].Len())
}

func TestUniqueIDsSorted(t *testing.T) {
	f, err := New("hadm_id", []string{"hadm_id"}, map[string][]float64{
		"hadm_id": {5, 5, 2, 9, 2, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 5, 9}, f.UniqueIDs())
}

func TestFilterEntities(t *testing.T) {
	f := testFrame(t)
	g := f.FilterEntities(map[float64]bool{1: true, 3: true})

	assert.Equal(t, []float64{1, 1, 3, 3, 3}, g.IDs())
	assert.Equal(t, 6, f.NumRows())
}

func TestCheckNoNaN(t *testing.T) {
	f := testFrame(t)
	assert.NoError(t, f.CheckNoNaN())

	c, err := f.Col("hr")
	require.NoError(t, err)
	c[3] = math.NaN()

	err = f.CheckNoNaN()
	require.ErrorIs(t, err, ErrNaN)
	assert.Contains(t, err.Error(), "hr")
}
