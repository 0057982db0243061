package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemike/mimic-model/internal/frame"
)

func idFrame(t *testing.T, ids []float64) *frame.Frame {
	t.Helper()
	vals := make([]float64, len(ids))
	for i := range vals {
		vals[i] = float64(i)
	}
	f, err := frame.New("hadm_id", []string{"hadm_id", "x"}, map[string][]float64{
		"hadm_id": ids,
		"x":       vals,
	})
	require.NoError(t, err)
	return f
}

func idSet(f *frame.Frame) map[float64]bool {
	s := make(map[float64]bool)
	for _, id := range f.IDs() {
		s[id] = true
	}
	return s
}

func TestSplitDisjointAndComplete(t *testing.T) {

	f := idFrame(t, []float64{1, 1, 2, 3, 3, 4, 5, 5, 5, 6, 7, 8, 9, 10})
	train, test := Split(f, 0.8, 42)

	trainIDs := idSet(train)
	testIDs := idSet(test)

	for id := range trainIDs {
		assert.False(t, testIDs[id], "entity %v in both sides", id)
	}

	assert.Len(t, trainIDs, 8)
	assert.Len(t, testIDs, 2)
	assert.Equal(t, f.NumRows(), train.NumRows()+test.NumRows())
}

func TestSplitDeterministic(t *testing.T) {

	ids := make([]float64, 30)
	for i := range ids {
		ids[i] = float64(i + 1)
	}
	f := idFrame(t, ids)

	train1, test1 := Split(f, 0.7, 99)
	train2, test2 := Split(f, 0.7, 99)

	assert.Equal(t, train1.IDs(), train2.IDs())
	assert.Equal(t, test1.IDs(), test2.IDs())

	train3, _ := Split(f, 0.7, 100)
	assert.NotEqual(t, train1.IDs(), train3.IDs(), "a different seed should give a different split")
}

func TestSplitRowOrderIndependent(t *testing.T) {

	a := idFrame(t, []float64{1, 2, 3, 4, 5, 6})
	b := idFrame(t, []float64{6, 5, 4, 3, 2, 1})

	trainA, _ := Split(a, 0.5, 7)
	trainB, _ := Split(b, 0.5, 7)

	assert.Equal(t, idSet(trainA), idSet(trainB))
}

func TestSplitPreservesRowOrder(t *testing.T) {

	f := idFrame(t, []float64{4, 4, 1, 2, 2, 3})
	train, test := Split(f, 0.5, 3)

	seen := append(append([]float64(nil), train.IDs()...), test.IDs()...)
	assert.Len(t, seen, 6)

	// Within each side, rows stay in their source order: any repeated
	// identifier must remain contiguous.
	for _, g := range [][]float64{train.IDs(), test.IDs()} {
		runs := make(map[float64]bool)
		for i, id := range g {
			if i > 0 && g[i-1] != id {
				assert.False(t, runs[id], "entity %v split into multiple runs", id)
			}
			runs[id] = true
		}
	}
}

func TestSubset(t *testing.T) {

	f := idFrame(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	sub := Subset(f, 0.5, 11)
	assert.Len(t, sub.UniqueIDs(), 5)

	same := Subset(f, 1.0, 11)
	assert.Equal(t, f.NumRows(), same.NumRows())

	again := Subset(f, 0.5, 11)
	assert.Equal(t, sub.IDs(), again.IDs())
}
