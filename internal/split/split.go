/*
Package split partitions the observation table into train and test sets at
the entity level, so that no patient stay contributes rows to both sides.
*/
package split

import (
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/stemike/mimic-model/internal/frame"
)

// shuffledIDs returns the distinct entity identifiers of f in a seeded
// pseudo-random order. Starting from the sorted identifiers makes the order
// a function of the identifier set alone, not of the row order on disk.
func shuffledIDs(f *frame.Frame, seed int64) []float64 {
	ids := f.UniqueIDs()
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids
}

// keepSet builds the membership set of the first n identifiers.
func keepSet(ids []float64, n int) map[float64]bool {
	keep := make(map[float64]bool, n)
	for _, id := range ids[:n] {
		keep[id] = true
	}
	return keep
}

// Split partitions f into train and test frames. The distinct entity
// identifiers are shuffled with the given seed and the first
// floor(fraction*count) of them form the training set; the rest form the
// test set. Rows keep their original relative order within each side.
func Split(f *frame.Frame, fraction float64, seed int64) (*frame.Frame, *frame.Frame) {

	ids := shuffledIDs(f, seed)
	bound := int(fraction * float64(len(ids)))

	trainKeep := keepSet(ids, bound)
	train := f.FilterEntities(trainKeep)

	testKeep := make(map[float64]bool, len(ids)-bound)
	for _, id := range ids[bound:] {
		testKeep[id] = true
	}
	test := f.FilterEntities(testKeep)

	log.Info().
		Int("trainEntities", bound).
		Int("testEntities", len(ids)-bound).
		Int("trainRows", train.NumRows()).
		Int("testRows", test.NumRows()).
		Msg("split data set")

	return train, test
}

// Subset keeps the first floor(p*count) entities of the seeded shuffle order,
// for runs on a fraction of the available data. p >= 1 returns f unchanged.
func Subset(f *frame.Frame, p float64, seed int64) *frame.Frame {

	if p >= 1 {
		return f
	}

	ids := shuffledIDs(f, seed)
	bound := int(p * float64(len(ids)))

	sub := f.FilterEntities(keepSet(ids, bound))

	log.Info().
		Float64("fraction", p).
		Int("entities", bound).
		Int("rows", sub.NumRows()).
		Msg("subset data set")

	return sub
}
