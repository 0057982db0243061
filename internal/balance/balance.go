/*
Package balance adjusts the class mix of the training set at the entity
level, so a patient stay is kept or replicated whole and never split across
the decision.

An entity counts as positive for a target when it has a positive day after
its first recorded day; a positive first day alone cannot be predicted once
the targets are shifted.
*/
package balance

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/stemike/mimic-model/internal/frame"
)

// targetScores aggregates, per entity and target, the positive-day count
// beyond the first recorded day.
func targetScores(f *frame.Frame, targets []string) (map[float64][]float64, error) {

	cols := make([][]float64, len(targets))
	for t, na := range targets {
		c, err := f.Col(na)
		if err != nil {
			return nil, fmt.Errorf("balance: %w", err)
		}
		cols[t] = c
	}

	ids := f.IDs()
	scores := make(map[float64][]float64)
	for i, id := range ids {
		s, ok := scores[id]
		if !ok {
			s = make([]float64, len(targets))
			scores[id] = s
		}
		for t := range cols {
			v := cols[t][i]
			s[t] += v
			if !ok {
				// The first recorded day does not count.
				s[t] -= v
			}
		}
	}

	return scores, nil
}

// refTarget picks the reference target for the balancing decision: the one
// with the most ever-positive entities when undersampling, the fewest when
// oversampling. Ties keep the earliest target.
func refTarget(uniq []float64, scores map[float64][]float64, nTargets int, undersample bool) int {

	counts := make([]int, nTargets)
	for _, id := range uniq {
		for t, v := range scores[id] {
			if v != 0 {
				counts[t]++
			}
		}
	}

	ref := 0
	for t := 1; t < nTargets; t++ {
		if undersample && counts[t] > counts[ref] {
			ref = t
		}
		if !undersample && counts[t] < counts[ref] {
			ref = t
		}
	}

	return ref
}

// Balance rebalances train by entity. With undersample it keeps the whole
// minority pool plus at most imbalance times as many majority entities;
// otherwise it replicates the minority rows enough times to approach the
// majority size. The last nTargets columns are the targets.
func Balance(train *frame.Frame, nTargets int, undersample bool, imbalance float64, seed int64) (*frame.Frame, error) {

	names := train.Names()
	if nTargets <= 0 || nTargets >= len(names) {
		return nil, fmt.Errorf("balance: %d targets in a %d column table", nTargets, len(names))
	}
	targets := names[len(names)-nTargets:]

	scores, err := targetScores(train, targets)
	if err != nil {
		return nil, err
	}

	uniq := train.UniqueIDs()
	ref := refTarget(uniq, scores, nTargets, undersample)

	// Partition the entities against the reference target.
	var pos, negPos, negAll []float64
	for _, id := range uniq {
		s := scores[id]
		if s[ref] != 0 {
			pos = append(pos, id)
			continue
		}
		other := 0.0
		for _, v := range s {
			other += v
		}
		if other != 0 {
			negPos = append(negPos, id)
		} else {
			negAll = append(negAll, id)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	for _, pool := range [][]float64{pos, negPos, negAll} {
		p := pool
		rng.Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })
	}

	// Entities positive in another target are drawn before the fully
	// negative ones.
	neg := append(append([]float64(nil), negPos...), negAll...)

	minority, majority := pos, neg
	if len(pos) >= len(neg) {
		minority, majority = neg, pos
	}

	if len(minority) == 0 {
		log.Warn().Str("target", targets[ref]).Msg("empty minority pool, skipping balancing")
		return train, nil
	}

	if undersample {
		take := int(float64(len(minority)) * imbalance)
		if take > len(majority) {
			take = len(majority)
		}

		total := append(append([]float64(nil), minority...), majority[:take]...)
		// Consumes the stream; membership filtering below ignores order.
		rng.Shuffle(len(total), func(i, j int) { total[i], total[j] = total[j], total[i] })

		keep := make(map[float64]bool, len(total))
		for _, id := range total {
			keep[id] = true
		}
		out := train.FilterEntities(keep)

		log.Info().
			Str("target", targets[ref]).
			Int("positive", len(pos)).
			Int("otherPositive", len(negPos)).
			Int("negative", len(negAll)).
			Int("kept", len(total)).
			Msg("balanced training data by undersampling")

		return out, nil
	}

	difference := len(majority) / len(minority)

	out := train.Clone()
	if difference > 1 {
		keep := make(map[float64]bool, len(minority))
		for _, id := range minority {
			keep[id] = true
		}
		minorityRows := train.FilterEntities(keep)

		for i := 0; i < difference-1; i++ {
			if err := out.AppendRows(minorityRows); err != nil {
				return nil, fmt.Errorf("balance: %w", err)
			}
		}
	}

	log.Info().
		Str("target", targets[ref]).
		Int("copies", difference-1).
		Int("minority", len(minority)).
		Int("majority", len(majority)).
		Msg("balanced training data by oversampling")

	return out, nil
}
