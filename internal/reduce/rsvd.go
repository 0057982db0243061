package reduce

import (
	"errors"
	"math/rand"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/brookluers/dimred"
)

// randomComponents finds leading components with an approximate SVD. The
// variance share of each component is its squared singular value over the
// squared Frobenius norm of the standardized matrix, so the threshold has the
// same meaning as in the exact backend. At most cfg.MaxComponents components
// are available; if they cannot reach the threshold the full set is kept and
// the achieved share is reported.
func randomComponents(x *mat.Dense, cfg Config) (mat.Matrix, int, float64, error) {

	nrow, ncol := x.Dims()

	nfac := cfg.MaxComponents
	if nfac > ncol {
		nfac = ncol
	}
	if nfac > nrow {
		nfac = nrow
	}
	if nfac < 1 {
		return nil, 0, 0, errors.New("reduce: no components to extract")
	}

	// The sparse matrix is represented as mat[row[i], col[i]] = dat[i].
	var row, col []int
	var dat []float64
	total := 0.0
	for i := 0; i < nrow; i++ {
		for j := 0; j < ncol; j++ {
			v := x.At(i, j)
			if v != 0 {
				row = append(row, i)
				col = append(col, j)
				dat = append(dat, v)
				total += v * v
			}
		}
	}
	if total == 0 {
		return nil, 0, 0, errors.New("reduce: standardized matrix is all zero")
	}

	spm := dimred.NewSPM(row, col, dat, nrow, ncol)
	sv := new(dimred.RSVD)

	// The factorization draws from the global source.
	rand.Seed(cfg.Seed)
	sv.Factorize(spm, nfac, cfg.PowerIters)

	vmat := sv.VTo(nil)
	values := sv.Values(nil)

	k := nfac
	run := 0.0
	reached := false
	for i, s := range values {
		run += s * s
		if run/total >= cfg.Threshold {
			k = i + 1
			reached = true
			break
		}
	}

	achieved := 0.0
	for _, s := range values[:k] {
		achieved += s * s
	}
	achieved /= total

	if !reached {
		log.Warn().
			Int("components", k).
			Float64("variance", achieved).
			Float64("threshold", cfg.Threshold).
			Msg("component cap reached before variance threshold")
	}

	return vmat.Slice(0, ncol, 0, k), k, achieved, nil
}
