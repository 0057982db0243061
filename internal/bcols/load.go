package bcols

import (
	"fmt"

	"github.com/kshedden/dstream/dstream"
	"github.com/rs/zerolog/log"

	"github.com/stemike/mimic-model/internal/frame"
)

// Chunk size for reading cached columns
const csize = 100000

// Load materializes the cached columns in dir into a frame, with idCol as the
// entity-identifier column. Columns appear in their recorded source order.
func Load(dir, idCol string) (*frame.Frame, error) {

	names, err := readColumnOrder(dir)
	if err != nil {
		return nil, err
	}

	ds := dstream.NewBCols(dir, csize).Done()
	ds = dstream.MemCopy(ds)

	cols := make(map[string][]float64, len(names))
	for _, na := range names {
		ds.Reset()
		cols[na] = dstream.GetCol(ds, na).([]float64)
	}

	f, err := frame.New(idCol, names, cols)
	if err != nil {
		return nil, fmt.Errorf("bcols: load %s: %w", dir, err)
	}

	ds.Reset()
	for k, v := range dstream.Describe(ds) {
		log.Debug().Str("variable", k).Float64("sd", v.SD).Msg("variable summary")
	}

	log.Info().Int("rows", f.NumRows()).Int("columns", f.NumCols()).Str("dir", dir).Msg("loaded binary columns")

	return f, nil
}
