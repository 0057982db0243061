/*
Package persist writes the padded tensors and their metadata to the output
layout the training code consumes. Every artifact is written to a temporary
file first and renamed into place, so a failing configuration never leaves a
partially written file behind.
*/
package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/stemike/mimic-model/internal/npy"
	"github.com/stemike/mimic-model/internal/sequence"
)

var (
	encOnce sync.Once
	encoder *zstd.Encoder
)

// zstdEncoder returns the shared compressor.
func zstdEncoder() *zstd.Encoder {
	encOnce.Do(func() {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			panic(err)
		}
		encoder = enc
	})
	return encoder
}

// Dir returns the output directory for one run configuration.
func Dir(out string, version, timeSteps int, seed int64, percent float64) string {
	run := fmt.Sprintf("mimic%d_ts%d_seed%d", version, timeSteps, seed)
	pct := fmt.Sprintf("pct%g", percent*100)
	return path.Join(out, run, pct)
}

// Prefix names the artifact family for a target set, with the reduced-feature
// variant marked.
func Prefix(targets []string, reduced bool) string {
	p := strings.Join(targets, "_")
	if reduced {
		p += "_reduced"
	}
	return p
}

// Writer persists artifacts into one configuration directory.
type Writer struct {
	dir      string
	dtype    npy.DType
	compress bool
}

// New creates the configuration directory and returns a writer for it.
func New(dir string, dtype npy.DType, compress bool) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return &Writer{dir: dir, dtype: dtype, compress: compress}, nil
}

// writeFile atomically writes one artifact.
func (w *Writer) writeFile(fname string, data []byte) error {

	full := path.Join(w.dir, fname)
	tmp := full + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("persist: %w", err)
	}

	return nil
}

// writeArray writes encoded array bytes, compressing when configured.
func (w *Writer) writeArray(name string, raw []byte) error {
	if w.compress {
		cdata := zstdEncoder().EncodeAll(raw, make([]byte, 0, len(raw)))
		return w.writeFile(name+".npy.zst", cdata)
	}
	return w.writeFile(name+".npy", raw)
}

// WriteTensor persists one float tensor.
func (w *Writer) WriteTensor(name string, x *sequence.Tensor) error {
	var buf bytes.Buffer
	if err := npy.Write(&buf, [3]int{x.E, x.T, x.F}, w.dtype, x.Data); err != nil {
		return err
	}
	return w.writeArray(name, buf.Bytes())
}

// WriteMask persists one boolean mask.
func (w *Writer) WriteMask(name string, m *sequence.Mask) error {
	var buf bytes.Buffer
	if err := npy.WriteBool(&buf, [3]int{m.E, m.T, m.F}, m.Data); err != nil {
		return err
	}
	return w.writeArray(name, buf.Bytes())
}

// WriteFeatures persists the ordered feature names for one artifact family.
func (w *Writer) WriteFeatures(prefix string, feats []string) error {
	data, err := json.MarshalIndent(feats, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return w.writeFile(prefix+"_features.json", data)
}

// SaveXY persists the four artifacts of one dataset half and logs the
// positive patient counts per target.
func (w *Writer) SaveXY(prefix, half string, xy *sequence.XY) error {

	base := prefix + "_" + half

	if err := w.WriteTensor(base+"_data", xy.Input); err != nil {
		return err
	}
	if err := w.WriteTensor(base+"_targets", xy.Targets); err != nil {
		return err
	}
	if err := w.WriteMask(base+"_data_mask", xy.InputMask); err != nil {
		return err
	}
	if err := w.WriteMask(base+"_targets_mask", xy.TargetsMask); err != nil {
		return err
	}

	pos := sequence.PositiveEntities(xy.Targets)
	neg := make([]int, len(pos))
	for i, p := range pos {
		neg[i] = xy.Targets.E - p
	}

	log.Info().
		Str("set", base).
		Str("dir", w.dir).
		Ints("positivePatients", pos).
		Ints("negativePatients", neg).
		Msg("saved data set")

	return nil
}
