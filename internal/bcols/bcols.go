/*
Package bcols maintains an on-disk cache of binary columns for the observation
table. Each variable is stored as a gzip-compressed stream of little-endian
float64 values in <name>.bin.gz, with dtypes.json describing the types and
columns.json preserving the source column order.
*/
package bcols

import (
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// colWriter manages output processing for one variable.
type colWriter struct {

	// Write directly to the file
	fw io.WriteCloser

	// Write compressed data to the file
	zw *gzip.Writer
}

// newColWriter sets up a colWriter appending float64 values to the binary
// column file for the named variable.
func newColWriter(dir, name string) (*colWriter, error) {

	fw, err := os.Create(path.Join(dir, fmt.Sprintf("%s.bin.gz", name)))
	if err != nil {
		return nil, fmt.Errorf("bcols: create column %s: %w", name, err)
	}

	return &colWriter{fw: fw, zw: gzip.NewWriter(fw)}, nil
}

// Add writes one value to the binary column file.
func (w *colWriter) Add(x float64) error {
	return binary.Write(w.zw, binary.LittleEndian, x)
}

// Close closes the io writers.
func (w *colWriter) Close() error {
	if err := w.zw.Close(); err != nil { // order is important here
		return err
	}
	return w.fw.Close()
}

// writeDtypes updates the dtype information in the cache directory.
func writeDtypes(dir string) error {

	dt := make(map[string]string)

	fi, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("bcols: %w", err)
	}

	for _, f := range fi {
		a := f.Name()
		if strings.HasSuffix(a, ".bin.gz") {
			a = strings.Replace(a, ".bin.gz", "", -1)
			dt[a] = "float64"
		}
	}

	out, err := os.Create(path.Join(dir, "dtypes.json"))
	if err != nil {
		return fmt.Errorf("bcols: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	if err := enc.Encode(&dt); err != nil {
		return fmt.Errorf("bcols: %w", err)
	}

	return nil
}

// writeColumnOrder records the source order of the cached columns, which the
// dtype map does not preserve.
func writeColumnOrder(dir string, names []string) error {

	out, err := os.Create(path.Join(dir, "columns.json"))
	if err != nil {
		return fmt.Errorf("bcols: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	if err := enc.Encode(names); err != nil {
		return fmt.Errorf("bcols: %w", err)
	}

	return nil
}

// readColumnOrder loads the recorded source order of the cached columns.
func readColumnOrder(dir string) ([]string, error) {

	fid, err := os.Open(path.Join(dir, "columns.json"))
	if err != nil {
		return nil, fmt.Errorf("bcols: %w", err)
	}
	defer fid.Close()

	var names []string
	dec := json.NewDecoder(fid)
	if err := dec.Decode(&names); err != nil {
		return nil, fmt.Errorf("bcols: %w", err)
	}

	return names, nil
}

// HasCache reports whether dir already holds a complete column cache.
func HasCache(dir string) bool {
	if _, err := os.Stat(path.Join(dir, "dtypes.json")); err != nil {
		return false
	}
	_, err := os.Stat(path.Join(dir, "columns.json"))
	return err == nil
}
