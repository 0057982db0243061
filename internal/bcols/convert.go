package bcols

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// parseValue converts one CSV token to a float64, mapping the conventional
// missing-value tokens to NaN.
func parseValue(tok string) (float64, bool) {

	tok = strings.TrimSpace(tok)

	switch tok {
	case "", "NA", "N/A", "NULL", "null", "None":
		return math.NaN(), true
	}

	x, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}

	return x, true
}

// scanTypes reads through the CSV once and reports which columns are fully
// numeric, along with the header.
func scanTypes(fname string) ([]string, []bool, error) {

	fid, err := os.Open(fname)
	if err != nil {
		return nil, nil, fmt.Errorf("bcols: %w", err)
	}
	defer fid.Close()

	rdr := csv.NewReader(fid)
	rdr.ReuseRecord = true

	head, err := rdr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("bcols: read header of %s: %w", fname, err)
	}
	names := append([]string(nil), head...)

	numeric := make([]bool, len(names))
	for j := range numeric {
		numeric[j] = true
	}

	for {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, nil, fmt.Errorf("bcols: read %s: %w", fname, err)
		}
		for j, tok := range rec {
			if !numeric[j] {
				continue
			}
			if _, ok := parseValue(tok); !ok {
				numeric[j] = false
			}
		}
	}

	return names, numeric, nil
}

// Convert reads the source CSV and writes one binary column file per numeric
// variable into dir, creating the directory if needed. Columns that contain
// non-numeric tokens are skipped. Returns the number of data rows written.
func Convert(fname, dir string) (int, error) {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("bcols: %w", err)
	}

	names, numeric, err := scanTypes(fname)
	if err != nil {
		return 0, err
	}

	var kept []string
	wtr := make(map[int]*colWriter)
	for j, na := range names {
		if !numeric[j] {
			log.Warn().Str("column", na).Msg("skipping non-numeric column")
			continue
		}
		w, err := newColWriter(dir, na)
		if err != nil {
			return 0, err
		}
		wtr[j] = w
		kept = append(kept, na)
	}

	fid, err := os.Open(fname)
	if err != nil {
		return 0, fmt.Errorf("bcols: %w", err)
	}
	defer fid.Close()

	rdr := csv.NewReader(fid)
	rdr.ReuseRecord = true

	// Skip the header this time through.
	if _, err := rdr.Read(); err != nil {
		return 0, fmt.Errorf("bcols: read header of %s: %w", fname, err)
	}

	nrec := 0
	for {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return 0, fmt.Errorf("bcols: read %s: %w", fname, err)
		}
		nrec++

		for j, w := range wtr {
			x, _ := parseValue(rec[j])
			if err := w.Add(x); err != nil {
				return 0, fmt.Errorf("bcols: write column %s: %w", names[j], err)
			}
		}
	}

	for _, w := range wtr {
		if err := w.Close(); err != nil {
			return 0, fmt.Errorf("bcols: %w", err)
		}
	}

	if err := writeDtypes(dir); err != nil {
		return 0, err
	}
	if err := writeColumnOrder(dir, kept); err != nil {
		return 0, err
	}

	log.Info().Int("rows", nrec).Int("columns", len(kept)).Str("dir", dir).Msg("cached binary columns")

	return nrec, nil
}
