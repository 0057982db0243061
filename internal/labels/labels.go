/*
Package labels derives the prediction targets from the raw observation table
and removes the columns that would make each prediction task trivial.

Targets are appended to the end of the table in the order they are requested,
so the last columns of the returned frame are always the derived targets.
*/
package labels

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/stemike/mimic-model/internal/frame"
)

// wbcCriterion flags an abnormal white blood cell count. A count of zero is
// an artifact of imputation, not a reading.
func wbcCriterion(x float64) bool {
	return (x > 12 || x < 4) && x != 0
}

// tempCriterion flags an abnormal body temperature in Fahrenheit.
func tempCriterion(x float64) bool {
	return (x > 100.4 || x < 96.8) && x != 0
}

// Derive returns a copy of f with one binary column per recognized target
// appended, in request order, and with the identifying and label-leaking
// columns removed. Target names with no derivation rule are skipped; callers
// are expected to verify that every requested column exists afterwards.
func Derive(f *frame.Frame, targets []string) (*frame.Frame, error) {

	df := f.Clone()

	// Features that make the task trivial
	trivial := []string{"subject_id", "yob", "admityear", "ct_angio", "infection", "ckd"}

	for _, t := range targets {
		if df.HasCol(t) {
			continue
		}

		var err error
		switch t {
		case "MI":
			err = deriveMI(df)
			trivial = append(trivial, "troponin", "troponin_std", "troponin_min", "troponin_max")
		case "SEPSIS":
			err = deriveSepsis(df)
		case "VANCOMYCIN":
			err = deriveVancomycin(df)
			trivial = append(trivial, "vancomycin")
		default:
			log.Warn().Str("target", t).Msg("no derivation rule for target")
			continue
		}
		if err != nil {
			return nil, err
		}

		log.Info().Str("target", t).Msg("created target")
	}

	df.DropCols(trivial...)

	return df, nil
}

// deriveMI marks days with elevated troponin in patients without chronic
// kidney disease, which also elevates troponin.
func deriveMI(df *frame.Frame) error {

	trop, err := df.Col("troponin")
	if err != nil {
		return fmt.Errorf("labels: MI: %w", err)
	}
	ckd, err := df.Col("ckd")
	if err != nil {
		return fmt.Errorf("labels: MI: %w", err)
	}

	mi := make([]float64, len(trop))
	for i := range trop {
		if trop[i] > 0.4 && ckd[i] == 0 {
			mi[i] = 1
		}
	}

	return df.AppendCol("MI", mi)
}

// deriveSepsis marks days meeting at least two SIRS criteria in the presence
// of a documented infection.
func deriveSepsis(df *frame.Frame) error {

	var cols [4][]float64
	for i, na := range []string{"heart rate", "respiratory rate", "wbcs", "temperature (f)"} {
		c, err := df.Col(na)
		if err != nil {
			return fmt.Errorf("labels: SEPSIS: %w", err)
		}
		cols[i] = c
	}
	inf, err := df.Col("infection")
	if err != nil {
		return fmt.Errorf("labels: SEPSIS: %w", err)
	}

	hr, rr, wbc, temp := cols[0], cols[1], cols[2], cols[3]

	sepsis := make([]float64, len(hr))
	for i := range sepsis {
		points := 0
		if hr[i] > 90 {
			points++
		}
		if rr[i] > 20 {
			points++
		}
		if wbcCriterion(wbc[i]) {
			points++
		}
		if tempCriterion(temp[i]) {
			points++
		}
		if points >= 2 && inf[i] == 1 {
			sepsis[i] = 1
		}
	}

	return df.AppendCol("SEPSIS", sepsis)
}

// deriveVancomycin marks days on which the antibiotic was administered.
func deriveVancomycin(df *frame.Frame) error {

	vanc, err := df.Col("vancomycin")
	if err != nil {
		return fmt.Errorf("labels: VANCOMYCIN: %w", err)
	}

	v := make([]float64, len(vanc))
	for i := range vanc {
		if vanc[i] > 0 {
			v[i] = 1
		}
	}

	return df.AppendCol("VANCOMYCIN", v)
}
