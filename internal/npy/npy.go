/*
Package npy encodes 3D arrays in the NumPy .npy format (version 1.0), which
is what the downstream training code reads. Values are written in C order
with a little-endian scalar type; masks use the one-byte boolean type.
*/
package npy

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/x448/float16"
)

// DType is the scalar type of a stored array.
type DType int

const (
	Float64 DType = iota
	Float32
	Float16
)

// ParseDType converts a configuration string to a DType.
func ParseDType(s string) (DType, error) {
	switch s {
	case "float64":
		return Float64, nil
	case "float32":
		return Float32, nil
	case "float16":
		return Float16, nil
	}
	return 0, fmt.Errorf("npy: unknown dtype %q", s)
}

func (d DType) String() string {
	switch d {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	}
	return fmt.Sprintf("DType(%d)", int(d))
}

// descr returns the NumPy array-interface type string.
func (d DType) descr() string {
	switch d {
	case Float64:
		return "<f8"
	case Float32:
		return "<f4"
	case Float16:
		return "<f2"
	}
	return ""
}

// magic identifies an .npy file, followed by the format version.
var magic = []byte{0x93, 'N', 'U', 'M', 'P', 'Y'}

// writeHeader emits the version 1.0 preamble and the python-dict header,
// space-padded so the data section starts on a 64-byte boundary.
func writeHeader(w io.Writer, descr string, shape [3]int) error {

	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%d, %d, %d), }",
		descr, shape[0], shape[1], shape[2])

	pad := 64 - (len(magic)+4+len(dict)+1)%64
	if pad == 64 {
		pad = 0
	}
	header := dict + strings.Repeat(" ", pad) + "\n"

	if _, err := w.Write(magic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}

	return nil
}

// Write encodes a 3D float array with the given scalar type.
func Write(w io.Writer, shape [3]int, dtype DType, data []float64) error {

	if n := shape[0] * shape[1] * shape[2]; n != len(data) {
		return fmt.Errorf("npy: shape (%d, %d, %d) holds %d values, have %d",
			shape[0], shape[1], shape[2], n, len(data))
	}

	if err := writeHeader(w, dtype.descr(), shape); err != nil {
		return fmt.Errorf("npy: %w", err)
	}

	var err error
	switch dtype {
	case Float64:
		err = binary.Write(w, binary.LittleEndian, data)
	case Float32:
		buf := make([]float32, len(data))
		for i, v := range data {
			buf[i] = float32(v)
		}
		err = binary.Write(w, binary.LittleEndian, buf)
	case Float16:
		buf := make([]uint16, len(data))
		for i, v := range data {
			buf[i] = float16.Fromfloat32(float32(v)).Bits()
		}
		err = binary.Write(w, binary.LittleEndian, buf)
	default:
		err = fmt.Errorf("unknown dtype %v", dtype)
	}
	if err != nil {
		return fmt.Errorf("npy: %w", err)
	}

	return nil
}

// WriteBool encodes a 3D boolean array.
func WriteBool(w io.Writer, shape [3]int, data []bool) error {

	if n := shape[0] * shape[1] * shape[2]; n != len(data) {
		return fmt.Errorf("npy: shape (%d, %d, %d) holds %d values, have %d",
			shape[0], shape[1], shape[2], n, len(data))
	}

	if err := writeHeader(w, "|b1", shape); err != nil {
		return fmt.Errorf("npy: %w", err)
	}

	buf := make([]byte, len(data))
	for i, v := range data {
		if v {
			buf[i] = 1
		}
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("npy: %w", err)
	}

	return nil
}
