// Package matfile reads MAT-file containers (Level 4 and Level 5,
// including the zlib-compressed elements of v7 files) and exposes them
// through the series.Loader contract. v7.3 files are HDF5-backed and are
// not supported; hosts with such files must supply their own loader.
package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/wfslab/abersim/series"
)

// Loader reads coefficient series from MAT-files.
type Loader struct{}

// New creates a MAT-file loader.
func New() *Loader {
	return &Loader{}
}

// Load reads the named coefficient matrix and time vector from the
// MAT-file at path. The version selects the container format; it must
// match what the producing tooling wrote.
func (l *Loader) Load(
	path, coeffVar, timeVar string,
	version series.Version,
) (*series.Series, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", series.ErrFileLoad, err)
	}

	var vars map[string]*mat.Dense

	switch version {
	case series.V4:
		vars, err = readLevel4(raw)
	case series.V6, series.V7:
		vars, err = readLevel5(raw)
	case series.V73:
		return nil, fmt.Errorf(
			"%w: %s: v7.3 files are HDF5-backed and not supported by this loader",
			series.ErrFileLoad, path)
	default:
		return nil, fmt.Errorf("%w: unknown matrix version %q",
			series.ErrFileLoad, version)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", series.ErrFileLoad, path, err)
	}

	coeff, ok := vars[coeffVar]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no variable %q",
			series.ErrFileLoad, path, coeffVar)
	}

	timeMat, ok := vars[timeVar]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no variable %q",
			series.ErrFileLoad, path, timeVar)
	}

	return &series.Series{Coeff: coeff, Time: ravel(timeMat)}, nil
}

// ravel flattens a row or column vector (or any matrix, row by row) into
// a slice, matching the loader contract that the time variable may be
// stored either way.
func ravel(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, 0, rows*cols)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, m.At(r, c))
		}
	}

	return out
}

// ---- Level 4 ----

// Level 4 stores a sequence of matrices, each introduced by five int32
// words: the MOPT type code, row count, column count, an imaginary-part
// flag, and the length of the trailing NUL-terminated name. Data follows
// column-major.
func readLevel4(raw []byte) (map[string]*mat.Dense, error) {
	vars := make(map[string]*mat.Dense)
	r := bytes.NewReader(raw)

	for r.Len() > 0 {
		var buf [20]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("level 4 header: %v", err)
		}

		// The MOPT code is below 5000 in the writer's own byte order; a
		// wildly out-of-range value read little-endian means the file was
		// written big-endian.
		order := binary.ByteOrder(binary.LittleEndian)
		if int32(order.Uint32(buf[0:4])) < 0 ||
			int32(order.Uint32(buf[0:4])) > 4052 {
			order = binary.BigEndian
		}

		var hdr [5]int32
		for i := range hdr {
			hdr[i] = int32(order.Uint32(buf[i*4 : i*4+4]))
		}

		mopt := hdr[0]
		if mopt < 0 || mopt > 4052 {
			return nil, fmt.Errorf("level 4 type code %d out of range", mopt)
		}

		precision := (mopt / 10) % 10
		matrixType := mopt % 10
		if matrixType != 0 {
			return nil, fmt.Errorf("level 4 matrix type %d is not numeric", matrixType)
		}

		rows := int(hdr[1])
		cols := int(hdr[2])
		imag := hdr[3] != 0
		nameLen := int(hdr[4])

		if rows < 0 || cols < 0 || nameLen < 1 {
			return nil, fmt.Errorf("level 4 header is malformed")
		}

		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, err
		}
		name = bytes.TrimRight(name, "\x00")

		data, err := readLevel4Data(r, order, precision, rows*cols)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %v", name, err)
		}

		if imag {
			// Imaginary part is present but coefficient series are real;
			// skip it.
			if _, err := readLevel4Data(r, order, precision, rows*cols); err != nil {
				return nil, fmt.Errorf("variable %q: %v", name, err)
			}
		}

		vars[string(name)] = columnMajor(rows, cols, data)
	}

	return vars, nil
}

func readLevel4Data(
	r io.Reader,
	order binary.ByteOrder,
	precision int32,
	n int,
) ([]float64, error) {
	out := make([]float64, n)

	switch precision {
	case 0: // float64
		if err := binary.Read(r, order, out); err != nil {
			return nil, err
		}
	case 1: // float32
		buf := make([]float32, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case 2: // int32
		buf := make([]int32, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case 3: // int16
		buf := make([]int16, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case 4: // uint16
		buf := make([]uint16, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case 5: // uint8
		buf := make([]uint8, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported level 4 precision %d", precision)
	}

	return out, nil
}

// ---- Level 5 ----

// Element type tags of the Level 5 format.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
)

const headerLen = 128

func readLevel5(raw []byte) (map[string]*mat.Dense, error) {
	if len(raw) < headerLen {
		return nil, fmt.Errorf("file shorter than the %d-byte header", headerLen)
	}

	var order binary.ByteOrder
	switch string(raw[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("missing endian indicator; not a level 5 MAT-file")
	}

	vars := make(map[string]*mat.Dense)
	body := raw[headerLen:]

	for len(body) > 0 {
		elemType, data, rest, err := nextElement(body, order)
		if err != nil {
			return nil, err
		}
		body = rest

		switch elemType {
		case miCOMPRESSED:
			zr, err := zlib.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("compressed element: %v", err)
			}
			inflated, err := io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return nil, fmt.Errorf("compressed element: %v", err)
			}

			innerType, inner, _, err := nextElement(inflated, order)
			if err != nil {
				return nil, err
			}
			if innerType != miMATRIX {
				continue
			}
			if err := readMatrix(inner, order, vars); err != nil {
				return nil, err
			}

		case miMATRIX:
			if err := readMatrix(data, order, vars); err != nil {
				return nil, err
			}

		default:
			// Other top-level elements (e.g. subsystem data) are ignored.
		}
	}

	return vars, nil
}

// nextElement decodes one tagged data element, honoring the small data
// element format, and returns the remaining bytes after the element and
// its 8-byte alignment padding.
func nextElement(b []byte, order binary.ByteOrder) (
	elemType int,
	data []byte,
	rest []byte,
	err error,
) {
	if len(b) < 8 {
		return 0, nil, nil, fmt.Errorf("truncated element tag")
	}

	word := order.Uint32(b[0:4])
	if word>>16 != 0 {
		// Small data element: size in the upper half-word, data in the
		// second word.
		size := int(word >> 16)
		if size > 4 {
			return 0, nil, nil, fmt.Errorf("small element with %d bytes", size)
		}
		return int(word & 0xffff), b[4 : 4+size], b[8:], nil
	}

	size := int(order.Uint32(b[4:8]))
	if len(b) < 8+size {
		return 0, nil, nil, fmt.Errorf("element of %d bytes is truncated", size)
	}

	data = b[8 : 8+size]

	// miCOMPRESSED elements are not padded; everything else aligns to 8.
	pad := 0
	if int(word) != miCOMPRESSED {
		pad = (8 - size%8) % 8
	}
	end := 8 + size + pad
	if end > len(b) {
		end = len(b)
	}

	return int(word), data, b[end:], nil
}

// readMatrix decodes one miMATRIX element into vars. Only real numeric
// array classes are supported; anything else is skipped.
func readMatrix(b []byte, order binary.ByteOrder, vars map[string]*mat.Dense) error {
	// Array flags.
	t, flagData, rest, err := nextElement(b, order)
	if err != nil {
		return err
	}
	if t != miUINT32 || len(flagData) < 8 {
		return fmt.Errorf("malformed array flags")
	}
	flags := order.Uint32(flagData[0:4])
	class := int(flags & 0xff)
	isComplex := flags&0x0800 != 0

	// Dimensions.
	t, dimData, rest, err := nextElement(rest, order)
	if err != nil {
		return err
	}
	if t != miINT32 || len(dimData)%4 != 0 {
		return fmt.Errorf("malformed dimensions")
	}
	nDims := len(dimData) / 4
	dims := make([]int, nDims)
	for i := range dims {
		dims[i] = int(int32(order.Uint32(dimData[i*4 : i*4+4])))
	}

	// Name.
	t, nameData, rest, err := nextElement(rest, order)
	if err != nil {
		return err
	}
	if t != miINT8 {
		return fmt.Errorf("malformed array name")
	}
	name := string(bytes.TrimRight(nameData, "\x00"))

	// Numeric classes are 6 (double) through 15 (uint64); cell, struct,
	// object, char, and sparse arrays are not coefficient data.
	if class < 6 || class > 15 || nDims != 2 {
		return nil
	}

	t, realData, _, err := nextElement(rest, order)
	if err != nil {
		return fmt.Errorf("variable %q: %v", name, err)
	}

	rows, cols := dims[0], dims[1]
	values, err := decodeNumeric(t, realData, order, rows*cols)
	if err != nil {
		return fmt.Errorf("variable %q: %v", name, err)
	}

	_ = isComplex // imaginary parts, if present, are ignored

	vars[name] = columnMajor(rows, cols, values)

	return nil
}

// decodeNumeric converts the raw bytes of a numeric subelement to
// float64s. The storage type may be narrower than the array class.
func decodeNumeric(t int, b []byte, order binary.ByteOrder, n int) ([]float64, error) {
	out := make([]float64, n)

	width := map[int]int{
		miINT8: 1, miUINT8: 1,
		miINT16: 2, miUINT16: 2,
		miINT32: 4, miUINT32: 4, miSINGLE: 4,
		miDOUBLE: 8, miINT64: 8, miUINT64: 8,
	}[t]
	if width == 0 {
		return nil, fmt.Errorf("unsupported numeric storage type %d", t)
	}

	if len(b) < n*width {
		return nil, fmt.Errorf("numeric data truncated: %d bytes for %d values",
			len(b), n)
	}

	for i := 0; i < n; i++ {
		chunk := b[i*width:]
		switch t {
		case miINT8:
			out[i] = float64(int8(chunk[0]))
		case miUINT8:
			out[i] = float64(chunk[0])
		case miINT16:
			out[i] = float64(int16(order.Uint16(chunk)))
		case miUINT16:
			out[i] = float64(order.Uint16(chunk))
		case miINT32:
			out[i] = float64(int32(order.Uint32(chunk)))
		case miUINT32:
			out[i] = float64(order.Uint32(chunk))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(order.Uint32(chunk)))
		case miINT64:
			out[i] = float64(int64(order.Uint64(chunk)))
		case miUINT64:
			out[i] = float64(order.Uint64(chunk))
		case miDOUBLE:
			out[i] = math.Float64frombits(order.Uint64(chunk))
		}
	}

	return out, nil
}

// columnMajor builds a row-major Dense from MAT column-major data.
func columnMajor(rows, cols int, data []float64) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			m.Set(r, c, data[c*rows+r])
		}
	}

	return m
}
