package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfslab/abersim/series"
)

// toColumnMajor reorders row-major values the way MAT-files store them.
func toColumnMajor(rows, cols int, rowMajor []float64) []float64 {
	out := make([]float64, len(rowMajor))
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			out[c*rows+r] = rowMajor[r*cols+c]
		}
	}

	return out
}

func level4Var(
	order binary.ByteOrder,
	name string,
	rows, cols int,
	rowMajor []float64,
) []byte {
	var buf bytes.Buffer

	mopt := int32(0)
	if order == binary.ByteOrder(binary.BigEndian) {
		mopt = 1000
	}

	hdr := []int32{mopt, int32(rows), int32(cols), 0, int32(len(name) + 1)}
	for _, w := range hdr {
		binary.Write(&buf, order, w)
	}

	buf.WriteString(name)
	buf.WriteByte(0)
	binary.Write(&buf, order, toColumnMajor(rows, cols, rowMajor))

	return buf.Bytes()
}

func level5Element(typ int, data []byte) []byte {
	var buf bytes.Buffer

	binary.Write(&buf, binary.LittleEndian, uint32(typ))
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	if pad := (8 - len(data)%8) % 8; typ != miCOMPRESSED {
		buf.Write(make([]byte, pad))
	}

	return buf.Bytes()
}

func level5Matrix(name string, rows, cols int, rowMajor []float64) []byte {
	flags := make([]byte, 8)
	binary.LittleEndian.PutUint32(flags[0:4], 6) // double array class

	dims := make([]byte, 8)
	binary.LittleEndian.PutUint32(dims[0:4], uint32(rows))
	binary.LittleEndian.PutUint32(dims[4:8], uint32(cols))

	var real bytes.Buffer
	binary.Write(&real, binary.LittleEndian,
		toColumnMajor(rows, cols, rowMajor))

	var body bytes.Buffer
	body.Write(level5Element(miUINT32, flags))
	body.Write(level5Element(miINT32, dims))
	body.Write(level5Element(miINT8, []byte(name)))
	body.Write(level5Element(miDOUBLE, real.Bytes()))

	return level5Element(miMATRIX, body.Bytes())
}

func level5File(elements ...[]byte) []byte {
	hdr := make([]byte, headerLen)
	copy(hdr, "MATLAB 5.0 MAT-file, written by coefficient tooling")
	hdr[124] = 0x00
	hdr[125] = 0x01
	hdr[126] = 'I'
	hdr[127] = 'M'

	out := hdr
	for _, e := range elements {
		out = append(out, e...)
	}

	return out
}

func compress(t *testing.T, element []byte) []byte {
	t.Helper()

	var deflated bytes.Buffer
	zw := zlib.NewWriter(&deflated)
	_, err := zw.Write(element)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(miCOMPRESSED))
	binary.Write(&buf, binary.LittleEndian, uint32(deflated.Len()))
	buf.Write(deflated.Bytes())

	return buf.Bytes()
}

func writeFile(t *testing.T, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "coeff.mat")
	require.NoError(t, os.WriteFile(path, content, 0600))

	return path
}

var (
	testCoeff = []float64{
		1.5, -2.0, 3.25, 0,
		4.0, 5.5, -6.0, 7,
		8.0, -9.5, 10.0, 11,
	}
	testTime = []float64{0, 0.004, 0.008}
)

func assertSeries(t *testing.T, s *series.Series) {
	t.Helper()

	rows, cols := s.Coeff.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 4, cols)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.Equal(t, testCoeff[r*cols+c], s.Coeff.At(r, c),
				"coeff (%d,%d)", r, c)
		}
	}

	assert.Equal(t, testTime, s.Time)
}

func TestLoadLevel4(t *testing.T) {
	content := append(
		level4Var(binary.LittleEndian, "coeff", 3, 4, testCoeff),
		level4Var(binary.LittleEndian, "time", 3, 1, testTime)...)
	path := writeFile(t, content)

	s, err := New().Load(path, "coeff", "time", series.V4)
	require.NoError(t, err)
	assertSeries(t, s)
}

func TestLoadLevel4BigEndian(t *testing.T) {
	content := append(
		level4Var(binary.BigEndian, "coeff", 3, 4, testCoeff),
		level4Var(binary.BigEndian, "time", 3, 1, testTime)...)
	path := writeFile(t, content)

	s, err := New().Load(path, "coeff", "time", series.V4)
	require.NoError(t, err)
	assertSeries(t, s)
}

func TestLoadLevel5(t *testing.T) {
	path := writeFile(t, level5File(
		level5Matrix("coeff", 3, 4, testCoeff),
		level5Matrix("time", 3, 1, testTime),
	))

	s, err := New().Load(path, "coeff", "time", series.V6)
	require.NoError(t, err)
	assertSeries(t, s)
}

func TestLoadLevel5Compressed(t *testing.T) {
	path := writeFile(t, level5File(
		compress(t, level5Matrix("coeff", 3, 4, testCoeff)),
		compress(t, level5Matrix("time", 3, 1, testTime)),
	))

	s, err := New().Load(path, "coeff", "time", series.V7)
	require.NoError(t, err)
	assertSeries(t, s)
}

func TestLoadAcceptsRowVectorTime(t *testing.T) {
	path := writeFile(t, level5File(
		level5Matrix("coeff", 3, 4, testCoeff),
		level5Matrix("time", 1, 3, testTime),
	))

	s, err := New().Load(path, "coeff", "time", series.V6)
	require.NoError(t, err)
	assert.Equal(t, testTime, s.Time)
}

func TestLoadReportsMissingVariables(t *testing.T) {
	path := writeFile(t, level5File(
		level5Matrix("coeff", 3, 4, testCoeff),
	))

	_, err := New().Load(path, "coeff", "time", series.V6)
	assert.ErrorIs(t, err, series.ErrFileLoad)

	_, err = New().Load(path, "other", "time", series.V6)
	assert.ErrorIs(t, err, series.ErrFileLoad)
}

func TestLoadRejectsV73(t *testing.T) {
	path := writeFile(t, []byte("irrelevant"))

	_, err := New().Load(path, "coeff", "time", series.V73)
	assert.ErrorIs(t, err, series.ErrFileLoad)
}

func TestLoadReportsUnreadableFiles(t *testing.T) {
	_, err := New().Load(
		filepath.Join(t.TempDir(), "absent.mat"), "coeff", "time", series.V7)
	assert.ErrorIs(t, err, series.ErrFileLoad)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := writeFile(t, []byte("this is not a MAT-file"))

	_, err := New().Load(path, "coeff", "time", series.V6)
	assert.ErrorIs(t, err, series.ErrFileLoad)

	_, err = New().Load(path, "coeff", "time", series.V4)
	assert.ErrorIs(t, err, series.ErrFileLoad)
}

func TestNextElementSmallDataFormat(t *testing.T) {
	// Four bytes of payload packed into the tag itself.
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian,
		uint32(miINT8)|uint32(4)<<16)
	buf.Write([]byte{'n', 'a', 'm', 'e'})

	typ, data, rest, err := nextElement(buf.Bytes(), binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, miINT8, typ)
	assert.Equal(t, []byte("name"), data)
	assert.Empty(t, rest)
}
