package mnist

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epirun/epirun/datasets"
)

func writeGzip(t *testing.T, dir, name string, payload []byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644))
}

func idxImages(count int, fill byte) []byte {
	buf := make([]byte, 16+count*Width*Height)
	binary.BigEndian.PutUint32(buf[0:4], imagesMagic)
	binary.BigEndian.PutUint32(buf[4:8], uint32(count))
	binary.BigEndian.PutUint32(buf[8:12], Height)
	binary.BigEndian.PutUint32(buf[12:16], Width)
	for i := 16; i < len(buf); i++ {
		buf[i] = fill
	}
	return buf
}

func idxLabels(labels []byte) []byte {
	buf := make([]byte, 8, 8+len(labels))
	binary.BigEndian.PutUint32(buf[0:4], labelsMagic)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(labels)))
	return append(buf, labels...)
}

func withSearchDir(t *testing.T, dir string) {
	t.Helper()
	saved := SearchDirs
	SearchDirs = []string{dir}
	t.Cleanup(func() { SearchDirs = saved })
}

func TestLoadTrainPart(t *testing.T) {
	dir := t.TempDir()
	writeGzip(t, dir, trainImages, idxImages(3, 255))
	writeGzip(t, dir, trainLabels, idxLabels([]byte{7, 0, 4}))
	withSearchDir(t, dir)

	ds, err := load(datasets.TrainPart)
	require.NoError(t, err)
	assert.Equal(t, "mnist", ds.Name())
	require.Equal(t, 3, ds.Len())

	s, err := ds.At(0)
	require.NoError(t, err)
	assert.Equal(t, 7, s.Label)
	require.Len(t, s.Input, Width*Height)
	assert.InDelta(t, 1.0, float64(s.Input[0]), 1e-6)
}

func TestLoadTestPart(t *testing.T) {
	dir := t.TempDir()
	writeGzip(t, dir, testImages, idxImages(2, 0))
	writeGzip(t, dir, testLabels, idxLabels([]byte{1, 9}))
	withSearchDir(t, dir)

	ds, err := load(datasets.TestPart)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	s, err := ds.At(1)
	require.NoError(t, err)
	assert.Equal(t, 9, s.Label)
	assert.Zero(t, s.Input[123])
}

func TestLoadMissingFiles(t *testing.T) {
	withSearchDir(t, t.TempDir())
	_, err := load(datasets.TrainPart)
	assert.ErrorIs(t, err, datasets.ErrUnavailable)
}

func TestLoadCorrupt(t *testing.T) {
	for name, mangle := range map[string]func([]byte) []byte{
		"bad magic": func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[0:4], 0xdead)
			return b
		},
		"truncated": func(b []byte) []byte { return b[:40] },
		"bad size": func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[8:12], 99)
			return b
		},
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeGzip(t, dir, trainImages, mangle(idxImages(2, 1)))
			writeGzip(t, dir, trainLabels, idxLabels([]byte{1, 2}))
			withSearchDir(t, dir)

			_, err := load(datasets.TrainPart)
			assert.ErrorIs(t, err, datasets.ErrUnavailable)
		})
	}
}

func TestLoadNotGzip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, trainImages), []byte("not gzip"), 0644))
	withSearchDir(t, dir)

	_, err := load(datasets.TrainPart)
	assert.ErrorIs(t, err, datasets.ErrUnavailable)
}
