// Package mnist loads the MNIST handwritten digit files and registers the
// "mnist" dataset. Import for side effects:
//
//	import _ "github.com/epirun/epirun/datasets/mnist"
//
// The loader looks for the standard gzipped IDX files
// (train-images-idx3-ubyte.gz and friends) in SearchDirs.
package mnist

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/epirun/epirun/datasets"
)

// Image geometry of the MNIST files.
const (
	Width  = 28
	Height = 28
)

const (
	trainImages = "train-images-idx3-ubyte.gz"
	trainLabels = "train-labels-idx1-ubyte.gz"
	testImages  = "t10k-images-idx3-ubyte.gz"
	testLabels  = "t10k-labels-idx1-ubyte.gz"

	imagesMagic = 0x803
	labelsMagic = 0x801
)

// SearchDirs lists the directories probed for the dataset files, in order.
var SearchDirs = []string{
	"./data/mnist",
	"/tmp/mnist",
	userCacheDir(),
}

func userCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "/tmp/mnist"
	}
	return filepath.Join(dir, "epirun", "mnist")
}

func init() {
	datasets.Register("mnist", datasets.Shape{W: Width, H: Height, C: 1}, load)
}

func load(part datasets.Part) (datasets.Dataset, error) {
	imgFile, lblFile := trainImages, trainLabels
	if part == datasets.TestPart {
		imgFile, lblFile = testImages, testLabels
	}
	raw, err := readGzip(imgFile)
	if err != nil {
		return nil, err
	}
	inputs, err := parseImages(raw)
	if err != nil {
		return nil, errors.Wrap(err, imgFile)
	}
	raw, err = readGzip(lblFile)
	if err != nil {
		return nil, err
	}
	labels, err := parseLabels(raw)
	if err != nil {
		return nil, errors.Wrap(err, lblFile)
	}
	return datasets.NewInMemory("mnist", inputs, labels)
}

// readGzip locates name in SearchDirs and returns its uncompressed bytes.
func readGzip(name string) ([]byte, error) {
	var lastErr error
	for _, dir := range SearchDirs {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			lastErr = err
			continue
		}
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(datasets.ErrUnavailable, "gzip %s: %v", path, err)
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(zr)
		zr.Close()
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(datasets.ErrUnavailable, "reading %s: %v", path, err)
		}
		return buf.Bytes(), nil
	}
	return nil, errors.Wrapf(datasets.ErrUnavailable, "%s not found in %v: %v", name, SearchDirs, lastErr)
}

// parseImages decodes an IDX3 image file into normalized flat vectors.
func parseImages(raw []byte) ([][]float32, error) {
	if len(raw) < 16 {
		return nil, errors.Wrap(datasets.ErrUnavailable, "truncated image header")
	}
	magic := binary.BigEndian.Uint32(raw[0:4])
	if magic != imagesMagic {
		return nil, errors.Wrapf(datasets.ErrUnavailable, "bad image magic %#x", magic)
	}
	count := int(binary.BigEndian.Uint32(raw[4:8]))
	rows := int(binary.BigEndian.Uint32(raw[8:12]))
	cols := int(binary.BigEndian.Uint32(raw[12:16]))
	if rows != Height || cols != Width {
		return nil, errors.Wrapf(datasets.ErrUnavailable, "unexpected image size %dx%d", cols, rows)
	}
	raw = raw[16:]
	if len(raw) < count*rows*cols {
		return nil, errors.Wrap(datasets.ErrUnavailable, "truncated image data")
	}
	inputs := make([][]float32, count)
	for i := range inputs {
		px := raw[i*rows*cols : (i+1)*rows*cols]
		v := make([]float32, rows*cols)
		for j, b := range px {
			v[j] = float32(b) / 255
		}
		inputs[i] = v
	}
	return inputs, nil
}

// parseLabels decodes an IDX1 label file.
func parseLabels(raw []byte) ([]int, error) {
	if len(raw) < 8 {
		return nil, errors.Wrap(datasets.ErrUnavailable, "truncated label header")
	}
	magic := binary.BigEndian.Uint32(raw[0:4])
	if magic != labelsMagic {
		return nil, errors.Wrapf(datasets.ErrUnavailable, "bad label magic %#x", magic)
	}
	count := int(binary.BigEndian.Uint32(raw[4:8]))
	raw = raw[8:]
	if len(raw) < count {
		return nil, errors.Wrap(datasets.ErrUnavailable, "truncated label data")
	}
	labels := make([]int, count)
	for i := range labels {
		labels[i] = int(raw[i])
	}
	return labels, nil
}
