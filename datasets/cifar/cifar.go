// Package cifar loads the CIFAR-10 binary batch files and registers the
// "cifar" dataset. Import for side effects, like the mnist package.
//
// The loader expects the cifar-10-batches-bin layout: five training batches
// (data_batch_1.bin .. data_batch_5.bin) and one test batch, each a sequence
// of records of one label byte followed by 3072 channel-major pixel bytes.
package cifar

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/epirun/epirun/datasets"
)

// Image geometry of the CIFAR-10 files.
const (
	Width    = 32
	Height   = 32
	Channels = 3
)

const recordSize = 1 + Width*Height*Channels

var trainBatches = []string{
	"data_batch_1.bin",
	"data_batch_2.bin",
	"data_batch_3.bin",
	"data_batch_4.bin",
	"data_batch_5.bin",
}

var testBatches = []string{"test_batch.bin"}

// SearchDirs lists the directories probed for the batch files, in order.
var SearchDirs = []string{
	"./data/cifar-10-batches-bin",
	"/tmp/cifar-10-batches-bin",
}

func init() {
	datasets.Register("cifar", datasets.Shape{W: Width, H: Height, C: Channels}, load)
}

func load(part datasets.Part) (datasets.Dataset, error) {
	files := trainBatches
	if part == datasets.TestPart {
		files = testBatches
	}
	var inputs [][]float32
	var labels []int
	for _, name := range files {
		raw, err := readBatch(name)
		if err != nil {
			return nil, err
		}
		if len(raw)%recordSize != 0 {
			return nil, errors.Wrapf(datasets.ErrUnavailable, "%s: size %d not a multiple of record size", name, len(raw))
		}
		for off := 0; off < len(raw); off += recordSize {
			labels = append(labels, int(raw[off]))
			px := raw[off+1 : off+recordSize]
			v := make([]float32, len(px))
			for j, b := range px {
				v[j] = float32(b) / 255
			}
			inputs = append(inputs, v)
		}
	}
	return datasets.NewInMemory("cifar", inputs, labels)
}

func readBatch(name string) ([]byte, error) {
	var lastErr error
	for _, dir := range SearchDirs {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			lastErr = err
			continue
		}
		return raw, nil
	}
	return nil, errors.Wrapf(datasets.ErrUnavailable, "%s not found in %v: %v", name, SearchDirs, lastErr)
}
