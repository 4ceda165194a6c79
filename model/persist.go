package model

import (
	"compress/lzw"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

type weightsFile struct {
	Features int       `json:"features"`
	Classes  int       `json:"classes"`
	LR       float64   `json:"lr"`
	Weights  []float64 `json:"weights"`
	Bias     []float64 `json:"bias"`
}

// WriteCompressedWeights writes the model weights as lzw-compressed JSON.
func (c *Classifier) WriteCompressedWeights(w io.Writer) error {
	lw := lzw.NewWriter(w, lzw.LSB, 8)
	wf := weightsFile{
		Features: c.features,
		Classes:  c.classes,
		LR:       c.lr,
		Weights:  c.weights.RawMatrix().Data,
		Bias:     c.bias.RawVector().Data,
	}
	if err := json.NewEncoder(lw).Encode(&wf); err != nil {
		return errors.Wrap(err, "encoding weights")
	}
	return lw.Close()
}

// WriteCompressedWeightsToFile writes the model weights to a file.
func (c *Classifier) WriteCompressedWeightsToFile(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	err = c.WriteCompressedWeights(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadCompressedWeights reads a classifier written by WriteCompressedWeights.
func ReadCompressedWeights(r io.Reader) (*Classifier, error) {
	lr := lzw.NewReader(r, lzw.LSB, 8)
	defer lr.Close()
	var wf weightsFile
	if err := json.NewDecoder(lr).Decode(&wf); err != nil {
		return nil, errors.Wrap(err, "decoding weights")
	}
	if wf.Features <= 0 || wf.Classes <= 0 {
		return nil, errors.Errorf("bad weights header: %d features, %d classes", wf.Features, wf.Classes)
	}
	if len(wf.Weights) != wf.Features*wf.Classes || len(wf.Bias) != wf.Classes {
		return nil, errors.New("weights payload does not match header")
	}
	return &Classifier{
		weights:  mat.NewDense(wf.Classes, wf.Features, wf.Weights),
		bias:     mat.NewVecDense(wf.Classes, wf.Bias),
		features: wf.Features,
		classes:  wf.Classes,
		lr:       wf.LR,
	}, nil
}

// ReadCompressedWeightsFromFile reads a classifier from a file.
func ReadCompressedWeightsFromFile(name string) (*Classifier, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCompressedWeights(f)
}
