// Command evaluate loads saved classifier weights and reports accuracy over
// a dataset's held-out test part.
package main

import (
	"fmt"
	"os"
	"runtime"

	arg "github.com/alexflint/go-arg"
	"go.uber.org/zap"

	"github.com/epirun/epirun/datasets"
	_ "github.com/epirun/epirun/datasets/cifar"
	_ "github.com/epirun/epirun/datasets/mnist"
	"github.com/epirun/epirun/model"
	"github.com/epirun/epirun/trainer"
)

func main() {
	os.Exit(run())
}

func run() int {
	args := struct {
		DatasetName string `arg:"--dataset_name,required" help:"dataset to evaluate on: mnist or cifar"`
		Model       string `arg:"--model,required" help:"path to saved classifier weights"`
		Workers     int    `arg:"--workers" help:"evaluation workers (defaults to GOMAXPROCS)"`
	}{
		Workers: runtime.NumCPU(),
	}
	arg.MustParse(&args)

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Sync()
	log := logger.Sugar()

	if err := evaluate(log, args.DatasetName, args.Model, args.Workers); err != nil {
		log.Errorw("evaluation failed", "error", err)
		switch trainer.Classify(err) {
		case trainer.ClassConfig:
			return 2
		case trainer.ClassData:
			return 3
		default:
			return 1
		}
	}
	return 0
}

func evaluate(log *zap.SugaredLogger, dataset, modelPath string, workers int) error {
	shape, err := datasets.ShapeOf(dataset)
	if err != nil {
		return err
	}
	clf, err := model.ReadCompressedWeightsFromFile(modelPath)
	if err != nil {
		return err
	}
	if clf.Features() != shape.Size() {
		return fmt.Errorf("model expects %d features but %s has %d", clf.Features(), dataset, shape.Size())
	}
	test, err := datasets.LoadPart(dataset, datasets.TestPart)
	if err != nil {
		return err
	}
	acc, err := clf.Accuracy(test, workers)
	if err != nil {
		return err
	}
	log.Infow("test accuracy", "dataset", dataset, "model", modelPath, "accuracy", acc)
	return nil
}
