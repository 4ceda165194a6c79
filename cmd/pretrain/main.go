// Command pretrain trains the softmax classifier for a named dataset and
// saves its weights. The resulting file feeds cmd/train's --classifier_model.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	arg "github.com/alexflint/go-arg"
	"go.uber.org/zap"

	"github.com/epirun/epirun/datasets"
	_ "github.com/epirun/epirun/datasets/cifar"
	_ "github.com/epirun/epirun/datasets/mnist"
	"github.com/epirun/epirun/model"
	"github.com/epirun/epirun/report"
	"github.com/epirun/epirun/trainer"
)

const numClasses = 10

func main() {
	os.Exit(run())
}

func run() int {
	args := struct {
		DatasetName  string  `arg:"--dataset_name,required" help:"dataset to use: mnist or cifar"`
		NumEpisodes  int     `arg:"--num_episodes" default:"10" help:"training episodes"`
		TrainLimit   int     `arg:"--train_limit" default:"1000" help:"per-episode sample cap"`
		LearningRate float64 `arg:"--learning_rate" default:"0.01" help:"SGD learning rate"`
		Shuffle      bool    `arg:"--shuffle" help:"use per-episode shuffled batches"`
		Seed         int64   `arg:"--seed" default:"42" help:"random seed"`
		SavePath     string  `arg:"--save_path" default:"classifier" help:"prefix for the saved weights file"`
		Workers      int     `arg:"--workers" help:"evaluation workers (defaults to GOMAXPROCS)"`
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shape, err := datasets.ShapeOf(args.DatasetName)
	if err == nil {
		clf := model.New(shape.Size(), numClasses, args.LearningRate, args.Seed)
		cfg := trainer.Config{
			DatasetName: args.DatasetName,
			NumEpisodes: args.NumEpisodes,
			TrainLimit:  args.TrainLimit,
			Shuffle:     args.Shuffle,
			Seed:        args.Seed,
		}
		exec := trainer.NewSGDExecutor(clf)
		_, err = trainer.New(cfg, exec, report.NewLogger(logger)).Run(ctx)
		if err == nil {
			err = evaluateAndSave(log, args.DatasetName, args.SavePath, args.Workers, clf)
		}
	}
	if err != nil {
		log.Errorw("pretraining failed", "error", err)
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

func evaluateAndSave(log *zap.SugaredLogger, dataset, savePath string, workers int, clf *model.Classifier) error {
	test, err := datasets.LoadPart(dataset, datasets.TestPart)
	if err != nil {
		return err
	}
	acc, err := clf.Accuracy(test, workers)
	if err != nil {
		return err
	}
	log.Infow("test accuracy", "dataset", dataset, "accuracy", acc)

	path := fmt.Sprintf("%s_%s.bin", savePath, dataset)
	if err := clf.WriteCompressedWeightsToFile(path); err != nil {
		return err
	}
	log.Infow("saved classifier", "path", path)
	return nil
}
