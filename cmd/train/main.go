// Command train teaches a perturbation policy to attack a classifier over a
// labeled image dataset, one bounded episode at a time.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	arg "github.com/alexflint/go-arg"
	"go.uber.org/zap"

	"github.com/epirun/epirun/datasets"
	_ "github.com/epirun/epirun/datasets/cifar"
	_ "github.com/epirun/epirun/datasets/mnist"
	"github.com/epirun/epirun/env"
	"github.com/epirun/epirun/model"
	"github.com/epirun/epirun/report"
	"github.com/epirun/epirun/reward"
	"github.com/epirun/epirun/trainer"
)

const numClasses = 10

type cliArgs struct {
	DatasetName      string  `arg:"--dataset_name,required" help:"dataset to use: mnist or cifar"`
	NumEpisodes      int     `arg:"--num_episodes,required" help:"number of episodes to run"`
	TrainLimit       int     `arg:"--train_limit,required" help:"per-episode sample cap"`
	EnvType          string  `arg:"--env_type" default:"block_based" help:"single_pixel or block_based"`
	RewardFunc       string  `arg:"--reward_func" default:"sparse_drop" help:"reward function name"`
	AttackBudget     int     `arg:"--attack_budget" default:"20" help:"perturbation steps per image"`
	Lambda           float64 `arg:"--lambda" default:"1.0" help:"sparsity penalty strength"`
	BlockSide        int     `arg:"--block_side" default:"4" help:"block side for the block_based environment"`
	LearningRate     float64 `arg:"--learning_rate" default:"0.1" help:"policy learning rate"`
	Shuffle          bool    `arg:"--shuffle" help:"use per-episode shuffled batches instead of sequential wrap-around"`
	Seed             int64   `arg:"--seed" default:"42" help:"base random seed"`
	ValSplit         float64 `arg:"--val_split" default:"0.2" help:"holdout fraction for policy validation"`
	NumRuns          int     `arg:"--num_runs" default:"3" help:"independent training runs; the best policy is kept"`
	ClassifierModel  string  `arg:"--classifier_model" help:"path to pretrained classifier weights; trained in-process when empty"`
	PretrainEpisodes int     `arg:"--pretrain_episodes" default:"3" help:"classifier warm-up episodes when no model is given"`
	ModelSavePath    string  `arg:"--model_save_path" default:"policy" help:"prefix for the saved policy file"`
	ProgressCSV      string  `arg:"--progress_csv" help:"prefix for per-run progress CSV files"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var args cliArgs
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

	if err := train(ctx, logger, args); err != nil {
		log.Errorw("training failed", "error", err)
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

func train(ctx context.Context, logger *zap.Logger, args cliArgs) error {
	log := logger.Sugar()

	shape, err := datasets.ShapeOf(args.DatasetName)
	if err != nil {
		return err
	}
	score, err := reward.Lookup(args.RewardFunc)
	if err != nil {
		return &trainer.ConfigError{Field: "--reward_func", Reason: err.Error()}
	}
	if args.NumRuns < 1 {
		return &trainer.ConfigError{Field: "--num_runs", Reason: "must be positive"}
	}

	full, err := datasets.Load(args.DatasetName)
	if err != nil {
		return err
	}
	trainSet, holdout, err := datasets.Partition(full, args.ValSplit, args.Seed)
	if err != nil {
		return &trainer.ConfigError{Field: "--val_split", Reason: err.Error()}
	}
	log.Infow("dataset loaded",
		"dataset", args.DatasetName,
		"train_samples", trainSet.Len(),
		"holdout_samples", holdout.Len(),
	)

	clf, err := loadOrPretrain(ctx, logger, args, trainSet, shape)
	if err != nil {
		return err
	}

	valBatch, err := collect(holdout)
	if err != nil {
		return err
	}

	var best *trainer.AttackExecutor
	var bestScore float64
	var bestRun int
	for runIdx := 0; runIdx < args.NumRuns; runIdx++ {
		seed := args.Seed + int64(runIdx)
		log.Infow("starting run", "run", runIdx+1, "of", args.NumRuns, "seed", seed)

		e, err := buildEnv(args, clf, score, shape)
		if err != nil {
			return err
		}
		exec := trainer.NewAttackExecutor(e, args.LearningRate, seed)

		rep, closeRep, err := buildReporter(logger, args, runIdx)
		if err != nil {
			return err
		}
		cfg := trainer.Config{
			DatasetName: args.DatasetName,
			NumEpisodes: args.NumEpisodes,
			TrainLimit:  args.TrainLimit,
			Shuffle:     args.Shuffle,
			Seed:        seed,
		}
		res, err := trainer.NewWithDataset(cfg, trainSet, exec, rep).Run(ctx)
		closeRep()
		if err != nil {
			return err
		}

		runScore := res.Aggregate.MeanReward
		if len(valBatch) > 0 {
			runScore, err = exec.Evaluate(valBatch)
			if err != nil {
				return err
			}
			log.Infow("validation", "run", runIdx+1, "mean_reward", runScore)
		}
		if best == nil || runScore > bestScore {
			best, bestScore, bestRun = exec, runScore, runIdx+1
		}
	}

	path := fmt.Sprintf("%s_%s_episodes-%d_trainlim-%d.bin",
		args.ModelSavePath, args.DatasetName, args.NumEpisodes, args.TrainLimit)
	if err := best.WriteCompressedPolicyToFile(path); err != nil {
		return err
	}
	log.Infow("saved best policy", "run", bestRun, "mean_reward", bestScore, "path", path)
	return nil
}

// loadOrPretrain reads the frozen classifier from disk, or trains one
// in-process through the same episodic engine when no path was given.
func loadOrPretrain(ctx context.Context, logger *zap.Logger, args cliArgs, ds datasets.Dataset, shape datasets.Shape) (*model.Classifier, error) {
	if args.ClassifierModel != "" {
		return model.ReadCompressedWeightsFromFile(args.ClassifierModel)
	}
	logger.Sugar().Infow("no classifier model given, pretraining in-process",
		"episodes", args.PretrainEpisodes)
	clf := model.New(shape.Size(), numClasses, 0.01, args.Seed)
	cfg := trainer.Config{
		DatasetName: args.DatasetName,
		NumEpisodes: args.PretrainEpisodes,
		TrainLimit:  args.TrainLimit,
		Shuffle:     args.Shuffle,
		Seed:        args.Seed,
	}
	exec := trainer.NewSGDExecutor(clf)
	if _, err := trainer.NewWithDataset(cfg, ds, exec, report.NewLogger(logger)).Run(ctx); err != nil {
		return nil, err
	}
	return clf, nil
}

func buildEnv(args cliArgs, clf *model.Classifier, score reward.Func, shape datasets.Shape) (env.Environment, error) {
	switch args.EnvType {
	case "single_pixel":
		return env.NewSinglePixel(clf, score, shape, args.AttackBudget, args.Lambda)
	case "block_based":
		return env.NewBlock(clf, score, shape, args.AttackBudget, args.Lambda, args.BlockSide)
	default:
		return nil, &trainer.ConfigError{Field: "--env_type", Reason: "must be single_pixel or block_based"}
	}
}

func buildReporter(logger *zap.Logger, args cliArgs, runIdx int) (trainer.Reporter, func(), error) {
	logRep := report.NewLogger(logger)
	if args.ProgressCSV == "" {
		return logRep, func() {}, nil
	}
	csvRep, err := report.NewCSV(fmt.Sprintf("%s_run%d.csv", args.ProgressCSV, runIdx+1))
	if err != nil {
		return nil, nil, err
	}
	return report.Multi{logRep, csvRep}, func() { csvRep.Close() }, nil
}

func collect(ds datasets.Dataset) ([]datasets.Sample, error) {
	batch := make([]datasets.Sample, ds.Len())
	for i := range batch {
		s, err := ds.At(i)
		if err != nil {
			return nil, err
		}
		batch[i] = s
	}
	return batch, nil
}
