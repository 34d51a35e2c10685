// Package dataset produces the train and test partitions consumed by the
// training step.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Args of the data preparation step.
type Args struct {
	Output       string  `arg:"--output,required"                help:"directory receiving the partitions"`
	Source       string  `arg:"--source,env:DATASET_SOURCE"      help:"optional CSV replacing the reference dataset"`
	TargetColumn string  `arg:"--target-column"                  default:"target"    help:"label column of --source"`
	Seed         int64   `arg:"--seed"                           default:"42"        help:"split seed"`
	TestSize     float64 `arg:"--test-size"                     default:"0.25"      help:"fraction of rows held out"`
	TrainFile    string  `arg:"--train-file"                     default:"train.csv" help:"train partition file name"`
	TestFile     string  `arg:"--test-file"                      default:"test.csv"  help:"test partition file name"`
}

// Load returns the source CSV when one is configured, the reference dataset otherwise.
// The label column always comes last and is named target.
func Load(args Args) (*Frame, error) {
	if args.Source == "" {
		return Reference(), nil
	}

	frame, err := ReadCSV(args.Source)
	if err != nil {
		return nil, err
	}

	features := lo.Without(frame.Columns, args.TargetColumn)
	if len(features) == len(frame.Columns) {
		return nil, fmt.Errorf("target column %q not found in %q", args.TargetColumn, args.Source)
	}

	rows, err := frame.Select(append(append([]string{}, features...), args.TargetColumn))
	if err != nil {
		return nil, err
	}

	return &Frame{Columns: append(append([]string{}, features...), TargetColumn), Rows: rows}, nil
}

// Prepare writes the train and test partitions under args.Output.
func Prepare(args Args, logger *logrus.Logger) error {
	if filepath.Clean(args.TrainFile) == filepath.Clean(args.TestFile) {
		return fmt.Errorf("train and test partitions share the file name %q", args.TrainFile)
	}

	frame, err := Load(args)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	train, test, err := TrainTestSplit(frame, args.TestSize, args.Seed)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(args.Output, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %q: %w", args.Output, err)
	}

	partitions := []struct {
		name  string
		frame *Frame
	}{
		{args.TrainFile, train},
		{args.TestFile, test},
	}

	for _, partition := range partitions {
		path := filepath.Join(args.Output, partition.name)
		if err := partition.frame.WriteCSV(path); err != nil {
			return fmt.Errorf("failed to write %q: %w", path, err)
		}

		logger.Infof("Wrote %d rows to %s", partition.frame.Len(), path)
	}

	return nil
}
