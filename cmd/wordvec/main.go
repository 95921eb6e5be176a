// Package main provides the wordvec CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/pkg/errors"

	"github.com/born-ml/wordvec/internal/serialization"
	"github.com/born-ml/wordvec/internal/train"
)

const version = "v0.3.0"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "wordvec: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}
	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "wordvec %s (format v%d)\n", version, serialization.FormatVersion)
		return nil
	case "train":
		return trainCmd(args[1:], stdout)
	case "inspect":
		return inspectCmd(args[1:], stdout)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	}
	usage(stdout)
	return errors.Errorf("unknown command %q", args[0])
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "wordvec - sparse word embedding training")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  train      Train embeddings from a YAML config")
	fmt.Fprintln(w, "  inspect    Show a checkpoint and query nearest words")
	fmt.Fprintln(w, "  version    Show version")
}

func trainCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stdout)
	configPath := fs.String("config", "", "YAML config file")
	corpusPath := fs.String("corpus", "", "corpus file (overrides config)")
	out := fs.String("out", "", "checkpoint path (overrides config)")
	resume := fs.String("resume", "", "resume from this checkpoint")
	steps := fs.Int64("steps", 0, "total steps (overrides config)")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := train.DefaultConfig()
	var ck *train.Checkpoint
	var err error
	switch {
	case *resume != "":
		if ck, err = train.LoadCheckpoint(*resume); err != nil {
			return err
		}
		cfg = ck.Config
	case *configPath != "":
		if cfg, err = train.LoadConfig(*configPath); err != nil {
			return err
		}
	}
	if *corpusPath != "" {
		cfg.Corpus = *corpusPath
	}
	if *out != "" {
		cfg.CheckpointPath = *out
	}
	if *steps > 0 {
		cfg.Steps = *steps
	}
	if cfg.Corpus == "" {
		return errors.New("no corpus: set it in the config or pass -corpus")
	}

	docs, err := train.ReadCorpus(cfg)
	if err != nil {
		return err
	}

	var trainer *train.Trainer
	if ck != nil {
		ck.Config = cfg
		trainer, err = train.NewFromCheckpoint(ck, docs, logger)
	} else {
		trainer, err = train.New(cfg, docs, logger)
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := trainer.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "trained %d steps, run %s\n", trainer.Step(), trainer.RunID())
	return nil
}

func inspectCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stdout)
	word := fs.String("word", "", "print the nearest words to this word")
	k := fs.Int("k", 10, "number of neighbours")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: wordvec inspect [-word w] [-k n] <checkpoint>")
	}

	ck, err := train.LoadCheckpoint(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "run:    %s\n", ck.RunID)
	fmt.Fprintf(stdout, "step:   %d (loss %.4f)\n", ck.Step, ck.Loss)
	fmt.Fprintf(stdout, "words:  %d\n", len(ck.Words))
	fmt.Fprintf(stdout, "docs:   %d\n", ck.DocCount)
	fmt.Fprintf(stdout, "output: %s (context modifier: %t)\n", ck.Config.Output, ck.Config.UseContext)

	names := make([]string, 0, len(ck.State))
	for name := range ck.State {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		r, c := ck.State[name].Dims()
		fmt.Fprintf(stdout, "  %-20s %dx%d\n", name, r, c)
	}

	if *word == "" {
		return nil
	}
	neighbors, err := train.Nearest(ck.State["words.W"], ck.Words, *word, *k)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "nearest to %q:\n", *word)
	for _, n := range neighbors {
		fmt.Fprintf(stdout, "  %-20s %.4f\n", n.Word, n.Similarity)
	}
	return nil
}
