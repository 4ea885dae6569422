// Command indexer builds an on-disk inverted index from a directory
// of WARC-style corpus files (spec.md §6 "CLI surface").
package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"runtime"

	"github.com/klauspost/cpuid"
	"github.com/urfave/cli/v2"

	"warcidx/internal/config"
	xerrors "warcidx/internal/errors"
	"warcidx/internal/indexing"
	"warcidx/internal/logx"
	"warcidx/internal/memctl"
)

func main() {
	app := &cli.App{
		Name:  "indexer",
		Usage: "build an on-disk inverted index from a WARC corpus",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "m",
				Usage:    "memory cap in MB",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "c",
				Usage:    "corpus directory",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "i",
				Usage:    "output index path",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn, or error",
				Value: "info",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		if stderrors.Is(err, xerrors.ErrMemoryExhausted) {
			fmt.Fprintf(os.Stderr, "fatal: memory exhausted: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(2)
	}
}

func run(c *cli.Context) error {
	logx.SetLevel(logx.ParseLevel(c.String("log-level")))

	cfg := config.IndexerConfig{
		MemoryLimitMB: c.Int64("m"),
		CorpusDir:     c.String("c"),
		OutputPath:    c.String("i"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	budget, err := memctl.Resolve(cfg.MemoryLimitMB, defaultMaxWorkers())
	if err != nil {
		return err
	}

	stats, err := indexing.RunIndexer(cfg.CorpusDir, cfg.OutputPath, budget)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(stats)
}

// defaultMaxWorkers mirrors the planner's own min(6, file_count) cap so
// the memory budget's per-worker share is sized consistently before
// the corpus file count is known; it never exceeds the number of
// usable hyperthreaded cores (eutils/utils.go's nCPU/ThreadsPerCore
// reality check).
func defaultMaxWorkers() int {
	n := runtime.NumCPU()
	if cpuid.CPU.ThreadsPerCore > 1 {
		n = n / cpuid.CPU.ThreadsPerCore
	}
	if n < 1 {
		n = 1
	}
	if n > 6 {
		n = 6
	}
	return n
}
