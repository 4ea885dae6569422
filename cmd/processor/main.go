// Command processor answers ranked queries against an on-disk inverted
// index built by the indexer (spec.md §6 "CLI surface").
package main

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"warcidx/internal/config"
	xerrors "warcidx/internal/errors"
	"warcidx/internal/logx"
	"warcidx/internal/ranking"
	"warcidx/internal/result"
)

const maxReadChars = 1024 * 1024

func main() {
	app := &cli.App{
		Name:  "processor",
		Usage: "answer ranked queries against a warcidx inverted index",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "i", Usage: "index path", Required: true},
			&cli.StringFlag{Name: "q", Usage: "queries file path", Required: true},
			&cli.StringFlag{Name: "r", Usage: "ranker: TFIDF or BM25", Value: "TFIDF"},
			&cli.IntFlag{Name: "parallelism", Usage: "concurrent query workers", Value: config.DefaultParallelism},
			&cli.BoolFlag{Name: "benchmarking", Usage: "print only total wall-clock duration"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn, or error", Value: "info"},
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

	cfg := config.ProcessorConfig{
		IndexPath:    c.String("i"),
		QueriesPath:  c.String("q"),
		RankerType:   c.String("r"),
		Parallelism:  c.Int("parallelism"),
		Benchmarking: c.Bool("benchmarking"),
	}
	rtype, err := cfg.Validate()
	if err != nil {
		return err
	}

	start := time.Now()

	queries, err := readQueries(cfg.QueriesPath)
	if err != nil {
		return err
	}
	logx.Infof("loaded %s", logx.Count(len(queries), "query"))

	idx, err := ranking.Load(cfg.IndexPath, maxReadChars)
	if err != nil {
		return err
	}

	outputs := make([]result.QueryResult, len(queries))
	g := new(errgroup.Group)
	g.SetLimit(cfg.Parallelism)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			hits := ranking.Query(idx, rtype, q)
			rhits := make([]result.Hit, len(hits))
			for j, h := range hits {
				rhits[j] = result.Hit{URL: h.URL, Score: h.Score}
			}
			outputs[i] = result.NewQueryResult(q, rhits)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)

	if cfg.Benchmarking {
		fmt.Printf("%.6f\n", elapsed.Seconds())
		return nil
	}

	enc := result.NewEncoder(os.Stdout)
	for _, qr := range outputs {
		if err := enc.Encode(qr); err != nil {
			return err
		}
	}
	return nil
}

// readQueries loads one query per line (spec.md §6 "Queries file"):
// UTF-8, leading/trailing whitespace trimmed, blank lines ignored.
func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.NewConfigError("queries", path, err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.NewConfigError("queries", path, err)
	}
	return queries, nil
}
