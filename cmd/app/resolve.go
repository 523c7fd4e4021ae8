package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/starford/nestmaid/internal"
	"github.com/starford/nestmaid/internal/document"
	"github.com/starford/nestmaid/internal/nested"
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a document file and print the result as JSON",
		ArgsUsage: "<file|->",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "max-depth", Usage: "Hard nesting cap", Value: nested.DefaultMaxDepth},
			&cli.IntFlag{Name: "warn-depth", Usage: "Depth at which nesting warnings start", Value: nested.DefaultWarnDepth},
			&cli.BoolFlag{Name: "strict", Usage: "Fail on repeated definition ids"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log resolution passes"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := log.InfoLevel
			if cmd.Bool("verbose") {
				level = log.DebugLevel
			}
			logger := slog.New(newLogger(os.Stderr, level))

			name := cmd.Args().First()
			if name == "" {
				return fmt.Errorf("resolve: file argument is required")
			}
			var in io.Reader = os.Stdin
			if name != "-" {
				f, err := os.Open(name)
				if err != nil {
					return fmt.Errorf("resolve: %w", err)
				}
				defer f.Close()
				in = f
			}

			opts, err := resolverOptions(int(cmd.Int("max-depth")), int(cmd.Int("warn-depth")), cmd.Bool("strict"))
			if err != nil {
				return err
			}
			return resolveTo(in, os.Stdout, logger, append(opts, nested.WithLogger(logger))...)
		},
	}
}

// resolverOptions checks the depth flags with the same rules as the server
// config and converts them to engine options.
func resolverOptions(maxDepth, warnDepth int, strict bool) ([]nested.Option, error) {
	cfg := internal.ResolverConfig{
		MaxDepth:          maxDepth,
		WarnDepth:         warnDepth,
		StrictDefinitions: strict,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg.Options(), nil
}

// resolveTo resolves the document read from r and writes the result as
// indented JSON to w. A failed resolution is still written, then returned
// as an error so the process exits non-zero.
func resolveTo(r io.Reader, w io.Writer, logger *slog.Logger, opts ...nested.Option) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("resolve: read: %w", err)
	}
	doc, err := document.Parse(data)
	if err != nil {
		return fmt.Errorf("resolve: parse: %w", err)
	}

	start := time.Now()
	res := nested.New(opts...).Resolve(doc.Source)
	for _, warn := range res.Warnings {
		logger.Warn("deep nesting",
			slog.String("diagram_id", warn.DiagramID),
			slog.Int("depth", warn.CurrentDepth),
			slog.Int("max_depth", warn.MaxDepth))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("resolve: encode: %w", err)
	}

	if !res.Success {
		return fmt.Errorf("resolve: %w", res.Error)
	}
	logger.Info("resolved",
		slog.String("root_type", string(res.Tree.Type)),
		slog.Int("definitions", len(res.DependencyReport)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
