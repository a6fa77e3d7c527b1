// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/poiesic/linkrank"
	"github.com/poiesic/linkrank/ai"
	"github.com/poiesic/linkrank/config"
	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/history"
	"github.com/poiesic/linkrank/keywords"
	"github.com/poiesic/linkrank/metrics"
	"github.com/poiesic/linkrank/query"
	"github.com/poiesic/linkrank/websearch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := newApp(os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the CLI. engineOpts are passed to every engine the
// commands open.
func newApp(stdout, stderr io.Writer, engineOpts ...linkrank.EngineOption) *cli.App {
	cmds := &commands{engineOpts: engineOpts}

	return &cli.App{
		Name:      "linkrank",
		Usage:     "Turn a message into a ranked set of relevant web links",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load environment variables from a .env file (repeatable)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides storage.path)",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Print Prometheus metrics to stderr when the command finishes",
			},
		},
		Before: setup,
		After:  dumpMetrics,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search the web for a message and print the ranked links",
				ArgsUsage: "<message...>",
				Action:    cmds.search,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "context",
						Usage: "Conversation context to use instead of stored history",
					},
					&cli.StringFlag{
						Name:  "node",
						Usage: "Route query generation to a configured node",
					},
					&cli.IntFlag{
						Name:  "top",
						Usage: "Number of links to print (overrides rank.top_n)",
					},
					&cli.BoolFlag{
						Name:  "direct",
						Usage: "Search for the message as typed, without query generation",
					},
				},
			},
			{
				Name:      "keywords",
				Usage:     "Extract keywords from a message",
				ArgsUsage: "<message...>",
				Action:    cmds.keywords,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "count",
						Usage: "Maximum number of keywords",
						Value: 3,
					},
					&cli.StringFlag{
						Name:  "context",
						Usage: "Conversation context to use instead of stored history",
					},
					&cli.StringFlag{
						Name:  "node",
						Usage: "Route keyword generation to a configured node",
					},
				},
			},
			{
				Name:   "remember",
				Usage:  "Append a prompt and response to the conversation history",
				Action: cmds.remember,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "prompt",
						Usage:    "User prompt",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "response",
						Usage: "Assistant response",
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Print the conversation context used for generation",
				Action: cmds.history,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "turns",
						Usage: "Number of recent turns",
						Value: history.DefaultTurns,
					},
					&cli.IntFlag{
						Name:  "chars",
						Usage: "Maximum characters per prompt and response",
						Value: history.DefaultCharsPerTurn,
					},
				},
			},
		},
	}
}

// setup loads env files and configuration, then configures logging.
func setup(c *cli.Context) error {
	if err := config.LoadEnv(c.StringSlice("env-file")...); err != nil {
		return err
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if db := c.String("db"); db != "" {
		cfg.Storage.Path = db
		cfg.Storage.InMemory = false
	}
	if cfg.Dispatch.PoolSize == 0 {
		// One worker keeps printed links in rank order.
		cfg.Dispatch.PoolSize = 1
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[configKey] = cfg

	levelStr := cfg.Logging.Level
	if c.IsSet("log-level") {
		levelStr = c.String("log-level")
	}
	return setupLogger(levelStr, c.App.ErrWriter)
}

func setupLogger(levelStr string, w io.Writer) error {
	levelStr = strings.ToLower(levelStr)

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func dumpMetrics(c *cli.Context) error {
	if !c.Bool("metrics") {
		return nil
	}

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(c.App.ErrWriter, mf); err != nil {
			return err
		}
	}
	return nil
}

type commands struct {
	engineOpts []linkrank.EngineOption
}

func loadedConfig(c *cli.Context) config.Config {
	if cfg, ok := c.App.Metadata[configKey].(config.Config); ok {
		return cfg
	}
	return config.Default()
}

func (cmds *commands) open(c *cli.Context, cfg config.Config, sink *printSink) (*linkrank.Engine, error) {
	opts := append([]linkrank.EngineOption{
		linkrank.WithNotifier(websearch.NewWriterNotifier(c.App.ErrWriter)),
	}, cmds.engineOpts...)

	engine, err := linkrank.NewEngine(cfg, sink, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func messageArg(c *cli.Context) (string, error) {
	message := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if message == "" {
		return "", fmt.Errorf("a message is required")
	}
	return message, nil
}

func (cmds *commands) search(c *cli.Context) error {
	message, err := messageArg(c)
	if err != nil {
		return err
	}

	cfg := loadedConfig(c)
	if top := c.Int("top"); top > 0 {
		cfg.Rank.TopN = top
	}

	sink := &printSink{w: c.App.Writer}
	engine, err := cmds.open(c, cfg, sink)
	if err != nil {
		return err
	}
	defer engine.Close()

	if c.Bool("direct") {
		_, err = engine.ProcessLinkInput(c.Context, message)
	} else {
		var opts []query.RequestOption
		if c.IsSet("context") {
			opts = append(opts, query.WithContext(c.String("context")))
		}
		if node := c.String("node"); node != "" {
			opts = append(opts, query.WithTarget(ai.NodeRef(node)))
		}
		_, err = engine.Search(c.Context, message, opts...)
	}
	engine.Wait()
	return err
}

func (cmds *commands) keywords(c *cli.Context) error {
	message, err := messageArg(c)
	if err != nil {
		return err
	}

	engine, err := cmds.open(c, loadedConfig(c), &printSink{w: io.Discard})
	if err != nil {
		return err
	}
	defer engine.Close()

	var opts []keywords.RequestOption
	if c.IsSet("context") {
		opts = append(opts, keywords.WithContext(c.String("context")))
	}
	if node := c.String("node"); node != "" {
		opts = append(opts, keywords.WithTarget(ai.NodeRef(node)))
	}

	for _, keyword := range engine.ExtractKeywords(c.Context, message, c.Int("count"), opts...) {
		fmt.Fprintln(c.App.Writer, keyword)
	}
	return nil
}

func (cmds *commands) remember(c *cli.Context) error {
	engine, err := cmds.open(c, loadedConfig(c), &printSink{w: io.Discard})
	if err != nil {
		return err
	}
	defer engine.Close()

	turn, err := engine.Remember(c.Context, c.String("prompt"), c.String("response"))
	if err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "recorded turn %d\n", turn.Id)
	return nil
}

func (cmds *commands) history(c *cli.Context) error {
	engine, err := cmds.open(c, loadedConfig(c), &printSink{w: io.Discard})
	if err != nil {
		return err
	}
	defer engine.Close()

	snapshot, err := engine.Snapshot(c.Context, c.Int("turns"), c.Int("chars"))
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	fmt.Fprintln(c.App.Writer, strings.TrimSpace(snapshot))
	return nil
}

// printSink writes each placement as a short text block.
type printSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *printSink) Place(ctx context.Context, p core.Placement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "%s\n  %s\n", p.Label, p.Link); err != nil {
		return err
	}
	if p.Description != "" {
		if _, err := fmt.Fprintf(s.w, "  %s\n", p.Description); err != nil {
			return err
		}
	}
	return nil
}
