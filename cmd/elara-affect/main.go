package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/elara-ai/affect/internal/config"
	"github.com/elara-ai/affect/internal/embedder"
	"github.com/elara-ai/affect/internal/events"
	"github.com/elara-ai/affect/internal/index"
	"github.com/elara-ai/affect/internal/journal"
	"github.com/elara-ai/affect/internal/mood"
	"github.com/elara-ai/affect/internal/recall"
	"github.com/elara-ai/affect/internal/state"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "elara-affect",
		Short: "Elara affect daemon — mood, temperament, and emotional memory",
		Long:  "The affective core of a long-lived assistant: a decaying mood vector, a slowly drifting temperament, emotional imprints, and mood-congruent memory recall.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		moodCmd(),
		imprintCmd(),
		emotionsCmd(),
		recallCmd(),
		temperamentCmd(),
		journalCmd(),
		serveCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// core bundles the engine and its satellites plus the journal handle
// that must be closed when the command finishes.
type core struct {
	engine      *mood.Engine
	ledger      *mood.Ledger
	temperament *mood.Controller
	journal     journal.Store
}

func (c *core) Close() {
	if err := c.journal.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "closing journal:", err)
	}
}

func newCore(logger *slog.Logger) (*core, error) {
	jrnl, err := journal.Open(cfg.State.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	st := state.NewFileStore(cfg.State.FilePath)
	eng, err := mood.NewEngine(st, jrnl, events.NewBus(logger), logger, cfg.EngineOptions())
	if err != nil {
		_ = jrnl.Close()
		return nil, err
	}

	return &core{
		engine:      eng,
		ledger:      mood.NewLedger(eng),
		temperament: mood.NewController(eng),
		journal:     jrnl,
	}, nil
}

// newIndex connects to Qdrant when enabled; otherwise recall runs
// against nothing and degrades.
func newIndex(logger *slog.Logger) (index.Index, error) {
	if !cfg.Qdrant.Enabled {
		return nil, nil
	}
	idx, err := index.NewQdrantIndex(
		cfg.Qdrant.Host,
		cfg.Qdrant.GRPCPort,
		cfg.Qdrant.Collection,
		cfg.Qdrant.UseTLS,
		logger,
	)
	if err != nil {
		return nil, err
	}
	return index.NewBreaker(idx, logger), nil
}

// newEmbedder builds the query embedder the Qdrant index needs. The
// provider "none" is for indexes that resolve text queries themselves.
func newEmbedder(logger *slog.Logger) embedder.Embedder {
	switch cfg.Embedder.Provider {
	case "openai":
		return embedder.NewOpenAIEmbedder(
			cfg.Embedder.APIKey,
			cfg.Embedder.Model,
			cfg.Embedder.Dimension,
			logger,
		)
	case "none":
		return nil
	default:
		return embedder.NewOllamaEmbedder(
			cfg.Embedder.BaseURL,
			cfg.Embedder.Model,
			cfg.Embedder.Dimension,
			logger,
		)
	}
}

func newRanker(idx index.Index, eng *mood.Engine, logger *slog.Logger) *recall.Ranker {
	if idx == nil {
		return nil
	}
	return recall.NewRanker(idx, newEmbedder(logger), eng, logger)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
