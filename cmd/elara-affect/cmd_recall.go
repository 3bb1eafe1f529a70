package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elara-ai/affect/internal/index"
	"github.com/elara-ai/affect/internal/recall"
)

func recallCmd() *cobra.Command {
	var (
		limit  int
		mode   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Recall memories re-ranked by the current mood",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			idx, err := newIndex(logger)
			if err != nil {
				return fmt.Errorf("recall: connecting to index: %w", err)
			}
			if idx == nil {
				return fmt.Errorf("recall: semantic index is disabled; set qdrant.enabled in config")
			}
			defer func() { _ = idx.Close() }()

			var opts recall.Options
			if mode == "conversational" {
				opts.Weights = recall.ConversationalWeights()
			}

			ranker := newRanker(idx, c.engine, logger)
			results, err := ranker.Recall(cmd.Context(), index.Query{Text: args[0]}, limit, opts)
			if err != nil {
				return fmt.Errorf("recall: %w", err)
			}

			if asJSON {
				out, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return fmt.Errorf("recall: marshaling JSON output: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			if results.Degraded {
				fmt.Println("semantic index unavailable; no memories recalled")
				return nil
			}
			if len(results.Results) == 0 {
				fmt.Println("no memories recalled")
				return nil
			}
			for _, r := range results.Results {
				tag := "untagged"
				if r.Item.EmotionTag != nil {
					tag = r.Item.EmotionTag.Emotion
				}
				fmt.Printf("%.3f  [%s] %s\n", r.FinalScore, tag, truncate(r.Item.Content, 70))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of results")
	cmd.Flags().StringVar(&mode, "mode", "mood", "Ranking blend: mood or conversational")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
