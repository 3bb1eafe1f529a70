package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elara-ai/affect/internal/emotion"
	"github.com/elara-ai/affect/internal/models"
)

func emotionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emotions",
		Short: "Resolve affect vectors to named emotions",
	}
	cmd.AddCommand(emotionsResolveCmd(), emotionsListCmd())
	return cmd
}

func emotionsResolveCmd() *cobra.Command {
	var (
		valence  float64
		energy   float64
		openness float64
		topN     int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a vector (default: current mood) to its nearest emotions",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			var v models.AffectVector
			if cmd.Flags().Changed("valence") || cmd.Flags().Changed("energy") || cmd.Flags().Changed("openness") {
				v = models.AffectVector{Valence: valence, Energy: energy, Openness: openness}
				if err := v.Validate(); err != nil {
					return fmt.Errorf("emotions resolve: %w", err)
				}
			} else {
				c, err := newCore(logger)
				if err != nil {
					return err
				}
				defer c.Close()
				v, err = c.engine.Mood()
				if err != nil {
					return fmt.Errorf("emotions resolve: %w", err)
				}
			}

			cls := emotion.New()
			if asJSON {
				out, err := json.MarshalIndent(cls.ResolveContext(v), "", "  ")
				if err != nil {
					return fmt.Errorf("emotions resolve: marshaling JSON output: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			for _, m := range cls.Resolve(v, topN) {
				fmt.Printf("%-14s distance %.3f  confidence %.2f\n", m.Label, m.Distance, m.Confidence)
			}
			fmt.Println()
			fmt.Println(cls.Describe(v))
			return nil
		},
	}
	cmd.Flags().Float64Var(&valence, "valence", 0, "Valence to resolve [-1,1]")
	cmd.Flags().Float64Var(&energy, "energy", 0.5, "Energy to resolve [0,1]")
	cmd.Flags().Float64Var(&openness, "openness", 0.5, "Openness to resolve [0,1]")
	cmd.Flags().IntVar(&topN, "top", 3, "Number of matches to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func emotionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all named emotions in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, label := range emotion.Labels() {
				fmt.Println(label)
			}
			return nil
		},
	}
}
