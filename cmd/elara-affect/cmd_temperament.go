package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elara-ai/affect/internal/introspect"
	"github.com/elara-ai/affect/internal/models"
)

func temperamentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "temperament",
		Short: "Inspect and steer the temperament baseline",
	}
	cmd.AddCommand(
		temperamentStatusCmd(),
		temperamentDriftCmd(),
		temperamentDecayCmd(),
		temperamentResetCmd(),
		temperamentIntrospectCmd(),
	)
	return cmd
}

func temperamentIntrospectCmd() *cobra.Command {
	var (
		window int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Review the mood journal with Claude and apply proposed baseline drift",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			in := introspect.New(cfg.Claude.APIKey, cfg.Claude.Model, logger)
			if !in.Enabled() {
				return fmt.Errorf("temperament introspect: no API key configured (set ANTHROPIC_API_KEY)")
			}

			entries, err := c.engine.RecentJournal(window)
			if err != nil {
				return fmt.Errorf("temperament introspect: reading journal: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("journal is empty; nothing to introspect")
				return nil
			}

			proposal, err := in.ProposeAdjustments(cmd.Context(), entries)
			if err != nil {
				return fmt.Errorf("temperament introspect: %w", err)
			}
			if proposal == nil {
				fmt.Println("no adjustment proposed")
				return nil
			}

			fmt.Printf("proposed: %v\nreason: %s\n", proposal.Adjustments, proposal.Reason)
			if dryRun {
				return nil
			}

			applied, err := c.temperament.ApplyDrift(proposal.Adjustments, "introspection")
			if err != nil {
				return fmt.Errorf("temperament introspect: applying drift: %w", err)
			}
			if len(applied.Applied) == 0 {
				fmt.Println("no drift applied (weekly cap exhausted)")
				return nil
			}
			for dim, delta := range applied.Applied {
				fmt.Printf("%s %+0.4f -> %.3f\n", dim, delta, applied.Baseline.Get(dim))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&window, "window", 50, "Journal entries to review")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the proposal without applying it")
	return cmd
}

func temperamentStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the baseline, its drift from factory, and the weekly budget used",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			status, err := c.temperament.Status()
			if err != nil {
				return fmt.Errorf("temperament status: %w", err)
			}

			if asJSON {
				out, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return fmt.Errorf("temperament status: marshaling JSON output: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("%-10s %8s %8s %8s\n", "", "current", "factory", "drift")
			for _, dim := range models.Dimensions {
				fmt.Printf("%-10s %8.3f %8.3f %+8.3f\n",
					dim,
					status.Current.Get(dim),
					status.Factory.Get(dim),
					status.Current.Get(dim)-status.Factory.Get(dim),
				)
			}
			fmt.Printf("\nweekly cap %.3f per dimension; used:", status.WeeklyCap)
			for _, dim := range models.Dimensions {
				fmt.Printf(" %s %+0.3f", dim, status.WeeklyUsed[dim])
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func temperamentDriftCmd() *cobra.Command {
	var (
		valence  float64
		energy   float64
		openness float64
		source   string
	)

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Apply per-dimension baseline drift (capped per rolling week)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			adjustments := make(map[models.Dimension]float64)
			if cmd.Flags().Changed("valence") {
				adjustments[models.DimValence] = valence
			}
			if cmd.Flags().Changed("energy") {
				adjustments[models.DimEnergy] = energy
			}
			if cmd.Flags().Changed("openness") {
				adjustments[models.DimOpenness] = openness
			}
			if len(adjustments) == 0 {
				return fmt.Errorf("temperament drift: at least one of --valence, --energy, --openness is required")
			}

			applied, err := c.temperament.ApplyDrift(adjustments, source)
			if err != nil {
				return fmt.Errorf("temperament drift: %w", err)
			}

			if len(applied.Applied) == 0 {
				fmt.Println("no drift applied (weekly cap exhausted or deltas too small)")
				return nil
			}
			for dim, delta := range applied.Applied {
				fmt.Printf("%s %+0.4f -> %.3f\n", dim, delta, applied.Baseline.Get(dim))
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&valence, "valence", 0, "Baseline valence delta")
	cmd.Flags().Float64Var(&energy, "energy", 0, "Baseline energy delta")
	cmd.Flags().Float64Var(&openness, "openness", 0, "Baseline openness delta")
	cmd.Flags().StringVar(&source, "source", "manual", "What caused the drift")
	return cmd
}

func temperamentDecayCmd() *cobra.Command {
	var rate float64

	cmd := &cobra.Command{
		Use:   "decay",
		Short: "Pull the baseline a fraction of the way back toward factory settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			baseline, err := c.temperament.DecayTowardFactory(rate)
			if err != nil {
				return fmt.Errorf("temperament decay: %w", err)
			}
			fmt.Printf("baseline is now v=%+.3f e=%.3f o=%.3f\n",
				baseline.Valence, baseline.Energy, baseline.Openness)
			return nil
		},
	}
	cmd.Flags().Float64Var(&rate, "rate", 0, "Fraction of drift to remove (0 uses configured default)")
	return cmd
}

func temperamentResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the factory baseline immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			baseline, err := c.temperament.Reset()
			if err != nil {
				return fmt.Errorf("temperament reset: %w", err)
			}
			fmt.Printf("baseline reset to v=%+.3f e=%.3f o=%.3f\n",
				baseline.Valence, baseline.Energy, baseline.Openness)
			return nil
		},
	}
}
