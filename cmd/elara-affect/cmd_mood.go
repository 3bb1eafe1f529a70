package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elara-ai/affect/internal/emotion"
	"github.com/elara-ai/affect/internal/mood"
)

func moodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mood",
		Short: "Read or change the current mood",
	}
	cmd.AddCommand(moodShowCmd(), moodAdjustCmd(), moodSetCmd())
	return cmd
}

func moodShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current mood with elapsed-time decay applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			v, err := c.engine.Mood()
			if err != nil {
				return fmt.Errorf("mood show: %w", err)
			}

			cls := emotion.New()
			if asJSON {
				out, err := json.MarshalIndent(map[string]any{
					"valence":  v.Valence,
					"energy":   v.Energy,
					"openness": v.Openness,
					"emotion":  cls.Primary(v).Label,
					"blend":    cls.Blend(v),
					"quadrant": emotion.Quadrant(v),
				}, "", "  ")
				if err != nil {
					return fmt.Errorf("mood show: marshaling JSON output: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("valence  %+.3f\n", v.Valence)
			fmt.Printf("energy    %.3f\n", v.Energy)
			fmt.Printf("openness  %.3f\n", v.Openness)
			fmt.Println()
			fmt.Println(cls.Describe(v))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func moodAdjustCmd() *cobra.Command {
	var (
		valence  float64
		energy   float64
		openness float64
		reason   string
	)

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Nudge the mood by per-dimension deltas",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			v, err := c.engine.Adjust(mood.Deltas{
				Valence:  valence,
				Energy:   energy,
				Openness: openness,
			}, reason)
			if err != nil {
				return fmt.Errorf("mood adjust: %w", err)
			}

			cls := emotion.New()
			fmt.Printf("mood is now v=%+.3f e=%.3f o=%.3f (%s)\n",
				v.Valence, v.Energy, v.Openness, cls.Blend(v))
			return nil
		},
	}
	cmd.Flags().Float64Var(&valence, "valence", 0, "Delta to valence")
	cmd.Flags().Float64Var(&energy, "energy", 0, "Delta to energy")
	cmd.Flags().Float64Var(&openness, "openness", 0, "Delta to openness")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the mood is shifting")
	return cmd
}

func moodSetCmd() *cobra.Command {
	var (
		valence  float64
		energy   float64
		openness float64
		reason   string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Overwrite mood dimensions with absolute values",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			// Only pass dimensions the user actually supplied.
			var vp, ep, op *float64
			if cmd.Flags().Changed("valence") {
				vp = &valence
			}
			if cmd.Flags().Changed("energy") {
				ep = &energy
			}
			if cmd.Flags().Changed("openness") {
				op = &openness
			}
			if vp == nil && ep == nil && op == nil {
				return fmt.Errorf("mood set: at least one of --valence, --energy, --openness is required")
			}

			v, err := c.engine.Set(vp, ep, op, reason)
			if err != nil {
				return fmt.Errorf("mood set: %w", err)
			}

			cls := emotion.New()
			fmt.Printf("mood is now v=%+.3f e=%.3f o=%.3f (%s)\n",
				v.Valence, v.Energy, v.Openness, cls.Blend(v))
			return nil
		},
	}
	cmd.Flags().Float64Var(&valence, "valence", 0, "Absolute valence [-1,1]")
	cmd.Flags().Float64Var(&energy, "energy", 0, "Absolute energy [0,1]")
	cmd.Flags().Float64Var(&openness, "openness", 0, "Absolute openness [0,1]")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the mood is being set")
	return cmd
}
