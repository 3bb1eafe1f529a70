package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func imprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imprint",
		Short: "Manage emotional imprints",
	}
	cmd.AddCommand(imprintCreateCmd(), imprintListCmd(), imprintArchivedCmd())
	return cmd
}

func imprintCreateCmd() *cobra.Command {
	var (
		strength    float64
		imprintType string
	)

	cmd := &cobra.Command{
		Use:   "create [feeling]",
		Short: "Record a new emotional imprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			imp, err := c.ledger.Create(args[0], strength, imprintType)
			if err != nil {
				return fmt.Errorf("imprint create: %w", err)
			}
			fmt.Printf("imprint %s created (strength %.2f, type %s)\n", imp.ID, imp.Strength, imp.Type)
			return nil
		},
	}
	cmd.Flags().Float64Var(&strength, "strength", 0.5, "Initial strength in (0,1]")
	cmd.Flags().StringVar(&imprintType, "type", "", "Imprint kind (default: moment)")
	return cmd
}

func imprintListCmd() *cobra.Command {
	var (
		minStrength float64
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active imprints with decayed strengths",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			imprints, err := c.ledger.Active(minStrength)
			if err != nil {
				return fmt.Errorf("imprint list: %w", err)
			}

			if asJSON {
				out, err := json.MarshalIndent(imprints, "", "  ")
				if err != nil {
					return fmt.Errorf("imprint list: marshaling JSON output: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			if len(imprints) == 0 {
				fmt.Println("no active imprints")
				return nil
			}
			for _, imp := range imprints {
				fmt.Printf("%.2f  %-10s %s  (%s)\n", imp.Strength, imp.Type, truncate(imp.Feeling, 60), imp.ID)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&minStrength, "min-strength", 0, "Only show imprints at or above this strength")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func imprintArchivedCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "archived",
		Short: "Show recently archived imprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			archived, err := c.ledger.Archived(limit)
			if err != nil {
				return fmt.Errorf("imprint archived: %w", err)
			}
			if len(archived) == 0 {
				fmt.Println("no archived imprints")
				return nil
			}
			for _, a := range archived {
				fmt.Printf("%s  %-10s %s\n", a.ArchivedAt.Format("2006-01-02"), a.Type, truncate(a.Feeling, 60))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")
	return cmd
}
