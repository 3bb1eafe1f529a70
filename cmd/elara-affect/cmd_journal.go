package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func journalCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent mood journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			c, err := newCore(logger)
			if err != nil {
				return err
			}
			defer c.Close()

			entries, err := c.engine.RecentJournal(limit)
			if err != nil {
				return fmt.Errorf("journal: %w", err)
			}

			if asJSON {
				out, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return fmt.Errorf("journal: marshaling JSON output: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			if len(entries) == 0 {
				fmt.Println("journal is empty")
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s  v=%+.2f e=%.2f o=%.2f  %-12s",
					e.Timestamp.Format("2006-01-02 15:04"), e.Valence, e.Energy, e.Openness, e.Emotion)
				if e.Reason != "" {
					line += "  " + truncate(e.Reason, 50)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
