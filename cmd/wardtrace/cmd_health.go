package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the store, the stored facility and the Claude configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			allOK := true

			st, err := newStore(ctx, logger)
			if err != nil {
				fmt.Printf("Store (%s): FAIL (%v)\n", cfg.Store.Backend, err)
				allOK = false
			} else {
				defer func() { _ = st.Close() }()
				if err := st.Ping(ctx); err != nil {
					fmt.Printf("Store (%s): FAIL (%v)\n", cfg.Store.Backend, err)
					allOK = false
				} else {
					fmt.Printf("Store (%s): OK\n", cfg.Store.Backend)
				}

				if h, err := loadHospital(ctx, st, logger, false); err != nil {
					fmt.Printf("Facility: FAIL (%v)\n", err)
					allOK = false
				} else {
					stats := h.Stats()
					fmt.Printf("Facility: OK (%d rooms, %d exits, %d events)\n", stats.Rooms, stats.Exits, stats.Events)
					if stats.Exits == 0 {
						fmt.Println("Facility: WARN (no exit rooms, nearest-exit queries will find nothing)")
					}
				}
			}

			// Briefings fall back to a template without a key.
			if cfg.Claude.APIKey == "" {
				fmt.Println("Claude API: not configured (template briefings)")
			} else {
				fmt.Println("Claude API: OK")
			}

			if !allOK {
				return fmt.Errorf("one or more health checks failed")
			}
			return nil
		},
	}
}
