package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/wardtrace/internal/store"
)

func importCmd() *cobra.Command {
	var (
		dir     string
		lenient bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a facility from a directory of JSON documents",
		Long: `Import rooms.json, people.json, hospital_map.json and events.json from a
directory and save the validated facility to the configured store.

Rooms, people and passages must all be valid. Events are replayed in order;
with --lenient an event that fails its checks is logged and skipped,
otherwise the import stops at the first one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			snap, err := store.NewFileStore(dir, logger).Load(ctx)
			if err != nil {
				return fmt.Errorf("import: reading %s: %w", dir, err)
			}
			received := len(snap.Events)

			h, err := buildHospital(snap, logger, lenient)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("import: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := saveHospital(ctx, st, h); err != nil {
				return fmt.Errorf("import: %w", err)
			}

			stats := h.Stats()
			fmt.Printf("Imported %d rooms, %d people, %d passages, %d events (%d skipped)\n",
				stats.Rooms, stats.People, stats.Edges, stats.Events, received-stats.Events)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory holding the JSON documents")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "skip events that fail their checks instead of aborting")
	return cmd
}
