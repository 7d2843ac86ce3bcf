package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/wardtrace/internal/models"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show facility statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			st, h, err := openHospital(cmd.Context(), logger, false)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			defer func() { _ = st.Close() }()

			stats := h.Stats()

			fmt.Printf("Rooms:      %d (%d exits, %d full, %d restricted)\n", stats.Rooms, stats.Exits, stats.FullRooms, stats.RestrictedRooms)
			fmt.Printf("Passages:   %d\n", stats.Edges)
			fmt.Printf("People:     %d (%d inside)\n", stats.People, stats.PeopleInside)
			fmt.Printf("Events:     %d\n\n", stats.Events)

			fmt.Println("By room type:")
			types := make([]string, 0, len(stats.ByType))
			for t := range stats.ByType {
				types = append(types, string(t))
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Printf("  %-16s %d\n", t, stats.ByType[models.RoomType(t)])
			}

			fmt.Println("\nBy function:")
			fns := make([]string, 0, len(stats.ByFunction))
			for f := range stats.ByFunction {
				fns = append(fns, string(f))
			}
			sort.Strings(fns)
			for _, f := range fns {
				fmt.Printf("  %-16s %d\n", f, stats.ByFunction[models.Function(f)])
			}

			return nil
		},
	}
}
