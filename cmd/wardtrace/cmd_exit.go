package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/wardtrace/internal/metrics"
)

func exitCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "exit ROOM_ID",
		Short: "Find the nearest exit from a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			roomID, err := parseID("room", args[0])
			if err != nil {
				return err
			}

			st, h, err := openHospital(ctx, logger, false)
			if err != nil {
				return fmt.Errorf("exit: %w", err)
			}
			defer func() { _ = st.Close() }()

			metrics.Inc(metrics.ExitQueries)
			route, found, err := h.FindClosestExit(roomID)
			if err != nil {
				return fmt.Errorf("exit: %w", err)
			}

			if asJSON {
				out := map[string]any{"reachable": found}
				if found {
					out["route"] = route
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			if !found {
				fmt.Printf("No exit is reachable from room %d\n", roomID)
				return nil
			}
			hops := make([]string, 0, len(route.Path))
			for _, id := range route.Path {
				hops = append(hops, fmt.Sprint(id))
			}
			fmt.Printf("Nearest exit: room %d (weight %g)\n", route.Exit, route.Weight)
			fmt.Printf("Route: %s\n", strings.Join(hops, " -> "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the route as JSON")
	return cmd
}
