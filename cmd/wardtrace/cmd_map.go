package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/wardtrace/internal/hospital"
)

func mapCmd() *cobra.Command {
	var (
		start  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Print the facility map",
		Long: `Print every room and passage. With --start the rooms reachable from that
room are listed in breadth-first order. Formats: text, dot (Graphviz), json.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			st, h, err := openHospital(cmd.Context(), logger, false)
			if err != nil {
				return fmt.Errorf("map: %w", err)
			}
			defer func() { _ = st.Close() }()

			var from *int
			if cmd.Flags().Changed("start") {
				from = &start
			}
			view, err := h.Map(from)
			if err != nil {
				return fmt.Errorf("map: %w", err)
			}

			switch format {
			case "text":
				writeMapText(os.Stdout, view)
			case "dot":
				writeMapDOT(os.Stdout, view)
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			default:
				return fmt.Errorf("map: unsupported format %q (use text, dot or json)", format)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "list rooms reachable from this room")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, dot or json")
	return cmd
}

func writeMapText(w io.Writer, view hospital.MapView) {
	fmt.Fprintln(w, "Rooms:")
	for i := range view.Rooms {
		r := &view.Rooms[i]
		fmt.Fprintf(w, "  %4d  %-24s %-16s %d/%d\n", r.ID, truncate(r.Name, 24), r.Type, r.CurrentOccupation, r.Capacity)
	}
	fmt.Fprintln(w, "\nPassages:")
	for _, e := range view.Edges {
		fmt.Fprintf(w, "  %4d <-> %-4d  %g\n", e.Room1, e.Room2, e.Weight)
	}
	if view.Order != nil {
		fmt.Fprintf(w, "\nReachable: %v\n", view.Order)
	}
}

func writeMapDOT(w io.Writer, view hospital.MapView) {
	fmt.Fprintln(w, "graph facility {")
	for i := range view.Rooms {
		r := &view.Rooms[i]
		shape := "box"
		if r.IsExit() {
			shape = "doubleoctagon"
		}
		fmt.Fprintf(w, "  r%d [label=%q shape=%s];\n", r.ID, fmt.Sprintf("%d %s", r.ID, r.Name), shape)
	}
	for _, e := range view.Edges {
		fmt.Fprintf(w, "  r%d -- r%d [label=\"%g\"];\n", e.Room1, e.Room2, e.Weight)
	}
	fmt.Fprintln(w, "}")
}
