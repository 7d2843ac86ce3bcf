package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/wardtrace/internal/store"
)

func exportCmd() *cobra.Command {
	var (
		dir    string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored facility as JSON",
		Long: `Export the stored facility. With --dir the four JSON documents are written
to that directory in the same layout import reads; otherwise one snapshot
document is written to --output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, h, err := openHospital(ctx, logger, false)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			defer func() { _ = st.Close() }()

			snap := h.Snapshot()

			if dir != "" {
				if err := store.NewFileStore(dir, logger).Save(ctx, &snap); err != nil {
					return fmt.Errorf("export: writing %s: %w", dir, err)
				}
				fmt.Fprintf(os.Stderr, "Exported %d rooms and %d events to %s\n", len(snap.Rooms), len(snap.Events), dir)
				return nil
			}

			var w *os.File
			if output == "" || output == "-" {
				w = os.Stdout
			} else {
				w, err = os.Create(output)
				if err != nil {
					return fmt.Errorf("export: creating output file: %w", err)
				}
				defer func() { _ = w.Close() }()
			}

			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(snap); encErr != nil {
				return fmt.Errorf("export: encoding JSON: %w", encErr)
			}
			if output != "" && output != "-" {
				fmt.Fprintf(os.Stderr, "Exported %d rooms and %d events to %s\n", len(snap.Rooms), len(snap.Events), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "write the four JSON documents to this directory")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file path (- for stdout)")
	return cmd
}
