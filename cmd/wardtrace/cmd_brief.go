package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/wardtrace/internal/briefing"
	"github.com/ajitpratap0/wardtrace/internal/metrics"
)

func briefCmd() *cobra.Command {
	var flags traceFlags

	cmd := &cobra.Command{
		Use:   "brief person|room ID",
		Short: "Write an exposure briefing for a contact trace",
		Long: `Runs a contact trace and prints a short exposure briefing. When a Claude API
key is configured the briefing is written by Claude; otherwise, or when the
call fails, a plain template is used.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"person", "room"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "person" && args[0] != "room" {
				return fmt.Errorf("brief: first argument must be person or room, got %q", args[0])
			}
			logger := newLogger()
			ctx := cmd.Context()

			st, h, err := openHospital(ctx, logger, false)
			if err != nil {
				return fmt.Errorf("brief: %w", err)
			}
			defer func() { _ = st.Close() }()

			res, err := runTrace(h, args[0], args[1], flags)
			if err != nil {
				return fmt.Errorf("brief: %w", err)
			}
			b, err := newBriefer(logger).Brief(ctx, briefing.Request{Subject: res.Subject, Window: res.Window, Contacts: res.Contacts})
			if err != nil {
				return fmt.Errorf("brief: %w", err)
			}
			metrics.Inc(metrics.Briefings)

			fmt.Println(b.Text)
			if b.Included < b.Contacts {
				fmt.Printf("\n(%d of %d contacts fit in the briefing; source: %s)\n", b.Included, b.Contacts, b.Source)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
