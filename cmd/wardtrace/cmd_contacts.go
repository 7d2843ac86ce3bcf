package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/wardtrace/internal/briefing"
	"github.com/ajitpratap0/wardtrace/internal/hospital"
	"github.com/ajitpratap0/wardtrace/internal/metrics"
	"github.com/ajitpratap0/wardtrace/internal/models"
)

// traceFlags are shared by the contacts and brief commands.
type traceFlags struct {
	start string
	end   string
}

func (f *traceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "window start, RFC 3339 or YYYY-MM-DDTHH:MM:SS (default: end minus trace.default_window_hours)")
	cmd.Flags().StringVar(&f.end, "end", "", "window end (default: now)")
}

// traceResult is one contact trace with its subject line.
type traceResult struct {
	TraceID  string             `json:"trace_id"`
	Subject  string             `json:"subject"`
	Window   models.Window      `json:"window"`
	Contacts []models.Contact   `json:"contacts"`
	Briefing *briefing.Briefing `json:"briefing,omitempty"`
}

// runTrace traces a person or a room over the flag window.
func runTrace(h *hospital.Hospital, kind, arg string, f traceFlags) (*traceResult, error) {
	id, err := parseID(kind, arg)
	if err != nil {
		return nil, err
	}
	win, err := models.ParseWindow(f.start, f.end, time.Now(), traceWindow())
	if err != nil {
		return nil, err
	}
	metrics.Inc(metrics.ContactQueries)

	res := &traceResult{TraceID: uuid.NewString(), Window: win}
	switch kind {
	case "person":
		res.Contacts, err = h.HadContactWithIndividual(id, win)
		res.Subject = fmt.Sprintf("person %d", id)
		if p, pErr := h.Person(id); pErr == nil {
			res.Subject = fmt.Sprintf("person %d (%s, %s)", p.ID, p.Name, p.Function)
		}
	default:
		res.Contacts, err = h.HadContactWithRoom(id, win)
		res.Subject = fmt.Sprintf("room %d", id)
		if r, rErr := h.Room(id); rErr == nil {
			res.Subject = fmt.Sprintf("room %d (%s, %s)", r.ID, r.Name, r.Type)
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Trace contacts of a person or a room over a time window",
	}
	cmd.AddCommand(contactsSubCmd("person"), contactsSubCmd("room"))
	return cmd
}

func contactsSubCmd(kind string) *cobra.Command {
	var (
		flags  traceFlags
		brief  bool
		asJSON bool
	)

	short := "List everyone who shared a room with a person"
	if kind == "room" {
		short = "List everyone who stayed in a room"
	}

	cmd := &cobra.Command{
		Use:   kind + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, h, err := openHospital(ctx, logger, false)
			if err != nil {
				return fmt.Errorf("contacts: %w", err)
			}
			defer func() { _ = st.Close() }()

			res, err := runTrace(h, kind, args[0], flags)
			if err != nil {
				return fmt.Errorf("contacts: %w", err)
			}
			if brief {
				b, err := newBriefer(logger).Brief(ctx, briefing.Request{Subject: res.Subject, Window: res.Window, Contacts: res.Contacts})
				if err != nil {
					return fmt.Errorf("contacts: briefing: %w", err)
				}
				metrics.Inc(metrics.Briefings)
				b.TraceID = res.TraceID
				res.Briefing = b
			}
			logger.Debug("contact trace", "trace_id", res.TraceID, "subject", res.Subject, "contacts", len(res.Contacts))

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			fmt.Printf("Contacts of %s between %s and %s: %d\n", res.Subject,
				res.Window.Start.UTC().Format(time.RFC3339), res.Window.End.UTC().Format(time.RFC3339), len(res.Contacts))
			for _, c := range res.Contacts {
				fmt.Printf("  %4d  %-24s %-10s room %-4d %s .. %s\n", c.PersonID, truncate(c.Name, 24), c.Function, c.RoomID,
					c.From.UTC().Format(time.RFC3339), c.To.UTC().Format(time.RFC3339))
			}
			if res.Briefing != nil {
				fmt.Printf("\n%s\n", res.Briefing.Text)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&brief, "brief", false, "also write an exposure briefing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the trace as JSON")
	return cmd
}
