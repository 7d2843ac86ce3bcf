package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/wardtrace/internal/metrics"
	"github.com/ajitpratap0/wardtrace/internal/models"
)

func moveCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "move PERSON_ID [ROOM_ID|outside]",
		Short: "Record a person moving into a room or out of the facility",
		Long: `Record a move. The target room must admit the person's function and have
room for one more. The facility is entered and left through exits; any other
move must follow a passage. Omitting the room, or passing "outside", leaves
the facility.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			personID, err := parseID("person", args[0])
			if err != nil {
				return err
			}
			to := models.Outside
			if len(args) == 2 && !strings.EqualFold(args[1], "outside") {
				if to, err = parseID("room", args[1]); err != nil {
					return err
				}
			}
			when := time.Now().UTC()
			if at != "" {
				if when, err = models.ParseTime(at); err != nil {
					return err
				}
			}

			st, h, err := openHospital(ctx, logger, false)
			if err != nil {
				return fmt.Errorf("move: %w", err)
			}
			defer func() { _ = st.Close() }()

			e, err := h.RecordMove(personID, to, when)
			if err != nil {
				metrics.Inc(metrics.MovesRejected)
				return fmt.Errorf("move: %w", err)
			}
			metrics.Inc(metrics.MovesRecorded)
			if err := saveHospital(ctx, st, h); err != nil {
				return fmt.Errorf("move: %w", err)
			}

			fmt.Printf("Person %d moved from %s to %s at %s\n", e.PersonID, roomLabel(e.From), roomLabel(e.To), e.Time.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "when the move happened (default: now)")
	return cmd
}
