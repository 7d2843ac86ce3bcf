package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/wardtrace/internal/briefing"
	"github.com/ajitpratap0/wardtrace/internal/config"
	"github.com/ajitpratap0/wardtrace/internal/hospital"
	"github.com/ajitpratap0/wardtrace/internal/metrics"
	"github.com/ajitpratap0/wardtrace/internal/models"
	"github.com/ajitpratap0/wardtrace/internal/store"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "wardtrace",
		Short: "wardtrace: hospital facility graph and contact tracing",
		Long: "wardtrace models a hospital as a weighted room graph. It finds the nearest exit, " +
			"gates rooms by staff function and capacity, and traces contacts from the movement log.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		importCmd(),
		exportCmd(),
		exitCmd(),
		accessCmd(),
		contactsCmd(),
		moveCmd(),
		mapCmd(),
		statsCmd(),
		briefCmd(),
		serveCmd(),
		mcpCmd(),
		healthCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendNeo4j:
		return store.NewNeo4jStore(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database, logger)
	default:
		return store.NewFileStore(cfg.Store.DataDir, logger), nil
	}
}

func newBriefer(logger *slog.Logger) *briefing.Briefer {
	return briefing.NewBriefer(cfg.Claude.APIKey, cfg.Claude.Model, logger)
}

func traceWindow() time.Duration {
	return time.Duration(cfg.Trace.DefaultWindowHours) * time.Hour
}

// loadHospital builds the facility from the store. With lenient set,
// events that fail their checks are logged and skipped instead of failing
// the load.
func loadHospital(ctx context.Context, st store.Store, logger *slog.Logger, lenient bool) (*hospital.Hospital, error) {
	snap, err := st.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("no facility stored yet, run wardtrace import first: %w", err)
		}
		return nil, err
	}
	return buildHospital(snap, logger, lenient)
}

func buildHospital(snap *models.Snapshot, logger *slog.Logger, lenient bool) (*hospital.Hospital, error) {
	var onEventErr hospital.EventErrorHandler
	if lenient {
		onEventErr = func(i int, e models.Event, err error) error {
			metrics.Inc(metrics.EventsSkipped)
			logger.Warn("skipping event", "index", i, "person", e.PersonID, "from", e.From, "to", e.To, "error", err)
			return nil
		}
	}
	h, err := hospital.FromSnapshot(snap, onEventErr)
	if err != nil {
		return nil, err
	}
	metrics.EventsImported.Add(int64(h.Stats().Events))
	return h, nil
}

// openHospital connects to the configured store and loads the facility.
// The caller closes the store.
func openHospital(ctx context.Context, logger *slog.Logger, lenient bool) (store.Store, *hospital.Hospital, error) {
	st, err := newStore(ctx, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to store: %w", err)
	}
	h, err := loadHospital(ctx, st, logger, lenient)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return st, h, nil
}

func saveHospital(ctx context.Context, st store.Store, h *hospital.Hospital) error {
	snap := h.Snapshot()
	if err := st.Save(ctx, &snap); err != nil {
		return fmt.Errorf("saving facility: %w", err)
	}
	return nil
}

// parseID reads a room or person id argument.
func parseID(kind, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s id must be an integer, got %q", kind, s)
	}
	return id, nil
}

// roomLabel renders a room reference, with Outside spelled out.
func roomLabel(id int) string {
	if id == models.Outside {
		return "outside"
	}
	return strconv.Itoa(id)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
