package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	wardmcp "github.com/ajitpratap0/wardtrace/internal/mcp"
)

func mcpCmd() *cobra.Command {
	var lenient bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  nearest_exit      lowest-weight route from a room to an exit
  accessible_rooms  rooms whose gate admits a person
  room_contacts     everyone who stayed in a room during a window
  person_contacts   everyone who shared a room with a person during a window
  record_move       move a person and save the facility
  stats             facility statistics`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			st, h, err := openHospital(cmd.Context(), logger, lenient)
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			defer func() { _ = st.Close() }()

			srv := wardmcp.NewServer(h, st, newBriefer(logger), logger, traceWindow())

			// mcp-go takes a standard log.Logger for its transport errors.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: wardtrace MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	cmd.Flags().BoolVar(&lenient, "lenient", false, "skip stored events that fail their checks instead of refusing to start")
	return cmd
}
