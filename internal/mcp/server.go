// Package mcp implements the Model Context Protocol server for wardtrace.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajitpratap0/wardtrace/internal/briefing"
	"github.com/ajitpratap0/wardtrace/internal/hospital"
	"github.com/ajitpratap0/wardtrace/internal/metrics"
	"github.com/ajitpratap0/wardtrace/internal/models"
	"github.com/ajitpratap0/wardtrace/internal/store"
)

// Server wraps an MCPServer with wardtrace dependencies.
type Server struct {
	mcp         *mcpserver.MCPServer
	hospital    *hospital.Hospital
	st          store.Store
	briefer     *briefing.Briefer
	logger      *slog.Logger
	traceWindow time.Duration
	now         func() time.Time
}

// NewServer creates a new MCP server. A nil st keeps recorded moves in
// memory only; a nil br ignores brief requests.
func NewServer(h *hospital.Hospital, st store.Store, br *briefing.Briefer, logger *slog.Logger, traceWindow time.Duration) *Server {
	s := &Server{
		hospital:    h,
		st:          st,
		briefer:     br,
		logger:      logger,
		traceWindow: traceWindow,
		now:         time.Now,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"wardtrace",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildNearestExitTool(), s.handleNearestExit)
	mcpSrv.AddTool(buildAccessibleRoomsTool(), s.handleAccessibleRooms)
	mcpSrv.AddTool(buildRoomContactsTool(), s.handleRoomContacts)
	mcpSrv.AddTool(buildPersonContactsTool(), s.handlePersonContacts)
	mcpSrv.AddTool(buildRecordMoveTool(), s.handleRecordMove)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go server for use with a transport.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleNearestExit is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleNearestExit(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleNearestExit(ctx, req)
}

// HandleAccessibleRooms is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleAccessibleRooms(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAccessibleRooms(ctx, req)
}

// HandleRoomContacts is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleRoomContacts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRoomContacts(ctx, req)
}

// HandlePersonContacts is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandlePersonContacts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handlePersonContacts(ctx, req)
}

// HandleRecordMove is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleRecordMove(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRecordMove(ctx, req)
}

// HandleStats is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// requiredID reads an integer argument that must be present.
func requiredID(req mcpgo.CallToolRequest, key string) (int, *mcpgo.CallToolResult) {
	if _, ok := req.GetArguments()[key]; !ok {
		return 0, mcpgo.NewToolResultErrorf("%s is required", key)
	}
	return req.GetInt(key, 0), nil
}

func (s *Server) window(req mcpgo.CallToolRequest) (models.Window, error) {
	return models.ParseWindow(req.GetString("start", ""), req.GetString("end", ""), s.now(), s.traceWindow)
}

// --- tool definitions ---

func buildNearestExitTool() mcpgo.Tool {
	return mcpgo.NewTool("nearest_exit",
		mcpgo.WithDescription("Find the lowest-weight route from a room to the nearest exit."),
		mcpgo.WithNumber("room_id",
			mcpgo.Required(),
			mcpgo.Description("The room to start from"),
		),
	)
}

func buildAccessibleRoomsTool() mcpgo.Tool {
	return mcpgo.NewTool("accessible_rooms",
		mcpgo.WithDescription("List the rooms whose access gate admits a person's function, full rooms included."),
		mcpgo.WithNumber("person_id",
			mcpgo.Required(),
			mcpgo.Description("The person to check"),
		),
	)
}

func buildRoomContactsTool() mcpgo.Tool {
	return mcpgo.NewTool("room_contacts",
		mcpgo.WithDescription("List everyone who stayed in a room during a time window."),
		mcpgo.WithNumber("room_id",
			mcpgo.Required(),
			mcpgo.Description("The room to trace"),
		),
		mcpgo.WithString("start",
			mcpgo.Description("Window start, RFC 3339 or YYYY-MM-DDTHH:MM:SS (default: end minus the configured lookback)"),
		),
		mcpgo.WithString("end",
			mcpgo.Description("Window end (default: now)"),
		),
		mcpgo.WithBoolean("brief",
			mcpgo.Description("Also write an exposure briefing (default: false)"),
		),
	)
}

func buildPersonContactsTool() mcpgo.Tool {
	return mcpgo.NewTool("person_contacts",
		mcpgo.WithDescription("List everyone who shared a room with a person during a time window."),
		mcpgo.WithNumber("person_id",
			mcpgo.Required(),
			mcpgo.Description("The person to trace"),
		),
		mcpgo.WithString("start",
			mcpgo.Description("Window start, RFC 3339 or YYYY-MM-DDTHH:MM:SS (default: end minus the configured lookback)"),
		),
		mcpgo.WithString("end",
			mcpgo.Description("Window end (default: now)"),
		),
		mcpgo.WithBoolean("brief",
			mcpgo.Description("Also write an exposure briefing (default: false)"),
		),
	)
}

func buildRecordMoveTool() mcpgo.Tool {
	return mcpgo.NewTool("record_move",
		mcpgo.WithDescription("Move a person into a room, or out of the facility. Checks passages, access and capacity."),
		mcpgo.WithNumber("person_id",
			mcpgo.Required(),
			mcpgo.Description("The person who moves"),
		),
		mcpgo.WithNumber("to_room_id",
			mcpgo.Description("Target room; -1 or absent means leaving the facility"),
		),
		mcpgo.WithString("time",
			mcpgo.Description("When the move happened (default: now)"),
		),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("stats",
		mcpgo.WithDescription("Get facility statistics: rooms, exits, passages, people inside, full and restricted rooms."),
	)
}

// --- tool handlers ---

// handleNearestExit runs the exit search from a room.
func (s *Server) handleNearestExit(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, bad := requiredID(req, "room_id")
	if bad != nil {
		return bad, nil
	}
	metrics.Inc(metrics.ExitQueries)
	route, found, err := s.hospital.FindClosestExit(id)
	if err != nil {
		return mcpgo.NewToolResultErrorf("nearest exit failed: %s", err.Error()), nil
	}
	result := map[string]any{"reachable": found}
	if found {
		result["route"] = route
	}
	return toolResultJSON(result)
}

// handleAccessibleRooms lists the rooms a person may enter.
func (s *Server) handleAccessibleRooms(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, bad := requiredID(req, "person_id")
	if bad != nil {
		return bad, nil
	}
	metrics.Inc(metrics.AccessQueries)
	rooms, err := s.hospital.GetAccessibleRooms(id)
	if err != nil {
		return mcpgo.NewToolResultErrorf("accessible rooms failed: %s", err.Error()), nil
	}
	return toolResultJSON(map[string]any{"rooms": rooms})
}

// handleRoomContacts traces a room over the requested window.
func (s *Server) handleRoomContacts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, bad := requiredID(req, "room_id")
	if bad != nil {
		return bad, nil
	}
	win, err := s.window(req)
	if err != nil {
		return mcpgo.NewToolResultErrorf("invalid window: %s", err.Error()), nil
	}
	metrics.Inc(metrics.ContactQueries)
	contacts, err := s.hospital.HadContactWithRoom(id, win)
	if err != nil {
		return mcpgo.NewToolResultErrorf("room contacts failed: %s", err.Error()), nil
	}
	subject := fmt.Sprintf("room %d", id)
	if room, err := s.hospital.Room(id); err == nil {
		subject = fmt.Sprintf("room %d (%s, %s)", room.ID, room.Name, room.Type)
	}
	return s.contactsResult(ctx, req, subject, win, contacts)
}

// handlePersonContacts traces a person over the requested window.
func (s *Server) handlePersonContacts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, bad := requiredID(req, "person_id")
	if bad != nil {
		return bad, nil
	}
	win, err := s.window(req)
	if err != nil {
		return mcpgo.NewToolResultErrorf("invalid window: %s", err.Error()), nil
	}
	metrics.Inc(metrics.ContactQueries)
	contacts, err := s.hospital.HadContactWithIndividual(id, win)
	if err != nil {
		return mcpgo.NewToolResultErrorf("person contacts failed: %s", err.Error()), nil
	}
	subject := fmt.Sprintf("person %d", id)
	if p, err := s.hospital.Person(id); err == nil {
		subject = fmt.Sprintf("person %d (%s, %s)", p.ID, p.Name, p.Function)
	}
	return s.contactsResult(ctx, req, subject, win, contacts)
}

func (s *Server) contactsResult(ctx context.Context, req mcpgo.CallToolRequest, subject string, win models.Window, contacts []models.Contact) (*mcpgo.CallToolResult, error) {
	traceID := uuid.NewString()
	result := map[string]any{
		"trace_id": traceID,
		"window":   win,
		"contacts": contacts,
	}
	if req.GetBool("brief", false) && s.briefer != nil {
		b, err := s.briefer.Brief(ctx, briefing.Request{Subject: subject, Window: win, Contacts: contacts})
		if err != nil {
			return mcpgo.NewToolResultErrorf("briefing failed: %s", err.Error()), nil
		}
		metrics.Inc(metrics.Briefings)
		b.TraceID = traceID
		result["briefing"] = b
	}
	s.logger.Info("mcp: contact trace", "trace_id", traceID, "subject", subject, "contacts", len(contacts))
	return toolResultJSON(result)
}

// handleRecordMove applies a move and saves the resulting snapshot.
func (s *Server) handleRecordMove(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	personID, bad := requiredID(req, "person_id")
	if bad != nil {
		return bad, nil
	}
	to := req.GetInt("to_room_id", models.Outside)
	if to < 0 {
		to = models.Outside
	}
	at := s.now().UTC()
	if raw := req.GetString("time", ""); raw != "" {
		t, err := models.ParseTime(raw)
		if err != nil {
			return mcpgo.NewToolResultErrorf("invalid time: %s", err.Error()), nil
		}
		at = t
	}

	e, err := s.hospital.RecordMove(personID, to, at)
	if err != nil {
		metrics.Inc(metrics.MovesRejected)
		s.logger.Info("mcp: move rejected", "person", personID, "to", to, "error", err)
		return mcpgo.NewToolResultErrorf("move rejected: %s", err.Error()), nil
	}
	metrics.Inc(metrics.MovesRecorded)

	if s.st != nil {
		snap := s.hospital.Snapshot()
		if err := s.st.Save(ctx, &snap); err != nil {
			s.logger.Error("mcp: failed to persist snapshot", "error", err)
			return mcpgo.NewToolResultErrorf("move applied but not persisted: %s", err.Error()), nil
		}
	}
	s.logger.Info("mcp: move recorded", "person", personID, "from", e.From, "to", e.To)
	return toolResultJSON(map[string]any{"recorded": true, "event": e})
}

// handleStats returns facility statistics.
func (s *Server) handleStats(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return toolResultJSON(s.hospital.Stats())
}
