package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/wardtrace/internal/briefing"
	"github.com/ajitpratap0/wardtrace/internal/hospital"
	"github.com/ajitpratap0/wardtrace/internal/metrics"
	"github.com/ajitpratap0/wardtrace/internal/models"
	"github.com/ajitpratap0/wardtrace/internal/store"
)

// Server is an HTTP API server that exposes facility queries and moves.
type Server struct {
	hospital    *hospital.Hospital
	store       store.Store
	briefer     *briefing.Briefer
	logger      *slog.Logger
	authToken   string // empty = no auth required
	traceWindow time.Duration
	now         func() time.Time
}

// NewServer creates a new Server with the given dependencies. Mutations are
// saved to st after they succeed; a nil st keeps them in memory only.
func NewServer(h *hospital.Hospital, st store.Store, br *briefing.Briefer, logger *slog.Logger, authToken string, traceWindow time.Duration) *Server {
	return &Server{
		hospital:    h,
		store:       st,
		briefer:     br,
		logger:      logger,
		authToken:   authToken,
		traceWindow: traceWindow,
		now:         time.Now,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check, no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /debug/vars", s.auth(expvar.Handler().ServeHTTP))

	mux.HandleFunc("GET /v1/rooms", s.auth(s.handleRooms))
	mux.HandleFunc("GET /v1/rooms/{id}", s.auth(s.handleRoom))
	mux.HandleFunc("GET /v1/rooms/{id}/exit", s.auth(s.handleNearestExit))
	mux.HandleFunc("GET /v1/rooms/{id}/events", s.auth(s.handleRoomEvents))
	mux.HandleFunc("POST /v1/rooms/{id}/access", s.auth(s.handleGrantAccess))
	mux.HandleFunc("DELETE /v1/rooms/{id}/access/{function}", s.auth(s.handleRemoveAccess))
	mux.HandleFunc("POST /v1/rooms/{id}/revoke", s.auth(s.handleRevokeAccess))
	mux.HandleFunc("POST /v1/rooms/{id}/open", s.auth(s.handleOpenAccess))

	mux.HandleFunc("GET /v1/people/{id}", s.auth(s.handlePerson))
	mux.HandleFunc("GET /v1/people/{id}/accessible-rooms", s.auth(s.handleAccessibleRooms))
	mux.HandleFunc("GET /v1/people/{id}/next-rooms", s.auth(s.handleNextRooms))

	mux.HandleFunc("POST /v1/contacts/person", s.auth(s.handlePersonContacts))
	mux.HandleFunc("POST /v1/contacts/room", s.auth(s.handleRoomContacts))
	mux.HandleFunc("POST /v1/moves", s.auth(s.handleMove))

	mux.HandleFunc("GET /v1/map", s.auth(s.handleMap))
	mux.HandleFunc("GET /v1/stats", s.auth(s.handleStats))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn("store ping failed", "error", err)
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"rooms": s.hospital.Rooms()})
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	room, err := s.hospital.Room(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, room)
}

// exitResponse is returned by GET /v1/rooms/{id}/exit.
type exitResponse struct {
	Reachable bool          `json:"reachable"`
	Route     *models.Route `json:"route,omitempty"`
}

func (s *Server) handleNearestExit(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	metrics.Inc(metrics.ExitQueries)
	route, found, err := s.hospital.FindClosestExit(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	resp := exitResponse{Reachable: found}
	if found {
		resp.Route = &route
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRoomEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	events, err := s.hospital.RoomEvents(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// accessRequest is the body accepted by POST /v1/rooms/{id}/access.
type accessRequest struct {
	Function string `json:"function"`
}

func (s *Server) handleGrantAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req accessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	fn, err := models.ParseFunction(req.Function)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mutateRoom(w, r, id, func() error { return s.hospital.GrantAccess(id, fn) })
}

func (s *Server) handleRemoveAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	fn, err := models.ParseFunction(r.PathValue("function"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mutateRoom(w, r, id, func() error { return s.hospital.RemoveAccess(id, fn) })
}

func (s *Server) handleRevokeAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.mutateRoom(w, r, id, func() error { return s.hospital.RevokeAccess(id) })
}

func (s *Server) handleOpenAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.mutateRoom(w, r, id, func() error { return s.hospital.OpenAccess(id) })
}

func (s *Server) mutateRoom(w http.ResponseWriter, r *http.Request, id int, mutate func() error) {
	if err := mutate(); err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !s.persist(r.Context(), w) {
		return
	}
	room, err := s.hospital.Room(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, room)
}

func (s *Server) handlePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	p, err := s.hospital.Person(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAccessibleRooms(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	metrics.Inc(metrics.AccessQueries)
	rooms, err := s.hospital.GetAccessibleRooms(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *Server) handleNextRooms(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	metrics.Inc(metrics.AccessQueries)
	rooms, err := s.hospital.AccessibleNeighbors(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

// contactRequest is the body accepted by POST /v1/contacts/{person,room}.
type contactRequest struct {
	PersonID *int   `json:"person_id"`
	RoomID   *int   `json:"room_id"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Brief    bool   `json:"brief"`
}

// contactResponse is returned by the contact-trace endpoints.
type contactResponse struct {
	TraceID  string             `json:"trace_id"`
	Window   models.Window      `json:"window"`
	Contacts []models.Contact   `json:"contacts"`
	Briefing *briefing.Briefing `json:"briefing,omitempty"`
}

func (s *Server) handlePersonContacts(w http.ResponseWriter, r *http.Request) {
	req, win, ok := s.decodeContactRequest(w, r)
	if !ok {
		return
	}
	if req.PersonID == nil {
		s.writeError(w, http.StatusBadRequest, "person_id is required")
		return
	}
	contacts, err := s.hospital.HadContactWithIndividual(*req.PersonID, win)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	subject := fmt.Sprintf("person %d", *req.PersonID)
	if p, err := s.hospital.Person(*req.PersonID); err == nil {
		subject = fmt.Sprintf("person %d (%s, %s)", p.ID, p.Name, p.Function)
	}
	s.writeContacts(w, r, req, win, subject, contacts)
}

func (s *Server) handleRoomContacts(w http.ResponseWriter, r *http.Request) {
	req, win, ok := s.decodeContactRequest(w, r)
	if !ok {
		return
	}
	if req.RoomID == nil {
		s.writeError(w, http.StatusBadRequest, "room_id is required")
		return
	}
	contacts, err := s.hospital.HadContactWithRoom(*req.RoomID, win)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	subject := fmt.Sprintf("room %d", *req.RoomID)
	if room, err := s.hospital.Room(*req.RoomID); err == nil {
		subject = fmt.Sprintf("room %d (%s, %s)", room.ID, room.Name, room.Type)
	}
	s.writeContacts(w, r, req, win, subject, contacts)
}

func (s *Server) decodeContactRequest(w http.ResponseWriter, r *http.Request) (contactRequest, models.Window, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return req, models.Window{}, false
	}
	win, err := models.ParseWindow(req.Start, req.End, s.now(), s.traceWindow)
	if err != nil {
		s.writeDomainError(w, err)
		return req, models.Window{}, false
	}
	metrics.Inc(metrics.ContactQueries)
	return req, win, true
}

func (s *Server) writeContacts(w http.ResponseWriter, r *http.Request, req contactRequest, win models.Window, subject string, contacts []models.Contact) {
	resp := contactResponse{TraceID: uuid.NewString(), Window: win, Contacts: contacts}
	if req.Brief && s.briefer != nil {
		b, err := s.briefer.Brief(r.Context(), briefing.Request{Subject: subject, Window: win, Contacts: contacts})
		if err != nil {
			s.logger.Error("failed to brief", "trace_id", resp.TraceID, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to write briefing")
			return
		}
		metrics.Inc(metrics.Briefings)
		b.TraceID = resp.TraceID
		resp.Briefing = b
	}
	s.logger.Info("contact trace", "trace_id", resp.TraceID, "subject", subject, "contacts", len(contacts))
	s.writeJSON(w, http.StatusOK, resp)
}

// moveRequest is the body accepted by POST /v1/moves. A null or absent
// to_room_id means leaving the facility.
type moveRequest struct {
	PersonID int    `json:"person_id"`
	ToRoomID *int   `json:"to_room_id"`
	Time     string `json:"time"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	at := s.now().UTC()
	if req.Time != "" {
		t, err := models.ParseTime(req.Time)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		at = t
	}
	to := models.Outside
	if req.ToRoomID != nil {
		to = *req.ToRoomID
	}

	e, err := s.hospital.RecordMove(req.PersonID, to, at)
	if err != nil {
		metrics.Inc(metrics.MovesRejected)
		s.logger.Info("move rejected", "person", req.PersonID, "to", to, "error", err)
		s.writeDomainError(w, err)
		return
	}
	metrics.Inc(metrics.MovesRecorded)
	if !s.persist(r.Context(), w) {
		return
	}
	s.writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	var start *int
	if raw := r.URL.Query().Get("start"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "start must be a room id")
			return
		}
		start = &id
	}
	view, err := s.hospital.Map(start)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.hospital.Stats())
}

// --- helpers ---

// persist saves the current snapshot. It writes a 500 and returns false
// when the store rejects it.
func (s *Server) persist(ctx context.Context, w http.ResponseWriter) bool {
	if s.store == nil {
		return true
	}
	snap := s.hospital.Snapshot()
	if err := s.store.Save(ctx, &snap); err != nil {
		s.logger.Error("failed to persist snapshot", "error", err)
		s.writeError(w, http.StatusInternalServerError, "change applied but not persisted")
		return false
	}
	return true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, models.ErrCapacityExceeded),
		errors.Is(err, models.ErrOccupancyUnderflow),
		errors.Is(err, models.ErrDuplicateEvent):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidMove),
		errors.Is(err, models.ErrInvalidWindow),
		errors.Is(err, models.ErrInvalidEdge),
		errors.Is(err, models.ErrInvalidRecord):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		s.writeError(w, status, "internal error")
		return
	}
	s.writeError(w, status, err.Error())
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
