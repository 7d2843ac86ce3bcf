package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/wardtrace/internal/api"
	"github.com/ajitpratap0/wardtrace/internal/briefing"
	"github.com/ajitpratap0/wardtrace/internal/hospital"
	"github.com/ajitpratap0/wardtrace/internal/models"
	"github.com/ajitpratap0/wardtrace/internal/store"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// testFacility is Exit(0) -2- Lobby(1) -1- Ward(2, cap 1) -3- Surgery(3, doctors),
// Lobby -4- Storage(4), and an unconnected Office(5).
func testFacility(t *testing.T) *hospital.Hospital {
	t.Helper()
	surgery := models.Room{ID: 3, Name: "Surgery", Type: models.RoomTypeSurgery, Capacity: 2}
	surgery.AddAccess(models.FunctionDoctor)
	snap := &models.Snapshot{
		Rooms: []models.Room{
			{ID: 0, Name: "Main Exit", Type: models.RoomTypeExit, Capacity: 10},
			{ID: 1, Name: "Lobby", Type: models.RoomTypeReception, Capacity: 10},
			{ID: 2, Name: "Ward", Type: models.RoomTypeHospitalization, Capacity: 1},
			surgery,
			{ID: 4, Name: "Storage", Type: models.RoomTypeStorage, Capacity: 3},
			{ID: 5, Name: "Office", Type: models.RoomTypeOffice, Capacity: 1},
		},
		People: []models.Person{
			{ID: 100, Name: "Dr. Lima", Age: 45, Function: models.FunctionDoctor, Location: 1},
			{ID: 101, Name: "Nurse Sousa", Age: 31, Function: models.FunctionNurse, Location: 1},
			{ID: 102, Name: "Visitor Reis", Age: 60, Function: models.FunctionVisitor, Location: models.Outside},
		},
		Edges: []models.Edge{
			{Room1: 0, Room2: 1, Weight: 2},
			{Room1: 1, Room2: 2, Weight: 1},
			{Room1: 2, Room2: 3, Weight: 3},
			{Room1: 1, Room2: 4, Weight: 4},
		},
		Events: []models.Event{
			{PersonID: 100, From: models.Outside, To: 1, Time: t0},
			{PersonID: 101, From: models.Outside, To: 1, Time: t0.Add(5 * time.Minute)},
		},
	}
	h, err := hospital.FromSnapshot(snap, nil)
	require.NoError(t, err)
	return h
}

// newTestServer creates a test HTTP server over the test facility and a MockStore.
func newTestServer(t *testing.T, authToken string) (*httptest.Server, *store.MockStore, *hospital.Hospital) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	h := testFacility(t)
	snap := h.Snapshot()
	st := store.NewMockStore(&snap)
	br := briefing.NewBriefer("", "claude-haiku-4-5-20251001", logger)
	srv := api.NewServer(h, st, br, logger, authToken, 72*time.Hour)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st, h
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func doRequest(t *testing.T, method, url string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(context.Background(), method, url, body)
	} else {
		req, err = http.NewRequestWithContext(context.Background(), method, url, http.NoBody)
	}
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func ts(minutes int) string {
	return t0.Add(time.Duration(minutes) * time.Minute).Format(time.RFC3339)
}

func TestAPI_Healthz(t *testing.T) {
	srv, st, _ := newTestServer(t, "secret")

	resp := doRequest(t, http.MethodGet, srv.URL+"/healthz", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])

	st.SetPingErr(errors.New("disk gone"))
	resp = doRequest(t, http.MethodGet, srv.URL+"/healthz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", decode[map[string]string](t, resp)["status"])
}

func TestAPI_Auth(t *testing.T) {
	srv, _, _ := newTestServer(t, "secret")

	resp := doRequest(t, http.MethodGet, srv.URL+"/v1/rooms", nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, srv.URL+"/v1/rooms", nil, "wrong")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, srv.URL+"/v1/rooms", nil, "secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rooms := decode[map[string][]models.Room](t, resp)["rooms"]
	assert.Len(t, rooms, 6)
}

type exitBody struct {
	Reachable bool          `json:"reachable"`
	Route     *models.Route `json:"route"`
}

func TestAPI_NearestExit(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	resp := doRequest(t, http.MethodGet, srv.URL+"/v1/rooms/3/exit", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[exitBody](t, resp)
	require.True(t, got.Reachable)
	assert.Equal(t, 6.0, got.Route.Weight)
	assert.Equal(t, []int{3, 2, 1, 0}, got.Route.Path)

	resp = doRequest(t, http.MethodGet, srv.URL+"/v1/rooms/5/exit", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decode[map[string]any](t, resp)["reachable"])

	resp = doRequest(t, http.MethodGet, srv.URL+"/v1/rooms/99/exit", nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, srv.URL+"/v1/rooms/abc/exit", nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_AccessibleRoomsAndRevoke(t *testing.T) {
	srv, st, _ := newTestServer(t, "")

	roomIDs := func() []int {
		resp := doRequest(t, http.MethodGet, srv.URL+"/v1/people/102/accessible-rooms", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var ids []int
		for _, r := range decode[map[string][]models.Room](t, resp)["rooms"] {
			ids = append(ids, r.ID)
		}
		return ids
	}
	assert.Equal(t, []int{0, 1, 2, 4, 5}, roomIDs())

	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/rooms/4/revoke", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, []int{0, 1, 2, 5}, roomIDs())
	assert.Equal(t, 1, st.Saves())

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/rooms/4/access", jsonBody(t, map[string]string{"function": "Visitor"}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	room := decode[models.Room](t, resp)
	assert.True(t, room.Permits(models.FunctionVisitor))
	assert.False(t, room.Permits(models.FunctionDoctor))

	resp = doRequest(t, http.MethodDelete, srv.URL+"/v1/rooms/4/access/visitor", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, []int{0, 1, 2, 5}, roomIDs())

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/rooms/4/open", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, []int{0, 1, 2, 4, 5}, roomIDs())

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/rooms/4/access", jsonBody(t, map[string]string{"function": "wizard"}), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, srv.URL+"/v1/people/999/accessible-rooms", nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_NextRooms(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	resp := doRequest(t, http.MethodGet, srv.URL+"/v1/people/102/next-rooms", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rooms := decode[map[string][]models.Room](t, resp)["rooms"]
	require.Len(t, rooms, 1)
	assert.Equal(t, 0, rooms[0].ID)
}

func TestAPI_Moves(t *testing.T) {
	srv, st, h := newTestServer(t, "")

	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/moves",
		jsonBody(t, map[string]any{"person_id": 100, "to_room_id": 2, "time": ts(10)}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	e := decode[models.Event](t, resp)
	assert.Equal(t, 1, e.From)
	assert.Equal(t, 2, e.To)

	saved, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, saved.Events, 3)

	// Ward is full now.
	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/moves",
		jsonBody(t, map[string]any{"person_id": 101, "to_room_id": 2, "time": ts(11)}), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	nurse, err := h.Person(101)
	require.NoError(t, err)
	assert.Equal(t, 1, nurse.Location)

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/moves",
		jsonBody(t, map[string]any{"person_id": 101, "to_room_id": 4, "time": ts(12)}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/moves",
		jsonBody(t, map[string]any{"person_id": 100, "to_room_id": 3, "time": ts(13)}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Visitors cannot enter surgery and cannot skip the exit.
	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/moves",
		jsonBody(t, map[string]any{"person_id": 102, "to_room_id": 1, "time": ts(14)}), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A null room means outside, and storage has no way out.
	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/moves",
		jsonBody(t, map[string]any{"person_id": 101, "to_room_id": nil, "time": ts(15)}), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/moves",
		jsonBody(t, map[string]any{"person_id": 999, "to_room_id": 1}), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/moves", bytes.NewBufferString("{"), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_MoveAccessDenied(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/moves",
		jsonBody(t, map[string]any{"person_id": 101, "to_room_id": 2, "time": ts(10)}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/moves",
		jsonBody(t, map[string]any{"person_id": 101, "to_room_id": 3, "time": ts(11)}), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

type contactBody struct {
	TraceID  string             `json:"trace_id"`
	Contacts []models.Contact   `json:"contacts"`
	Briefing *briefing.Briefing `json:"briefing"`
}

func TestAPI_PersonContacts(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/contacts/person",
		jsonBody(t, map[string]any{"person_id": 100, "start": ts(0), "end": ts(60), "brief": true}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[contactBody](t, resp)
	require.Len(t, got.Contacts, 1)
	assert.Equal(t, 101, got.Contacts[0].PersonID)
	assert.Equal(t, "Nurse Sousa", got.Contacts[0].Name)
	assert.NotEmpty(t, got.TraceID)
	require.NotNil(t, got.Briefing)
	assert.Equal(t, got.TraceID, got.Briefing.TraceID)
	assert.Equal(t, briefing.SourceTemplate, got.Briefing.Source)
	assert.Contains(t, got.Briefing.Text, "Dr. Lima")

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/contacts/person",
		jsonBody(t, map[string]any{"person_id": 100, "start": ts(0), "end": ts(4)}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[contactBody](t, resp)
	assert.Empty(t, got.Contacts)
	assert.Nil(t, got.Briefing)

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/contacts/person",
		jsonBody(t, map[string]any{"person_id": 100, "start": ts(10), "end": ts(0)}), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/contacts/person",
		jsonBody(t, map[string]any{"start": ts(0)}), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/contacts/person",
		jsonBody(t, map[string]any{"person_id": 999, "start": ts(0), "end": ts(1)}), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_RoomContacts(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/contacts/room",
		jsonBody(t, map[string]any{"room_id": 1, "start": ts(1), "end": ts(2)}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[contactBody](t, resp)
	require.Len(t, got.Contacts, 1)
	assert.Equal(t, 100, got.Contacts[0].PersonID)

	resp = doRequest(t, http.MethodPost, srv.URL+"/v1/contacts/room",
		jsonBody(t, map[string]any{"room_id": 42, "start": ts(1), "end": ts(2)}), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_MapAndStats(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	resp := doRequest(t, http.MethodGet, srv.URL+"/v1/map?start=1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[hospital.MapView](t, resp)
	assert.Equal(t, []int{1, 0, 2, 4, 3}, view.Order)
	assert.Len(t, view.Edges, 4)

	resp = doRequest(t, http.MethodGet, srv.URL+"/v1/map?start=x", nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, srv.URL+"/v1/stats", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[models.Stats](t, resp)
	assert.Equal(t, 6, stats.Rooms)
	assert.Equal(t, 2, stats.PeopleInside)
	assert.Equal(t, 1, stats.RestrictedRooms)

	resp = doRequest(t, http.MethodGet, srv.URL+"/debug/vars", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	vars := decode[map[string]any](t, resp)
	assert.Contains(t, vars, "wardtrace_exit_queries_total")
}

func TestAPI_RoomAndPerson(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	resp := doRequest(t, http.MethodGet, srv.URL+"/v1/rooms/3", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	room := decode[models.Room](t, resp)
	assert.Equal(t, "Surgery", room.Name)
	assert.True(t, room.Access.Restricted())

	resp = doRequest(t, http.MethodGet, srv.URL+"/v1/people/100", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[models.Person](t, resp)
	assert.Equal(t, 1, p.Location)

	resp = doRequest(t, http.MethodGet, srv.URL+"/v1/rooms/1/events", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	events := decode[map[string][]models.Event](t, resp)["events"]
	assert.Len(t, events, 2)
}
