package main

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/wardtrace/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func smallSnapshot() *models.Snapshot {
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &models.Snapshot{
		Rooms: []models.Room{
			{ID: 0, Name: "Main Exit", Type: models.RoomTypeExit, Capacity: 5},
			{ID: 1, Name: "Lobby", Type: models.RoomTypeReception, Capacity: 5},
		},
		People: []models.Person{
			{ID: 7, Name: "Rita", Function: models.FunctionNurse, Location: models.Outside},
		},
		Edges: []models.Edge{{Room1: 0, Room2: 1, Weight: 2.5}},
		Events: []models.Event{
			{PersonID: 7, From: models.Outside, To: 0, Time: t0},
			{PersonID: 7, From: models.Outside, To: 9, Time: t0.Add(time.Minute)},
			{PersonID: 7, From: 0, To: 1, Time: t0.Add(2 * time.Minute)},
		},
	}
}

func TestBuildHospital_StrictStopsAtBadEvent(t *testing.T) {
	_, err := buildHospital(smallSnapshot(), testLogger(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBuildHospital_LenientSkipsBadEvent(t *testing.T) {
	h, err := buildHospital(smallSnapshot(), testLogger(), true)
	require.NoError(t, err)

	assert.Equal(t, 2, h.Stats().Events)
	p, err := h.Person(7)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Location)
}

func TestParseID(t *testing.T) {
	id, err := parseID("room", "12")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = parseID("room", "ward")
	assert.ErrorContains(t, err, "room id must be an integer")
}

func TestRoomLabel(t *testing.T) {
	assert.Equal(t, "outside", roomLabel(models.Outside))
	assert.Equal(t, "3", roomLabel(3))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "a b", truncate("a\nb", 10))
}

func TestWriteMap(t *testing.T) {
	h, err := buildHospital(smallSnapshot(), testLogger(), true)
	require.NoError(t, err)
	start := 1
	view, err := h.Map(&start)
	require.NoError(t, err)

	var text bytes.Buffer
	writeMapText(&text, view)
	assert.Contains(t, text.String(), "Main Exit")
	assert.Contains(t, text.String(), "0 <-> 1")
	assert.Contains(t, text.String(), "Reachable: [1 0]")

	var dot bytes.Buffer
	writeMapDOT(&dot, view)
	out := dot.String()
	assert.Contains(t, out, "graph facility {")
	assert.Contains(t, out, `r0 [label="0 Main Exit" shape=doubleoctagon];`)
	assert.Contains(t, out, `r1 [label="1 Lobby" shape=box];`)
	assert.Contains(t, out, `r0 -- r1 [label="2.5"];`)
}
