package models_test

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/wardtrace/internal/models"
)

func TestRoom_OccupancyInvariant(t *testing.T) {
	room := models.Room{ID: 1, Name: "Ward A", Type: models.RoomTypeHospitalization, Capacity: 3}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		before := room.CurrentOccupation
		var err error
		if rng.Intn(2) == 0 {
			err = room.IncreaseOccupation()
			if before == room.Capacity {
				assert.True(t, errors.Is(err, models.ErrCapacityExceeded))
				assert.Equal(t, before, room.CurrentOccupation)
			}
		} else {
			err = room.DecreaseOccupation()
			if before == 0 {
				assert.True(t, errors.Is(err, models.ErrOccupancyUnderflow))
				assert.Equal(t, before, room.CurrentOccupation)
			}
		}
		assert.GreaterOrEqual(t, room.CurrentOccupation, 0)
		assert.LessOrEqual(t, room.CurrentOccupation, room.Capacity)
	}
}

func TestRoom_IncreaseAtCapacity(t *testing.T) {
	room := models.Room{ID: 2, Type: models.RoomTypeOffice, Capacity: 1}
	require.NoError(t, room.IncreaseOccupation())
	assert.True(t, room.IsOccupied())

	err := room.IncreaseOccupation()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrCapacityExceeded))
	assert.Equal(t, 1, room.CurrentOccupation)
}

func TestRoom_DecreaseAtZero(t *testing.T) {
	room := models.Room{ID: 3, Type: models.RoomTypeWaiting, Capacity: 5}
	err := room.DecreaseOccupation()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrOccupancyUnderflow))
	assert.Zero(t, room.CurrentOccupation)
	assert.False(t, room.IsOccupied())
}

func TestRoom_ZeroCapacityIsOccupied(t *testing.T) {
	room := models.Room{ID: 4, Type: models.RoomTypeOffice}
	assert.True(t, room.IsOccupied())
}

func TestRoom_AccessIdempotent(t *testing.T) {
	once := models.Room{ID: 5, Type: models.RoomTypeSurgery}
	once.AddAccess(models.FunctionDoctor)

	twice := models.Room{ID: 5, Type: models.RoomTypeSurgery}
	twice.AddAccess(models.FunctionDoctor)
	twice.AddAccess(models.FunctionDoctor)

	assert.True(t, once.Access.Equal(twice.Access))
	assert.Equal(t, []models.Function{models.FunctionDoctor}, twice.Access.Roles())

	twice.RemoveAccess(models.FunctionNurse)
	assert.True(t, once.Access.Equal(twice.Access))

	twice.RemoveAccess(models.FunctionDoctor)
	twice.RemoveAccess(models.FunctionDoctor)
	assert.False(t, twice.Permits(models.FunctionDoctor))
	assert.True(t, twice.Access.Restricted())
}

func TestRoom_AccessStates(t *testing.T) {
	room := models.Room{ID: 6, Type: models.RoomTypeCommon}
	for _, fn := range models.ValidFunctions {
		assert.True(t, room.Permits(fn), "fresh room should admit %s", fn)
	}

	room.AddAccess(models.FunctionNurse)
	assert.True(t, room.Permits(models.FunctionNurse))
	assert.False(t, room.Permits(models.FunctionVisitor))

	room.RevokeAccess()
	for _, fn := range models.ValidFunctions {
		assert.False(t, room.Permits(fn), "revoked room should refuse %s", fn)
	}
	assert.NotNil(t, room.Access.Roles())
	assert.Empty(t, room.Access.Roles())

	room.OpenAccess()
	assert.True(t, room.Permits(models.FunctionVisitor))
	assert.Nil(t, room.Access.Roles())
}

func TestRoom_CloneIsDeep(t *testing.T) {
	room := models.Room{ID: 7, Type: models.RoomTypeLaboratory}
	room.AddAccess(models.FunctionDoctor)

	c := room.Clone()
	c.AddAccess(models.FunctionCleaner)

	assert.False(t, room.Permits(models.FunctionCleaner))
	assert.True(t, c.Permits(models.FunctionCleaner))
}

func TestRoom_Validate(t *testing.T) {
	ok := models.Room{ID: 1, Type: models.RoomTypeExit, Capacity: 2, CurrentOccupation: 2}
	assert.NoError(t, ok.Validate())

	bad := []models.Room{
		{ID: -2, Type: models.RoomTypeExit},
		{ID: 1, Type: "ballroom"},
		{ID: 1, Type: models.RoomTypeExit, Capacity: -1},
		{ID: 1, Type: models.RoomTypeExit, Capacity: 1, CurrentOccupation: 2},
	}
	for _, r := range bad {
		assert.True(t, errors.Is(r.Validate(), models.ErrInvalidRecord), "room %+v", r)
	}
}

func TestRoom_JSONAccessConventions(t *testing.T) {
	open := models.Room{ID: 1, Name: "Hall", Type: models.RoomTypeCommon, Capacity: 10}
	revoked := models.Room{ID: 2, Name: "Vault", Type: models.RoomTypeStorage, Capacity: 1}
	revoked.RevokeAccess()
	listed := models.Room{ID: 3, Name: "OR", Type: models.RoomTypeSurgery, Capacity: 4}
	listed.AddAccess(models.FunctionNurse)
	listed.AddAccess(models.FunctionDoctor)

	b, err := json.Marshal([]models.Room{open, revoked, listed})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"access":null`)
	assert.Contains(t, string(b), `"access":[]`)
	assert.Contains(t, string(b), `"access":["doctor","nurse"]`)

	var back []models.Room
	require.NoError(t, json.Unmarshal(b, &back))
	require.Len(t, back, 3)
	assert.True(t, back[0].Access.Equal(open.Access))
	assert.True(t, back[1].Access.Equal(revoked.Access))
	assert.True(t, back[2].Access.Equal(listed.Access))
}

func TestRoom_JSONAcceptsUpperCaseNames(t *testing.T) {
	var room models.Room
	err := json.Unmarshal([]byte(`{"id":4,"name":"Exit North","type":"EXIT","capacity":2,"currentOccupation":0,"access":["Doctor","SECURITY"]}`), &room)
	require.NoError(t, err)
	assert.Equal(t, models.RoomTypeExit, room.Type)
	assert.True(t, room.Permits(models.FunctionSecurity))
	assert.False(t, room.Permits(models.FunctionVisitor))

	err = json.Unmarshal([]byte(`{"id":4,"type":"ballroom"}`), &room)
	assert.Error(t, err)
}

func TestEvent_EqualityAndKey(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a := models.Event{PersonID: 1, From: models.Outside, To: 3, Time: ts}
	b := models.Event{PersonID: 1, From: models.Outside, To: 3, Time: ts.In(time.FixedZone("X", 3600))}
	c := models.Event{PersonID: 1, From: 2, To: 3, Time: ts}

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestEvent_KeyOutsideNanosecondRange(t *testing.T) {
	// Two instants 2^64 ns apart share a wrapped UnixNano value.
	zero := time.Time{}
	far := zero.Add(math.MaxInt64).Add(math.MaxInt64).Add(2)
	a := models.Event{PersonID: 1, From: models.Outside, To: 3, Time: zero}
	b := models.Event{PersonID: 1, From: models.Outside, To: 3, Time: far}

	require.Equal(t, zero.UnixNano(), far.UnixNano())
	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), models.Event{PersonID: 1, From: models.Outside, To: 3}.Key())
}

func TestEvent_JSON(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e := models.Event{PersonID: 9, From: models.Outside, To: 3, Time: ts}

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"personId":9,"fromRoomId":null,"toRoomId":3,"time":"2024-01-02T03:04:05Z"}`, string(b))

	var back models.Event
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, e.Equal(back))

	var legacy models.Event
	require.NoError(t, json.Unmarshal([]byte(`{"personId":9,"fromRoomId":1,"toRoomId":3,"time":"2024-01-02T03:04:05"}`), &legacy))
	assert.Equal(t, 1, legacy.From)
	assert.True(t, legacy.Time.Equal(ts))

	assert.Error(t, json.Unmarshal([]byte(`{"personId":9,"time":"yesterday"}`), &legacy))
}

func TestPerson_JSONLocation(t *testing.T) {
	in := models.Person{ID: 1, Name: "Ana", Age: 40, Function: models.FunctionDoctor, Location: models.Outside}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"location":null`)

	var back models.Person
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, in, back)
	assert.False(t, back.Inside())

	require.NoError(t, json.Unmarshal([]byte(`{"id":2,"name":"Rui","age":30,"function":"NURSE"}`), &back))
	assert.Equal(t, models.Outside, back.Location)
	assert.Equal(t, models.FunctionNurse, back.Function)
}

func TestEdge_Normalized(t *testing.T) {
	e := models.Edge{Room1: 5, Room2: 2, Weight: 1.5}.Normalized()
	assert.Equal(t, models.Edge{Room1: 2, Room2: 5, Weight: 1.5}, e)
	assert.True(t, errors.Is(models.Edge{Room1: 1, Room2: 1}.Validate(), models.ErrInvalidEdge))
}

func TestParseWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	w, err := models.ParseWindow("", "", now, 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, w.End.Equal(now))
	assert.True(t, w.Start.Equal(now.Add(-2*time.Hour)))

	w, err = models.ParseWindow("2024-05-01T08:00:00Z", "2024-05-01T09:00:00", now, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 8, w.Start.Hour())
	assert.Equal(t, 9, w.End.Hour())

	_, err = models.ParseWindow("2024-05-01T10:00:00Z", "2024-05-01T09:00:00Z", now, time.Hour)
	assert.True(t, errors.Is(err, models.ErrInvalidWindow))

	_, err = models.ParseWindow("noon", "", now, time.Hour)
	assert.True(t, errors.Is(err, models.ErrInvalidRecord))
}
