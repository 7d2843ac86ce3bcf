// Package hospital is the facility aggregate: it owns rooms, people, the
// movement log and the facility map, and exposes the query and mutation
// surface used by loaders and presentation layers.
//
// A Hospital guards its state with a single RWMutex. Queries take the read
// lock and never mutate; occupancy, access and movement changes take the
// write lock.
package hospital

import (
	"fmt"
	"sync"
	"time"

	"github.com/ajitpratap0/wardtrace/internal/graph"
	"github.com/ajitpratap0/wardtrace/internal/models"
)

// Hospital holds the authoritative collections. Cross references between
// people, rooms and events are ids into these collections.
type Hospital struct {
	mu sync.RWMutex

	rooms  map[int]*models.Room
	people map[int]*models.Person
	graph  *graph.Graph

	events       []models.Event
	eventKeys    map[string]struct{}
	roomEvents   map[int][]int
	personEvents map[int][]int
	lastMove     map[int]time.Time
}

// New returns an empty hospital.
func New() *Hospital {
	return &Hospital{
		rooms:        make(map[int]*models.Room),
		people:       make(map[int]*models.Person),
		graph:        graph.New(),
		eventKeys:    make(map[string]struct{}),
		roomEvents:   make(map[int][]int),
		personEvents: make(map[int][]int),
		lastMove:     make(map[int]time.Time),
	}
}

// AddRoom registers a room and makes it a vertex of the map.
func (h *Hospital) AddRoom(room models.Room) error {
	if err := room.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room.ID]; ok {
		return fmt.Errorf("%w: room %d already exists", models.ErrInvalidRecord, room.ID)
	}
	stored := room.Clone()
	h.rooms[room.ID] = &stored
	h.graph.AddVertex(room.ID)
	return nil
}

// AddPerson registers a person. A non-Outside location must name a known room.
func (h *Hospital) AddPerson(person models.Person) error {
	if err := person.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.people[person.ID]; ok {
		return fmt.Errorf("%w: person %d already exists", models.ErrInvalidRecord, person.ID)
	}
	if person.Inside() {
		if _, ok := h.rooms[person.Location]; !ok {
			return fmt.Errorf("person %d location room %d: %w", person.ID, person.Location, models.ErrNotFound)
		}
	}
	stored := person
	h.people[person.ID] = &stored
	return nil
}

// SetHospitalMap replaces every passage with edges. The map is left
// untouched if any edge is rejected.
func (h *Hospital) SetHospitalMap(edges []models.Edge) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	g := graph.New()
	for id := range h.rooms {
		g.AddVertex(id)
	}
	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			return fmt.Errorf("setting hospital map: %w", err)
		}
	}
	h.graph = g
	return nil
}

// AddEdge adds or reweights a single passage.
func (h *Hospital) AddEdge(e models.Edge) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.graph.AddEdge(e)
}

// AddEvent appends a historical event. It checks references only and
// leaves occupancy counters alone. The person's location follows the
// event when it is their most recent one; a move at the same instant as
// the latest one counts only when it leaves the current location.
func (h *Hospital) AddEvent(e models.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkEventRefs(e); err != nil {
		return err
	}
	if _, dup := h.eventKeys[e.Key()]; dup {
		return fmt.Errorf("person %d at %s: %w", e.PersonID, e.Time.Format(time.RFC3339), models.ErrDuplicateEvent)
	}
	h.appendEvent(e)
	person := h.people[e.PersonID]
	last, ok := h.lastMove[e.PersonID]
	switch {
	case !ok || e.Time.After(last):
	case e.Time.Equal(last) && e.From == person.Location:
		// Same-instant moves chain from the current location.
	default:
		return nil
	}
	person.Location = e.To
	h.lastMove[e.PersonID] = e.Time
	return nil
}

func (h *Hospital) checkEventRefs(e models.Event) error {
	if _, ok := h.people[e.PersonID]; !ok {
		return fmt.Errorf("event person %d: %w", e.PersonID, models.ErrNotFound)
	}
	if e.From == e.To {
		return fmt.Errorf("%w: person %d moves from room %d to itself", models.ErrInvalidMove, e.PersonID, e.From)
	}
	for _, id := range []int{e.From, e.To} {
		if id == models.Outside {
			continue
		}
		if _, ok := h.rooms[id]; !ok {
			return fmt.Errorf("event room %d: %w", id, models.ErrNotFound)
		}
	}
	return nil
}

func (h *Hospital) appendEvent(e models.Event) {
	idx := len(h.events)
	h.events = append(h.events, e)
	h.eventKeys[e.Key()] = struct{}{}
	h.personEvents[e.PersonID] = append(h.personEvents[e.PersonID], idx)
	if e.From != models.Outside {
		h.roomEvents[e.From] = append(h.roomEvents[e.From], idx)
	}
	if e.To != models.Outside {
		h.roomEvents[e.To] = append(h.roomEvents[e.To], idx)
	}
}

// RecordMove moves a person to toRoom (or Outside) at the given instant.
//
// The target must admit the person's function. Entering the facility and
// leaving it both go through an exit room; any other move must follow a
// passage. A full target rejects the move with ErrCapacityExceeded and
// nothing changes. The source counter is decremented only while positive.
func (h *Hospital) RecordMove(personID, toRoom int, at time.Time) (models.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	person, ok := h.people[personID]
	if !ok {
		return models.Event{}, fmt.Errorf("person %d: %w", personID, models.ErrNotFound)
	}
	from := person.Location
	if toRoom == from {
		return models.Event{}, fmt.Errorf("%w: person %d is already in room %d", models.ErrInvalidMove, personID, toRoom)
	}
	if last, seen := h.lastMove[personID]; seen && at.Before(last) {
		return models.Event{}, fmt.Errorf("%w: move at %s predates last move at %s",
			models.ErrInvalidMove, at.Format(time.RFC3339), last.Format(time.RFC3339))
	}

	var target *models.Room
	if toRoom != models.Outside {
		if target, ok = h.rooms[toRoom]; !ok {
			return models.Event{}, fmt.Errorf("room %d: %w", toRoom, models.ErrNotFound)
		}
		if !target.Permits(person.Function) {
			return models.Event{}, fmt.Errorf("room %d refuses %s: %w", toRoom, person.Function, models.ErrAccessDenied)
		}
	}
	source := h.rooms[from]

	switch {
	case from == models.Outside:
		if !target.IsExit() {
			return models.Event{}, fmt.Errorf("%w: the facility is entered through an exit, room %d is %s",
				models.ErrInvalidMove, toRoom, target.Type)
		}
	case toRoom == models.Outside:
		if source == nil || !source.IsExit() {
			return models.Event{}, fmt.Errorf("%w: the facility is left through an exit, person %d is in room %d",
				models.ErrInvalidMove, personID, from)
		}
	default:
		if !h.graph.Adjacent(from, toRoom) {
			return models.Event{}, fmt.Errorf("%w: no passage between room %d and room %d", models.ErrInvalidMove, from, toRoom)
		}
	}

	e := models.Event{PersonID: personID, From: from, To: toRoom, Time: at}
	if _, dup := h.eventKeys[e.Key()]; dup {
		return models.Event{}, fmt.Errorf("person %d at %s: %w", personID, at.Format(time.RFC3339), models.ErrDuplicateEvent)
	}

	if target != nil {
		if err := target.IncreaseOccupation(); err != nil {
			return models.Event{}, err
		}
	}
	if source != nil && source.CurrentOccupation > 0 {
		_ = source.DecreaseOccupation()
	}

	h.appendEvent(e)
	person.Location = toRoom
	h.lastMove[personID] = at
	return e, nil
}

// IncreaseOccupation admits one person to a room's counter.
func (h *Hospital) IncreaseOccupation(roomID int) error {
	return h.mutateRoom(roomID, func(r *models.Room) error { return r.IncreaseOccupation() })
}

// DecreaseOccupation releases one person from a room's counter.
func (h *Hospital) DecreaseOccupation(roomID int) error {
	return h.mutateRoom(roomID, func(r *models.Room) error { return r.DecreaseOccupation() })
}

// GrantAccess permits fn in a room.
func (h *Hospital) GrantAccess(roomID int, fn models.Function) error {
	if !fn.IsValid() {
		return fmt.Errorf("%w: unknown function %q", models.ErrInvalidRecord, fn)
	}
	return h.mutateRoom(roomID, func(r *models.Room) error { r.AddAccess(fn); return nil })
}

// RemoveAccess drops fn from a room's list.
func (h *Hospital) RemoveAccess(roomID int, fn models.Function) error {
	return h.mutateRoom(roomID, func(r *models.Room) error { r.RemoveAccess(fn); return nil })
}

// RevokeAccess closes a room to everyone.
func (h *Hospital) RevokeAccess(roomID int) error {
	return h.mutateRoom(roomID, func(r *models.Room) error { r.RevokeAccess(); return nil })
}

// OpenAccess lifts every restriction on a room.
func (h *Hospital) OpenAccess(roomID int) error {
	return h.mutateRoom(roomID, func(r *models.Room) error { r.OpenAccess(); return nil })
}

func (h *Hospital) mutateRoom(roomID int, fn func(*models.Room) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[roomID]
	if !ok {
		return fmt.Errorf("room %d: %w", roomID, models.ErrNotFound)
	}
	return fn(room)
}
