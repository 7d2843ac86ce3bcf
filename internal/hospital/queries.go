package hospital

import (
	"fmt"

	"github.com/ajitpratap0/wardtrace/internal/models"
	"github.com/ajitpratap0/wardtrace/internal/tracing"
)

// MapView is a plain rendering of the facility map.
type MapView struct {
	Rooms []models.Room  `json:"rooms"`
	Edges []models.Edge  `json:"edges"`
	Order []int          `json:"order,omitempty"`
	Exits map[int]string `json:"exits,omitempty"`
}

// Room returns a copy of a room.
func (h *Hospital) Room(id int) (models.Room, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[id]
	if !ok {
		return models.Room{}, fmt.Errorf("room %d: %w", id, models.ErrNotFound)
	}
	return room.Clone(), nil
}

// Person returns a copy of a person.
func (h *Hospital) Person(id int) (models.Person, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.people[id]
	if !ok {
		return models.Person{}, fmt.Errorf("person %d: %w", id, models.ErrNotFound)
	}
	return *p, nil
}

// Rooms returns copies of all rooms ordered by id.
func (h *Hospital) Rooms() []models.Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.roomsLocked(func(*models.Room) bool { return true })
}

func (h *Hospital) roomsLocked(keep func(*models.Room) bool) []models.Room {
	out := make([]models.Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	models.SortRooms(out)
	return out
}

// People returns copies of all people ordered by id.
func (h *Hospital) People() []models.Person {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.Person, 0, len(h.people))
	for _, p := range h.people {
		out = append(out, *p)
	}
	models.SortPeople(out)
	return out
}

// Events returns the movement log in recording order.
func (h *Hospital) Events() []models.Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]models.Event(nil), h.events...)
}

// RoomEvents returns the events that entered or left a room, in recording order.
func (h *Hospital) RoomEvents(roomID int) ([]models.Event, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[roomID]; !ok {
		return nil, fmt.Errorf("room %d: %w", roomID, models.ErrNotFound)
	}
	return h.pick(h.roomEvents[roomID]), nil
}

// PersonEvents returns a person's events in recording order.
func (h *Hospital) PersonEvents(personID int) ([]models.Event, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.people[personID]; !ok {
		return nil, fmt.Errorf("person %d: %w", personID, models.ErrNotFound)
	}
	return h.pick(h.personEvents[personID]), nil
}

func (h *Hospital) pick(idx []int) []models.Event {
	out := make([]models.Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, h.events[i])
	}
	return out
}

// FindClosestExit returns the cheapest route from a room to any exit.
// ok is false when no exit is reachable.
func (h *Hospital) FindClosestExit(roomID int) (route models.Route, ok bool, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, known := h.rooms[roomID]; !known {
		return models.Route{}, false, fmt.Errorf("room %d: %w", roomID, models.ErrNotFound)
	}
	return h.graph.NearestExit(roomID, h.isExitLocked)
}

func (h *Hospital) isExitLocked(id int) bool {
	r, ok := h.rooms[id]
	return ok && r.IsExit()
}

// ShortestPath returns the cheapest route between two rooms.
func (h *Hospital) ShortestPath(from, to int) (models.Route, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph.ShortestPath(from, to)
}

// GetAccessibleRooms returns every room that admits the person's function,
// regardless of reachability, ordered by id.
func (h *Hospital) GetAccessibleRooms(personID int) ([]models.Room, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.people[personID]
	if !ok {
		return nil, fmt.Errorf("person %d: %w", personID, models.ErrNotFound)
	}
	return h.roomsLocked(func(r *models.Room) bool { return r.Permits(p.Function) }), nil
}

// AccessibleNeighbors returns the rooms the person could move to next:
// rooms adjacent to their location that admit them. Someone outside the
// facility may enter through any exit that admits them.
func (h *Hospital) AccessibleNeighbors(personID int) ([]models.Room, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.people[personID]
	if !ok {
		return nil, fmt.Errorf("person %d: %w", personID, models.ErrNotFound)
	}
	if !p.Inside() {
		return h.roomsLocked(func(r *models.Room) bool { return r.IsExit() && r.Permits(p.Function) }), nil
	}
	out := make([]models.Room, 0)
	for _, n := range h.graph.Neighbors(p.Location) {
		if r := h.rooms[n]; r.Permits(p.Function) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// HadContactWithIndividual returns everyone who shared a room with the
// person inside w.
func (h *Hospital) HadContactWithIndividual(personID int, w models.Window) ([]models.Contact, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.people[personID]; !ok {
		return nil, fmt.Errorf("person %d: %w", personID, models.ErrNotFound)
	}
	matches, err := tracing.New(h.events).PersonContacts(personID, w)
	if err != nil {
		return nil, err
	}
	return h.contactsLocked(matches), nil
}

// HadContactWithRoom returns everyone whose stay in the room intersects w.
func (h *Hospital) HadContactWithRoom(roomID int, w models.Window) ([]models.Contact, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[roomID]; !ok {
		return nil, fmt.Errorf("room %d: %w", roomID, models.ErrNotFound)
	}
	matches, err := tracing.New(h.events).RoomContacts(roomID, w)
	if err != nil {
		return nil, err
	}
	return h.contactsLocked(matches), nil
}

func (h *Hospital) contactsLocked(matches []tracing.Match) []models.Contact {
	out := make([]models.Contact, 0, len(matches))
	for _, m := range matches {
		c := models.Contact{PersonID: m.PersonID, RoomID: m.RoomID, From: m.From, To: m.To}
		if p, ok := h.people[m.PersonID]; ok {
			c.Name = p.Name
			c.Function = p.Function
		}
		out = append(out, c)
	}
	return out
}

// Stays returns a person's reconstructed room stays.
func (h *Hospital) Stays(personID int) ([]tracing.Interval, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.people[personID]; !ok {
		return nil, fmt.Errorf("person %d: %w", personID, models.ErrNotFound)
	}
	return tracing.New(h.events).Intervals(personID), nil
}

// Map returns every room and passage. When start is a known room, Order
// lists the rooms reachable from it breadth-first.
func (h *Hospital) Map(start *int) (MapView, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	view := MapView{
		Rooms: h.roomsLocked(func(*models.Room) bool { return true }),
		Edges: h.graph.Edges(),
		Exits: make(map[int]string),
	}
	for _, r := range view.Rooms {
		if r.IsExit() {
			view.Exits[r.ID] = r.Name
		}
	}
	if start != nil {
		order, err := h.graph.Reachable(*start)
		if err != nil {
			return MapView{}, err
		}
		view.Order = order
	}
	return view, nil
}

// Stats summarizes the facility.
func (h *Hospital) Stats() models.Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := models.Stats{
		Rooms:      len(h.rooms),
		Edges:      len(h.graph.Edges()),
		People:     len(h.people),
		Events:     len(h.events),
		ByType:     make(map[models.RoomType]int),
		ByFunction: make(map[models.Function]int),
	}
	for _, r := range h.rooms {
		s.ByType[r.Type]++
		if r.IsExit() {
			s.Exits++
		}
		if r.IsOccupied() {
			s.FullRooms++
		}
		if r.Access.Restricted() {
			s.RestrictedRooms++
		}
	}
	for _, p := range h.people {
		s.ByFunction[p.Function]++
		if p.Inside() {
			s.PeopleInside++
		}
	}
	return s
}
