package hospital

import (
	"fmt"

	"github.com/ajitpratap0/wardtrace/internal/models"
)

// Snapshot exports the full record set. Rooms and people are ordered by
// id, edges by endpoints, and events keep their recording order.
func (h *Hospital) Snapshot() models.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	people := make([]models.Person, 0, len(h.people))
	for _, p := range h.people {
		people = append(people, *p)
	}
	models.SortPeople(people)
	return models.Snapshot{
		Rooms:  h.roomsLocked(func(*models.Room) bool { return true }),
		People: people,
		Edges:  h.graph.Edges(),
		Events: append([]models.Event(nil), h.events...),
	}
}

// EventErrorHandler decides what a rejected event does to a load. Returning
// nil skips the event; returning an error aborts.
type EventErrorHandler func(index int, e models.Event, err error) error

// FromSnapshot assembles a hospital from loader records: rooms, then
// people, then the map, then events. Invalid rooms, people or edges abort
// the load. Rejected events go to onEventErr; a nil handler aborts on the
// first one.
func FromSnapshot(s *models.Snapshot, onEventErr EventErrorHandler) (*Hospital, error) {
	h := New()
	for i := range s.Rooms {
		if err := h.AddRoom(s.Rooms[i]); err != nil {
			return nil, fmt.Errorf("loading room %d: %w", s.Rooms[i].ID, err)
		}
	}
	for i := range s.People {
		if err := h.AddPerson(s.People[i]); err != nil {
			return nil, fmt.Errorf("loading person %d: %w", s.People[i].ID, err)
		}
	}
	if err := h.SetHospitalMap(s.Edges); err != nil {
		return nil, err
	}
	for i, e := range s.Events {
		err := h.AddEvent(e)
		if err == nil {
			continue
		}
		if onEventErr == nil {
			return nil, fmt.Errorf("loading event %d: %w", i, err)
		}
		if abort := onEventErr(i, e, err); abort != nil {
			return nil, abort
		}
	}
	return h, nil
}
