package models

import (
	"fmt"
	"time"
)

// Snapshot is the full record set exchanged with loaders and exporters.
type Snapshot struct {
	Rooms  []Room   `json:"rooms"`
	People []Person `json:"people"`
	Edges  []Edge   `json:"edges"`
	Events []Event  `json:"events"`
}

// Window is a closed time interval [Start, End].
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParseWindow builds a window from optional start and end strings. A
// missing end is now; a missing start is lookback before the end.
func ParseWindow(start, end string, now time.Time, lookback time.Duration) (Window, error) {
	w := Window{End: now.UTC()}
	if end != "" {
		t, err := ParseTime(end)
		if err != nil {
			return Window{}, err
		}
		w.End = t
	}
	w.Start = w.End.Add(-lookback)
	if start != "" {
		t, err := ParseTime(start)
		if err != nil {
			return Window{}, err
		}
		w.Start = t
	}
	if w.End.Before(w.Start) {
		return Window{}, fmt.Errorf("%w: %s is before %s", ErrInvalidWindow,
			w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return w, nil
}

// Stats summarizes a facility.
type Stats struct {
	Rooms           int              `json:"rooms"`
	Exits           int              `json:"exits"`
	Edges           int              `json:"edges"`
	People          int              `json:"people"`
	PeopleInside    int              `json:"people_inside"`
	Events          int              `json:"events"`
	FullRooms       int              `json:"full_rooms"`
	RestrictedRooms int              `json:"restricted_rooms"`
	ByType          map[RoomType]int `json:"by_type"`
	ByFunction      map[Function]int `json:"by_function"`
}

// Route is a path from a start room to an exit.
type Route struct {
	Start  int     `json:"start"`
	Exit   int     `json:"exit"`
	Weight float64 `json:"weight"`
	Path   []int   `json:"path"`
}

// Contact is a person found by a contact trace, with the room and instant
// span of the first detected overlap.
type Contact struct {
	PersonID int       `json:"person_id"`
	Name     string    `json:"name"`
	Function Function  `json:"function"`
	RoomID   int       `json:"room_id"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
}
