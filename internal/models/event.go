package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// localTimeLayout is the zone-less ISO layout used by older event exports.
const localTimeLayout = "2006-01-02T15:04:05"

// Event records a person moving between two rooms. From == Outside is an
// entry into the facility and To == Outside an exit. Events are values and
// never change once logged.
type Event struct {
	PersonID int
	From     int
	To       int
	Time     time.Time
}

// Equal reports whether both events have the same person, rooms and instant.
func (e Event) Equal(o Event) bool {
	return e.PersonID == o.PersonID && e.From == o.From && e.To == o.To && e.Time.Equal(o.Time)
}

// Key returns a comparable identity for the event, consistent with Equal.
func (e Event) Key() string {
	return fmt.Sprintf("%d|%d|%d|%s", e.PersonID, e.From, e.To, e.Time.UTC().Format(time.RFC3339Nano))
}

// Touches reports whether the event enters or leaves roomID.
func (e Event) Touches(roomID int) bool {
	return e.From == roomID || e.To == roomID
}

type eventWire struct {
	PersonID int    `json:"personId"`
	From     *int   `json:"fromRoomId"`
	To       *int   `json:"toRoomId"`
	Time     string `json:"time"`
}

// MarshalJSON encodes Outside as null and the time as RFC 3339.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{
		PersonID: e.PersonID,
		From:     refPtr(e.From),
		To:       refPtr(e.To),
		Time:     e.Time.Format(time.RFC3339Nano),
	})
}

// UnmarshalJSON accepts RFC 3339 times and zone-less local times, the
// latter read as UTC.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding event: %w", err)
	}
	t, err := ParseTime(w.Time)
	if err != nil {
		return err
	}
	*e = Event{
		PersonID: w.PersonID,
		From:     refFromPtr(w.From),
		To:       refFromPtr(w.To),
		Time:     t,
	}
	return nil
}

// ParseTime parses RFC 3339 or the zone-less local layout.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unparseable time %q", ErrInvalidRecord, s)
	}
	return t, nil
}

// SortEvents orders events chronologically. Ties break on person, from and
// to so the result does not depend on the input order. Same-instant moves of
// one person are not chained here; the tracer does that.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		if a.PersonID != b.PersonID {
			return a.PersonID < b.PersonID
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})
}
