// Package tracing reconstructs room stays from the movement log and
// answers interval-overlap contact queries over them.
//
// A stay opens at an event whose destination is the room and closes at the
// person's next event whose origin is the room. A stay with no closing
// event is ongoing and is treated as lasting through the end of whatever
// window is being queried. Intervals are closed, so two stays that touch at
// a single instant count as contact.
package tracing

import (
	"fmt"
	"sort"
	"time"

	"github.com/ajitpratap0/wardtrace/internal/models"
)

// Interval is one reconstructed stay of a person in a room.
type Interval struct {
	PersonID int       `json:"person_id"`
	RoomID   int       `json:"room_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Open     bool      `json:"open"`
}

// endWithin returns the stay's end, substituting the window end for an
// ongoing stay.
func (iv Interval) endWithin(w models.Window) time.Time {
	if iv.Open {
		return w.End
	}
	return iv.End
}

// Match is a person found by a trace together with the room and the span
// of the earliest overlap that qualified them.
type Match struct {
	PersonID int
	RoomID   int
	From     time.Time
	To       time.Time
}

// Overlaps reports whether the closed intervals [a1,a2] and [b1,b2] share
// at least one instant.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return !a1.After(b2) && !b1.After(a2)
}

// Tracer indexes stays by person and by room. It is immutable once built.
type Tracer struct {
	byPerson map[int][]Interval
	byRoom   map[int][]Interval
}

// New builds a Tracer from events in any order. The input slice is not
// modified.
func New(events []models.Event) *Tracer {
	perPerson := make(map[int][]models.Event)
	for _, e := range events {
		perPerson[e.PersonID] = append(perPerson[e.PersonID], e)
	}

	t := &Tracer{
		byPerson: make(map[int][]Interval),
		byRoom:   make(map[int][]Interval),
	}
	for pid, evs := range perPerson {
		models.SortEvents(evs)
		chainSimultaneous(evs)
		for _, iv := range reconstruct(pid, evs) {
			t.byPerson[pid] = append(t.byPerson[pid], iv)
			t.byRoom[iv.RoomID] = append(t.byRoom[iv.RoomID], iv)
		}
	}
	for _, ivs := range t.byRoom {
		sortIntervals(ivs)
	}
	for _, ivs := range t.byPerson {
		sortIntervals(ivs)
	}
	return t
}

// chainSimultaneous reorders each run of a person's events that share an
// instant so that every move starts where the previous one ended. The input
// must already be sorted, which keeps the result independent of log order.
func chainSimultaneous(sorted []models.Event) {
	loc, known := models.Outside, false
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].Time.Equal(sorted[i].Time) {
			j++
		}
		run := sorted[i:j]
		for k := range run {
			pick := -1
			if known {
				for m := k; m < len(run); m++ {
					if run[m].From == loc {
						pick = m
						break
					}
				}
			}
			if pick < 0 {
				pick = k + chainHead(run[k:])
			}
			run[k], run[pick] = run[pick], run[k]
			loc, known = run[k].To, true
		}
		i = j
	}
}

// chainHead returns the index of the first event in run whose origin is not
// the destination of another event in run, or 0 when every origin is.
func chainHead(run []models.Event) int {
	for m, e := range run {
		fed := false
		for n, o := range run {
			if n != m && o.To == e.From {
				fed = true
				break
			}
		}
		if !fed {
			return m
		}
	}
	return 0
}

func reconstruct(personID int, sorted []models.Event) []Interval {
	var out []Interval
	open := make(map[int]time.Time)
	for _, e := range sorted {
		if e.From != models.Outside {
			if start, ok := open[e.From]; ok {
				out = append(out, Interval{PersonID: personID, RoomID: e.From, Start: start, End: e.Time})
				delete(open, e.From)
			}
		}
		if e.To != models.Outside {
			if _, ok := open[e.To]; !ok {
				open[e.To] = e.Time
			}
		}
	}
	for room, start := range open {
		out = append(out, Interval{PersonID: personID, RoomID: room, Start: start, Open: true})
	}
	return out
}

func sortIntervals(ivs []Interval) {
	sort.Slice(ivs, func(i, j int) bool {
		if !ivs[i].Start.Equal(ivs[j].Start) {
			return ivs[i].Start.Before(ivs[j].Start)
		}
		if ivs[i].PersonID != ivs[j].PersonID {
			return ivs[i].PersonID < ivs[j].PersonID
		}
		return ivs[i].RoomID < ivs[j].RoomID
	})
}

// Intervals returns a person's stays ordered by start.
func (t *Tracer) Intervals(personID int) []Interval {
	return append([]Interval(nil), t.byPerson[personID]...)
}

// RoomIntervals returns all stays in a room ordered by start.
func (t *Tracer) RoomIntervals(roomID int) []Interval {
	return append([]Interval(nil), t.byRoom[roomID]...)
}

// RoomContacts returns everyone whose stay in roomID intersects w, ordered
// by person id.
func (t *Tracer) RoomContacts(roomID int, w models.Window) ([]Match, error) {
	if err := validateWindow(w); err != nil {
		return nil, err
	}
	found := make(map[int]Match)
	for _, iv := range t.byRoom[roomID] {
		end := iv.endWithin(w)
		if !Overlaps(iv.Start, end, w.Start, w.End) {
			continue
		}
		record(found, Match{
			PersonID: iv.PersonID,
			RoomID:   roomID,
			From:     later(iv.Start, w.Start),
			To:       earlier(end, w.End),
		})
	}
	return collect(found), nil
}

// PersonContacts returns everyone other than personID who shared a room
// with them inside w, ordered by person id. Each of the subject's stays is
// first clipped to w and then matched against other stays in the same room.
func (t *Tracer) PersonContacts(personID int, w models.Window) ([]Match, error) {
	if err := validateWindow(w); err != nil {
		return nil, err
	}
	found := make(map[int]Match)
	for _, own := range t.byPerson[personID] {
		ownEnd := own.endWithin(w)
		if !Overlaps(own.Start, ownEnd, w.Start, w.End) {
			continue
		}
		clipStart, clipEnd := later(own.Start, w.Start), earlier(ownEnd, w.End)

		for _, other := range t.byRoom[own.RoomID] {
			if other.PersonID == personID {
				continue
			}
			otherEnd := other.endWithin(w)
			if !Overlaps(clipStart, clipEnd, other.Start, otherEnd) {
				continue
			}
			record(found, Match{
				PersonID: other.PersonID,
				RoomID:   own.RoomID,
				From:     later(clipStart, other.Start),
				To:       earlier(clipEnd, otherEnd),
			})
		}
	}
	return collect(found), nil
}

func validateWindow(w models.Window) error {
	if w.End.Before(w.Start) {
		return fmt.Errorf("window %s..%s: %w", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), models.ErrInvalidWindow)
	}
	return nil
}

// record keeps the earliest overlap per person; ties go to the lower room id.
func record(found map[int]Match, m Match) {
	prev, ok := found[m.PersonID]
	if !ok || m.From.Before(prev.From) || (m.From.Equal(prev.From) && m.RoomID < prev.RoomID) {
		found[m.PersonID] = m
	}
}

func collect(found map[int]Match) []Match {
	out := make([]Match, 0, len(found))
	for _, m := range found {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonID < out[j].PersonID })
	return out
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
