package store

import (
	"fmt"
	"time"

	"github.com/ajitpratap0/wardtrace/internal/models"
)

// Conversions between records and Neo4j property maps. Neo4j hands back
// integers as int64 and lists as []any; absent properties mean Outside
// for locations and endpoints.

type neo4jParams struct {
	rooms, people, edges, events []map[string]any
}

func snapshotParams(s *models.Snapshot) neo4jParams {
	p := neo4jParams{
		rooms:  make([]map[string]any, 0, len(s.Rooms)),
		people: make([]map[string]any, 0, len(s.People)),
		edges:  make([]map[string]any, 0, len(s.Edges)),
		events: make([]map[string]any, 0, len(s.Events)),
	}
	for _, r := range s.Rooms {
		p.rooms = append(p.rooms, roomProps(r))
	}
	for _, person := range s.People {
		p.people = append(p.people, personProps(person))
	}
	for _, e := range s.Edges {
		n := e.Normalized()
		p.edges = append(p.edges, map[string]any{"room1": int64(n.Room1), "room2": int64(n.Room2), "weight": n.Weight})
	}
	for i, e := range s.Events {
		p.events = append(p.events, eventProps(i, e))
	}
	return p
}

func roomProps(r models.Room) map[string]any {
	roles := make([]string, 0)
	for _, fn := range r.Access.Roles() {
		roles = append(roles, string(fn))
	}
	return map[string]any{
		"id":                int64(r.ID),
		"name":              r.Name,
		"type":              string(r.Type),
		"capacity":          int64(r.Capacity),
		"currentOccupation": int64(r.CurrentOccupation),
		"restricted":        r.Access.Restricted(),
		"access":            roles,
	}
}

func personProps(p models.Person) map[string]any {
	return map[string]any{
		"id":       int64(p.ID),
		"name":     p.Name,
		"age":      int64(p.Age),
		"function": string(p.Function),
		"location": refProp(p.Location),
	}
}

func eventProps(seq int, e models.Event) map[string]any {
	return map[string]any{
		"seq":        int64(seq),
		"personId":   int64(e.PersonID),
		"fromRoomId": refProp(e.From),
		"toRoomId":   refProp(e.To),
		"time":       e.Time.UTC().Format(time.RFC3339Nano),
	}
}

func refProp(id int) any {
	if id == models.Outside {
		return nil
	}
	return int64(id)
}

func snapshotFromProps(rooms, people, edges, events []map[string]any) (*models.Snapshot, error) {
	s := &models.Snapshot{
		Rooms:  make([]models.Room, 0, len(rooms)),
		People: make([]models.Person, 0, len(people)),
		Edges:  make([]models.Edge, 0, len(edges)),
		Events: make([]models.Event, 0, len(events)),
	}
	for _, props := range rooms {
		r, err := roomFromProps(props)
		if err != nil {
			return nil, err
		}
		s.Rooms = append(s.Rooms, r)
	}
	for _, props := range people {
		p, err := personFromProps(props)
		if err != nil {
			return nil, err
		}
		s.People = append(s.People, p)
	}
	for _, props := range edges {
		e, err := edgeFromProps(props)
		if err != nil {
			return nil, err
		}
		s.Edges = append(s.Edges, e)
	}
	for _, props := range events {
		e, err := eventFromProps(props)
		if err != nil {
			return nil, err
		}
		s.Events = append(s.Events, e)
	}
	return s, nil
}

func roomFromProps(props map[string]any) (models.Room, error) {
	pr := propReader{props: props, kind: "room"}
	r := models.Room{
		ID:                pr.asInt("id"),
		Name:              pr.asString("name"),
		Capacity:          pr.asInt("capacity"),
		CurrentOccupation: pr.asInt("currentOccupation"),
	}
	rt, err := models.ParseRoomType(pr.asString("type"))
	if err != nil {
		return models.Room{}, err
	}
	r.Type = rt
	if restricted, _ := props["restricted"].(bool); restricted {
		r.RevokeAccess()
		for _, name := range pr.asStrings("access") {
			fn, err := models.ParseFunction(name)
			if err != nil {
				return models.Room{}, err
			}
			r.AddAccess(fn)
		}
	}
	return r, pr.err
}

func personFromProps(props map[string]any) (models.Person, error) {
	pr := propReader{props: props, kind: "person"}
	p := models.Person{
		ID:       pr.asInt("id"),
		Name:     pr.asString("name"),
		Age:      pr.asInt("age"),
		Location: pr.asRef("location"),
	}
	fn, err := models.ParseFunction(pr.asString("function"))
	if err != nil {
		return models.Person{}, err
	}
	p.Function = fn
	return p, pr.err
}

func edgeFromProps(props map[string]any) (models.Edge, error) {
	pr := propReader{props: props, kind: "passage"}
	e := models.Edge{Room1: pr.asInt("room1"), Room2: pr.asInt("room2"), Weight: pr.asFloat("weight")}
	return e, pr.err
}

func eventFromProps(props map[string]any) (models.Event, error) {
	pr := propReader{props: props, kind: "event"}
	e := models.Event{
		PersonID: pr.asInt("personId"),
		From:     pr.asRef("fromRoomId"),
		To:       pr.asRef("toRoomId"),
	}
	if pr.err != nil {
		return models.Event{}, pr.err
	}
	ts, err := models.ParseTime(pr.asString("time"))
	if err != nil {
		return models.Event{}, err
	}
	e.Time = ts
	return e, pr.err
}

// propReader records the first conversion failure so callers can read a
// whole record before checking err.
type propReader struct {
	props map[string]any
	kind  string
	err   error
}

func (p *propReader) fail(key string, v any) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s property %q has type %T", models.ErrInvalidRecord, p.kind, key, v)
	}
}

func (p *propReader) asInt(key string) int {
	switch v := p.props[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		p.fail(key, v)
		return 0
	}
}

func (p *propReader) asRef(key string) int {
	if v, ok := p.props[key]; !ok || v == nil {
		return models.Outside
	}
	return p.asInt(key)
}

func (p *propReader) asFloat(key string) float64 {
	switch v := p.props[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		p.fail(key, v)
		return 0
	}
}

func (p *propReader) asString(key string) string {
	v, ok := p.props[key].(string)
	if !ok {
		p.fail(key, p.props[key])
	}
	return v
}

func (p *propReader) asStrings(key string) []string {
	switch v := p.props[key].(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				p.fail(key, item)
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		p.fail(key, v)
		return nil
	}
}
