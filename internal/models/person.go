package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Function is the role a person holds in the hospital.
type Function string

const (
	FunctionDoctor        Function = "doctor"
	FunctionNurse         Function = "nurse"
	FunctionAdministrator Function = "administrator"
	FunctionCleaner       Function = "cleaner"
	FunctionSecurity      Function = "security"
	FunctionVisitor       Function = "visitor"
	FunctionPatient       Function = "patient"
)

// ValidFunctions is the set of all valid functions.
var ValidFunctions = []Function{
	FunctionDoctor,
	FunctionNurse,
	FunctionAdministrator,
	FunctionCleaner,
	FunctionSecurity,
	FunctionVisitor,
	FunctionPatient,
}

// IsValid returns true if the function is recognized.
func (f Function) IsValid() bool {
	for _, v := range ValidFunctions {
		if f == v {
			return true
		}
	}
	return false
}

// ParseFunction accepts a function name in any case.
func ParseFunction(s string) (Function, error) {
	fn := Function(strings.ToLower(strings.TrimSpace(s)))
	if !fn.IsValid() {
		return "", fmt.Errorf("%w: unknown function %q", ErrInvalidRecord, s)
	}
	return fn, nil
}

// UnmarshalJSON accepts function names in any case.
func (f *Function) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding function: %w", err)
	}
	fn, err := ParseFunction(s)
	if err != nil {
		return err
	}
	*f = fn
	return nil
}

// ParseRoomType accepts a room type name in any case.
func ParseRoomType(s string) (RoomType, error) {
	rt := RoomType(strings.ToLower(strings.TrimSpace(s)))
	if !rt.IsValid() {
		return "", fmt.Errorf("%w: unknown room type %q", ErrInvalidRecord, s)
	}
	return rt, nil
}

// UnmarshalJSON accepts room type names in any case.
func (rt *RoomType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding room type: %w", err)
	}
	parsed, err := ParseRoomType(s)
	if err != nil {
		return err
	}
	*rt = parsed
	return nil
}

// Person is an actor moving through the facility. Location is a room id,
// or Outside when the person is not inside the facility.
type Person struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Age      int      `json:"age"`
	Function Function `json:"function"`
	Location int      `json:"-"`
}

type personWire struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Age      int      `json:"age"`
	Function Function `json:"function"`
	Location *int     `json:"location"`
}

// MarshalJSON encodes Outside as a null location.
func (p Person) MarshalJSON() ([]byte, error) {
	return json.Marshal(personWire{
		ID:       p.ID,
		Name:     p.Name,
		Age:      p.Age,
		Function: p.Function,
		Location: refPtr(p.Location),
	})
}

// UnmarshalJSON treats a null or missing location as Outside.
func (p *Person) UnmarshalJSON(data []byte) error {
	var w personWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding person: %w", err)
	}
	*p = Person{
		ID:       w.ID,
		Name:     w.Name,
		Age:      w.Age,
		Function: w.Function,
		Location: refFromPtr(w.Location),
	}
	return nil
}

// Validate checks the static invariants of a person record.
func (p *Person) Validate() error {
	if p.ID < 0 {
		return fmt.Errorf("%w: person id %d must be >= 0", ErrInvalidRecord, p.ID)
	}
	if p.Age < 0 {
		return fmt.Errorf("%w: person %d age %d must be >= 0", ErrInvalidRecord, p.ID, p.Age)
	}
	if !p.Function.IsValid() {
		return fmt.Errorf("%w: person %d has unknown function %q", ErrInvalidRecord, p.ID, p.Function)
	}
	return nil
}

// Inside reports whether the person is currently in a room.
func (p *Person) Inside() bool {
	return p.Location != Outside
}

// SortPeople orders people by id.
func SortPeople(people []Person) {
	sort.Slice(people, func(i, j int) bool { return people[i].ID < people[j].ID })
}

func refPtr(id int) *int {
	if id == Outside {
		return nil
	}
	v := id
	return &v
}

func refFromPtr(p *int) int {
	if p == nil {
		return Outside
	}
	return *p
}
