package models

import "errors"

// Sentinel errors shared by the facility core. Callers wrap them with
// context and test with errors.Is.
var (
	// ErrNotFound is returned when a room or person id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrCapacityExceeded is returned when a full room is asked to admit one more.
	ErrCapacityExceeded = errors.New("room capacity exceeded")

	// ErrOccupancyUnderflow is returned when an empty room is asked to release one.
	ErrOccupancyUnderflow = errors.New("room occupancy already zero")

	// ErrAccessDenied is returned when a room does not permit a person's function.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidMove is returned for moves that break the facility topology.
	ErrInvalidMove = errors.New("invalid move")

	// ErrInvalidEdge is returned for self-loops and negative weights.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrInvalidWindow is returned when a query window ends before it starts.
	ErrInvalidWindow = errors.New("invalid time window")

	// ErrDuplicateEvent is returned when an identical event is already logged.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrInvalidRecord is returned for records with out-of-range fields.
	ErrInvalidRecord = errors.New("invalid record")
)
