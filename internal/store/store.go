package store

import (
	"context"
	"errors"

	"github.com/ajitpratap0/wardtrace/internal/models"
)

// ErrNotFound is returned by Load when the backend holds no facility data.
var ErrNotFound = errors.New("facility data not found")

// Store defines the interface for facility snapshot persistence.
type Store interface {
	// Load reads the full record set.
	Load(ctx context.Context) (*models.Snapshot, error)

	// Save replaces the stored record set with s.
	Save(ctx context.Context, s *models.Snapshot) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}

// cloneSnapshot deep-copies s so callers cannot mutate stored records.
func cloneSnapshot(s *models.Snapshot) *models.Snapshot {
	out := &models.Snapshot{
		Rooms:  make([]models.Room, len(s.Rooms)),
		People: append([]models.Person(nil), s.People...),
		Edges:  append([]models.Edge(nil), s.Edges...),
		Events: append([]models.Event(nil), s.Events...),
	}
	for i := range s.Rooms {
		out.Rooms[i] = s.Rooms[i].Clone()
	}
	return out
}
