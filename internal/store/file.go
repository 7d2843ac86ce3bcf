package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/wardtrace/internal/models"
)

// File names inside a FileStore data directory.
const (
	RoomsFile  = "rooms.json"
	PeopleFile = "people.json"
	MapFile    = "hospital_map.json"
	EventsFile = "events.json"
)

// FileStore keeps a snapshot as four JSON documents in one directory.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore returns a store rooted at dir. The directory is created on
// the first Save.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger}
}

// Dir returns the data directory.
func (f *FileStore) Dir() string { return f.dir }

// Load reads the four documents concurrently. A missing document loads as
// an empty collection; a directory without any of them is ErrNotFound.
func (f *FileStore) Load(ctx context.Context) (*models.Snapshot, error) {
	if _, err := os.Stat(f.dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, f.dir)
		}
		return nil, fmt.Errorf("reading data dir %s: %w", f.dir, err)
	}

	var (
		s       models.Snapshot
		missing [4]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	docs := []struct {
		name string
		into any
	}{
		{RoomsFile, &s.Rooms},
		{PeopleFile, &s.People},
		{MapFile, &s.Edges},
		{EventsFile, &s.Events},
	}
	for i, d := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found, err := f.readJSON(d.name, d.into)
			missing[i] = !found
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if missing[0] && missing[1] && missing[2] && missing[3] {
		return nil, fmt.Errorf("%w: no documents in %s", ErrNotFound, f.dir)
	}

	f.logger.Debug("loaded snapshot", "dir", f.dir,
		"rooms", len(s.Rooms), "people", len(s.People), "edges", len(s.Edges), "events", len(s.Events))
	return &s, nil
}

func (f *FileStore) readJSON(name string, into any) (bool, error) {
	path := filepath.Join(f.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("document missing, loading empty", "path", path)
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return true, fmt.Errorf("decoding %s: %w: %w", path, models.ErrInvalidRecord, err)
	}
	return true, nil
}

// Save writes the four documents concurrently. Each document is written to
// a temporary file and renamed into place.
func (f *FileStore) Save(ctx context.Context, s *models.Snapshot) error {
	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return fmt.Errorf("creating data dir %s: %w", f.dir, err)
	}
	g, gctx := errgroup.WithContext(ctx)
	docs := map[string]any{
		RoomsFile:  nonNil(s.Rooms),
		PeopleFile: nonNil(s.People),
		MapFile:    nonNil(s.Edges),
		EventsFile: nonNil(s.Events),
	}
	for name, v := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return f.writeJSON(name, v)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	f.logger.Info("saved snapshot", "dir", f.dir, "rooms", len(s.Rooms), "events", len(s.Events))
	return nil
}

func (f *FileStore) writeJSON(name string, v any) error {
	path := filepath.Join(f.dir, name)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Ping checks that the data directory exists or can be created.
func (f *FileStore) Ping(_ context.Context) error {
	info, err := os.Stat(f.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("data dir %s: %w", f.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", f.dir)
	}
	return nil
}

// Close is a no-op for the file store.
func (f *FileStore) Close() error {
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
