package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/wardtrace/internal/models"
)

const (
	neo4jDialTimeout  = 10 * time.Second
	neo4jReadTimeout  = 10 * time.Second
	neo4jWriteTimeout = 30 * time.Second
)

func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

// Rooms are :Room nodes joined by undirected [:PASSAGE {weight}]
// relationships stored from the lower id to the higher. People are :Person
// nodes and the movement log is :Event nodes ordered by seq.
var neo4jSchema = []string{
	"CREATE CONSTRAINT room_id IF NOT EXISTS FOR (r:Room) REQUIRE r.id IS UNIQUE",
	"CREATE CONSTRAINT person_id IF NOT EXISTS FOR (p:Person) REQUIRE p.id IS UNIQUE",
	"CREATE INDEX event_seq IF NOT EXISTS FOR (e:Event) ON (e.seq)",
}

const (
	cypherClear       = "MATCH (n) WHERE n:Room OR n:Person OR n:Event DETACH DELETE n"
	cypherWriteRooms  = "UNWIND $rows AS row CREATE (n:Room) SET n = row"
	cypherWritePeople = "UNWIND $rows AS row CREATE (n:Person) SET n = row"
	cypherWriteEdges  = `UNWIND $rows AS row
MATCH (a:Room {id: row.room1}), (b:Room {id: row.room2})
CREATE (a)-[:PASSAGE {weight: row.weight}]->(b)`
	cypherWriteEvents = "UNWIND $rows AS row CREATE (n:Event) SET n = row"

	cypherReadRooms  = "MATCH (r:Room) RETURN r {.*} AS props ORDER BY r.id"
	cypherReadPeople = "MATCH (p:Person) RETURN p {.*} AS props ORDER BY p.id"
	cypherReadEdges  = `MATCH (a:Room)-[x:PASSAGE]->(b:Room)
RETURN {room1: a.id, room2: b.id, weight: x.weight} AS props ORDER BY a.id, b.id`
	cypherReadEvents = "MATCH (e:Event) RETURN e {.*} AS props ORDER BY e.seq"
)

// Neo4jStore implements Store on a Neo4j database.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jStore connects to Neo4j, verifies connectivity and ensures the
// schema constraints exist.
func NewNeo4jStore(ctx context.Context, uri, username, password, database string, logger *slog.Logger) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating Neo4j driver for %s: %w", uri, err)
	}

	dialCtx, dialCancel := withTimeout(ctx, neo4jDialTimeout)
	defer dialCancel()
	if err := driver.VerifyConnectivity(dialCtx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("verifying Neo4j connection at %s: %w", uri, err)
	}

	s := &Neo4jStore{driver: driver, database: database, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, err
	}
	logger.Info("connected to Neo4j", "uri", uri, "database", database)
	return s, nil
}

func (s *Neo4jStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range neo4jSchema {
		wctx, wcancel := withTimeout(ctx, neo4jWriteTimeout)
		_, err := neo4j.ExecuteQuery(wctx, s.driver, stmt, nil,
			neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(s.database))
		wcancel()
		if err != nil {
			return fmt.Errorf("ensuring Neo4j schema: %w", err)
		}
	}
	return nil
}

// Load reads rooms, people, passages and events concurrently.
func (s *Neo4jStore) Load(ctx context.Context) (*models.Snapshot, error) {
	var rooms, people, edges, events []map[string]any
	g, gctx := errgroup.WithContext(ctx)
	for _, q := range []struct {
		cypher string
		into   *[]map[string]any
	}{
		{cypherReadRooms, &rooms},
		{cypherReadPeople, &people},
		{cypherReadEdges, &edges},
		{cypherReadEvents, &events},
	} {
		g.Go(func() error {
			rows, err := s.readProps(gctx, q.cypher)
			*q.into = rows
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(rooms)+len(people)+len(edges)+len(events) == 0 {
		return nil, fmt.Errorf("%w: database %q is empty", ErrNotFound, s.database)
	}

	snap, err := snapshotFromProps(rooms, people, edges, events)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("loaded snapshot from Neo4j", "rooms", len(snap.Rooms), "events", len(snap.Events))
	return snap, nil
}

func (s *Neo4jStore) readProps(ctx context.Context, cypher string) ([]map[string]any, error) {
	rctx, rcancel := withTimeout(ctx, neo4jReadTimeout)
	defer rcancel()
	res, err := neo4j.ExecuteQuery(rctx, s.driver, cypher, nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("querying Neo4j: %w", err)
	}
	out := make([]map[string]any, 0, len(res.Records))
	for _, rec := range res.Records {
		v, ok := rec.Get("props")
		if !ok {
			continue
		}
		props, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected Neo4j row %T", models.ErrInvalidRecord, v)
		}
		out = append(out, props)
	}
	return out, nil
}

// Save replaces every facility node in one write transaction.
func (s *Neo4jStore) Save(ctx context.Context, snap *models.Snapshot) error {
	wctx, wcancel := withTimeout(ctx, neo4jWriteTimeout)
	defer wcancel()

	session := s.driver.NewSession(wctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer func() { _ = session.Close(context.Background()) }()

	params := snapshotParams(snap)
	_, err := session.ExecuteWrite(wctx, func(tx neo4j.ManagedTransaction) (any, error) {
		steps := []struct {
			cypher string
			rows   []map[string]any
		}{
			{cypherClear, nil},
			{cypherWriteRooms, params.rooms},
			{cypherWritePeople, params.people},
			{cypherWriteEdges, params.edges},
			{cypherWriteEvents, params.events},
		}
		for _, step := range steps {
			var args map[string]any
			if step.rows != nil {
				args = map[string]any{"rows": step.rows}
			}
			res, err := tx.Run(wctx, step.cypher, args)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(wctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("saving snapshot to Neo4j: %w", err)
	}
	s.logger.Info("saved snapshot to Neo4j", "rooms", len(snap.Rooms), "events", len(snap.Events))
	return nil
}

// Ping verifies connectivity.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	pctx, cancel := withTimeout(ctx, neo4jDialTimeout)
	defer cancel()
	return s.driver.VerifyConnectivity(pctx)
}

// Close closes the driver.
func (s *Neo4jStore) Close() error {
	ctx, cancel := withTimeout(context.Background(), neo4jDialTimeout)
	defer cancel()
	return s.driver.Close(ctx)
}
