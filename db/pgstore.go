// Reader-only interface to a Postgres run database, allowing it to be used as
// a run source in place of the file stores.  Ingestion into the database is
// handled by external code; the Add path is not available here, so the store
// only implements RunSource.
//
// We read raw data from the database every time, no caching.  Runs are small
// and the analysis dominates the query time.

package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"nsanalyze/run"
)

type PostgresStore struct {
	// The connection is not thread-safe.  Use the query method, it acquires a
	// mutex around the connection use.
	conn *pgx.Conn
	lock sync.Mutex
}

func OpenPostgresStore(databaseURI string) (*PostgresStore, error) {
	conn, err := pgx.Connect(context.Background(), databaseURI)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{conn: conn}, nil
}

func (s *PostgresStore) Close() error {
	return s.conn.Close(context.Background())
}

func (s *PostgresStore) query(cx context.Context, q string, args ...any) (pgx.Rows, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.conn.Query(cx, q, args...)
}

func (s *PostgresStore) RunNames() ([]string, error) {
	rows, err := s.query(context.Background(), "SELECT name FROM run")
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *PostgresStore) Load(name string) (*run.Run, error) {
	cx := context.Background()
	r, err := s.loadSettings(cx, name)
	if err != nil {
		return nil, err
	}
	if err := s.loadSamples(cx, name, r); err != nil {
		return nil, err
	}
	if err := s.loadBounds(cx, name, r); err != nil {
		return nil, err
	}
	if err := r.Check(); err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	return r, nil
}

func (s *PostgresStore) loadSettings(cx context.Context, name string) (*run.Run, error) {
	var kind string
	var dynamicGoal float64
	var fixedNlive, initNlive int

	rows, err := s.query(cx,
		"SELECT kind, dynamic_goal, fixed_nlive, init_nlive FROM run WHERE name = $1",
		name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, fmt.Errorf("%w: %s", UnknownRunErr, name)
	}
	if err := rows.Scan(&kind, &dynamicGoal, &fixedNlive, &initNlive); err != nil {
		return nil, err
	}
	r := &run.Run{
		Settings: run.Settings{
			DynamicGoal: dynamicGoal,
			FixedNlive:  fixedNlive,
			InitNlive:   initNlive,
		},
	}
	switch kind {
	case kindFixedName:
		r.Settings.Kind = run.KindFixed
	case kindDynamicName:
		r.Settings.Kind = run.KindDynamic
	default:
		return nil, fmt.Errorf("%w: unknown run kind %q", run.BadRunShapeErr, kind)
	}
	return r, nil
}

func (s *PostgresStore) loadSamples(cx context.Context, name string, r *run.Run) error {
	var thread int
	var logl float64
	var radius *float64
	var theta []float64

	// Alpha order and keep these two lists in sync.
	fields := "logl, r, theta, thread"
	boxes := []any{&logl, &radius, &theta, &thread}

	rows, err := s.query(cx,
		"SELECT "+fields+" FROM run_sample WHERE run = $1 ORDER BY thread, logl",
		name)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := rows.Scan(boxes...); err != nil {
			return err
		}
		for thread >= len(r.Threads) {
			r.Threads = append(r.Threads, run.Thread{})
		}
		if r.Threads[thread].Absent() {
			r.Threads[thread] = run.Thread{Table: new(run.Table)}
		}
		t := r.Threads[thread].Table
		t.LogL = append(t.LogL, logl)
		if radius != nil {
			t.R = append(t.R, *radius)
		}
		if theta != nil {
			t.Theta = append(t.Theta, theta)
			theta = nil
		}
	}
	return rows.Err()
}

func (s *PostgresStore) loadBounds(cx context.Context, name string, r *run.Run) error {
	if r.Settings.Kind != run.KindDynamic {
		return nil
	}
	var thread int
	var min, max, mult float64

	rows, err := s.query(cx,
		"SELECT thread, logl_min, logl_max, multiplicity FROM run_bounds WHERE run = $1 ORDER BY thread",
		name)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := rows.Scan(&thread, &min, &max, &mult); err != nil {
			return err
		}
		for thread >= len(r.Bounds) {
			r.Bounds = append(r.Bounds, run.Bounds{})
		}
		r.Bounds[thread] = run.Bounds{Min: min, Max: max, Multiplicity: mult}
	}
	return rows.Err()
}
