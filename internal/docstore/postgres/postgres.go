// Package postgres stores documents as jsonb rows. A trigger publishes every
// row change with pg_notify, and a listener feeds those notifications into
// the watch hub, so watches see writes from every process on the database.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/log"
)

// Channel is the notification channel the schema trigger publishes on.
const Channel = "foro_documents"

// PGXPool is the subset of pgxpool.Pool the store uses.
type PGXPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

type Store struct {
	pool   PGXPool
	hub    *docstore.Hub
	logger *log.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Connect creates a pool, migrates the schema and starts the listener.
func Connect(ctx context.Context, url string, logger *log.Logger) (*Store, error) {
	if err := RunMigrations(url); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return New(pool, logger), nil
}

// New wraps an existing pool whose schema is already migrated.
func New(pool PGXPool, logger *log.Logger) *Store {
	s := &Store{
		pool:   pool,
		logger: log.OrDefault(logger).WithComponent(log.ComponentStorage),
		done:   make(chan struct{}),
	}
	s.hub = docstore.NewHub(s.Query, s.logger)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.listen(ctx)
	return s
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) Create(ctx context.Context, collection string, doc core.Document) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc core.Document) error {
	return s.upsert(ctx, collection, id, doc, `EXCLUDED.data`)
}

func (s *Store) Merge(ctx context.Context, collection, id string, doc core.Document) error {
	return s.upsert(ctx, collection, id, doc, `documents.data || EXCLUDED.data`)
}

func (s *Store) upsert(ctx context.Context, collection, id string, doc core.Document, onConflict string) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data, updated_at) VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (collection, id) DO UPDATE SET data = `+onConflict+`, updated_at = NOW()`,
		collection, id, data)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	s.hub.Notify(collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() > 0 {
		s.hub.Notify(collection)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (core.Document, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &core.NotFoundError{Collection: collection, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decode(data)
}

// Query turns equality filters into one jsonb containment test, which the
// GIN index serves, and sorts in Go so ordering matches other backends.
func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	sql := `SELECT id, data FROM documents WHERE collection = $1`
	args := []any{collection}
	if len(q.Filters) > 0 {
		match := make(core.Document, len(q.Filters))
		for _, f := range q.Filters {
			match[f.Field] = f.Value
		}
		filter, err := encode(match)
		if err != nil {
			return nil, err
		}
		sql += ` AND data @> $2::jsonb`
		args = append(args, filter)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var snaps []docstore.Snapshot
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc, err := decode(data)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping undecodable document",
				log.FieldCollection, collection, log.FieldDocumentID, id, log.FieldError, err)
			continue
		}
		snaps = append(snaps, docstore.Snapshot{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	// Two filters on the same field collapse into one containment key, so
	// re-check every filter here.
	return q.Apply(snaps), nil
}

func (s *Store) Watch(ctx context.Context, collection string, q docstore.Query) (*docstore.Subscription, error) {
	return s.hub.Subscribe(ctx, collection, q)
}

// Close stops the listener, ends all watches and closes the pool.
func (s *Store) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.hub.Close()
		s.pool.Close()
	})
	return nil
}

type notification struct {
	Collection string `json:"collection"`
	DocumentID string `json:"document_id"`
	Op         string `json:"op"`
}

// listen holds one pooled connection on LISTEN and reconnects with backoff
// when it drops. Every watch is refreshed once LISTEN is in place, since
// notifications sent before that are lost.
func (s *Store) listen(ctx context.Context) {
	defer close(s.done)

	for attempt := 0; ; attempt++ {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		wait := backoff(attempt)
		s.logger.Warn("Change listener disconnected",
			log.FieldChannel, Channel, log.FieldError, err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (s *Store) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN "+Channel)
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.hub.NotifyAll()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var msg notification
		if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
			s.logger.Warn("Ignoring malformed notification", log.FieldError, err)
			continue
		}
		s.hub.Notify(msg.Collection)
	}
}

func backoff(attempt int) time.Duration {
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(1<<attempt) * time.Second
}

func encode(doc core.Document) (string, error) {
	if doc == nil {
		doc = core.Document{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

func decode(data []byte) (core.Document, error) {
	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
