// Package sqlite stores documents as JSON rows in an embedded SQLite
// database. Watches are served from an in-process hub; an optional change
// publisher lets other processes sharing the file observe writes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/log"
)

type Store struct {
	db        *sql.DB
	hub       *docstore.Hub
	publisher docstore.ChangePublisher
	origin    string
	logger    *log.Logger
	now       func() time.Time
}

type Option func(*Store)

// WithChangePublisher announces every write through p.
func WithChangePublisher(p docstore.ChangePublisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithLogger sets the store logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway and this keeps
	// busy errors out of the write path.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		db:     db,
		origin: uuid.NewString(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.OrDefault(s.logger).WithComponent(log.ComponentStorage)
	s.hub = docstore.NewHub(s.Query, s.logger)
	return s, nil
}

var _ docstore.Store = (*Store)(nil)

// Origin identifies this store instance in published changes.
func (s *Store) Origin() string { return s.origin }

func (s *Store) Create(ctx context.Context, collection string, doc core.Document) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc core.Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		collection, id, data, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	s.changed(ctx, collection, id, docstore.OpPut)
	return nil
}

func (s *Store) Merge(ctx context.Context, collection, id string, doc core.Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = json_patch(documents.data, excluded.data), updated_at = excluded.updated_at`,
		collection, id, data, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}
	s.changed(ctx, collection, id, docstore.OpPut)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.changed(ctx, collection, id, docstore.OpDelete)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (core.Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Collection: collection, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decode(data)
}

// Query pushes equality filters down to SQLite and sorts in Go so ordering
// matches every other backend.
func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = ?`)
	args := []any{collection}
	for _, f := range q.Filters {
		sb.WriteString(` AND json_extract(data, ?) = ?`)
		args = append(args, jsonPath(f.Field), f.Value)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var snaps []docstore.Snapshot
	for rows.Next() {
		var id, data string
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
	return q.Apply(snaps), nil
}

func (s *Store) Watch(ctx context.Context, collection string, q docstore.Query) (*docstore.Subscription, error) {
	return s.hub.Subscribe(ctx, collection, q)
}

// ApplyChange wakes local watches for a write made by another process.
// Changes this store published itself are ignored.
func (s *Store) ApplyChange(c docstore.Change) {
	if c.Origin == s.origin {
		return
	}
	s.hub.Notify(c.Collection)
}

// Resync refreshes every local watch, for when the change feed may have
// dropped messages.
func (s *Store) Resync() { s.hub.NotifyAll() }

func (s *Store) Close() error {
	s.hub.Close()
	return s.db.Close()
}

// changed notifies local watches and, best effort, other processes. A
// publish failure is logged; the write itself has already succeeded.
func (s *Store) changed(ctx context.Context, collection, id string, op docstore.ChangeOp) {
	s.hub.Notify(collection)
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishChange(ctx, docstore.Change{
		Collection: collection,
		DocumentID: id,
		Op:         op,
		Origin:     s.origin,
		Timestamp:  s.now(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change",
			log.NewFields().WithDocument(collection, id).WithError(err).ToSlice()...)
	}
}

func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
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

func decode(data string) (core.Document, error) {
	var doc core.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
