// Package gateway is the single entry point the forum uses to read, write and
// watch its records. It validates input, stamps the session user and the
// current time, maps backend failures onto the core error taxonomy and turns
// store watches into typed streams.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"foro/internal/auth"
	"foro/internal/cache"
	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/history"
	"foro/internal/log"
)

const (
	defaultRoleCacheSize = 256
	defaultRoleCacheTTL  = 5 * time.Minute
	defaultCascadeLimit  = 8
)

// CachedRole is a role lookup result kept in the role cache. Found is false
// when the user has no profile.
type CachedRole struct {
	Role  core.Role
	Found bool
}

type Gateway struct {
	store    docstore.Store
	session  auth.Session
	recorder *history.Recorder
	logger   *log.Logger
	now      func() time.Time

	cascade      bool
	cascadeLimit int
	roles        cache.Cache[CachedRole]
}

type Option func(*Gateway)

// WithRecorder replaces the history recorder. By default history is written
// to the gateway's own store.
func WithRecorder(r *history.Recorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithCascadeDeletes controls whether DeleteEvent also removes the event's
// comments, ratings and attendance. It is on by default.
func WithCascadeDeletes(on bool) Option {
	return func(g *Gateway) { g.cascade = on }
}

// WithCascadeLimit bounds concurrent sub-document deletes.
func WithCascadeLimit(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.cascadeLimit = n
		}
	}
}

func WithRoleCache(c cache.Cache[CachedRole]) Option {
	return func(g *Gateway) { g.roles = c }
}

func New(store docstore.Store, session auth.Session, opts ...Option) *Gateway {
	g := &Gateway{
		store:        store,
		session:      session,
		now:          time.Now,
		cascade:      true,
		cascadeLimit: defaultCascadeLimit,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = log.OrDefault(g.logger).WithComponent(log.ComponentGateway)
	if g.recorder == nil {
		g.recorder = history.NewRecorder(store,
			history.WithLogger(g.logger),
			history.WithClock(g.now))
	}
	if g.roles == nil {
		g.roles = cache.NewLRUCache[CachedRole](defaultRoleCacheSize, defaultRoleCacheTTL)
	}
	return g
}

// currentUser returns the signed-in user id or ErrNotAuthenticated.
func (g *Gateway) currentUser() (string, error) {
	if g.session == nil || !g.session.IsAuthenticated() {
		return "", core.ErrNotAuthenticated
	}
	return g.session.CurrentUserID(), nil
}

func (g *Gateway) currentEmail() string {
	if g.session == nil {
		return ""
	}
	return g.session.CurrentUserEmail()
}

func (g *Gateway) millis() int64 { return core.Millis(g.now()) }

// storeErr wraps a backend failure. Not-found and validation errors pass
// through unchanged.
func storeErr(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrNotFound) || core.IsValidation(err) {
		return err
	}
	var se *core.StoreError
	if errors.As(err, &se) {
		return err
	}
	return &core.StoreError{Op: op, Collection: collection, Err: err}
}

func requireID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &core.ValidationError{Field: field, Err: core.ErrEmptyID}
	}
	return id, nil
}

func requireUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", &core.ValidationError{Field: core.KeyUserID, Err: core.ErrEmptyUserID}
	}
	return userID, nil
}

func (g *Gateway) logFailure(ctx context.Context, msg, op, collection, id string, err error) {
	g.logger.ErrorContext(ctx, msg,
		log.NewFields().
			WithOperation(op).
			WithDocument(collection, id).
			WithError(err).
			ToSlice()...)
}
