package docstore

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"foro/internal/log"
)

// Loader runs a query against the backing store. Each backend hands its own
// query function to the hub.
type Loader func(ctx context.Context, collection string, q Query) ([]Snapshot, error)

// Hub tracks live subscriptions per collection and re-runs their queries
// when a collection changes. Backends call Notify after every acknowledged
// write, whether it was made locally or reported by a change feed.
type Hub struct {
	load   Loader
	logger *log.Logger

	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]*Subscription
	closed bool
}

func NewHub(load Loader, logger *log.Logger) *Hub {
	return &Hub{
		load:   load,
		logger: log.OrDefault(logger).WithComponent(log.ComponentWatch),
		subs:   make(map[string]map[uint64]*Subscription),
	}
}

// Subscribe registers a watch. The first delivery is the current result of
// q; later deliveries follow changes to collection. The subscription ends
// when Cancel is called, ctx is done, or a query fails.
func (h *Hub) Subscribe(ctx context.Context, collection string, q Query) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		out:    make(chan []Snapshot),
		dirty:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	id := h.nextID
	h.nextID++
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[uint64]*Subscription)
	}
	h.subs[collection][id] = s
	h.mu.Unlock()

	s.markDirty()
	logger := h.logger.With(log.FieldCollection, collection, log.FieldSubscription, id)
	logger.Debug("Subscription opened")

	go func() {
		defer close(s.done)
		defer h.remove(collection, id)
		s.run(subCtx, logger, func(ctx context.Context) ([]Snapshot, error) {
			return h.load(ctx, collection, q)
		})
		logger.Debug("Subscription closed")
	}()
	return s, nil
}

// Notify marks every subscription on collection as stale. It never blocks.
func (h *Hub) Notify(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs[collection] {
		s.markDirty()
	}
}

// NotifyAll marks every subscription as stale, for when a change feed may
// have dropped notifications.
func (h *Hub) NotifyAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.subs {
		for _, s := range m {
			s.markDirty()
		}
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.subs {
		n += len(m)
	}
	return n
}

// Close cancels every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*Subscription
	for _, m := range h.subs {
		for _, s := range m {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Cancel()
	}
}

func (h *Hub) remove(collection string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[collection], id)
	if len(h.subs[collection]) == 0 {
		delete(h.subs, collection)
	}
}

// Subscription is a live watch. Updates delivers full result lists; when the
// consumer falls behind, a pending list is replaced by a newer one so the
// consumer always converges on the latest state. The channel is closed when
// the subscription ends.
type Subscription struct {
	out    chan []Snapshot
	dirty  chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
	err    atomic.Pointer[error]
}

// Updates returns the delivery channel.
func (s *Subscription) Updates() <-chan []Snapshot { return s.out }

// Cancel stops delivery and waits for the subscription to release its
// resources. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the query error that ended the subscription, if any.
func (s *Subscription) Err() error {
	if p := s.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Subscription) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Subscription) run(ctx context.Context, logger *log.Logger, load func(context.Context) ([]Snapshot, error)) {
	defer close(s.out)

	var (
		pending   []Snapshot
		have      bool
		last      []Snapshot
		delivered bool
	)
	for {
		var out chan []Snapshot
		if have {
			out = s.out
		}
		select {
		case <-ctx.Done():
			return
		case <-s.dirty:
			snaps, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("Subscription query failed", log.FieldError, err)
				s.err.Store(&err)
				return
			}
			if delivered && sameSnapshots(last, snaps) {
				pending, have = nil, false
				continue
			}
			pending, have = snaps, true
		case out <- pending:
			last, delivered = pending, true
			pending, have = nil, false
		}
	}
}

func sameSnapshots(a, b []Snapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !maps.Equal(a[i].Data, b[i].Data) {
			return false
		}
	}
	return true
}
