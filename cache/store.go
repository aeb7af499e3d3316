package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/juju/clock"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/endpoint"
	"github.com/goliatone/go-query-cache/executor"
)

// DefaultGraceWindow is how long an unsubscribed entry is kept around.
const DefaultGraceWindow = 60 * time.Second

// Executor performs the network call for an operation invocation.
// *executor.Executor satisfies it.
type Executor interface {
	Execute(ctx context.Context, op endpoint.Operation, args any) executor.Result
}

// Store is the query cache: it de-duplicates fetches per key, tracks the
// tags each entry depends on and refetches or drops entries when a mutation
// invalidates those tags.
//
// Entries with at least one subscriber or a fetch in flight live in the
// store; unsubscribed entries move to the RetentionStore for the grace
// window and are gone after it.
type Store struct {
	registry  *endpoint.Registry
	exec      Executor
	keys      KeySerializer
	retention RetentionStore
	clock     clock.Clock
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	seq     uint64

	subscriptions *xsync.MapOf[string, *Subscription]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StoreOption configures a Store.
type StoreOption func(*Store)

func WithKeySerializer(ks KeySerializer) StoreOption {
	return func(s *Store) {
		if ks != nil {
			s.keys = ks
		}
	}
}

// WithRetention sets where unsubscribed entries wait out the grace window.
// The store closes it on Close.
func WithRetention(r RetentionStore) StoreOption {
	return func(s *Store) {
		if r != nil {
			s.retention = r
		}
	}
}

func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used for timestamps and for the default
// in-memory retention.
func WithClock(c clock.Clock) StoreOption {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewStore builds an isolated cache over registry and exec.
func NewStore(registry *endpoint.Registry, exec Executor, opts ...StoreOption) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		registry:      registry,
		exec:          exec,
		keys:          NewDefaultKeySerializer(),
		clock:         clock.WallClock,
		logger:        zap.NewNop(),
		entries:       make(map[string]*entry),
		subscriptions: xsync.NewMapOf[string, *Subscription](),
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retention == nil {
		s.retention = NewMemoryRetention(DefaultGraceWindow, s.clock)
	}
	return s
}

// Registry returns the operations the store serves.
func (s *Store) Registry() *endpoint.Registry { return s.registry }

// Key returns the cache key for an invocation.
func (s *Store) Key(operation string, args any) string {
	return s.keys.SerializeKey(operation, args)
}

// Entry looks up the current state of an invocation without subscribing.
// Retained entries are reported with zero subscribers.
func (s *Store) Entry(operation string, args any) (Snapshot, bool) {
	key := s.Key(operation, args)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		return e.snapshot(), true
	}
	if v, ok := s.retention.Peek(key); ok {
		return v.(*entry).snapshot(), true
	}
	return Snapshot{}, false
}

// Len returns the number of live entries, those with subscribers or a fetch
// in flight.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Query subscribes to operation(args), waits until no fetch is running and
// returns the resulting snapshot. Concurrent identical queries share one
// network call. A failed fetch is returned both in the snapshot and as the
// error.
func (s *Store) Query(ctx context.Context, operation string, args any) (Snapshot, error) {
	sub, err := s.Subscribe(ctx, operation, args, nil)
	if err != nil {
		return Snapshot{}, err
	}
	defer sub.Close()

	snap, err := sub.Wait(ctx)
	if err != nil {
		return snap, err
	}
	return snap, snap.ErrorOrNil()
}

// Invalidate marks every entry depending on any of tags as stale. Entries
// with subscribers are refetched once; entries without are dropped. It
// returns the number of entries touched.
func (s *Store) Invalidate(tags ...endpoint.Tag) int {
	want := endpoint.TagsOf(tagStrings(tags)...)
	if len(want) == 0 {
		return 0
	}
	touched, refetched := s.invalidateMatching(func(t endpoint.Tags) bool {
		return t.Intersects(want)
	})
	s.logger.Debug("invalidated tags",
		zap.Strings("tags", want.Strings()),
		zap.Int("touched", touched),
		zap.Int("refetched", refetched),
	)
	return touched
}

// Reset invalidates every entry regardless of its tags, e.g. after the
// session changed. Subscribed entries are refetched, the rest dropped.
func (s *Store) Reset() int {
	touched, refetched := s.invalidateMatching(func(endpoint.Tags) bool { return true })
	s.logger.Debug("reset cache", zap.Int("touched", touched), zap.Int("refetched", refetched))
	return touched
}

func (s *Store) invalidateMatching(match func(endpoint.Tags) bool) (int, int) {
	s.mu.Lock()
	var (
		refetched []*entry
		touched   int
	)
	for _, e := range s.entries {
		if !match(e.tags) {
			continue
		}
		touched++
		switch {
		case e.fetch != nil:
			// The running response may predate the change; it is refetched
			// on completion when subscribed, dropped otherwise.
			e.invalidated = true
			e.stale = len(e.subs) > 0
		case len(e.subs) > 0:
			e.stale = true
			s.startFetchLocked(e)
			refetched = append(refetched, e)
		default:
			delete(s.entries, e.key)
		}
	}
	for _, key := range s.retention.Keys() {
		v, ok := s.retention.Peek(key)
		if ok && match(v.(*entry).tags) {
			s.retention.Drop(key)
			touched++
		}
	}
	s.mu.Unlock()

	for _, e := range refetched {
		s.drain(e)
	}
	return touched, len(refetched)
}

// Close stops accepting subscriptions, cancels running fetches and waits for
// their goroutines, then closes the retention store.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return s.retention.Close()
}

func (s *Store) operation(name string, kind endpoint.Kind) (endpoint.Operation, error) {
	op, err := s.registry.Get(name)
	if err != nil {
		return endpoint.Operation{}, err
	}
	if op.Kind != kind {
		return endpoint.Operation{}, goerrors.New(
			fmt.Sprintf("operation %q is a %s, not a %s", name, op.Kind, kind),
			goerrors.CategoryBadInput,
		).WithTextCode("WRONG_OPERATION_KIND")
	}
	return op, nil
}

func errClosed() error {
	return goerrors.New("cache store is closed", goerrors.CategoryOperation).
		WithTextCode("STORE_CLOSED")
}

// startFetchLocked returns the running fetch for e, starting one if none is
// in flight. Callers must hold s.mu and drain e after unlocking.
func (s *Store) startFetchLocked(e *entry) *fetchCall {
	if e.fetch != nil {
		return e.fetch
	}
	if s.closed {
		done := make(chan struct{})
		close(done)
		return &fetchCall{done: done, cancel: func() {}}
	}

	ctx, cancel := context.WithCancel(s.ctx)
	call := &fetchCall{done: make(chan struct{}), cancel: cancel}
	e.fetch = call
	e.invalidated = false
	e.status = StatusPending
	e.tags = e.tags.Union(e.op.ProvidedTags(e.args))
	e.version++
	e.publish()

	s.logger.Debug("fetching",
		zap.String("operation", e.op.Name),
		zap.String("key", e.key),
		zap.Bool("stale", e.stale),
	)

	s.wg.Add(1)
	go s.runFetch(ctx, e, call)
	return call
}

func (s *Store) runFetch(ctx context.Context, e *entry, call *fetchCall) {
	defer s.wg.Done()
	defer call.cancel()

	res := s.exec.Execute(ctx, e.op, e.args)

	s.mu.Lock()
	s.completeLocked(e, call, res)
	s.mu.Unlock()

	close(call.done)
	s.drain(e)
}

func (s *Store) completeLocked(e *entry, call *fetchCall, res executor.Result) {
	if e.fetch != call {
		return
	}
	outdated := e.invalidated
	e.invalidated = false
	e.fetch = nil
	e.stale = outdated
	e.version++
	e.updatedAt = s.clock.Now()

	if res.OK() {
		e.status = StatusResolved
		e.data = res.Payload
		e.err = nil
		e.tags = e.op.ProvidedTags(e.args).Union(e.tags)
	} else {
		e.status = StatusError
		e.err = res.Err
		s.logger.Info("fetch failed",
			zap.String("operation", e.op.Name),
			zap.String("key", e.key),
			zap.Int("status", executor.StatusCode(res.Err)),
			zap.String("error", res.Err.Message),
		)
	}
	e.publish()

	if len(e.subs) > 0 {
		if outdated {
			s.startFetchLocked(e)
		}
		return
	}
	if outdated {
		delete(s.entries, e.key)
		return
	}
	s.retireLocked(e)
}

// retireLocked moves an unsubscribed, idle entry into retention.
func (s *Store) retireLocked(e *entry) {
	delete(s.entries, e.key)
	if s.closed {
		return
	}
	s.retention.Retain(e.key, e)
}

// drain delivers queued notifications for e in order, outside the lock.
// Only one goroutine drains an entry at a time; others return immediately
// and their notifications are picked up by the active drainer.
func (s *Store) drain(e *entry) {
	s.mu.Lock()
	if e.draining {
		s.mu.Unlock()
		return
	}
	e.draining = true
	for len(e.queue) > 0 {
		n := e.queue[0]
		e.queue[0] = notification{}
		e.queue = e.queue[1:]
		s.mu.Unlock()

		for _, sub := range n.targets {
			sub.deliver(n.snapshot)
		}

		s.mu.Lock()
	}
	e.queue = nil
	e.draining = false
	s.mu.Unlock()
}
