package cache

import (
	"context"
	"sync/atomic"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/endpoint"
)

// Listener receives every state transition of a subscribed entry, in
// order. It runs outside the store lock and may call back into the store.
type Listener func(Snapshot)

// Subscription keeps one cache entry alive and receives its transitions.
type Subscription struct {
	ID  string
	Key string

	seq      uint64
	store    *Store
	listener Listener
	closed   atomic.Bool
}

// Subscribe registers interest in operation(args). The entry is created and
// fetched when absent, revived from retention when it is within the grace
// window, and refetched when its last fetch failed. A nil listener is
// allowed for callers that only poll Snapshot or Wait.
func (s *Store) Subscribe(ctx context.Context, operation string, args any, listener Listener) (*Subscription, error) {
	op, err := s.operation(operation, endpoint.KindQuery)
	if err != nil {
		return nil, err
	}

	key := s.Key(op.Name, args)
	extra := cacheTagsFromContext(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errClosed()
	}

	s.seq++
	sub := &Subscription{
		ID:       uuid.NewString(),
		Key:      key,
		seq:      s.seq,
		store:    s,
		listener: listener,
	}

	e, ok := s.entries[key]
	if !ok {
		if v, revived := s.retention.Revive(key); revived {
			e = v.(*entry)
			s.logger.Debug("revived retained entry", zap.String("key", key))
		} else {
			e = newEntry(key, op, args, nil)
		}
		s.entries[key] = e
	}
	e.tags = e.tags.Union(extra)
	e.subs[sub.ID] = sub

	if e.fetch == nil && e.status != StatusResolved {
		s.startFetchLocked(e)
	}
	s.mu.Unlock()

	s.subscriptions.Store(sub.ID, sub)
	s.drain(e)
	return sub, nil
}

// Unsubscribe removes the subscription with id. When the entry's last
// subscriber leaves and no fetch is running the entry moves to retention.
// It reports whether id was active.
func (s *Store) Unsubscribe(id string) bool {
	sub, ok := s.subscriptions.LoadAndDelete(id)
	if !ok {
		return false
	}
	sub.closed.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sub.Key]
	if !ok {
		return true
	}
	delete(e.subs, id)
	if len(e.subs) == 0 && e.fetch == nil {
		s.retireLocked(e)
	}
	return true
}

// Subscriptions returns the number of active subscriptions.
func (s *Store) Subscriptions() int {
	return s.subscriptions.Size()
}

// Close is shorthand for Store.Unsubscribe(sub.ID).
func (sub *Subscription) Close() {
	sub.store.Unsubscribe(sub.ID)
}

// Snapshot returns the entry's current state.
func (sub *Subscription) Snapshot() Snapshot {
	s := sub.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[sub.Key]; ok {
		return e.snapshot()
	}
	return Snapshot{Key: sub.Key}
}

// Refetch forces a network call for the entry, or joins the one already
// running, and waits for it to complete. Cancelling ctx ends the wait only;
// the call itself is shared with the entry's other subscribers.
func (sub *Subscription) Refetch(ctx context.Context) (Snapshot, error) {
	s := sub.store
	s.mu.Lock()
	e, ok := s.entries[sub.Key]
	if !ok || sub.closed.Load() {
		s.mu.Unlock()
		return Snapshot{Key: sub.Key}, errSubscriptionClosed()
	}
	call := s.startFetchLocked(e)
	s.mu.Unlock()

	s.drain(e)

	select {
	case <-call.done:
		return sub.Snapshot(), nil
	case <-ctx.Done():
		return sub.Snapshot(), goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "refetching "+sub.Key)
	}
}

// Wait blocks until the entry has no fetch in flight and returns its state.
func (sub *Subscription) Wait(ctx context.Context) (Snapshot, error) {
	s := sub.store
	for {
		s.mu.Lock()
		e, ok := s.entries[sub.Key]
		if !ok {
			s.mu.Unlock()
			return Snapshot{Key: sub.Key}, errSubscriptionClosed()
		}
		if e.fetch == nil {
			snap := e.snapshot()
			s.mu.Unlock()
			return snap, nil
		}
		done := e.fetch.done
		s.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return sub.Snapshot(), goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "waiting for "+sub.Key)
		}
	}
}

func (sub *Subscription) deliver(snap Snapshot) {
	if sub.closed.Load() || sub.listener == nil {
		return
	}
	sub.listener(snap)
}

func errSubscriptionClosed() error {
	return goerrors.New("subscription is closed", goerrors.CategoryOperation).
		WithTextCode("SUBSCRIPTION_CLOSED")
}
