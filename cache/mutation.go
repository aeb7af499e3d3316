package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/endpoint"
	"github.com/goliatone/go-query-cache/executor"
)

// PatchFunc returns the optimistic replacement for a cached payload. It
// receives a private copy and may modify it. It runs outside the store
// lock; if the entry changes meanwhile the patch is discarded.
type PatchFunc func(*executor.Payload) (*executor.Payload, error)

// MutateOption configures a single Mutate call.
type MutateOption func(*mutateConfig)

type mutateConfig struct {
	updates []optimisticUpdate
	extra   endpoint.Tags
}

type optimisticUpdate struct {
	operation string
	args      any
	patch     PatchFunc
}

// WithOptimisticUpdate patches the cached result of query(args) before the
// mutation is sent. The patch is rolled back if the mutation fails. When the
// entry is not cached and resolved the update is skipped.
func WithOptimisticUpdate(query string, args any, patch PatchFunc) MutateOption {
	return func(c *mutateConfig) {
		c.updates = append(c.updates, optimisticUpdate{operation: query, args: args, patch: patch})
	}
}

// WithInvalidates adds tags to invalidate on success on top of the
// operation's own.
func WithInvalidates(tags ...endpoint.Tag) MutateOption {
	return func(c *mutateConfig) {
		c.extra = c.extra.Union(tags)
	}
}

// Mutate runs a write. The call is always issued, never de-duplicated. On
// success the tags the operation invalidates are invalidated; on failure
// the cache is left exactly as it was, apart from reverting optimistic
// patches. The Go error is only set for misuse, such as an unknown operation
// or a query name.
func (s *Store) Mutate(ctx context.Context, operation string, args any, opts ...MutateOption) (executor.Result, error) {
	op, err := s.operation(operation, endpoint.KindMutation)
	if err != nil {
		return executor.Result{}, err
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return executor.Result{}, errClosed()
	}

	cfg := mutateConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	rollbacks := make([]func(), 0, len(cfg.updates))
	for _, u := range cfg.updates {
		if undo := s.applyOptimistic(u); undo != nil {
			rollbacks = append(rollbacks, undo)
		}
	}

	res := s.exec.Execute(ctx, op, args)
	if !res.OK() {
		for i := len(rollbacks) - 1; i >= 0; i-- {
			rollbacks[i]()
		}
		s.logger.Info("mutation failed",
			zap.String("operation", op.Name),
			zap.Int("status", executor.StatusCode(res.Err)),
			zap.String("error", res.Err.Message),
			zap.Int("rolled_back", len(rollbacks)),
		)
		return res, nil
	}

	if tags := op.InvalidatedTags(args).Union(cfg.extra); len(tags) > 0 {
		s.Invalidate(tags...)
	}
	return res, nil
}

// applyOptimistic installs the patched payload and returns its undo. The
// undo only restores the previous payload if nothing replaced the patch in
// the meantime.
func (s *Store) applyOptimistic(u optimisticUpdate) func() {
	op, err := s.operation(u.operation, endpoint.KindQuery)
	if err != nil {
		s.logger.Warn("optimistic update skipped", zap.String("operation", u.operation), zap.Error(err))
		return nil
	}
	key := s.Key(op.Name, u.args)

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.data == nil || e.status == StatusError {
		s.mu.Unlock()
		return nil
	}

	prev := e.data
	draft := prev.Clone()
	s.mu.Unlock()

	// The patch runs unlocked so it may read the store.
	patched, err := u.patch(draft)
	if err != nil || patched == nil {
		s.logger.Warn("optimistic patch failed", zap.String("key", key), zap.Error(err))
		return nil
	}

	s.mu.Lock()
	if s.entries[key] != e || e.data != prev {
		s.mu.Unlock()
		s.logger.Debug("optimistic update skipped, entry changed while patching", zap.String("key", key))
		return nil
	}
	e.data = patched
	e.version++
	e.publish()
	s.mu.Unlock()
	s.drain(e)

	return func() {
		s.mu.Lock()
		if e.data != patched {
			s.mu.Unlock()
			return
		}
		e.data = prev
		e.version++
		e.publish()
		s.mu.Unlock()
		s.drain(e)
	}
}
