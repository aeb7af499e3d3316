package cache

import (
	"sort"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-query-cache/endpoint"
	"github.com/goliatone/go-query-cache/executor"
)

// Status is the lifecycle state of a cache entry.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusError    Status = "error"
)

// Snapshot is an immutable view of one cache entry. Listeners and callers
// only ever see snapshots, never the live entry.
type Snapshot struct {
	Key       string
	Operation string
	Status    Status
	// Data is the last successful payload. It survives a later failed fetch
	// so callers can keep showing it next to Err.
	Data *executor.Payload
	Err  *goerrors.Error
	// Stale is set when the entry was invalidated and a refetch is running.
	Stale       bool
	Fetching    bool
	Subscribers int
	Tags        endpoint.Tags
	Version     uint64
	UpdatedAt   time.Time
}

// Settled reports whether no fetch is running for the entry.
func (s Snapshot) Settled() bool { return !s.Fetching }

// ErrorOrNil returns Err as a plain error, or an untyped nil.
func (s Snapshot) ErrorOrNil() error {
	if s.Err == nil {
		return nil
	}
	return s.Err
}

type fetchCall struct {
	done   chan struct{}
	cancel func()
}

type notification struct {
	snapshot Snapshot
	targets  []*Subscription
}

// entry is guarded by Store.mu, except for the fields the drain loop owns.
type entry struct {
	key  string
	op   endpoint.Operation
	args any

	status    Status
	data      *executor.Payload
	err       *goerrors.Error
	stale     bool
	tags      endpoint.Tags
	version   uint64
	updatedAt time.Time

	subs  map[string]*Subscription
	fetch *fetchCall
	// invalidated marks an in-flight response that predates an
	// invalidation: subscribed entries fetch again once it lands, the rest
	// are dropped instead of retained.
	invalidated bool

	queue    []notification
	draining bool
}

func newEntry(key string, op endpoint.Operation, args any, tags endpoint.Tags) *entry {
	return &entry{
		key:  key,
		op:   op,
		args: args,
		tags: tags,
		subs: make(map[string]*Subscription),
	}
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Key:         e.key,
		Operation:   e.op.Name,
		Status:      e.status,
		Data:        e.data,
		Err:         e.err,
		Stale:       e.stale,
		Fetching:    e.fetch != nil,
		Subscribers: len(e.subs),
		Tags:        e.tags.Clone(),
		Version:     e.version,
		UpdatedAt:   e.updatedAt,
	}
}

// publish queues the current state for every live subscriber.
func (e *entry) publish() {
	if len(e.subs) == 0 {
		return
	}
	targets := make([]*Subscription, 0, len(e.subs))
	for _, sub := range e.subs {
		if sub.listener != nil {
			targets = append(targets, sub)
		}
	}
	if len(targets) == 0 {
		return
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].seq < targets[j].seq })
	e.queue = append(e.queue, notification{snapshot: e.snapshot(), targets: targets})
}
