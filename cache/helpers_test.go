package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/juju/clock/testclock"
	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-query-cache/endpoint"
	"github.com/goliatone/go-query-cache/executor"
)

const testGrace = 30 * time.Second

var testOperations = []endpoint.Operation{
	endpoint.Query("getAllBookings", http.MethodGet, "/booking/get-all-bookings", "bookings"),
	endpoint.Query("getAllUsers", http.MethodGet, "/customer/get-all-customers", "users"),
	endpoint.Query("getAllWorkers", http.MethodGet, "/worker/get-all-worker", "workers"),
	endpoint.Query("getAllManagers", http.MethodGet, "/super-admin/get-all-manager", "managers"),
	endpoint.Query("getDashboardStatus", http.MethodGet, "/dashboard/get-dashboard-status", "analytics"),
	endpoint.Mutation("deleteBooking", http.MethodDelete, "/booking/delete-booking/{id}", "bookings"),
	endpoint.Mutation("toggleBlockUnblock", http.MethodPatch, "/customer-or-worker/update-block-unblock/{id}", "workers", "users"),
	endpoint.Mutation("blockManager", http.MethodPatch, "/super-admin/block-manager/{id}", "managers"),
	endpoint.Mutation("login", http.MethodPost, "/manager/login"),
}

// handlerFunc answers one call. n is the 1-based call count for the
// operation, including this one.
type handlerFunc func(ctx context.Context, op endpoint.Operation, args any, n int) executor.Result

type fakeExecutor struct {
	mu      sync.Mutex
	calls   map[string]int
	handler handlerFunc
}

func newFakeExecutor(h handlerFunc) *fakeExecutor {
	return &fakeExecutor{calls: make(map[string]int), handler: h}
}

func (f *fakeExecutor) Execute(ctx context.Context, op endpoint.Operation, args any) executor.Result {
	f.mu.Lock()
	f.calls[op.Name]++
	n := f.calls[op.Name]
	f.mu.Unlock()
	return f.handler(ctx, op, args, n)
}

func (f *fakeExecutor) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

type testEnv struct {
	store *Store
	exec  *fakeExecutor
	clock *testclock.Clock
}

func newTestEnv(t *testing.T, h handlerFunc) *testEnv {
	t.Helper()
	reg := endpoint.MustRegister(testOperations)
	clk := testclock.NewClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	exec := newFakeExecutor(h)
	store := NewStore(reg, exec,
		WithClock(clk),
		WithRetention(NewMemoryRetention(testGrace, clk)),
		WithLogger(zaptest.NewLogger(t)),
	)
	t.Cleanup(func() { _ = store.Close() })
	return &testEnv{store: store, exec: exec, clock: clk}
}

// okPayload wraps data in the backend envelope. It runs inside fetch
// goroutines, so it panics instead of failing the test.
func okPayload(data any) executor.Result {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	body, _ := json.Marshal(map[string]json.RawMessage{"data": raw})
	return executor.Result{Payload: &executor.Payload{StatusCode: http.StatusOK, Data: raw, Body: body}}
}

// await blocks until release is closed or the fetch is cancelled.
func await(ctx context.Context, release <-chan struct{}) bool {
	select {
	case <-release:
		return true
	case <-ctx.Done():
		return false
	}
}

func canceled(ctx context.Context) executor.Result {
	return executor.Result{Err: goerrors.Wrap(ctx.Err(), goerrors.CategoryExternal, "request canceled").
		WithTextCode(executor.TextCodeNetwork)}
}

func serverFailure(status int, msg string) executor.Result {
	return executor.Result{Err: goerrors.New(msg, goerrors.HTTPStatusToCategory(status)).
		WithCode(status).
		WithTextCode(goerrors.HTTPStatusToTextCode(status))}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// recorder collects every snapshot a listener receives.
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) listen(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func (r *recorder) last() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return Snapshot{}, false
	}
	return r.snaps[len(r.snaps)-1], true
}

func ctxWithTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}
