package di

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/adminapi"
	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/pkg/testsupport"
	"github.com/goliatone/go-query-cache/session"
)

// TestConcurrentAccess checks that many goroutines reading a handful of
// pages cause exactly one backend request per page.
func TestConcurrentAccess(t *testing.T) {
	backend := testsupport.NewBackend(t)
	container := newTestContainer(t, testConfig(t, backend.URL()),
		WithSessionStore(session.NewMemoryStore()))
	client := container.Client()
	ctx := context.Background()

	const numGoroutines = 50
	const operationsPerGoroutine = 20
	const pages = 5

	var wg sync.WaitGroup
	errors := make(chan error, numGoroutines*operationsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for j := 0; j < operationsPerGoroutine; j++ {
				filter := adminapi.BookingFilter{Page: 1 + (workerID+j)%pages, Limit: 1}
				if _, err := client.Bookings(ctx, filter); err != nil {
					errors <- fmt.Errorf("worker %d operation %d Bookings failed: %v", workerID, j, err)
					continue
				}

				if j%5 == 0 {
					if _, err := client.States(ctx); err != nil {
						errors <- fmt.Errorf("worker %d operation %d States failed: %v", workerID, j, err)
					}
				}
			}
		}(i)
	}

	wg.Wait()
	close(errors)

	var errorCount int
	for err := range errors {
		t.Error(err)
		errorCount++
		if errorCount > 10 {
			t.Error("... and more errors")
			break
		}
	}
	if errorCount > 0 {
		t.Fatalf("Concurrent access test failed with %d errors", errorCount)
	}

	if got := backend.Calls(adminapi.OpGetAllBookings); got != pages {
		t.Errorf("Expected one bookings request per page (%d), got %d", pages, got)
	}
	if got := backend.Calls(adminapi.OpGetAllState); got != 1 {
		t.Errorf("Expected one states request, got %d", got)
	}
}

// TestConcurrentReadWrite interleaves reads of the customer list with
// block toggles and checks the final state after one more invalidation.
func TestConcurrentReadWrite(t *testing.T) {
	backend := testsupport.NewBackend(t)
	container := newTestContainer(t, testConfig(t, backend.URL()),
		WithSessionStore(session.NewMemoryStore()))
	client := container.Client()
	ctx := context.Background()
	filter := adminapi.ListFilter{Page: 1, Limit: 10}

	const readers = 10
	const toggles = 7

	var wg sync.WaitGroup
	errs := make(chan error, readers*20+toggles)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := client.Users(ctx, filter); err != nil {
					errs <- err
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < toggles; i++ {
			if err := client.ToggleBlock(ctx, "c1"); err != nil {
				errs <- err
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	// A read that started before the last toggle may still be retained.
	container.Store().Invalidate(adminapi.TagUsers)

	page, err := client.Users(ctx, filter)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range page.Items {
		if c.ID == "c1" && !c.IsBlocked {
			t.Errorf("expected c1 blocked after %d toggles", toggles)
		}
	}
}

func benchContainer(b *testing.B) (*Container, *testsupport.Backend) {
	b.Helper()
	backend := testsupport.NewBackend(b)
	container := newTestContainer(b, testConfig(b, backend.URL()),
		WithSessionStore(session.NewMemoryStore()),
		WithLogger(zap.NewNop()),
	)
	return container, backend
}

// BenchmarkCachedVsBackend compares a network round trip with a cache hit
// for the same bookings page.
func BenchmarkCachedVsBackend(b *testing.B) {
	container, _ := benchContainer(b)
	client := container.Client()
	ctx := context.Background()
	filter := adminapi.BookingFilter{Page: 1, Limit: 10}

	b.Run("backend_round_trip", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			container.Store().Invalidate(adminapi.TagBookings)
			_, _ = client.Bookings(ctx, filter)
		}
	})

	// Hold a subscription so the entry stays live.
	sub, err := container.Store().Subscribe(ctx, adminapi.OpGetAllBookings, filter, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer sub.Close()
	if _, err := sub.Wait(ctx); err != nil {
		b.Fatal(err)
	}

	b.Run("cache_hit", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_, _ = client.Bookings(ctx, filter)
		}
	})
}

// BenchmarkKeySerializationPerformance compares the readable and hashed
// serializers on typical dashboard arguments.
func BenchmarkKeySerializationPerformance(b *testing.B) {
	serializers := map[string]cache.KeySerializer{
		"default": cache.NewDefaultKeySerializer(),
		"hashed":  cache.NewHashedKeySerializer(),
	}
	args := []struct {
		name string
		op   string
		arg  any
	}{
		{"none", adminapi.OpGetDashboardStatus, nil},
		{"id", adminapi.OpGetServiceByID, "s1"},
		{"filter", adminapi.OpGetAllBookings, adminapi.BookingFilter{Page: 2, Limit: 25, Status: "booked"}},
		{"map", adminapi.OpGetAllUsers, map[string]any{"page": 1, "limit": 10, "sortOrder": "desc"}},
	}

	for name, serializer := range serializers {
		for _, tc := range args {
			b.Run(name+"/"+tc.name, func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					_ = serializer.SerializeKey(tc.op, tc.arg)
				}
			})
		}
	}
}

// BenchmarkConcurrentCacheAccess reads warmed pages from many goroutines.
func BenchmarkConcurrentCacheAccess(b *testing.B) {
	container, _ := benchContainer(b)
	client := container.Client()
	ctx := context.Background()

	const pages = 3
	for p := 1; p <= pages; p++ {
		sub, err := container.Store().Subscribe(ctx, adminapi.OpGetAllBookings, adminapi.BookingFilter{Page: p, Limit: 1}, nil)
		if err != nil {
			b.Fatal(err)
		}
		defer sub.Close()
		if _, err := sub.Wait(ctx); err != nil {
			b.Fatal(err)
		}
	}

	b.Run("concurrent_cache_hits", func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			i := 0
			for pb.Next() {
				_, _ = client.Bookings(ctx, adminapi.BookingFilter{Page: 1 + i%pages, Limit: 1})
				i++
			}
		})
	})
}
