package cache

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-query-cache/endpoint"
	"github.com/goliatone/go-query-cache/executor"
)

func TestData_NilPayload(t *testing.T) {
	got, err := Data[[]string](Snapshot{})
	if err != nil {
		t.Fatalf("Data() failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected zero value, got %v", got)
	}
}

func TestData_DecodeError(t *testing.T) {
	snap := Snapshot{Data: &executor.Payload{Data: []byte(`{"not":"a list"}`)}}
	if _, err := Data[[]string](snap); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestQueryData(t *testing.T) {
	env := newTestEnv(t, func(ctx context.Context, op endpoint.Operation, args any, n int) executor.Result {
		switch {
		case op.Name == "getAllWorkers":
			return serverFailure(http.StatusForbidden, "not allowed")
		case n >= 2:
			return serverFailure(http.StatusBadGateway, "upstream down")
		}
		return okPayload([]booking{{ID: "b1", Status: "pending"}})
	})
	ctx := ctxWithTimeout(t)

	t.Run("resolved", func(t *testing.T) {
		items, snap, err := QueryData[[]booking](ctx, env.store, "getAllBookings", nil)
		if err != nil {
			t.Fatalf("QueryData() failed: %v", err)
		}
		if snap.Status != StatusResolved {
			t.Errorf("expected resolved, got %s", snap.Status)
		}
		if len(items) != 1 || items[0].Status != "pending" {
			t.Errorf("unexpected items %+v", items)
		}
	})

	t.Run("error without data", func(t *testing.T) {
		items, snap, err := QueryData[[]string](ctx, env.store, "getAllWorkers", nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if items != nil {
			t.Errorf("expected no items, got %v", items)
		}
		if snap.Err == nil || snap.Err.Code != http.StatusForbidden {
			t.Errorf("expected 403 in snapshot, got %v", snap.Err)
		}
	})

	t.Run("error keeps previous data", func(t *testing.T) {
		sub, err := env.store.Subscribe(ctx, "getAllBookings", nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer sub.Close()
		if _, err := sub.Refetch(ctx); err != nil {
			t.Fatal(err)
		}

		items, _, err := QueryData[[]booking](ctx, env.store, "getAllBookings", nil)
		if err == nil {
			t.Fatal("expected the refetch error")
		}
		if len(items) != 1 {
			t.Errorf("expected previous items next to the error, got %+v", items)
		}
	})
}
