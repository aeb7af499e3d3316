package cache

import (
	"context"

	"github.com/goliatone/go-query-cache/executor"
)

// Data decodes the snapshot's data field into T. An entry without a
// payload yields the zero value.
func Data[T any](snap Snapshot) (T, error) {
	return executor.DecodeData[T](snap.Data)
}

// QueryData is Store.Query followed by Data. When the fetch failed but an
// earlier payload is still cached, that payload is decoded and returned
// together with the error.
func QueryData[T any](ctx context.Context, store *Store, operation string, args any) (T, Snapshot, error) {
	snap, err := store.Query(ctx, operation, args)
	if err != nil && snap.Data == nil {
		var zero T
		return zero, snap, err
	}
	out, decodeErr := Data[T](snap)
	if decodeErr != nil {
		return out, snap, decodeErr
	}
	return out, snap, err
}
