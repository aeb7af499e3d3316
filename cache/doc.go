// Package cache is a tag-invalidated query cache in front of an Executor.
//
// # Overview
//
// A Store keeps one entry per cache key. The key is the operation name plus
// a canonical serialization of the invocation arguments, so structurally
// equal arguments always share an entry:
//
//	store := cache.NewStore(registry, exec, cache.WithLogger(logger))
//	defer store.Close()
//
//	snap, err := store.Query(ctx, "getAllBookings", BookingFilter{Page: 1})
//
// Concurrent subscribers of the same key share a single network call. Every
// state transition of an entry is delivered to its listeners, in order:
//
//	sub, err := store.Subscribe(ctx, "getAllBookings", args, func(s cache.Snapshot) {
//		render(s)
//	})
//	defer sub.Close()
//
// # Tags and invalidation
//
// Queries declare the tags their results depend on and mutations declare
// the tags they invalidate. After a successful Mutate, every entry whose
// tags intersect the invalidated set is refetched once if it has
// subscribers, or dropped if it has none. A failed mutation leaves the cache
// untouched. Extra tags can be attached per call with WithCacheTags.
//
// # Lifetime
//
// An entry whose last subscriber leaves is moved to a RetentionStore and
// revived without a network call if it is subscribed again within the grace
// window. NewMemoryRetention keeps entries in a map; NewRetention builds the
// sturdyc-backed store.
//
// # Keys
//
// NewDefaultKeySerializer produces readable keys such as
// `getAllBookings::{"limit"=10,"page"=1}`. Maps, structs and url.Values with
// the same fields produce the same key. String values are quoted. NewHashedKeySerializer replaces the
// argument part with a 64-bit xxhash digest.
package cache
