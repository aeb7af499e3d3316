package cache

import (
	"context"

	"github.com/goliatone/go-query-cache/endpoint"
)

type cacheTagsContextKey struct{}

// WithCacheTags attaches extra provided tags to the context. Entries created
// or subscribed through this context depend on them in addition to the
// operation's own tags.
func WithCacheTags(ctx context.Context, tags ...endpoint.Tag) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	combined := cacheTagsFromContext(ctx).Union(endpoint.TagsOf(tagStrings(tags)...))
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, cacheTagsContextKey{}, combined)
}

func cacheTagsFromContext(ctx context.Context) endpoint.Tags {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(cacheTagsContextKey{}).(endpoint.Tags); ok {
		return tags.Clone()
	}
	return nil
}

func tagStrings(tags []endpoint.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
