package endpoint

import (
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
)

// TagSeparator splits a resource tag from an optional instance qualifier,
// e.g. "services:42".
const TagSeparator = ":"

// Tag identifies a class of server resource. Queries provide tags, mutations
// invalidate them.
type Tag string

// NewTag normalises s into a Tag. The resource part is snake_cased; an
// instance qualifier after TagSeparator is kept verbatim. A name without a
// resource part yields the empty tag, which tag sets ignore.
func NewTag(s string) Tag {
	resource, qualifier, _ := strings.Cut(strings.TrimSpace(s), TagSeparator)
	resource = resourceName(resource)
	qualifier = strings.TrimSpace(qualifier)
	if resource == "" {
		return ""
	}
	if qualifier == "" {
		return Tag(resource)
	}
	return Tag(resource + TagSeparator + qualifier)
}

// ResourceTag builds the plural tag for a resource name: "booking" becomes
// "bookings", "siteContent" becomes "site_contents".
func ResourceTag(resource string) Tag {
	return Tag(inflection.Plural(resourceName(resource)))
}

// Qualified returns t narrowed to a single instance.
func (t Tag) Qualified(id string) Tag {
	return Tag(string(t.Resource()) + TagSeparator + id)
}

// Resource strips any instance qualifier.
func (t Tag) Resource() Tag {
	resource, _, _ := strings.Cut(string(t), TagSeparator)
	return Tag(resource)
}

func (t Tag) String() string { return string(t) }

// Tags is a small set of tags. The zero value is an empty set.
type Tags []Tag

// TagsOf normalises and dedupes names into a Tags set.
func TagsOf(names ...string) Tags {
	tags := make(Tags, 0, len(names))
	for _, name := range names {
		tags = append(tags, NewTag(name))
	}
	return tags.dedupe()
}

// Contains reports whether tag is in the set. A bare resource tag in the set
// matches qualified instances of that resource.
func (ts Tags) Contains(tag Tag) bool {
	for _, t := range ts {
		if t == tag || t == tag.Resource() {
			return true
		}
	}
	return false
}

// Intersects reports whether the two sets share at least one tag. Matching
// is symmetric: "services" intersects "services:42" from either side.
func (ts Tags) Intersects(other Tags) bool {
	for _, t := range other {
		if ts.Contains(t) {
			return true
		}
	}
	for _, t := range ts {
		if other.Contains(t) {
			return true
		}
	}
	return false
}

// Union returns a new set holding the tags of both sets.
func (ts Tags) Union(other Tags) Tags {
	out := make(Tags, 0, len(ts)+len(other))
	out = append(out, ts...)
	out = append(out, other...)
	return out.dedupe()
}

// Clone returns a copy that does not share backing storage with ts.
func (ts Tags) Clone() Tags {
	if ts == nil {
		return nil
	}
	return append(Tags(nil), ts...)
}

// Strings returns the tags as sorted strings, handy for logging.
func (ts Tags) Strings() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	sort.Strings(out)
	return out
}

func (ts Tags) normalized() Tags {
	out := make(Tags, 0, len(ts))
	for _, t := range ts {
		out = append(out, NewTag(string(t)))
	}
	return out.dedupe()
}

func (ts Tags) dedupe() Tags {
	if len(ts) == 0 {
		return nil
	}
	seen := make(map[Tag]struct{}, len(ts))
	out := make(Tags, 0, len(ts))
	for _, t := range ts {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
