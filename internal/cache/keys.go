package cache

import (
	"fmt"
	"sort"
	"strings"
)

const keyPrefix = "cache:"

// ListQuery is the resolved shape of a list request. Keys are built from
// these fields alone, never from raw request parameters, so two requests
// with the same effective query always fingerprint identically regardless of
// parameter order.
type ListQuery struct {
	OwnerID string // empty for cross-owner listings
	Page    int
	Limit   int
	Sort    string
	Order   string
	Filters map[string]string
}

// ListKey returns the canonical cache key for a list query over a resource
// kind. Filter predicates are emitted in sorted key order with fixed
// separators.
func ListKey(resource string, q ListQuery) string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(resource)
	b.WriteString(":owner=")
	if q.OwnerID == "" {
		b.WriteString("all")
	} else {
		b.WriteString(q.OwnerID)
	}
	fmt.Fprintf(&b, ":page=%d:limit=%d:sort=%s:order=%s", q.Page, q.Limit, q.Sort, q.Order)

	if len(q.Filters) > 0 {
		names := make([]string, 0, len(q.Filters))
		for name := range q.Filters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString(":")
			b.WriteString(name)
			b.WriteString("=")
			b.WriteString(q.Filters[name])
		}
	}
	return b.String()
}

// ItemKey returns the cache key for a single resource record.
func ItemKey(resource, id string) string {
	return keyPrefix + resource + ":id=" + id
}

// OwnerPattern matches every cached listing scoped to one owner.
func OwnerPattern(resource, ownerID string) string {
	return keyPrefix + resource + ":owner=" + ownerID + ":*"
}

// AllPattern matches every cached cross-owner listing of a resource kind.
func AllPattern(resource string) string {
	return keyPrefix + resource + ":owner=all:*"
}
