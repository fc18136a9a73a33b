package search

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"hms-service/internal/domain/heritage"
)

// ErrUnknownAttribute reports a (resource type, attribute) pair with
// no physical group mapping. Callers must treat it as deny, never as
// an unfiltered match.
var ErrUnknownAttribute = errors.New("no attribute group for resource type")

// GroupResolver maps a logical attribute name to the physical group id
// under which one resource type stores it. The mapping is re-resolved
// per type: the same logical name lives under a different group id on
// every type.
type GroupResolver interface {
	GroupID(rt heritage.ResourceType, name string) (string, error)
	HasAttribute(rt heritage.ResourceType, name string) bool
}

// GroupSource is the backing lookup, usually the attribute-group
// table.
type GroupSource interface {
	LookupGroupID(rt heritage.ResourceType, name string) (string, error)
}

// CachedGroupResolver memoizes group ids per (type, name). The mapping
// is static for the lifetime of a schema version, so entries never
// expire; the LRU bound only guards against unbounded growth from
// garbage lookups.
type CachedGroupResolver struct {
	source GroupSource
	cache  *lru.Cache[string, string]
}

func NewCachedGroupResolver(source GroupSource) (*CachedGroupResolver, error) {
	cache, err := lru.New[string, string](512)
	if err != nil {
		return nil, fmt.Errorf("create group cache: %w", err)
	}
	return &CachedGroupResolver{source: source, cache: cache}, nil
}

func (r *CachedGroupResolver) GroupID(rt heritage.ResourceType, name string) (string, error) {
	key := string(rt) + "|" + name
	if gid, ok := r.cache.Get(key); ok {
		return gid, nil
	}
	gid, err := r.source.LookupGroupID(rt, name)
	if err != nil {
		return "", err
	}
	r.cache.Add(key, gid)
	return gid, nil
}

func (r *CachedGroupResolver) HasAttribute(rt heritage.ResourceType, name string) bool {
	_, err := r.GroupID(rt, name)
	return err == nil
}
