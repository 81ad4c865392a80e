package cache

import (
	"context"
	"time"
)

// referencePrefix namespaces provider-reference lookups inside the shared cache.
const referencePrefix = "ref:"

// ReferenceCache maps provider references to request IDs. Every callback
// carries only the provider's own reference, so the lookup sits on the hot
// path of the ingress surface.
type ReferenceCache struct {
	cache Cache
	ttl   time.Duration
}

// NewReferenceCache wraps a Cache for reference lookups.
func NewReferenceCache(c Cache, ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{cache: c, ttl: ttl}
}

// Get returns the cached request ID for a provider reference, or "" on miss.
func (rc *ReferenceCache) Get(ctx context.Context, reference string) string {
	val, err := rc.cache.Get(ctx, referencePrefix+reference)
	if err != nil {
		return ""
	}
	return string(val)
}

// Put records the request ID a provider reference resolves to.
func (rc *ReferenceCache) Put(ctx context.Context, reference, requestID string) {
	_ = rc.cache.Set(ctx, referencePrefix+reference, []byte(requestID), rc.ttl)
}

// Forget drops a reference, for example when its request reaches a terminal
// status. A miss is fine; the cache is only an accelerator.
func (rc *ReferenceCache) Forget(ctx context.Context, reference string) {
	_ = rc.cache.Delete(ctx, referencePrefix+reference)
}
