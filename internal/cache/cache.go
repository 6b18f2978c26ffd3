package cache

import "time"

// Provider is the injected cache abstraction used for ESP classification and
// resolved-record caching. Entries expire after their TTL.
type Provider interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Invalidate(key string)
	Flush()
}
