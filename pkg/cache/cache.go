package cache

import "time"

// Cache is a TTL key/value cache. The venue registry uses it for pool-address
// and token-metadata lookups that are expensive to re-read from the chain.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration) bool
	Delete(key string)
	Clear()
	Close()
}
