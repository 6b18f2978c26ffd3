package support

import (
	"context"
	"fmt"
	"time"
)

const (
	sharedKeyLockPrefix     = "spfwatch:lock:"
	sharedKeyLockTTL        = 30 * time.Second
	sharedKeyLockRetryDelay = 100 * time.Millisecond
)

// SharedKeyLock serializes work per string key across instances. With Redis
// available it holds a SET NX PX key with an owner token, released through
// the same compare-and-delete script as the leadership lock; without Redis it
// degrades to the in-process KeyLock, which is enough for a single instance.
type SharedKeyLock struct {
	local *KeyLock
}

func NewSharedKeyLock() *SharedKeyLock {
	return &SharedKeyLock{local: NewKeyLock()}
}

// Lock blocks until the key is held and returns the matching unlock. The
// in-process lock is taken first, so instance-local contention for a key
// never turns into Redis polling.
func (l *SharedKeyLock) Lock(ctx context.Context, key string) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}

	l.local.Lock(key)

	client, err := GetRedisClient()
	if err != nil {
		return func() { l.local.Unlock(key) }, nil
	}

	redisKey := sharedKeyLockPrefix + key
	token := lockToken()
	for {
		acquired, err := client.SetNX(ctx, redisKey, token, sharedKeyLockTTL).Result()
		if err != nil {
			l.local.Unlock(key)
			return nil, fmt.Errorf("support: key lock %s: %w", key, err)
		}
		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			l.local.Unlock(key)
			return nil, ctx.Err()
		case <-time.After(sharedKeyLockRetryDelay):
		}
	}

	return func() {
		releaseOwnedLock(client, redisKey, token)
		l.local.Unlock(key)
	}, nil
}
