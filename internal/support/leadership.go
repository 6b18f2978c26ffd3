package support

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLeadershipTTL = 45 * time.Second
	leadershipRetryDelay = time.Second
	leaderScriptTimeout  = 5 * time.Second
	minRenewalInterval   = time.Second
	renewalFraction      = 3
)

var (
	lockCounter atomic.Uint64

	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)
)

// RunWithLeader acquires a Redis-based leadership lock and invokes run while
// the lock is held. Only one instance at a time runs the scheduled monitoring
// loop; the run function receives a context that is cancelled when leadership
// is lost or the parent context is done. The lock is renewed periodically and
// released when run returns.
func RunWithLeader(ctx context.Context, key string, ttl time.Duration, run func(context.Context)) error {
	if run == nil {
		return errors.New("support: leader run function cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ttl <= 0 {
		ttl = DefaultLeadershipTTL
	}

	client, err := GetRedisClient()
	if err != nil {
		return fmt.Errorf("support: leader lock redis client: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		token := lockToken()
		acquired, err := client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("leader lock: setnx failed", "key", key, "error", err)
		}

		if !acquired {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(leadershipRetryDelay):
			}
			continue
		}

		log.Debug("leader lock: acquired", "key", key)

		leaderCtx, cancel := context.WithCancel(ctx)
		renewDone := make(chan struct{})
		go renewLoop(leaderCtx, cancel, client, key, token, ttl, renewDone)

		run(leaderCtx)

		cancel()
		<-renewDone
		releaseOwnedLock(client, key, token)
		log.Debug("leader lock: released", "key", key)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(leadershipRetryDelay):
		}
	}
}

func renewLoop(ctx context.Context, cancel context.CancelFunc, client *redis.Client, key, token string, ttl time.Duration, done chan<- struct{}) {
	defer close(done)

	interval := ttl / renewalFraction
	if interval < minRenewalInterval {
		interval = minRenewalInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := renewLeaderLock(client, key, token, ttl); err != nil {
				log.Warn("leader lock: renewal failed", "key", key, "error", err)
				cancel()
				return
			}
		}
	}
}

func renewLeaderLock(client *redis.Client, key, token string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), leaderScriptTimeout)
	defer cancel()

	res, err := renewScript.Run(ctx, client, []string{key}, token, ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if updated, ok := res.(int64); ok && updated == 0 {
		return errors.New("lock lost")
	}
	return nil
}

func releaseOwnedLock(client *redis.Client, key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), leaderScriptTimeout)
	defer cancel()

	if _, err := releaseScript.Run(ctx, client, []string{key}, token).Result(); err != nil && !errors.Is(err, redis.Nil) {
		log.Warn("lock release failed", "key", key, "error", err)
	}
}

func lockToken() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-%d-%d-%d", host, os.Getpid(), time.Now().UnixNano(), lockCounter.Add(1))
}
