package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/port"
)

// RedisLocker serializes document work across processes using redislock.
type RedisLocker struct {
	client *redislock.Client
	logger *zap.Logger

	// RetryInterval/MaxWait bound how long Acquire spins on a held lock.
	retryInterval time.Duration
	maxWait       time.Duration
}

// NewRedisLocker creates a locker backed by the given Redis client.
func NewRedisLocker(rdb *redis.Client, retryInterval, maxWait time.Duration, logger *zap.Logger) *RedisLocker {
	if retryInterval <= 0 {
		retryInterval = 50 * time.Millisecond
	}
	if maxWait <= 0 {
		maxWait = 5 * time.Second
	}
	return &RedisLocker{
		client:        redislock.New(rdb),
		logger:        logger,
		retryInterval: retryInterval,
		maxWait:       maxWait,
	}
}

// Acquire obtains the document's lock, retrying with a linear backoff until
// maxWait elapses.
func (l *RedisLocker) Acquire(ctx context.Context, documentID string, ttl time.Duration) (port.LockHandle, error) {
	key := fmt.Sprintf("docflow:lock:%s", documentID)

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	lock, err := l.client.Obtain(waitCtx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.retryInterval),
	})
	if err == redislock.ErrNotObtained {
		return nil, fmt.Errorf("document %s is locked by another writer", documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock for %s: %w", documentID, err)
	}
	return &redisHandle{lock: lock, logger: l.logger, documentID: documentID}, nil
}

type redisHandle struct {
	lock       *redislock.Lock
	logger     *zap.Logger
	documentID string
}

// Release frees the lock. A lock that already expired is not an error.
func (h *redisHandle) Release(ctx context.Context) error {
	err := h.lock.Release(ctx)
	if err == redislock.ErrLockNotHeld {
		h.logger.Warn("Lock already expired on release", zap.String("document_id", h.documentID))
		return nil
	}
	return err
}

var _ port.DocumentLocker = (*RedisLocker)(nil)
