package redis

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"transcript-digest/internal/domain"
)

// Locker is the single-flight guard around one task id: the orchestrator is
// safe for distinct tasks in parallel but a single task must never be driven
// by two concurrent invocations.
type Locker interface {
	TryLock(ctx context.Context, taskID string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, taskID, token string) error
}

const lockKeyPrefix = "digest:task_lock:"

type RedisLocker struct {
	cli *redis.Client
}

var _ Locker = (*RedisLocker)(nil)

func NewLocker(c *Client) *RedisLocker {
	return &RedisLocker{cli: c.cli}
}

func (l *RedisLocker) TryLock(ctx context.Context, taskID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.cli.SetNX(ctx, lockKeyPrefix+taskID, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrTaskLocked
	}
	return token, nil
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Unlock(ctx context.Context, taskID, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{lockKeyPrefix + taskID}, token).Result()
	return err
}

// LocalLocker guards task ids within a single process. It is the fallback when
// no redis is configured and the only writer is this process.
type LocalLocker struct {
	mu     sync.Mutex
	tokens map[string]string
}

var _ Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{tokens: map[string]string{}}
}

func (l *LocalLocker) TryLock(ctx context.Context, taskID string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.tokens[taskID]; held {
		return "", domain.ErrTaskLocked
	}
	token := uuid.NewString()
	l.tokens[taskID] = token
	return token, nil
}

func (l *LocalLocker) Unlock(ctx context.Context, taskID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokens[taskID] == token {
		delete(l.tokens, taskID)
	}
	return nil
}
