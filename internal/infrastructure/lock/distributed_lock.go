package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 领养事务本身已经对用户行加了 FOR UPDATE，数据正确性由数据库保证。
// Redis 锁挡在事务前面，同一用户的并发请求在进入数据库之前就排队，
// 避免大量请求堆在行锁上占满连接池。
//
// 加锁：SET key value NX EX timeout
// 释放：Lua 脚本先比较 value 再删除，不会误删别人的锁
//
// ============================================================================

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// DistributedLock 分布式锁
type DistributedLock struct {
	client     redis.Cmdable
	key        string        // 锁的 key
	value      string        // 锁持有者标识
	expiration time.Duration // 锁的过期时间
}

func NewDistributedLock(client redis.Cmdable, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 非阻塞加锁
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 阻塞加锁，每隔 retryInterval 重试一次，最多 maxRetries 次
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁，返回是否真的删除了自己的锁
func (l *DistributedLock) Unlock(ctx context.Context) (bool, error) {
	n, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ============================================================================
// 按用户维度的领养锁
// ============================================================================

// AdoptLocker 为每次领养请求创建用户维度的锁
type AdoptLocker struct {
	client        redis.Cmdable
	expiration    time.Duration
	retryInterval time.Duration
	maxRetries    int
}

func NewAdoptLocker(client redis.Cmdable) *AdoptLocker {
	return &AdoptLocker{
		client:        client,
		expiration:    30 * time.Second,
		retryInterval: 100 * time.Millisecond,
		maxRetries:    30,
	}
}

func AdoptLockKey(userID int64) string {
	return fmt.Sprintf("adopt:lock:user:%d", userID)
}

// Acquire 加锁成功返回释放函数
func (a *AdoptLocker) Acquire(ctx context.Context, userID int64, token string) (func(context.Context) error, error) {
	l := NewDistributedLock(a.client, AdoptLockKey(userID), token, a.expiration)
	if err := l.Lock(ctx, a.retryInterval, a.maxRetries); err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		_, err := l.Unlock(ctx)
		return err
	}, nil
}
