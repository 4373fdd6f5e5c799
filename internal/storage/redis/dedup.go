// Package redis хранит отметки об уже обработанных изменениях документов.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "notify:seen:"

// Dedup: отметки «изменение уже обработано» с TTL.
type Dedup struct {
	rdb    *redis.Client
	prefix string
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой: используется "notify:seen:".
func New(ctx context.Context, redisURL, prefix string) (*Dedup, error) {
	const op = "storage/redis/New"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return newDedup(rdb, prefix), nil
}

func newDedup(rdb *redis.Client, prefix string) *Dedup {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Dedup{rdb: rdb, prefix: prefix}
}

func (d *Dedup) key(id string) string { return d.prefix + id }

// FirstSeen атомарно ставит отметку (SET NX EX) и сообщает, была ли она поставлена сейчас.
// false означает, что изменение с этим id уже обрабатывалось в пределах ttl.
func (d *Dedup) FirstSeen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	const op = "storage/redis/FirstSeen"

	ok, err := d.rdb.SetNX(ctx, d.key(id), time.Now().UTC().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

// Forget снимает отметку: изменение с этим id снова будет считаться новым.
func (d *Dedup) Forget(ctx context.Context, id string) error {
	const op = "storage/redis/Forget"

	if err := d.rdb.Del(ctx, d.key(id)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает клиент Redis.
func (d *Dedup) Close() error {
	return d.rdb.Close()
}
