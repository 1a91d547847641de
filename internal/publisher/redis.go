package publisher

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// listQueue is the subset of *redis.Client used as a bounded queue.
type listQueue interface {
	LLen(ctx context.Context, key string) *redis.IntCmd
	RPop(ctx context.Context, key string) *redis.StringCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher pushes events onto a capped Redis list. Consumers pop from
// the right; when the list is full the oldest event is dropped.
type RedisPublisher struct {
	conn        listQueue
	key         string
	maxDepth    int64
	destination string
}

func openRedis(_ context.Context, d Destination) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(d.Namespace)
	if err != nil {
		return nil, fmt.Errorf("unable to parse redis url: %w", err)
	}
	return newRedisPublisher(redis.NewClient(opt), d), nil
}

func newRedisPublisher(conn listQueue, d Destination) *RedisPublisher {
	return &RedisPublisher{
		conn:     conn,
		key:      d.Name,
		maxDepth: d.MaxQueueDepth,
		// keep credentials embedded in the URL out of logs
		destination: Destination{Backend: d.Backend, Name: d.Name}.String(),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, payload []byte) error {
	if p.maxDepth > 0 {
		qLen, err := p.conn.LLen(ctx, p.key).Result()
		if err != nil {
			return fmt.Errorf("failed to get queue length: %w", err)
		}
		// if at capacity pop oldest off queue
		if qLen >= p.maxDepth {
			if err := p.conn.RPop(ctx, p.key).Err(); err != nil && err != redis.Nil {
				return fmt.Errorf("failed to trim queue: %w", err)
			}
		}
	}

	if err := p.conn.LPush(ctx, p.key, payload).Err(); err != nil {
		return fmt.Errorf("%w: failed adding event to queue: %w", ErrRejected, err)
	}
	return nil
}

func (p *RedisPublisher) Close(context.Context) error {
	return p.conn.Close()
}

func (p *RedisPublisher) Destination() string {
	return p.destination
}
