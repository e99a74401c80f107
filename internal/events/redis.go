package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// streamMaxLen caps each event stream; trimming is approximate
const streamMaxLen = 10000

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // redis://localhost:6379 or host:port
	Password string
	DB       int
}

// RedisPublisher appends events to Redis Streams
type RedisPublisher struct {
	client *redis.Client
}

func newRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPublisher{client: client}, nil
}

// Publish adds data to the stream named subject
func (p *RedisPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: subject,
		MaxLen: streamMaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": data},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", subject, err)
	}
	return nil
}

// Close closes the client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
