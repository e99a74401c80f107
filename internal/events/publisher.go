// Package events publishes forecast lifecycle events to a message broker.
// Events carry status metadata only, never request rows or predictions.
package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/soltixdb/forecaster/internal/config"
)

// BrokerType selects the publisher implementation
type BrokerType string

const (
	BrokerMemory BrokerType = "memory"
	BrokerNATS   BrokerType = "nats"
	BrokerRedis  BrokerType = "redis"
	BrokerKafka  BrokerType = "kafka"
)

// Publisher publishes raw messages to a subject, stream or topic
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// NewPublisher creates a Publisher based on configuration. A disabled
// configuration yields a publisher that drops every message.
func NewPublisher(cfg config.EventsConfig) (Publisher, error) {
	if !cfg.Enabled {
		return nopPublisher{}, nil
	}

	brokerType := BrokerType(strings.ToLower(cfg.Type))
	if brokerType == "" {
		brokerType = BrokerMemory
	}

	switch brokerType {
	case BrokerMemory:
		return NewMemoryPublisher(), nil
	case BrokerNATS:
		return newNATSPublisher(cfg.URL, cfg.Username, cfg.Password)
	case BrokerRedis:
		return newRedisPublisher(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
		})
	case BrokerKafka:
		return newKafkaPublisher(KafkaConfig{Brokers: cfg.KafkaBrokers})
	default:
		return nil, fmt.Errorf("unsupported events type: %s (supported: memory, nats, redis, kafka)", brokerType)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (nopPublisher) Close() error { return nil }
