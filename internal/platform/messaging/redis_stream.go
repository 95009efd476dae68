package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"votingdao/contexts/governance/voting-dao/ports"

	"github.com/redis/go-redis/v9"
)

// RedisStream appends every published envelope to one redis stream. The
// topic travels as a field so consumers can filter by event type.
type RedisStream struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisStream(url string, stream string, logger *slog.Logger) (*RedisStream, error) {
	stream = strings.TrimSpace(stream)
	if stream == "" {
		return nil, errors.New("redis stream name is required")
	}
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStream{
		client: redis.NewClient(opt),
		stream: stream,
		logger: logger,
	}, nil
}

func (r *RedisStream) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStream) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	values, err := streamValues(topic, event)
	if err != nil {
		return err
	}
	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: values,
	}).Result()
	if err != nil {
		r.logger.Error("redis stream publish failed",
			"event", "redis_stream_publish_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"stream", r.stream,
			"topic", topic,
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}

	r.logger.Info("event published",
		"event", "redis_stream_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"stream", r.stream,
		"stream_id", id,
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return nil
}

func (r *RedisStream) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func streamValues(topic string, event ports.EventEnvelope) (map[string]any, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event envelope: %w", err)
	}
	return map[string]any{
		"topic":          topic,
		"event_id":       event.EventID,
		"event_type":     event.EventType,
		"partition_key":  event.PartitionKey,
		"schema_version": strconv.Itoa(event.SchemaVersion),
		"payload":        string(payload),
	}, nil
}
