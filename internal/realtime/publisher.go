package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
)

// ProgressChannel is the redis channel every API instance publishes to and subscribes on.
const ProgressChannel = "handoff:progress"

// LocalPublisher hands events straight to the hub of this process.
type LocalPublisher struct {
	hub *Hub
}

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(ctx context.Context, ev domain.ProgressEvent) error {
	p.hub.Deliver(ev)
	return nil
}

// RedisPublisher fans events out to every instance through redis pub/sub.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, channel: ProgressChannel}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev domain.ProgressEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	logger.ExternalServiceCall("redis", "publish", "channel", p.channel, "eventID", ev.EventID)
	err = p.client.Publish(ctx, p.channel, data).Err()
	logger.ExternalServiceResult("redis", "publish", err, "channel", p.channel)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return nil
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Subscribe feeds the hub from the progress channel until ctx is cancelled.
func Subscribe(ctx context.Context, client *redis.Client, hub *Hub) error {
	pubsub := client.Subscribe(ctx, ProgressChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", ProgressChannel, err)
	}
	log := logger.WithComponent("progress-subscriber")
	log.Info("Subscribed to progress channel", "channel", ProgressChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info("Progress subscription stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				log.Warn("Progress channel closed")
				return nil
			}
			deliverPayload(hub, msg.Payload)
		}
	}
}

func deliverPayload(hub *Hub, payload string) {
	var ev domain.ProgressEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		logger.Warn("Ignoring malformed progress message", "error", err)
		return
	}
	hub.Deliver(ev)
}
