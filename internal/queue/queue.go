package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbenjam1n/statstage/internal/chat"
)

const (
	// StreamEvents is the Redis stream of stage hook outcomes (host pushes,
	// watchers pop).
	StreamEvents = "stage_events"
	// GroupWatchers is the consumer group for event watchers.
	GroupWatchers = "stage_watchers"
)

// ErrNoMessages is returned by ReadEvent when a bounded block times out.
var ErrNoMessages = errors.New("no messages")

// Queue manages the Redis stream carrying stage events.
type Queue struct {
	client *redis.Client
}

// New creates a Queue from a Redis client.
func New(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// ConnectRedis creates a Redis client from a URL.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// EnsureStreams creates the consumer group if it doesn't exist.
func (q *Queue) EnsureStreams(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, StreamEvents, GroupWatchers, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", GroupWatchers, StreamEvents, err)
	}
	return nil
}

// Publish adds an event to the stage_events stream.
func (q *Queue) Publish(ctx context.Context, e chat.Event) error {
	values, err := eventValues(e)
	if err != nil {
		return err
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamEvents,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("push event: %w", err)
	}
	return nil
}

// ReadEvent reads one event for the consumer. A zero block waits forever.
func (q *Queue) ReadEvent(ctx context.Context, consumer string, block time.Duration) (*chat.Event, string, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    GroupWatchers,
		Consumer: consumer,
		Streams:  []string{StreamEvents, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, "", ErrNoMessages
	}
	if err != nil {
		return nil, "", fmt.Errorf("read event: %w", err)
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			e, err := eventFromValues(msg.Values)
			if err != nil {
				return nil, msg.ID, err
			}
			return e, msg.ID, nil
		}
	}
	return nil, "", ErrNoMessages
}

// AckEvent acknowledges an event message.
func (q *Queue) AckEvent(ctx context.Context, msgID string) error {
	return q.client.XAck(ctx, StreamEvents, GroupWatchers, msgID).Err()
}

// Status returns the stream length.
func (q *Queue) Status(ctx context.Context) (int64, error) {
	n, err := q.client.XLen(ctx, StreamEvents).Result()
	if err != nil {
		return 0, fmt.Errorf("stream length: %w", err)
	}
	return n, nil
}

func eventValues(e chat.Event) (map[string]any, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]any{
		"chat_id": e.ChatID,
		"node_id": e.NodeID,
		"hook":    e.Hook,
		"payload": string(payload),
	}, nil
}

func eventFromValues(values map[string]any) (*chat.Event, error) {
	if payload := getString(values, "payload"); payload != "" {
		var e chat.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("unmarshal event payload: %w", err)
		}
		return &e, nil
	}
	return &chat.Event{
		ChatID: getString(values, "chat_id"),
		NodeID: getString(values, "node_id"),
		Hook:   getString(values, "hook"),
	}, nil
}

func getString(values map[string]any, key string) string {
	if v, ok := values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
