// Package watcher consumes stage events from Redis and hands them to a
// handler, one at a time.
package watcher

import (
	"context"
	"errors"
	"time"

	"github.com/sbenjam1n/statstage/internal/chat"
	"github.com/sbenjam1n/statstage/internal/queue"
	"go.uber.org/zap"
)

// Source is the part of the queue the watcher reads from.
type Source interface {
	EnsureStreams(ctx context.Context) error
	ReadEvent(ctx context.Context, consumer string, block time.Duration) (*chat.Event, string, error)
	AckEvent(ctx context.Context, msgID string) error
}

// Handler processes one event. Errors are logged; the event is acked anyway.
type Handler func(ctx context.Context, e *chat.Event) error

// Watcher follows the stage_events stream as a member of the watchers group.
type Watcher struct {
	src      Source
	consumer string
	block    time.Duration
	retry    time.Duration
	log      *zap.Logger
}

// New creates a Watcher reading as the named consumer.
func New(src Source, consumer string, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		src:      src,
		consumer: consumer,
		block:    5 * time.Second,
		retry:    time.Second,
		log:      log.With(zap.String("consumer", consumer)),
	}
}

// Consume blocks, processing events as they arrive, until ctx is done.
func (w *Watcher) Consume(ctx context.Context, handle Handler) error {
	if err := w.src.EnsureStreams(ctx); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e, msgID, err := w.src.ReadEvent(ctx, w.consumer, w.block)
		if errors.Is(err, queue.ErrNoMessages) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Warn("event read error", zap.Error(err))
			if msgID == "" {
				// Nothing to ack; the stream itself is failing.
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(w.retry):
				}
				continue
			}
		}

		if e != nil {
			if err := handle(ctx, e); err != nil {
				w.log.Warn("event handler failed",
					zap.String("chat", e.ChatID),
					zap.String("hook", e.Hook),
					zap.Error(err))
			}
		}

		if err := w.src.AckEvent(ctx, msgID); err != nil {
			w.log.Warn("event ack failed", zap.String("id", msgID), zap.Error(err))
		}
	}
}
