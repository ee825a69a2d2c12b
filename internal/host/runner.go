// Package host drives a stage the way the chat platform does: it builds the
// stage from persisted state, calls Load, routes each user and bot message
// through the turn hooks, and persists what the hooks hand back.
package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sbenjam1n/statstage/internal/chat"
	"github.com/sbenjam1n/statstage/internal/stage"
	"go.uber.org/zap"
)

// Store is the persistence the host needs.
type Store interface {
	GetChat(ctx context.Context, id string) (*chat.Chat, error)
	GetNode(ctx context.Context, id string) (*chat.Node, error)
	AppendNode(ctx context.Context, n *chat.Node) error
	SetHead(ctx context.Context, chatID, nodeID string) error
	UpdateScopes(ctx context.Context, chatID string, initState, chatState stage.State) error
	DisableStage(ctx context.Context, chatID, note string) error
}

// Publisher receives hook outcomes. Failures are logged, never fatal.
type Publisher interface {
	Publish(ctx context.Context, e chat.Event) error
}

// StateChecker reviews state returned by the stage. Findings are advisory.
type StateChecker interface {
	CheckMessageState(state map[string]any) []string
}

// Runner opens sessions against persisted chats.
type Runner struct {
	store   Store
	pub     Publisher
	factory stage.Factory
	checker StateChecker
	log     *zap.Logger
	now     func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithPublisher sets where hook events go.
func WithPublisher(p Publisher) Option {
	return func(r *Runner) { r.pub = p }
}

// WithChecker sets an advisory state checker.
func WithChecker(c StateChecker) Option {
	return func(r *Runner) { r.checker = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRunner creates a Runner building stages with factory.
func NewRunner(store Store, factory stage.Factory, opts ...Option) *Runner {
	r := &Runner{
		store:   store,
		factory: factory,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Open loads a chat, constructs its stage from the head node's state and
// runs Load. A stage that reports failure is disabled for the chat; the
// session still works, minus the hooks.
func (r *Runner) Open(ctx context.Context, chatID string) (*Session, error) {
	c, err := r.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	s := &Session{runner: r, chat: c, log: r.log.With(zap.String("chat", c.ID))}
	if c.HeadNodeID != "" {
		head, err := r.store.GetNode(ctx, c.HeadNodeID)
		if err != nil {
			return nil, fmt.Errorf("load head node: %w", err)
		}
		s.head = head
	}

	if c.StageDisabled {
		s.log.Debug("stage disabled for chat", zap.String("note", c.DisabledNote))
		return s, nil
	}

	s.stage = r.newStage(c, s.head)

	res, err := s.stage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stage: %w", err)
	}
	if res.Error != nil {
		s.notices = append(s.notices, *res.Error)
	}
	if !res.Success {
		note := "stage reported load failure"
		if res.Error != nil {
			note = *res.Error
		}
		if err := r.store.DisableStage(ctx, c.ID, note); err != nil {
			return nil, err
		}
		c.StageDisabled, c.DisabledNote = true, note
		s.stage = nil
		s.log.Warn("stage disabled after load", zap.String("note", note))
		r.publish(ctx, chat.Event{ChatID: c.ID, Hook: chat.HookLoad, Error: note})
		return s, nil
	}

	if err := r.store.UpdateScopes(ctx, c.ID, res.InitState, res.ChatState); err != nil {
		return nil, err
	}
	if res.InitState != nil {
		c.InitState = res.InitState
	}
	if res.ChatState != nil {
		c.ChatState = res.ChatState
	}
	return s, nil
}

// newStage constructs a stage for the chat from the head node's state.
func (r *Runner) newStage(c *chat.Chat, head *chat.Node) stage.Stage {
	var restored stage.MessageState
	if head != nil {
		restored = head.MessageState
	}
	return r.factory(stage.Init{
		Characters:   c.Characters(),
		Users:        c.Users(),
		Config:       c.Config,
		MessageState: restored,
		Environment:  c.Environment,
		InitState:    c.InitState,
		ChatState:    c.ChatState,
	})
}

func (r *Runner) publish(ctx context.Context, e chat.Event) {
	if r.pub == nil {
		return
	}
	e.At = r.now().UTC()
	if err := r.pub.Publish(ctx, e); err != nil {
		r.log.Warn("publish event failed",
			zap.String("chat", e.ChatID),
			zap.String("hook", e.Hook),
			zap.Error(err))
	}
}

// IsNotFound reports whether err means a missing chat or node.
func IsNotFound(err error) bool {
	return errors.Is(err, chat.ErrNotFound)
}
