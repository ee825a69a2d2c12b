// Package stage implements the stats stage: a state controller driven by the
// host through Load, SetState, BeforePrompt and AfterResponse.
package stage

import (
	"context"
	"strings"

	"github.com/sbenjam1n/statstage/internal/stats"
	"go.uber.org/zap"
)

// Controller owns the working message state for one chat. It is driven by a
// single host goroutine and is not safe for concurrent use.
type Controller struct {
	state      State
	phase      Phase
	opts       Options
	catalog    *stats.Catalog
	characters map[string]Character
	users      map[string]User
	log        *zap.Logger
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithCatalog replaces the stats catalog used for extraction.
func WithCatalog(cat *stats.Catalog) Option {
	return func(c *Controller) {
		if cat != nil {
			c.catalog = cat
		}
	}
}

// New builds a controller from the host payload. It never fails: missing
// data degrades to the seed state.
func New(in Init, opts ...Option) *Controller {
	c := &Controller{
		phase:      PhaseConstructed,
		opts:       ParseOptions(in.Config),
		characters: in.Characters,
		users:      in.Users,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.catalog == nil {
		c.catalog = stats.Default()
	}

	if in.MessageState != nil {
		c.state = in.MessageState.Clone()
	} else {
		c.state = Seed()
	}
	c.state[KeyNumUsers] = len(in.Users)
	c.state[KeyNumChars] = len(in.Characters)

	c.log = c.log.With(zap.String("environment", in.Environment))
	return c
}

// NewStage adapts New to a Factory.
func NewStage(opts ...Option) Factory {
	return func(in Init) Stage {
		return New(in, opts...)
	}
}

// Load completes initialization. Nothing asynchronous is required, so it
// always reports success and leaves the init and chat scopes untouched.
func (c *Controller) Load(ctx context.Context) (LoadResult, error) {
	if c.phase.Loaded() {
		return LoadResult{}, ErrAlreadyLoaded
	}
	c.phase = PhaseAwaitingUser
	c.log.Debug("stage loaded",
		zap.Int("users", len(c.users)),
		zap.Int("characters", len(c.characters)),
		zap.Bool("parse_stats", c.opts.ParseStats))
	return LoadResult{Success: true}, nil
}

// SetState resynchronizes the working state after a swipe, branch switch or
// jump. A nil state is a no-op. The expected turn phase is kept.
func (c *Controller) SetState(ctx context.Context, state MessageState) error {
	if !c.phase.Loaded() {
		return ErrNotLoaded
	}
	if state == nil {
		return nil
	}
	c.merge(state)
	c.log.Debug("state restored", zap.Int("keys", len(state)))
	return nil
}

// BeforePrompt runs after the user submits a message and before it reaches
// the model.
func (c *Controller) BeforePrompt(ctx context.Context, msg Message) (Response, error) {
	if err := c.advance(true); err != nil {
		return Response{}, err
	}

	var resp Response
	if c.opts.ParseStats {
		c.absorb(msg)
		resp.StageDirections = strPtr(c.directions())
	}
	resp.MessageState = c.snapshot()
	return resp, nil
}

// AfterResponse runs after the model replied, on the bot's message.
func (c *Controller) AfterResponse(ctx context.Context, msg Message) (Response, error) {
	if err := c.advance(false); err != nil {
		return Response{}, err
	}

	if c.opts.ParseStats {
		c.absorb(msg)
	}
	return Response{MessageState: c.snapshot()}, nil
}

// State returns a copy of the working state for read-only consumers.
func (c *Controller) State() State {
	return c.state.Clone()
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

func (c *Controller) advance(isPrompt bool) error {
	if !c.phase.Loaded() {
		return ErrNotLoaded
	}
	next, inOrder := c.phase.next(isPrompt)
	if !inOrder {
		c.log.Warn("turn hook out of order",
			zap.Stringer("phase", c.phase),
			zap.Bool("prompt", isPrompt))
	}
	c.phase = next
	return nil
}

// merge is the only path that mutates the working state.
func (c *Controller) merge(src State) {
	c.state.Merge(src)
}

func (c *Controller) absorb(msg Message) {
	found := stats.Extract(c.catalog, msg.Content)
	if len(found) == 0 {
		return
	}
	c.merge(found)
	c.log.Debug("stats extracted",
		zap.Int("fields", len(found)),
		zap.Bool("bot", msg.IsBot))
}

// snapshot is the partial state handed back to the host. The host keeps
// only what is returned here.
func (c *Controller) snapshot() MessageState {
	keys := append([]string{SeedKey}, c.opts.PersistKeys...)
	if c.opts.ParseStats {
		keys = append(keys, c.catalog.Keys()...)
	}
	return c.state.Pick(keys...)
}

func (c *Controller) directions() string {
	var b strings.Builder
	b.WriteString("When a tracked detail changes, restate it on its own line as ")
	b.WriteString(`"*Label: value". Tracked labels: `)
	var labels []string
	for _, cat := range c.catalog.Categories {
		for _, f := range cat.Fields {
			labels = append(labels, f.Label)
		}
	}
	b.WriteString(strings.Join(labels, ", "))
	b.WriteString(".")
	return b.String()
}
