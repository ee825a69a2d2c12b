package stage

import "context"

// Character describes a bot participant supplied by the host.
type Character struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// User describes a human participant supplied by the host.
type User struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Init is the construction payload handed over by the host.
type Init struct {
	Characters   map[string]Character
	Users        map[string]User
	Config       map[string]any
	MessageState MessageState
	Environment  string
	InitState    InitState
	ChatState    ChatState
}

// Message is the user or bot message passed to a turn hook.
type Message struct {
	Content string `json:"content"`
	// AnonymizedID is stable per chat and never the platform account id.
	AnonymizedID string `json:"anonymized_id"`
	IsBot        bool   `json:"is_bot"`
}

// LoadResult is returned by Load. Success=false tells the host to stop
// invoking the stage for the rest of the chat.
type LoadResult struct {
	Success   bool      `json:"success"`
	Error     *string   `json:"error"`
	InitState InitState `json:"init_state"`
	ChatState ChatState `json:"chat_state"`
}

// Response is returned by BeforePrompt and AfterResponse. Every field is
// independently optional; nil means "nothing to do".
type Response struct {
	StageDirections *string      `json:"stage_directions"`
	MessageState    MessageState `json:"message_state"`
	ModifiedMessage *string      `json:"modified_message"`
	SystemMessage   *string      `json:"system_message"`
	Error           *string      `json:"error"`
	ChatState       ChatState    `json:"chat_state"`
}

// Stage is the lifecycle contract the host drives.
type Stage interface {
	Load(ctx context.Context) (LoadResult, error)
	SetState(ctx context.Context, state MessageState) error
	BeforePrompt(ctx context.Context, msg Message) (Response, error)
	AfterResponse(ctx context.Context, msg Message) (Response, error)
	State() State
}

// Factory builds a Stage from a construction payload.
type Factory func(in Init) Stage

func strPtr(s string) *string { return &s }
