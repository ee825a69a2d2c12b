// Package chat holds the records the reference host persists for a chat:
// the chat itself, its participants, and the tree of message nodes.
package chat

import (
	"errors"
	"time"

	"github.com/sbenjam1n/statstage/internal/stage"
)

// Participant kinds.
const (
	KindUser      = "user"
	KindCharacter = "character"
)

// Node author kinds.
const (
	AuthorUser   = "user"
	AuthorBot    = "bot"
	AuthorSystem = "system"
)

// Chat is one conversation with its chat-scoped stage data.
type Chat struct {
	ID            string         `json:"id" db:"id"`
	Environment   string         `json:"environment" db:"environment"`
	Config        map[string]any `json:"config" db:"config"`
	InitState     stage.State    `json:"init_state" db:"init_state"`
	ChatState     stage.State    `json:"chat_state" db:"chat_state"`
	HeadNodeID    string         `json:"head_node_id,omitempty" db:"head_node"`
	StageDisabled bool           `json:"stage_disabled" db:"stage_disabled"`
	DisabledNote  string         `json:"disabled_note,omitempty" db:"disabled_note"`
	Participants  []Participant  `json:"participants"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// Participant is a user or character taking part in a chat.
type Participant struct {
	ID           string `json:"id" db:"id"`
	Kind         string `json:"kind" db:"kind"`
	Name         string `json:"name" db:"name"`
	Description  string `json:"description,omitempty" db:"description"`
	AnonymizedID string `json:"anonymized_id" db:"anonymized_id"`
}

// Node is one message in the branch tree. Siblings under the same parent are
// swipes or alternative branches.
type Node struct {
	ID           string      `json:"id" db:"id"`
	ChatID       string      `json:"chat_id" db:"chat_id"`
	ParentID     string      `json:"parent_id,omitempty" db:"parent_id"`
	AuthorKind   string      `json:"author_kind" db:"author_kind"`
	AuthorID     string      `json:"author_id,omitempty" db:"author_id"`
	Content      string      `json:"content" db:"content"`
	MessageState stage.State `json:"message_state" db:"message_state"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// Event records the outcome of one stage hook for downstream watchers.
type Event struct {
	ChatID          string      `json:"chat_id"`
	NodeID          string      `json:"node_id,omitempty"`
	Hook            string      `json:"hook"`
	MessageState    stage.State `json:"message_state,omitempty"`
	StageDirections string      `json:"stage_directions,omitempty"`
	SystemMessage   string      `json:"system_message,omitempty"`
	Error           string      `json:"error,omitempty"`
	At              time.Time   `json:"at"`
}

// Hook names carried by events.
const (
	HookLoad          = "load"
	HookBeforePrompt  = "before_prompt"
	HookAfterResponse = "after_response"
	HookSetState      = "set_state"
)

// Users returns the chat's users keyed by id, as the stage expects them.
func (c *Chat) Users() map[string]stage.User {
	out := make(map[string]stage.User)
	for _, p := range c.Participants {
		if p.Kind == KindUser {
			out[p.ID] = stage.User{ID: p.ID, Name: p.Name}
		}
	}
	return out
}

// Characters returns the chat's characters keyed by id.
func (c *Chat) Characters() map[string]stage.Character {
	out := make(map[string]stage.Character)
	for _, p := range c.Participants {
		if p.Kind == KindCharacter {
			out[p.ID] = stage.Character{ID: p.ID, Name: p.Name, Description: p.Description}
		}
	}
	return out
}

// Participant finds a participant by kind and id.
func (c *Chat) Participant(kind, id string) (Participant, bool) {
	for _, p := range c.Participants {
		if p.Kind == kind && p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// ErrNotFound is returned by stores when a chat or node does not exist.
var ErrNotFound = errors.New("not found")
