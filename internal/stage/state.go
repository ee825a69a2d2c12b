package stage

// State is an open-ended bag of stage values. The three scopes (init, chat,
// message) share this shape and differ only in lifecycle.
type State map[string]any

// MessageState is persisted per message node and restored on swipe or jump.
type MessageState = State

// ChatState is shared across every branch of a chat.
type ChatState = State

// InitState is written once at chat creation.
type InitState = State

const (
	// SeedKey and SeedValue form the default message state when the host
	// has nothing to restore.
	SeedKey   = "someKey"
	SeedValue = "someValue"

	// KeyNumUsers and KeyNumChars are injected at construction and are not
	// echoed back to the host unless configured to persist.
	KeyNumUsers = "numUsers"
	KeyNumChars = "numChars"
)

// Seed returns a fresh copy of the default message state.
func Seed() State {
	return State{SeedKey: SeedValue}
}

// Merge copies every key of src into s, overwriting existing keys.
// A nil src leaves s untouched.
func (s State) Merge(src State) {
	for k, v := range src {
		s[k] = v
	}
}

// Clone returns a shallow copy. Cloning nil yields nil.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Pick returns a new state holding only the listed keys that are present in s.
func (s State) Pick(keys ...string) State {
	out := make(State, len(keys))
	for _, k := range keys {
		if v, ok := s[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Merged returns base merged with every layer in order, without touching base.
func Merged(base State, layers ...State) State {
	out := base.Clone()
	if out == nil {
		out = State{}
	}
	for _, l := range layers {
		out.Merge(l)
	}
	return out
}
