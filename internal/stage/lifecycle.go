package stage

import "errors"

// Phase is the controller's position in the host lifecycle.
type Phase int

const (
	PhaseConstructed Phase = iota
	PhaseAwaitingUser
	PhaseAwaitingResponse
)

var (
	// ErrNotLoaded is returned when a hook runs before Load completed.
	ErrNotLoaded = errors.New("stage not loaded")
	// ErrAlreadyLoaded is returned by a second Load call.
	ErrAlreadyLoaded = errors.New("stage already loaded")
)

func (p Phase) String() string {
	switch p {
	case PhaseConstructed:
		return "constructed"
	case PhaseAwaitingUser:
		return "awaiting_user"
	case PhaseAwaitingResponse:
		return "awaiting_response"
	default:
		return "unknown"
	}
}

// Loaded reports whether Load has completed.
func (p Phase) Loaded() bool {
	return p != PhaseConstructed
}

// next returns the phase after a turn hook and whether the hook arrived in
// the expected order.
func (p Phase) next(isPrompt bool) (Phase, bool) {
	if isPrompt {
		return PhaseAwaitingResponse, p == PhaseAwaitingUser
	}
	return PhaseAwaitingUser, p == PhaseAwaitingResponse
}
