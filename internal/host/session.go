package host

import (
	"context"
	"fmt"

	"github.com/sbenjam1n/statstage/internal/chat"
	"github.com/sbenjam1n/statstage/internal/stage"
	"go.uber.org/zap"
)

// Session is one open chat with its loaded stage. Hooks are invoked one at a
// time; a Session must not be shared between goroutines.
type Session struct {
	runner  *Runner
	chat    *chat.Chat
	head    *chat.Node
	stage   stage.Stage
	notices []string
	log     *zap.Logger
}

// TurnResult is what the host shows after a turn.
type TurnResult struct {
	Node            *chat.Node
	System          *chat.Node
	StageDirections string
	// Notices are transient messages for the user; they never stop the chat.
	Notices []string
}

// Chat returns the session's chat record.
func (s *Session) Chat() *chat.Chat { return s.chat }

// Head returns the active node, or nil for an empty chat.
func (s *Session) Head() *chat.Node { return s.head }

// Active reports whether the stage is running for this chat.
func (s *Session) Active() bool { return s.stage != nil }

// Notices returns messages raised while opening the session.
func (s *Session) Notices() []string { return s.notices }

// State returns the state the panel should show: the stage's working state
// when it runs, otherwise the head node's persisted state.
func (s *Session) State() stage.State {
	if s.stage != nil {
		return s.stage.State()
	}
	if s.head != nil && s.head.MessageState != nil {
		return s.head.MessageState.Clone()
	}
	return stage.State{}
}

// Prompt records a user message, running BeforePrompt first.
func (s *Session) Prompt(ctx context.Context, userID, content string) (*TurnResult, error) {
	return s.turn(ctx, chat.KindUser, userID, content)
}

// Respond records a bot message, running AfterResponse first.
func (s *Session) Respond(ctx context.Context, characterID, content string) (*TurnResult, error) {
	return s.turn(ctx, chat.KindCharacter, characterID, content)
}

func (s *Session) turn(ctx context.Context, kind, participantID, content string) (_ *TurnResult, err error) {
	p, ok := s.chat.Participant(kind, participantID)
	if !ok {
		return nil, fmt.Errorf("%s %s is not part of chat %s", kind, participantID, s.chat.ID)
	}

	isBot := kind == chat.KindCharacter
	author, hook := chat.AuthorUser, chat.HookBeforePrompt
	if isBot {
		author, hook = chat.AuthorBot, chat.HookAfterResponse
	}

	var resp stage.Response
	if s.stage != nil {
		msg := stage.Message{Content: content, AnonymizedID: p.AnonymizedID, IsBot: isBot}
		if isBot {
			resp, err = s.stage.AfterResponse(ctx, msg)
		} else {
			resp, err = s.stage.BeforePrompt(ctx, msg)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", hook, err)
		}
		// The hook has already moved the stage ahead of the store.
		defer func() {
			if err != nil {
				s.resync(ctx)
			}
		}()
	}

	if resp.ModifiedMessage != nil {
		content = *resp.ModifiedMessage
	}

	var parentState stage.State
	if s.head != nil {
		parentState = s.head.MessageState
	}
	node := &chat.Node{
		ID:           chat.NewID(),
		ChatID:       s.chat.ID,
		ParentID:     s.headID(),
		AuthorKind:   author,
		AuthorID:     participantID,
		Content:      content,
		MessageState: stage.Merged(parentState, resp.MessageState),
	}
	if err := s.runner.store.AppendNode(ctx, node); err != nil {
		return nil, err
	}
	result := &TurnResult{Node: node}
	last := node

	if resp.SystemMessage != nil {
		sys := &chat.Node{
			ID:           chat.NewID(),
			ChatID:       s.chat.ID,
			ParentID:     node.ID,
			AuthorKind:   chat.AuthorSystem,
			Content:      *resp.SystemMessage,
			MessageState: node.MessageState.Clone(),
		}
		if err := s.runner.store.AppendNode(ctx, sys); err != nil {
			return nil, err
		}
		result.System = sys
		last = sys
	}

	if err := s.runner.store.SetHead(ctx, s.chat.ID, last.ID); err != nil {
		return nil, err
	}
	s.head = last
	s.chat.HeadNodeID = last.ID

	if resp.ChatState != nil {
		if err := s.runner.store.UpdateScopes(ctx, s.chat.ID, nil, resp.ChatState); err != nil {
			return nil, err
		}
		s.chat.ChatState = resp.ChatState
	}

	if resp.StageDirections != nil {
		result.StageDirections = *resp.StageDirections
	}
	if resp.Error != nil {
		result.Notices = append(result.Notices, *resp.Error)
	}
	s.check(node)

	e := chat.Event{
		ChatID:          s.chat.ID,
		NodeID:          node.ID,
		Hook:            hook,
		MessageState:    resp.MessageState,
		StageDirections: result.StageDirections,
	}
	if resp.SystemMessage != nil {
		e.SystemMessage = *resp.SystemMessage
	}
	if resp.Error != nil {
		e.Error = *resp.Error
	}
	if s.stage != nil {
		s.runner.publish(ctx, e)
	}

	s.log.Debug("turn recorded",
		zap.String("hook", hook),
		zap.String("node", node.ID),
		zap.Int("state_keys", len(resp.MessageState)))
	return result, nil
}

// Jump moves the chat to another node (a swipe or branch switch) and
// resynchronizes the stage from that node's persisted state.
func (s *Session) Jump(ctx context.Context, nodeID string) error {
	node, err := s.runner.store.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}
	if node.ChatID != s.chat.ID {
		return fmt.Errorf("node %s belongs to chat %s, not %s", nodeID, node.ChatID, s.chat.ID)
	}

	if s.stage != nil {
		if err := s.stage.SetState(ctx, node.MessageState); err != nil {
			return fmt.Errorf("%s: %w", chat.HookSetState, err)
		}
	}
	if err := s.runner.store.SetHead(ctx, s.chat.ID, node.ID); err != nil {
		return err
	}
	s.head = node
	s.chat.HeadNodeID = node.ID

	if s.stage != nil {
		s.runner.publish(ctx, chat.Event{
			ChatID:       s.chat.ID,
			NodeID:       node.ID,
			Hook:         chat.HookSetState,
			MessageState: node.MessageState,
		})
	}
	return nil
}

// resync rebuilds the stage from the current head after a failed write, so
// its working state matches what was persisted.
func (s *Session) resync(ctx context.Context) {
	st := s.runner.newStage(s.chat, s.head)
	res, err := st.Load(ctx)
	if err != nil || !res.Success {
		s.log.Warn("stage resync failed, keeping current stage", zap.Error(err))
		return
	}
	s.stage = st
	s.log.Debug("stage resynced from head", zap.String("head", s.headID()))
}

func (s *Session) headID() string {
	if s.head == nil {
		return ""
	}
	return s.head.ID
}

func (s *Session) check(n *chat.Node) {
	if s.runner.checker == nil {
		return
	}
	for _, finding := range s.runner.checker.CheckMessageState(n.MessageState) {
		s.log.Warn("message state disagrees with advertised schema",
			zap.String("node", n.ID),
			zap.String("finding", finding))
	}
}
