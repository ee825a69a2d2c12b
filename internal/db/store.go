package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sbenjam1n/statstage/internal/chat"
	"github.com/sbenjam1n/statstage/internal/stage"
)

// Store persists chats, participants and message nodes in PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

// NewStore wraps a connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// CreateChat inserts a chat together with its participants.
func (s *Store) CreateChat(ctx context.Context, c *chat.Chat) error {
	cfg, err := jsonArg(c.Config)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = "{}"
	}
	initState, err := jsonArg(c.InitState)
	if err != nil {
		return err
	}
	chatState, err := jsonArg(c.ChatState)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO chats (id, environment, config, init_state, chat_state)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.Environment, cfg, initState, chatState)
	if err != nil {
		return fmt.Errorf("insert chat %s: %w", c.ID, err)
	}

	for _, p := range c.Participants {
		_, err = tx.Exec(ctx, `
			INSERT INTO participants (chat_id, kind, id, name, description, anonymized_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, c.ID, p.Kind, p.ID, p.Name, p.Description, p.AnonymizedID)
		if err != nil {
			return fmt.Errorf("insert participant %s/%s: %w", p.Kind, p.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chat %s: %w", c.ID, err)
	}
	return nil
}

// GetChat loads a chat and its participants.
func (s *Store) GetChat(ctx context.Context, id string) (*chat.Chat, error) {
	var c chat.Chat
	var cfgJSON, initJSON, chatJSON []byte
	var head *string
	err := s.db.QueryRow(ctx, `
		SELECT id, environment, config, init_state, chat_state, head_node,
		       stage_disabled, disabled_note, created_at
		FROM chats
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Environment, &cfgJSON, &initJSON, &chatJSON, &head,
		&c.StageDisabled, &c.DisabledNote, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("chat %s: %w", id, chat.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch chat %s: %w", id, err)
	}
	if head != nil {
		c.HeadNodeID = *head
	}

	if err := unmarshalMap(cfgJSON, &c.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config for chat %s: %w", id, err)
	}
	if err := unmarshalState(initJSON, &c.InitState); err != nil {
		return nil, fmt.Errorf("unmarshal init_state for chat %s: %w", id, err)
	}
	if err := unmarshalState(chatJSON, &c.ChatState); err != nil {
		return nil, fmt.Errorf("unmarshal chat_state for chat %s: %w", id, err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, kind, name, description, anonymized_id
		FROM participants
		WHERE chat_id = $1
		ORDER BY kind, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("fetch participants for chat %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p chat.Participant
		if err := rows.Scan(&p.ID, &p.Kind, &p.Name, &p.Description, &p.AnonymizedID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		c.Participants = append(c.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return &c, nil
}

// GetNode loads a single message node.
func (s *Store) GetNode(ctx context.Context, id string) (*chat.Node, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, chat_id, parent_id, author_kind, author_id, content, message_state, created_at
		FROM message_nodes
		WHERE id = $1
	`, id)
	n, err := scanNode(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("node %s: %w", id, chat.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch node %s: %w", id, err)
	}
	return n, nil
}

// ListNodes returns every node of a chat in creation order.
func (s *Store) ListNodes(ctx context.Context, chatID string) ([]chat.Node, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, chat_id, parent_id, author_kind, author_id, content, message_state, created_at
		FROM message_nodes
		WHERE chat_id = $1
		ORDER BY created_at, id
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list nodes for chat %s: %w", chatID, err)
	}
	defer rows.Close()

	var nodes []chat.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

// AppendNode inserts a new message node.
func (s *Store) AppendNode(ctx context.Context, n *chat.Node) error {
	state, err := jsonArg(n.MessageState)
	if err != nil {
		return err
	}
	var parent *string
	if n.ParentID != "" {
		parent = &n.ParentID
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO message_nodes (id, chat_id, parent_id, author_kind, author_id, content, message_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.ChatID, parent, n.AuthorKind, n.AuthorID, n.Content, state)
	if err != nil {
		return fmt.Errorf("insert node %s: %w", n.ID, err)
	}
	return nil
}

// SetHead moves the chat's active node.
func (s *Store) SetHead(ctx context.Context, chatID, nodeID string) error {
	tag, err := s.db.Exec(ctx, `UPDATE chats SET head_node = $1 WHERE id = $2`, nodeID, chatID)
	if err != nil {
		return fmt.Errorf("set head for chat %s: %w", chatID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat %s: %w", chatID, chat.ErrNotFound)
	}
	return nil
}

// UpdateScopes replaces the init and chat scopes. A nil state leaves the
// stored value untouched.
func (s *Store) UpdateScopes(ctx context.Context, chatID string, initState, chatState stage.State) error {
	if initState == nil && chatState == nil {
		return nil
	}
	initArg, err := jsonArg(initState)
	if err != nil {
		return err
	}
	chatArg, err := jsonArg(chatState)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		UPDATE chats
		SET init_state = COALESCE($2::jsonb, init_state),
		    chat_state = COALESCE($3::jsonb, chat_state)
		WHERE id = $1
	`, chatID, initArg, chatArg)
	if err != nil {
		return fmt.Errorf("update scopes for chat %s: %w", chatID, err)
	}
	return nil
}

// DisableStage records that the stage asked not to be run for this chat.
func (s *Store) DisableStage(ctx context.Context, chatID, note string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE chats SET stage_disabled = TRUE, disabled_note = $2 WHERE id = $1
	`, chatID, note)
	if err != nil {
		return fmt.Errorf("disable stage for chat %s: %w", chatID, err)
	}
	return nil
}

func scanNode(row pgx.Row) (*chat.Node, error) {
	var n chat.Node
	var parent *string
	var stateJSON []byte
	if err := row.Scan(&n.ID, &n.ChatID, &parent, &n.AuthorKind, &n.AuthorID, &n.Content, &stateJSON, &n.CreatedAt); err != nil {
		return nil, err
	}
	if parent != nil {
		n.ParentID = *parent
	}
	if err := unmarshalState(stateJSON, &n.MessageState); err != nil {
		return nil, fmt.Errorf("unmarshal message_state for node %s: %w", n.ID, err)
	}
	return &n, nil
}

// jsonArg encodes a map for a JSONB parameter; nil maps become SQL NULL.
func jsonArg[M ~map[string]any](m M) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return string(b), nil
}

func unmarshalState(data []byte, dst *stage.State) error {
	if data == nil {
		return nil
	}
	return json.Unmarshal(data, dst)
}

func unmarshalMap(data []byte, dst *map[string]any) error {
	if data == nil {
		return nil
	}
	return json.Unmarshal(data, dst)
}
