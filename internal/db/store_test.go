package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/sbenjam1n/statstage/internal/chat"
	"github.com/sbenjam1n/statstage/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore connects to STAGE_TEST_DATABASE_URL, or skips.
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("STAGE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("STAGE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	return NewStore(pool)
}

func TestStoreRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := &chat.Chat{
		ID:          chat.NewID(),
		Environment: "test",
		Config:      map[string]any{"parse_stats": true},
		ChatState:   stage.State{"visited": true},
		Participants: []chat.Participant{
			{ID: "u1", Kind: chat.KindUser, Name: "Ann", AnonymizedID: "anon-1"},
			{ID: "c1", Kind: chat.KindCharacter, Name: "Mira", AnonymizedID: "anon-2"},
		},
	}
	require.NoError(t, s.CreateChat(ctx, c))

	got, err := s.GetChat(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "test", got.Environment)
	assert.Equal(t, true, got.Config["parse_stats"])
	assert.Nil(t, got.InitState)
	assert.Equal(t, stage.State{"visited": true}, got.ChatState)
	assert.Len(t, got.Participants, 2)

	root := &chat.Node{ID: chat.NewID(), ChatID: c.ID, AuthorKind: chat.AuthorUser, AuthorID: "u1", Content: "hi",
		MessageState: stage.State{stage.SeedKey: "x", "height": 170}}
	require.NoError(t, s.AppendNode(ctx, root))
	child := &chat.Node{ID: chat.NewID(), ChatID: c.ID, ParentID: root.ID, AuthorKind: chat.AuthorBot, AuthorID: "c1", Content: "hello"}
	require.NoError(t, s.AppendNode(ctx, child))
	require.NoError(t, s.SetHead(ctx, c.ID, child.ID))

	n, err := s.GetNode(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, stage.State{stage.SeedKey: "x", "height": float64(170)}, n.MessageState)

	n, err = s.GetNode(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, n.ParentID)
	assert.Nil(t, n.MessageState)

	nodes, err := s.ListNodes(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	require.NoError(t, s.UpdateScopes(ctx, c.ID, stage.State{"grid": "a"}, nil))
	got, err = s.GetChat(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, child.ID, got.HeadNodeID)
	assert.Equal(t, stage.State{"grid": "a"}, got.InitState)
	assert.Equal(t, stage.State{"visited": true}, got.ChatState)

	require.NoError(t, s.DisableStage(ctx, c.ID, "load failed"))
	got, err = s.GetChat(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.StageDisabled)
	assert.Equal(t, "load failed", got.DisabledNote)
}

func TestStoreNotFound(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.GetChat(ctx, "missing")
	assert.True(t, errors.Is(err, chat.ErrNotFound))
	_, err = s.GetNode(ctx, "missing")
	assert.True(t, errors.Is(err, chat.ErrNotFound))
	assert.True(t, errors.Is(s.SetHead(ctx, "missing", "n"), chat.ErrNotFound))
}

func TestJSONArg(t *testing.T) {
	v, err := jsonArg(stage.State(nil))
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = jsonArg(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)
}
