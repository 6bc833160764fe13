package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/piotrgredowski/memes-ranker/internal/model"
)

func TestMemory_UpsertVoteKeepsOneRow(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	pid, _ := m.CreateParticipant(ctx, "A", "t1")
	itemID, _ := m.CreateItem(ctx, "a.png", "/a.png")
	sessionID, _ := m.CreateSession(ctx, "s")

	id1, err := m.UpsertVote(ctx, pid, itemID, sessionID, 3)
	require.NoError(t, err)
	id2, err := m.UpsertVote(ctx, pid, itemID, sessionID, 8)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	scores, err := m.ItemScores(ctx, sessionID, itemID)
	require.NoError(t, err)
	require.Equal(t, []int{8}, scores)
}

func TestMemory_VotesScopedBySession(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	pid, _ := m.CreateParticipant(ctx, "A", "t1")
	itemID, _ := m.CreateItem(ctx, "a.png", "/a.png")
	s1, _ := m.CreateSession(ctx, "one")
	s2, _ := m.CreateSession(ctx, "two")

	_, err := m.UpsertVote(ctx, pid, itemID, s1, 2)
	require.NoError(t, err)
	_, err = m.UpsertVote(ctx, pid, itemID, s2, 9)
	require.NoError(t, err)

	scores, err := m.ItemScores(ctx, s1, itemID)
	require.NoError(t, err)
	require.Equal(t, []int{2}, scores)
}

func TestMemory_AggregateItemStats(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	p1, _ := m.CreateParticipant(ctx, "A", "t1")
	p2, _ := m.CreateParticipant(ctx, "B", "t2")
	itemID, _ := m.CreateItem(ctx, "a.png", "/a.png")
	sessionID, _ := m.CreateSession(ctx, "s")

	_, err := m.UpsertVote(ctx, p1, itemID, sessionID, 7)
	require.NoError(t, err)
	_, err = m.UpsertVote(ctx, p2, itemID, sessionID, 9)
	require.NoError(t, err)

	rows, err := m.AggregateItemStats(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 2, rows[0].Count)
	require.Equal(t, 8.0, rows[0].Average)
	require.Equal(t, 7, rows[0].Min)
	require.Equal(t, 9, rows[0].Max)
}

func TestMemory_AggregateOrdersByAverageThenID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	pid, _ := m.CreateParticipant(ctx, "A", "t1")
	a, _ := m.CreateItem(ctx, "a.png", "/a.png")
	b, _ := m.CreateItem(ctx, "b.png", "/b.png")
	c, _ := m.CreateItem(ctx, "c.png", "/c.png")
	sessionID, _ := m.CreateSession(ctx, "s")

	// b and c tie; b has the smaller id and must come first.
	_, _ = m.UpsertVote(ctx, pid, a, sessionID, 9)
	_, _ = m.UpsertVote(ctx, pid, c, sessionID, 5)
	_, _ = m.UpsertVote(ctx, pid, b, sessionID, 5)

	rows, err := m.AggregateItemStats(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, []uint{a, b, c}, []uint{rows[0].ItemID, rows[1].ItemID, rows[2].ItemID})
}

func TestMemory_ActivateSessionDeactivatesOthers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	s1, _ := m.CreateSession(ctx, "one")
	s2, _ := m.CreateSession(ctx, "two")

	require.NoError(t, m.ActivateSession(ctx, s1))
	require.NoError(t, m.ActivateSession(ctx, s2))

	first, err := m.SessionByID(ctx, s1)
	require.NoError(t, err)
	require.False(t, first.Active)

	active, err := m.ActiveSession(ctx)
	require.NoError(t, err)
	require.Equal(t, s2, active.ID)
}

func TestMemory_ActiveSessionNone(t *testing.T) {
	m := NewMemory()

	active, err := m.ActiveSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, active)
}

func TestMemory_SessionByIDNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.SessionByID(context.Background(), 77)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemory_RevealCursorLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	sessionID, _ := m.CreateSession(ctx, "s")

	cursor, err := m.RevealCursor(ctx, sessionID)
	require.NoError(t, err)
	require.Nil(t, cursor)

	require.NoError(t, m.UpsertRevealCursor(ctx, sessionID, 2, false))
	require.NoError(t, m.UpsertRevealCursor(ctx, sessionID, 3, true))

	cursor, err = m.RevealCursor(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, 3, cursor.CurrentPosition)
	require.True(t, cursor.IsComplete)
}

func TestMemory_SetItemActiveNotFound(t *testing.T) {
	m := NewMemory()

	err := m.SetItemActive(context.Background(), 123, false)
	require.ErrorIs(t, err, model.ErrNotFound)
}
