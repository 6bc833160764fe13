package reveal

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/piotrgredowski/memes-ranker/internal/model"
	"github.com/piotrgredowski/memes-ranker/internal/repo"
	"github.com/piotrgredowski/memes-ranker/internal/session"
)

type fixture struct {
	store       *repo.Memory
	coordinator *session.Coordinator
	engine      *Engine
	sessionID   uint
	items       []uint // item ids, worst average first
}

// newFixture builds a finished session with three items whose averages are
// 3, 5.5 and 8 (worst to best).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := repo.NewMemory()
	coordinator := session.NewCoordinator(store, zap.NewNop())
	engine := NewEngine(store, coordinator, zap.NewNop())

	p1, _ := store.CreateParticipant(ctx, "A", "t1")
	p2, _ := store.CreateParticipant(ctx, "B", "t2")

	var items []uint
	for _, name := range []string{"worst.png", "mid.png", "best.png"} {
		id, err := store.CreateItem(ctx, name, "/"+name)
		require.NoError(t, err)
		items = append(items, id)
	}

	s, err := coordinator.CreateSession(ctx, "showdown")
	require.NoError(t, err)
	_, err = coordinator.StartSession(ctx, s.ID)
	require.NoError(t, err)

	votes := []struct {
		p, i  uint
		score int
	}{
		{p1, items[0], 2}, {p2, items[0], 4},
		{p1, items[1], 5}, {p2, items[1], 6},
		{p1, items[2], 7}, {p2, items[2], 9},
	}
	for _, v := range votes {
		_, err := coordinator.RecordVote(ctx, v.p, v.i, v.score)
		require.NoError(t, err)
	}

	_, err = coordinator.EndSession(ctx, s.ID)
	require.NoError(t, err)

	return &fixture{
		store:       store,
		coordinator: coordinator,
		engine:      engine,
		sessionID:   s.ID,
		items:       items,
	}
}

func TestStartReveal_ActiveSessionRefused(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	coordinator := session.NewCoordinator(store, zap.NewNop())
	engine := NewEngine(store, coordinator, zap.NewNop())

	s, err := coordinator.CreateSession(ctx, "live")
	require.NoError(t, err)
	_, err = coordinator.StartSession(ctx, s.ID)
	require.NoError(t, err)

	_, err = engine.StartReveal(ctx, s.ID)
	require.ErrorIs(t, err, model.ErrInvalidState)
}

func TestStartReveal_UnknownSession(t *testing.T) {
	store := repo.NewMemory()
	coordinator := session.NewCoordinator(store, zap.NewNop())
	engine := NewEngine(store, coordinator, zap.NewNop())

	_, err := engine.StartReveal(context.Background(), 404)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestAdvance_MonotonicProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.engine.StartReveal(ctx, f.sessionID)
	require.NoError(t, err)
	require.Equal(t, 0, status.CurrentPosition)
	require.False(t, status.IsComplete)
	require.Equal(t, 3, status.TotalPositions)

	for want := 1; want <= 3; want++ {
		item, status, err := f.engine.Advance(ctx, f.sessionID)
		require.NoError(t, err)
		require.NotNil(t, item)
		require.Equal(t, want, status.CurrentPosition)
		require.Equal(t, want == 3, status.IsComplete)
	}

	_, _, err = f.engine.Advance(ctx, f.sessionID)
	require.ErrorIs(t, err, model.ErrRevealExhausted)
}

func TestAdvance_RevealsWorstFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StartReveal(ctx, f.sessionID)
	require.NoError(t, err)

	item, _, err := f.engine.Advance(ctx, f.sessionID)
	require.NoError(t, err)
	require.Equal(t, f.items[0], item.ItemID)
	require.Equal(t, 3, item.Rank)
	require.Equal(t, 1, item.Position)
	require.Equal(t, 3.0, item.Average)
}

func TestAdvance_DetailedStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StartReveal(ctx, f.sessionID)
	require.NoError(t, err)

	// Position 1 is worst.png with scores {2, 4}.
	item, _, err := f.engine.Advance(ctx, f.sessionID)
	require.NoError(t, err)
	require.Equal(t, 3.0, item.Median)
	require.InDelta(t, math.Sqrt2, item.StdDev, 1e-9)
	require.Equal(t, 2, item.Count)
	require.Equal(t, 2, item.Min)
	require.Equal(t, 4, item.Max)
}

func TestRetreat_Floor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StartReveal(ctx, f.sessionID)
	require.NoError(t, err)

	_, err = f.engine.Retreat(ctx, f.sessionID)
	require.ErrorIs(t, err, model.ErrInvalidState)

	_, _, err = f.engine.Advance(ctx, f.sessionID)
	require.NoError(t, err)
	_, _, err = f.engine.Advance(ctx, f.sessionID)
	require.NoError(t, err)

	status, err := f.engine.Retreat(ctx, f.sessionID)
	require.NoError(t, err)
	require.Equal(t, 1, status.CurrentPosition)
	require.False(t, status.IsComplete)
}

func TestReset_FromAnyState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StartReveal(ctx, f.sessionID)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _, err := f.engine.Advance(ctx, f.sessionID)
		require.NoError(t, err)
	}

	status, err := f.engine.Reset(ctx, f.sessionID)
	require.NoError(t, err)
	require.Equal(t, 0, status.CurrentPosition)
	require.False(t, status.IsComplete)

	// The walk restarts from the bottom.
	item, _, err := f.engine.Advance(ctx, f.sessionID)
	require.NoError(t, err)
	require.Equal(t, 1, item.Position)
}

func TestStatus_NoCursorDoesNotCreateOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.engine.Status(ctx, f.sessionID)
	require.NoError(t, err)
	require.Equal(t, 0, status.CurrentPosition)
	require.False(t, status.IsComplete)
	require.Equal(t, 3, status.TotalPositions)

	cursor, err := f.store.RevealCursor(ctx, f.sessionID)
	require.NoError(t, err)
	require.Nil(t, cursor)
}

type revealRecorder struct {
	statuses []model.RevealStatus
	items    []*model.RevealedItem
}

func (r *revealRecorder) RevealUpdated(_ context.Context, status model.RevealStatus, item *model.RevealedItem) {
	r.statuses = append(r.statuses, status)
	r.items = append(r.items, item)
}

func TestListener_AdvanceCarriesItemRetreatDoesNot(t *testing.T) {
	f := newFixture(t)
	rec := &revealRecorder{}
	f.engine.AddListener(rec)
	ctx := context.Background()

	_, err := f.engine.StartReveal(ctx, f.sessionID)
	require.NoError(t, err)
	_, _, err = f.engine.Advance(ctx, f.sessionID)
	require.NoError(t, err)
	_, err = f.engine.Retreat(ctx, f.sessionID)
	require.NoError(t, err)

	require.Len(t, rec.statuses, 2)
	require.NotNil(t, rec.items[0])
	require.Nil(t, rec.items[1])
	require.Equal(t, 1, rec.statuses[0].CurrentPosition)
	require.Equal(t, 0, rec.statuses[1].CurrentPosition)
}

// Full pass through the event: create, vote, finish, reveal from the bottom.
func TestEndToEnd_VoteThenReveal(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	coordinator := session.NewCoordinator(store, zap.NewNop())
	engine := NewEngine(store, coordinator, zap.NewNop())

	p1, _ := store.CreateParticipant(ctx, "A", "t1")
	p2, _ := store.CreateParticipant(ctx, "B", "t2")
	itemX, _ := store.CreateItem(ctx, "x.png", "/x.png")
	itemY, _ := store.CreateItem(ctx, "y.png", "/y.png")

	s, err := coordinator.CreateSession(ctx, "S1")
	require.NoError(t, err)
	_, err = coordinator.StartSession(ctx, s.ID)
	require.NoError(t, err)

	_, err = coordinator.RecordVote(ctx, p1, itemX, 9)
	require.NoError(t, err)
	_, err = coordinator.RecordVote(ctx, p2, itemX, 6)
	require.NoError(t, err)
	_, err = coordinator.RecordVote(ctx, p1, itemY, 3)
	require.NoError(t, err)

	summary, err := coordinator.SessionStats(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, 3, summary.VoteCount)

	stats, err := coordinator.ItemStats(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, itemX, stats[0].ItemID)
	require.Equal(t, 7.5, stats[0].Average)

	_, err = coordinator.EndSession(ctx, s.ID)
	require.NoError(t, err)

	_, err = engine.StartReveal(ctx, s.ID)
	require.NoError(t, err)

	item, status, err := engine.Advance(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, itemY, item.ItemID, "lowest-ranked item revealed first")
	require.Equal(t, 1, status.CurrentPosition)

	item, status, err = engine.Advance(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, itemX, item.ItemID)
	require.True(t, status.IsComplete)
}
