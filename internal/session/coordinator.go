// Package session owns the voting-session lifecycle: the single-active-session
// invariant, the vote upsert path and result aggregation. Real-time fan-out is
// a pluggable post-commit listener, never an inline dependency.
package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/piotrgredowski/memes-ranker/internal/model"
	"github.com/piotrgredowski/memes-ranker/internal/repo"
)

// Listener receives post-commit notifications. Implementations must not
// fail the triggering operation; anything that can go wrong inside a
// listener stays inside the listener.
type Listener interface {
	SessionCreated(ctx context.Context, s model.Session)
	SessionStarted(ctx context.Context, s model.Session)
	SessionFinished(ctx context.Context, s model.Session)
	VoteRecorded(ctx context.Context, v model.Vote)
	StatsUpdated(ctx context.Context, stats []model.ItemStats)
	ItemsPopulated(ctx context.Context, count int)
}

// NewItem describes an item to insert during population.
type NewItem struct {
	Filename string
	Ref      string
}

type Coordinator struct {
	store     repo.Store
	log       *zap.Logger
	listeners []Listener
}

func NewCoordinator(store repo.Store, log *zap.Logger) *Coordinator {
	return &Coordinator{store: store, log: log}
}

// AddListener registers a post-commit observer. Not safe to call once the
// coordinator is serving requests; wire listeners at startup.
func (c *Coordinator) AddListener(l Listener) {
	c.listeners = append(c.listeners, l)
}

// CreateSession creates a new, not-yet-active session.
func (c *Coordinator) CreateSession(ctx context.Context, name string) (*model.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: session name must not be blank", model.ErrValidation)
	}

	id, err := c.store.CreateSession(ctx, name)
	if err != nil {
		return nil, err
	}
	session, err := c.store.SessionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, l := range c.listeners {
		l.SessionCreated(ctx, *session)
	}
	c.log.Info("session created", zap.Uint("session_id", id), zap.String("name", name))
	return session, nil
}

// StartSession activates the session and deactivates every other one.
// Starting an already-active session just refreshes its start time.
func (c *Coordinator) StartSession(ctx context.Context, id uint) (*model.Session, error) {
	if err := c.store.ActivateSession(ctx, id); err != nil {
		return nil, err
	}
	session, err := c.store.SessionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, l := range c.listeners {
		l.SessionStarted(ctx, *session)
	}
	c.log.Info("session started", zap.Uint("session_id", id))
	return session, nil
}

// EndSession deactivates the session and stamps its end time.
func (c *Coordinator) EndSession(ctx context.Context, id uint) (*model.Session, error) {
	if err := c.store.DeactivateSession(ctx, id); err != nil {
		return nil, err
	}
	if err := c.store.SetSessionEndTime(ctx, id); err != nil {
		return nil, err
	}
	session, err := c.store.SessionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, l := range c.listeners {
		l.SessionFinished(ctx, *session)
	}
	c.log.Info("session finished", zap.Uint("session_id", id))
	return session, nil
}

// ActiveSession returns the current active session, or nil when none.
func (c *Coordinator) ActiveSession(ctx context.Context) (*model.Session, error) {
	return c.store.ActiveSession(ctx)
}

// RecordVote upserts the caller's score for an item in the active session,
// then notifies listeners with the new rating and a recomputed stats
// snapshot. The snapshot recompute never fails the vote itself.
func (c *Coordinator) RecordVote(ctx context.Context, participantID, itemID uint, score int) (*model.Vote, error) {
	if score < 0 || score > 10 {
		return nil, fmt.Errorf("%w: score %d outside [0,10]", model.ErrValidation, score)
	}

	active, err := c.store.ActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, model.ErrNoActiveSession
	}

	voteID, err := c.store.UpsertVote(ctx, participantID, itemID, active.ID, score)
	if err != nil {
		return nil, err
	}

	vote := model.Vote{
		ID:            voteID,
		ParticipantID: participantID,
		ItemID:        itemID,
		SessionID:     active.ID,
		Score:         score,
	}
	for _, l := range c.listeners {
		l.VoteRecorded(ctx, vote)
	}

	stats, err := c.store.AggregateItemStats(ctx, active.ID)
	if err != nil {
		c.log.Error("stats recompute after vote failed", zap.Error(err))
		return &vote, nil
	}
	for _, l := range c.listeners {
		l.StatsUpdated(ctx, stats)
	}
	return &vote, nil
}

// SessionStats is a pure aggregation query.
func (c *Coordinator) SessionStats(ctx context.Context, sessionID uint) (*model.SessionSummary, error) {
	return c.store.AggregateSessionSummary(ctx, sessionID)
}

// ItemStats returns the per-item aggregation snapshot for a session.
func (c *Coordinator) ItemStats(ctx context.Context, sessionID uint) ([]model.ItemStats, error) {
	return c.store.AggregateItemStats(ctx, sessionID)
}

// RankedResults returns every item with at least one vote in the session,
// ordered by average descending (item id ascending on ties). Rank 1 is the
// best average; Position counts the other way so the reveal climbs from the
// worst-ranked item to the winner.
func (c *Coordinator) RankedResults(ctx context.Context, sessionID uint) ([]model.RankedResult, error) {
	stats, err := c.store.AggregateItemStats(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	results := make([]model.RankedResult, 0, len(stats))
	for i, row := range stats {
		scores, err := c.store.ItemScores(ctx, sessionID, row.ItemID)
		if err != nil {
			return nil, err
		}
		results = append(results, model.RankedResult{
			ItemStats: row,
			Median:    model.Median(scores),
			Rank:      i + 1,
			Position:  len(stats) - i,
		})
	}
	return results, nil
}

// PopulateItems deactivates the current item set and inserts the given one.
func (c *Coordinator) PopulateItems(ctx context.Context, items []NewItem) (int, error) {
	if len(items) == 0 {
		return 0, fmt.Errorf("%w: no items to populate", model.ErrValidation)
	}

	existing, err := c.store.ActiveItems(ctx)
	if err != nil {
		return 0, err
	}
	for _, it := range existing {
		if err := c.store.SetItemActive(ctx, it.ID, false); err != nil {
			return 0, err
		}
	}

	for _, it := range items {
		if _, err := c.store.CreateItem(ctx, it.Filename, it.Ref); err != nil {
			return 0, err
		}
	}

	for _, l := range c.listeners {
		l.ItemsPopulated(ctx, len(items))
	}
	c.log.Info("items populated", zap.Int("count", len(items)))
	return len(items), nil
}

// ActiveItems lists the current item set.
func (c *Coordinator) ActiveItems(ctx context.Context) ([]model.Item, error) {
	return c.store.ActiveItems(ctx)
}
