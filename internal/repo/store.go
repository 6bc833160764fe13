// Package repo is the durable-state boundary. The coordinator and reveal
// engine only see the Store interface; the postgres implementation lives in
// gorm.go and an in-memory implementation in memory.go.
package repo

import (
	"context"

	"github.com/piotrgredowski/memes-ranker/internal/model"
)

type Store interface {
	CreateParticipant(ctx context.Context, name, token string) (uint, error)
	ParticipantByToken(ctx context.Context, token string) (*model.Participant, error)

	CreateItem(ctx context.Context, filename, ref string) (uint, error)
	ActiveItems(ctx context.Context) ([]model.Item, error)
	SetItemActive(ctx context.Context, id uint, active bool) error

	// UpsertVote inserts or overwrites the vote keyed by
	// (participant, item, session) and returns the row id.
	UpsertVote(ctx context.Context, participantID, itemID, sessionID uint, score int) (uint, error)

	CreateSession(ctx context.Context, name string) (uint, error)
	SessionByID(ctx context.Context, id uint) (*model.Session, error)
	// ActiveSession returns (nil, nil) when no session is active.
	ActiveSession(ctx context.Context) (*model.Session, error)
	// ActivateSession deactivates every other session and activates this
	// one with start time now, in a single atomic step.
	ActivateSession(ctx context.Context, id uint) error
	DeactivateSession(ctx context.Context, id uint) error
	SetSessionEndTime(ctx context.Context, id uint) error

	// AggregateItemStats returns per-item count/avg/min/max over the
	// session's votes, items with at least one vote only, ordered by
	// average descending with item id ascending as the tie-break.
	AggregateItemStats(ctx context.Context, sessionID uint) ([]model.ItemStats, error)
	AggregateSessionSummary(ctx context.Context, sessionID uint) (*model.SessionSummary, error)
	ItemScores(ctx context.Context, sessionID, itemID uint) ([]int, error)

	// RevealCursor returns (nil, nil) when no cursor row exists.
	RevealCursor(ctx context.Context, sessionID uint) (*model.RevealCursor, error)
	UpsertRevealCursor(ctx context.Context, sessionID uint, position int, complete bool) error
}
