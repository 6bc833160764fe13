// Package event translates domain occurrences into wire frames and routes
// them through the hub. It holds a plain reference to the hub (no global
// broadcaster); the coordinator and reveal engine hold it as a listener.
package event

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/piotrgredowski/memes-ranker/internal/hub"
	"github.com/piotrgredowski/memes-ranker/internal/model"
	"github.com/piotrgredowski/memes-ranker/internal/repo"
)

// Dispatcher implements session.Listener and reveal.Listener. A broadcast
// failure is logged and swallowed; it never fails the domain operation
// that triggered it.
type Dispatcher struct {
	hub   *hub.Hub
	store repo.Store
	log   *zap.Logger
}

func NewDispatcher(h *hub.Hub, store repo.Store, log *zap.Logger) *Dispatcher {
	return &Dispatcher{hub: h, store: store, log: log}
}

func (d *Dispatcher) send(group string, env model.Envelope) {
	payload, err := env.Marshal()
	if err != nil {
		d.log.Error("encode frame failed",
			zap.String("type", env.Type), zap.Error(err))
		return
	}
	if err := d.hub.Broadcast(group, payload); err != nil {
		err = fmt.Errorf("%w: %v", model.ErrBroadcast, err)
		d.log.Error("broadcast failed",
			zap.String("type", env.Type), zap.String("group", group), zap.Error(err))
	}
}

func (d *Dispatcher) sendBoth(env model.Envelope) {
	d.send(hub.GroupOperator, env)
	d.send(hub.GroupParticipant, env)
}

func (d *Dispatcher) SessionCreated(_ context.Context, s model.Session) {
	d.sendBoth(model.NewEnvelope(model.TypeSessionCreated, s))
}

func (d *Dispatcher) SessionStarted(_ context.Context, s model.Session) {
	d.sendBoth(model.NewEnvelope(model.TypeSessionStarted, s))
}

func (d *Dispatcher) SessionFinished(_ context.Context, s model.Session) {
	d.sendBoth(model.NewEnvelope(model.TypeSessionFinished, s))
}

func (d *Dispatcher) VoteRecorded(_ context.Context, v model.Vote) {
	d.send(hub.GroupOperator, model.NewEnvelope(model.TypeNewRating, v))
}

func (d *Dispatcher) StatsUpdated(_ context.Context, stats []model.ItemStats) {
	d.send(hub.GroupOperator, model.NewEnvelope(model.TypeStatsUpdated, map[string]interface{}{
		"item_stats": stats,
	}))
}

func (d *Dispatcher) ItemsPopulated(_ context.Context, count int) {
	d.send(hub.GroupOperator, model.NewEnvelope(model.TypeItemsPopulated, map[string]interface{}{
		"item_count": count,
	}))
}

func (d *Dispatcher) RevealUpdated(_ context.Context, status model.RevealStatus, item *model.RevealedItem) {
	d.sendBoth(model.NewEnvelope(model.TypeRevealUpdate, map[string]interface{}{
		"session_id":       status.SessionID,
		"current_position": status.CurrentPosition,
		"is_complete":      status.IsComplete,
		"total_positions":  status.TotalPositions,
		"item":             item,
	}))
}

// BroadcastConnectionStats merges live hub counts with the active session's
// progress and sends the snapshot to operators. No-op without an active
// session. Wired as the hub's membership-change hook.
func (d *Dispatcher) BroadcastConnectionStats(ctx context.Context) {
	conns := d.hub.Stats()

	active, err := d.store.ActiveSession(ctx)
	if err != nil {
		d.log.Error("connection stats: active session lookup failed", zap.Error(err))
		return
	}
	if active == nil {
		return
	}

	summary, err := d.store.AggregateSessionSummary(ctx, active.ID)
	if err != nil {
		d.log.Error("connection stats: summary failed", zap.Error(err))
		return
	}

	// Participants who voted earlier may have dropped off; participants who
	// just joined may not have voted yet. Expect the larger population.
	effective := conns.Participants
	if summary.UniqueParticipants > effective {
		effective = summary.UniqueParticipants
	}

	d.send(hub.GroupOperator, model.NewEnvelope(model.TypeConnectionStats, map[string]interface{}{
		"total_connections":       conns.Total,
		"operator_connections":    conns.Operators,
		"participant_connections": conns.Participants,
		"session_id":              active.ID,
		"total_votes":             summary.VoteCount,
		"item_count":              summary.ItemCount,
		"unique_participants":     summary.UniqueParticipants,
		"expected_votes":          effective * summary.ItemCount,
	}))
}
