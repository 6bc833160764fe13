package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/piotrgredowski/memes-ranker/internal/model"
)

// Gorm is the postgres-backed Store.
type Gorm struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&model.Participant{},
		&model.Item{},
		&model.Vote{},
		&model.Session{},
		&model.RevealCursor{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Gorm{db: db}, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrStorage, op, err)
}

func (g *Gorm) CreateParticipant(ctx context.Context, name, token string) (uint, error) {
	p := model.Participant{Name: name, Token: token}
	if err := g.db.WithContext(ctx).Create(&p).Error; err != nil {
		return 0, storageErr("create participant", err)
	}
	return p.ID, nil
}

func (g *Gorm) ParticipantByToken(ctx context.Context, token string) (*model.Participant, error) {
	var p model.Participant
	err := g.db.WithContext(ctx).Where("token = ?", token).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("find participant", err)
	}
	return &p, nil
}

func (g *Gorm) CreateItem(ctx context.Context, filename, ref string) (uint, error) {
	it := model.Item{Filename: filename, Ref: ref, Active: true}
	if err := g.db.WithContext(ctx).Create(&it).Error; err != nil {
		return 0, storageErr("create item", err)
	}
	return it.ID, nil
}

func (g *Gorm) ActiveItems(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	err := g.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at, id").
		Find(&items).Error
	if err != nil {
		return nil, storageErr("list active items", err)
	}
	return items, nil
}

func (g *Gorm) SetItemActive(ctx context.Context, id uint, active bool) error {
	res := g.db.WithContext(ctx).Model(&model.Item{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return storageErr("set item active", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: item %d", model.ErrNotFound, id)
	}
	return nil
}

func (g *Gorm) UpsertVote(ctx context.Context, participantID, itemID, sessionID uint, score int) (uint, error) {
	v := model.Vote{
		ParticipantID: participantID,
		ItemID:        itemID,
		SessionID:     sessionID,
		Score:         score,
		CreatedAt:     time.Now(),
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "participant_id"}, {Name: "item_id"}, {Name: "session_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"score":      score,
			"created_at": v.CreatedAt,
		}),
	}).Create(&v).Error
	if err != nil {
		return 0, storageErr("upsert vote", err)
	}
	if v.ID == 0 {
		// Conflict path on some drivers does not report the row id back.
		var existing model.Vote
		err = g.db.WithContext(ctx).
			Where("participant_id = ? AND item_id = ? AND session_id = ?", participantID, itemID, sessionID).
			First(&existing).Error
		if err != nil {
			return 0, storageErr("reload vote", err)
		}
		return existing.ID, nil
	}
	return v.ID, nil
}

func (g *Gorm) CreateSession(ctx context.Context, name string) (uint, error) {
	s := model.Session{Name: name}
	if err := g.db.WithContext(ctx).Create(&s).Error; err != nil {
		return 0, storageErr("create session", err)
	}
	return s.ID, nil
}

func (g *Gorm) SessionByID(ctx context.Context, id uint) (*model.Session, error) {
	var s model.Session
	err := g.db.WithContext(ctx).First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: session %d", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("load session", err)
	}
	return &s, nil
}

func (g *Gorm) ActiveSession(ctx context.Context) (*model.Session, error) {
	var s model.Session
	err := g.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load active session", err)
	}
	return &s, nil
}

func (g *Gorm) ActivateSession(ctx context.Context, id uint) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Session{}).Where("active = ?", true).Update("active", false).Error; err != nil {
			return storageErr("deactivate sessions", err)
		}
		res := tx.Model(&model.Session{}).Where("id = ?", id).Updates(map[string]interface{}{
			"active":     true,
			"start_time": time.Now(),
		})
		if res.Error != nil {
			return storageErr("activate session", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: session %d", model.ErrNotFound, id)
		}
		return nil
	})
}

func (g *Gorm) DeactivateSession(ctx context.Context, id uint) error {
	res := g.db.WithContext(ctx).Model(&model.Session{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return storageErr("deactivate session", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: session %d", model.ErrNotFound, id)
	}
	return nil
}

func (g *Gorm) SetSessionEndTime(ctx context.Context, id uint) error {
	res := g.db.WithContext(ctx).Model(&model.Session{}).Where("id = ?", id).Update("end_time", time.Now())
	if res.Error != nil {
		return storageErr("set session end time", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: session %d", model.ErrNotFound, id)
	}
	return nil
}

func (g *Gorm) AggregateItemStats(ctx context.Context, sessionID uint) ([]model.ItemStats, error) {
	var rows []model.ItemStats
	err := g.db.WithContext(ctx).
		Table("votes").
		Select(`votes.item_id AS item_id,
			items.filename AS filename,
			items.ref AS ref,
			COUNT(votes.id) AS count,
			AVG(votes.score) AS average,
			MIN(votes.score) AS min,
			MAX(votes.score) AS max`).
		Joins("JOIN items ON items.id = votes.item_id").
		Where("votes.session_id = ?", sessionID).
		Group("votes.item_id, items.filename, items.ref").
		Order("average DESC, item_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("aggregate item stats", err)
	}
	return rows, nil
}

func (g *Gorm) AggregateSessionSummary(ctx context.Context, sessionID uint) (*model.SessionSummary, error) {
	session, err := g.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var voteCount, uniqueParticipants, itemCount int64
	if err := g.db.WithContext(ctx).Model(&model.Vote{}).
		Where("session_id = ?", sessionID).
		Count(&voteCount).Error; err != nil {
		return nil, storageErr("count votes", err)
	}
	if err := g.db.WithContext(ctx).Model(&model.Vote{}).
		Where("session_id = ?", sessionID).
		Distinct("participant_id").
		Count(&uniqueParticipants).Error; err != nil {
		return nil, storageErr("count participants", err)
	}
	if err := g.db.WithContext(ctx).Model(&model.Item{}).
		Where("active = ?", true).
		Count(&itemCount).Error; err != nil {
		return nil, storageErr("count items", err)
	}

	return &model.SessionSummary{
		Session:            *session,
		VoteCount:          int(voteCount),
		ItemCount:          int(itemCount),
		UniqueParticipants: int(uniqueParticipants),
	}, nil
}

func (g *Gorm) ItemScores(ctx context.Context, sessionID, itemID uint) ([]int, error) {
	var scores []int
	err := g.db.WithContext(ctx).Model(&model.Vote{}).
		Where("session_id = ? AND item_id = ?", sessionID, itemID).
		Order("id").
		Pluck("score", &scores).Error
	if err != nil {
		return nil, storageErr("list item scores", err)
	}
	return scores, nil
}

func (g *Gorm) RevealCursor(ctx context.Context, sessionID uint) (*model.RevealCursor, error) {
	var c model.RevealCursor
	err := g.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load reveal cursor", err)
	}
	return &c, nil
}

func (g *Gorm) UpsertRevealCursor(ctx context.Context, sessionID uint, position int, complete bool) error {
	c := model.RevealCursor{
		SessionID:       sessionID,
		CurrentPosition: position,
		IsComplete:      complete,
		UpdatedAt:       time.Now(),
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"current_position": position,
			"is_complete":      complete,
			"updated_at":       c.UpdatedAt,
		}),
	}).Create(&c).Error
	if err != nil {
		return storageErr("upsert reveal cursor", err)
	}
	return nil
}
