package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/piotrgredowski/memes-ranker/internal/model"
)

// Memory is an in-process Store with the same semantics as the postgres
// implementation. It backs the test suites and DSN-less local runs.
type Memory struct {
	mu sync.Mutex

	participants map[uint]*model.Participant
	items        map[uint]*model.Item
	votes        map[uint]*model.Vote
	sessions     map[uint]*model.Session
	cursors      map[uint]*model.RevealCursor

	nextID uint
}

func NewMemory() *Memory {
	return &Memory{
		participants: make(map[uint]*model.Participant),
		items:        make(map[uint]*model.Item),
		votes:        make(map[uint]*model.Vote),
		sessions:     make(map[uint]*model.Session),
		cursors:      make(map[uint]*model.RevealCursor),
	}
}

func (m *Memory) id() uint {
	m.nextID++
	return m.nextID
}

func (m *Memory) CreateParticipant(_ context.Context, name, token string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.id()
	m.participants[id] = &model.Participant{ID: id, Name: name, Token: token, CreatedAt: time.Now()}
	return id, nil
}

func (m *Memory) ParticipantByToken(_ context.Context, token string) (*model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.participants {
		if p.Token == token {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateItem(_ context.Context, filename, ref string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.id()
	m.items[id] = &model.Item{ID: id, Filename: filename, Ref: ref, Active: true, CreatedAt: time.Now()}
	return id, nil
}

func (m *Memory) ActiveItems(_ context.Context) ([]model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var items []model.Item
	for _, it := range m.items {
		if it.Active {
			items = append(items, *it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *Memory) SetItemActive(_ context.Context, id uint, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("%w: item %d", model.ErrNotFound, id)
	}
	it.Active = active
	return nil
}

func (m *Memory) UpsertVote(_ context.Context, participantID, itemID, sessionID uint, score int) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range m.votes {
		if v.ParticipantID == participantID && v.ItemID == itemID && v.SessionID == sessionID {
			v.Score = score
			v.CreatedAt = time.Now()
			return v.ID, nil
		}
	}

	id := m.id()
	m.votes[id] = &model.Vote{
		ID:            id,
		ParticipantID: participantID,
		ItemID:        itemID,
		SessionID:     sessionID,
		Score:         score,
		CreatedAt:     time.Now(),
	}
	return id, nil
}

func (m *Memory) CreateSession(_ context.Context, name string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.id()
	m.sessions[id] = &model.Session{ID: id, Name: name, CreatedAt: time.Now()}
	return id, nil
}

func (m *Memory) SessionByID(_ context.Context, id uint) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %d", model.ErrNotFound, id)
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) ActiveSession(_ context.Context) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *model.Session
	for _, s := range m.sessions {
		if !s.Active {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) ||
			(s.CreatedAt.Equal(latest.CreatedAt) && s.ID > latest.ID) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *Memory) ActivateSession(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: session %d", model.ErrNotFound, id)
	}
	for _, s := range m.sessions {
		s.Active = false
	}
	now := time.Now()
	target.Active = true
	target.StartTime = &now
	return nil
}

func (m *Memory) DeactivateSession(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: session %d", model.ErrNotFound, id)
	}
	s.Active = false
	return nil
}

func (m *Memory) SetSessionEndTime(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: session %d", model.ErrNotFound, id)
	}
	now := time.Now()
	s.EndTime = &now
	return nil
}

func (m *Memory) AggregateItemStats(_ context.Context, sessionID uint) ([]model.ItemStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byItem := make(map[uint][]int)
	for _, v := range m.votes {
		if v.SessionID == sessionID {
			byItem[v.ItemID] = append(byItem[v.ItemID], v.Score)
		}
	}

	var rows []model.ItemStats
	for itemID, scores := range byItem {
		it, ok := m.items[itemID]
		if !ok {
			continue
		}
		row := model.ItemStats{
			ItemID:   itemID,
			Filename: it.Filename,
			Ref:      it.Ref,
			Count:    len(scores),
			Min:      scores[0],
			Max:      scores[0],
		}
		sum := 0
		for _, s := range scores {
			sum += s
			if s < row.Min {
				row.Min = s
			}
			if s > row.Max {
				row.Max = s
			}
		}
		row.Average = float64(sum) / float64(len(scores))
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Average != rows[j].Average {
			return rows[i].Average > rows[j].Average
		}
		return rows[i].ItemID < rows[j].ItemID
	})
	return rows, nil
}

func (m *Memory) AggregateSessionSummary(ctx context.Context, sessionID uint) (*model.SessionSummary, error) {
	session, err := m.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	voteCount := 0
	participants := make(map[uint]bool)
	for _, v := range m.votes {
		if v.SessionID == sessionID {
			voteCount++
			participants[v.ParticipantID] = true
		}
	}
	itemCount := 0
	for _, it := range m.items {
		if it.Active {
			itemCount++
		}
	}

	return &model.SessionSummary{
		Session:            *session,
		VoteCount:          voteCount,
		ItemCount:          itemCount,
		UniqueParticipants: len(participants),
	}, nil
}

func (m *Memory) ItemScores(_ context.Context, sessionID, itemID uint) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []uint
	for id, v := range m.votes {
		if v.SessionID == sessionID && v.ItemID == itemID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	scores := make([]int, 0, len(ids))
	for _, id := range ids {
		scores = append(scores, m.votes[id].Score)
	}
	return scores, nil
}

func (m *Memory) RevealCursor(_ context.Context, sessionID uint) (*model.RevealCursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cursors[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) UpsertRevealCursor(_ context.Context, sessionID uint, position int, complete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cursors[sessionID] = &model.RevealCursor{
		SessionID:       sessionID,
		CurrentPosition: position,
		IsComplete:      complete,
		UpdatedAt:       time.Now(),
	}
	return nil
}
