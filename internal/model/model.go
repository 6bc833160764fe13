package model

import "time"

// Participant is created on a visitor's first request and never deleted.
type Participant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	Token     string    `json:"-" gorm:"uniqueIndex;size:64"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is a rated artifact. Superseded items are deactivated, never deleted.
type Item struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Filename  string    `json:"filename"`
	Ref       string    `json:"ref"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote is unique per (participant, item, session); a repeat submission
// overwrites score and timestamp.
type Vote struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ParticipantID uint      `json:"participant_id" gorm:"uniqueIndex:idx_vote_key"`
	ItemID        uint      `json:"item_id" gorm:"uniqueIndex:idx_vote_key"`
	SessionID     uint      `json:"session_id" gorm:"uniqueIndex:idx_vote_key"`
	Score         int       `json:"score"`
	CreatedAt     time.Time `json:"created_at"`
}

// Session is a timed voting round. At most one session is active at a time.
type Session struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	CreatedAt time.Time  `json:"created_at"`
}

// RevealCursor tracks how many result positions have been shown for a
// finished session. Position 0 means nothing revealed yet.
type RevealCursor struct {
	SessionID       uint      `json:"session_id" gorm:"primaryKey"`
	CurrentPosition int       `json:"current_position"`
	IsComplete      bool      `json:"is_complete"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ItemStats is one aggregation row: per-item vote stats within a session.
type ItemStats struct {
	ItemID   uint    `json:"item_id"`
	Filename string  `json:"filename"`
	Ref      string  `json:"ref"`
	Count    int     `json:"count"`
	Average  float64 `json:"average"`
	Min      int     `json:"min"`
	Max      int     `json:"max"`
}

// RankedResult is an ItemStats row placed in the final ranking.
// Rank 1 is the highest average; Position is the reveal order
// (count - rank + 1), so position 1 is revealed first and ranks last.
type RankedResult struct {
	ItemStats
	Median   float64 `json:"median"`
	Rank     int     `json:"rank"`
	Position int     `json:"position"`
}

// RevealedItem is the detailed row returned when a position is revealed.
type RevealedItem struct {
	RankedResult
	StdDev float64 `json:"std_dev"`
}

// SessionSummary aggregates a session's overall progress.
type SessionSummary struct {
	Session            Session `json:"session"`
	VoteCount          int     `json:"vote_count"`
	ItemCount          int     `json:"item_count"`
	UniqueParticipants int     `json:"unique_participants"`
}

// RevealStatus is the public view of a reveal cursor.
type RevealStatus struct {
	SessionID       uint `json:"session_id"`
	CurrentPosition int  `json:"current_position"`
	IsComplete      bool `json:"is_complete"`
	TotalPositions  int  `json:"total_positions"`
}

// ConnectionStats is a point-in-time snapshot of hub membership.
type ConnectionStats struct {
	Total        int `json:"total_connections"`
	Operators    int `json:"operator_connections"`
	Participants int `json:"participant_connections"`
}
