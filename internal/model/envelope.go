package model

import (
	"encoding/json"
	"time"
)

// Envelope is the fixed server->client frame shape on the realtime channel.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// Frame type enum.
const (
	TypeConnectionEstablished = "connection_established"
	TypeSessionCreated        = "session_created"
	TypeSessionStarted        = "session_started"
	TypeSessionFinished       = "session_finished"
	TypeItemsPopulated        = "items_populated"
	TypeNewRating             = "new_rating"
	TypeStatsUpdated          = "stats_updated"
	TypeConnectionStats       = "connection_stats"
	TypeRevealUpdate          = "reveal_update"
	TypePing                  = "ping"
	TypeEcho                  = "echo"
)

// NewEnvelope stamps the frame with the current server time.
func NewEnvelope(frameType string, data interface{}) Envelope {
	return Envelope{
		Type:      frameType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Marshal encodes the envelope for the wire.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
