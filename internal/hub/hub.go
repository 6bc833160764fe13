// Package hub tracks live realtime connections in two named groups and fans
// messages out to them. Group membership lives only in memory; after a
// restart clients reconnect and repopulate it.
package hub

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/piotrgredowski/memes-ranker/internal/model"
)

const (
	GroupOperator    = "operator"
	GroupParticipant = "participant"
)

type HubMsg interface{ isHubMsg() }

type connect struct {
	Group  string
	ID     string
	Outbox chan []byte
	Reply  chan error
}

type disconnect struct{ ID string }

type broadcast struct {
	Group   string
	Payload []byte
	Reply   chan error
}

type getStats struct {
	Reply chan model.ConnectionStats
}

type shutdown struct{}

func (connect) isHubMsg()    {}
func (disconnect) isHubMsg() {}
func (broadcast) isHubMsg()  {}
func (getStats) isHubMsg()   {}
func (shutdown) isHubMsg()   {}

type client struct {
	group  string
	outbox chan []byte
}

type Hub struct {
	inbox   chan HubMsg
	clients map[string]*client
	groups  map[string]map[string]*client
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger

	// onChange fires after every membership change, outside the loop
	// goroutine so it may call back into the hub.
	onChange func()
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		clients: make(map[string]*client),
		groups: map[string]map[string]*client{
			GroupOperator:    {},
			GroupParticipant: {},
		},
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
	go h.loop()
	return h
}

// SetOnChange registers the membership-change hook. Wire it at startup.
func (h *Hub) SetOnChange(fn func()) { h.onChange = fn }

// Connect registers a connection in a group and queues the
// connection_established acknowledgment on its outbox. Unknown groups are
// rejected and the caller must close the connection.
func (h *Hub) Connect(group, id string, outbox chan []byte) error {
	reply := make(chan error, 1)
	h.inbox <- connect{Group: group, ID: id, Outbox: outbox, Reply: reply}
	return <-reply
}

// Disconnect removes a connection from whichever group holds it. No-op for
// unknown ids.
func (h *Hub) Disconnect(id string) {
	h.inbox <- disconnect{ID: id}
}

// Broadcast fans payload out to every member of the group. A failed member
// is dropped on its own; delivery to the rest continues.
func (h *Hub) Broadcast(group string, payload []byte) error {
	reply := make(chan error, 1)
	h.inbox <- broadcast{Group: group, Payload: payload, Reply: reply}
	return <-reply
}

// Stats returns a point-in-time membership snapshot, computed on demand.
func (h *Hub) Stats() model.ConnectionStats {
	reply := make(chan model.ConnectionStats, 1)
	h.inbox <- getStats{Reply: reply}
	return <-reply
}

// Ping broadcasts a liveness frame to both groups.
func (h *Hub) Ping() {
	payload, err := model.NewEnvelope(model.TypePing, map[string]interface{}{}).Marshal()
	if err != nil {
		return
	}
	_ = h.Broadcast(GroupOperator, payload)
	_ = h.Broadcast(GroupParticipant, payload)
}

// PingLoop pings every interval until ctx is cancelled.
func (h *Hub) PingLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Ping()
		}
	}
}

// Shutdown closes every outbox and stops the loop.
func (h *Hub) Shutdown() {
	h.inbox <- shutdown{}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case connect:
				members, ok := h.groups[msg.Group]
				if !ok {
					msg.Reply <- fmt.Errorf("unknown group %q", msg.Group)
					break
				}
				c := &client{group: msg.Group, outbox: msg.Outbox}
				h.clients[msg.ID] = c
				members[msg.ID] = c
				h.sendAck(msg.ID, c)
				h.log.Info("client connected",
					zap.String("group", msg.Group), zap.String("client_id", msg.ID))
				msg.Reply <- nil
				h.notifyChange()

			case disconnect:
				if h.remove(msg.ID) {
					h.log.Info("client disconnected", zap.String("client_id", msg.ID))
					h.notifyChange()
				}

			case broadcast:
				members, ok := h.groups[msg.Group]
				if !ok {
					msg.Reply <- fmt.Errorf("unknown group %q", msg.Group)
					break
				}
				dropped := false
				for id, c := range members {
					select {
					case c.outbox <- msg.Payload:
						// ok
					default:
						// Client is slow or gone - drop it alone.
						h.remove(id)
						h.log.Warn("dropped unresponsive client", zap.String("client_id", id))
						dropped = true
					}
				}
				msg.Reply <- nil
				if dropped {
					h.notifyChange()
				}

			case getStats:
				msg.Reply <- model.ConnectionStats{
					Total:        len(h.clients),
					Operators:    len(h.groups[GroupOperator]),
					Participants: len(h.groups[GroupParticipant]),
				}

			case shutdown:
				h.closeAll()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) sendAck(id string, c *client) {
	ack := model.NewEnvelope(model.TypeConnectionEstablished, map[string]interface{}{
		"group":     c.group,
		"client_id": id,
	})
	payload, err := ack.Marshal()
	if err != nil {
		return
	}
	select {
	case c.outbox <- payload:
	default:
	}
}

func (h *Hub) remove(id string) bool {
	c, ok := h.clients[id]
	if !ok {
		return false
	}
	delete(h.clients, id)
	delete(h.groups[c.group], id)
	close(c.outbox)
	return true
}

func (h *Hub) closeAll() {
	for id := range h.clients {
		h.remove(id)
	}
}

func (h *Hub) notifyChange() {
	if h.onChange == nil {
		return
	}
	// Outside the loop goroutine: the hook reads hub stats back.
	go h.onChange()
}
