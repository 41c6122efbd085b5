package ws

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/steamwatch/steamwatch/internal/tracker"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster fans tracker snapshots and report lines out to websocket
// clients. Slow clients are disconnected rather than allowed to stall the
// rest.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]bool
	state   *tracker.State
}

func NewBroadcaster(state *tracker.State) *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]bool),
		state:   state,
	}
}

// Run broadcasts a full snapshot every interval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.broadcast(WSMessage{Type: MsgSnapshot, Payload: b.snapshotPayload()})
		}
	}
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	data, _ := json.Marshal(WSMessage{Type: MsgSnapshot, Payload: b.snapshotPayload()})
	select {
	case c.send <- data:
	default:
		// Client too slow already, drop the greeting snapshot.
	}

	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// PublishReport forwards one rendered status line to all clients. Wired as
// the reporter's notify hook.
func (b *Broadcaster) PublishReport(line string) {
	b.broadcast(WSMessage{
		Type: MsgReport,
		Payload: ReportPayload{
			Line:      line,
			Timestamp: time.Now(),
		},
	})
}

// snapshotPayload converts the tracker snapshot into the wire shape, with
// apps sorted by ID for stable output.
func (b *Broadcaster) snapshotPayload() SnapshotPayload {
	snap := b.state.Snapshot()
	active, _ := snap.Active()

	apps := make([]AppStatus, 0, len(snap.Statuses))
	for app, status := range snap.Statuses {
		apps = append(apps, AppStatus{
			AppID:    app,
			Status:   status,
			LastSeen: snap.LastSeen[app],
			Active:   app == active,
		})
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].AppID < apps[j].AppID })

	payload := SnapshotPayload{Apps: apps}
	if snap.Speed != nil {
		payload.Speed = &SpeedStatus{
			Mbps:       snap.Speed.Mbps,
			LogTime:    snap.Speed.LogTime,
			Source:     snap.Speed.Source.String(),
			ReceivedAt: snap.Speed.ReceivedAt,
		}
	}
	return payload
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			log.Printf("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
