// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package notify implements the notification fan-out for terminal processing
// events. This file defines the websocket Hub, the production Notifier. Each
// recipient id maps to a room holding that recipient's open connections; a
// dispatch to a recipient is broadcast to every connection in the room.
//
// Structs:
//   - Hub: registry of rooms, keyed by recipient id.
//   - client: one websocket connection with a buffered outbound queue.
//
// Logic Flow:
//  1. A browser opens the websocket endpoint for its account id and the
//     handler calls ServeWS, which upgrades the connection and registers a
//     client in that recipient's room.
//  2. The dispatcher calls Emit, which marshals the event once and places it
//     on each client's outbound queue. A client whose queue is full is
//     dropped rather than allowed to stall the pipeline.
//  3. Each client runs a write pump draining its queue and a read pump whose
//     only job is to notice the peer closing.
//
// A client's send channel is never closed. Teardown is signaled through the
// client's done channel, exactly once, so an Emit racing a disconnect can
// never send on a closed channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write to a slow peer.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before the read
	// pump gives up on it. Pings go out at a fraction of this interval.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendQueueSize is the per-connection outbound buffer. Events beyond
	// this high-water mark indicate a dead or stalled peer.
	sendQueueSize = 16
)

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// shutdown signals both pumps and closes the connection. Safe to call from
// any goroutine, any number of times.
func (c *client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub is a registry of websocket connections grouped into per-recipient
// rooms. It implements Notifier.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*client]struct{}
	upgrader websocket.Upgrader
}

// NewHub creates an empty hub. Origin checking is left to the CORS layer in
// front of the upgrade handler.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
	}
}

// Emit broadcasts an event to every open connection in the recipient's room.
// A recipient with no open connections is not an error: the event is simply
// not deliverable right now.
func (h *Hub) Emit(ctx context.Context, recipientID string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %q: %w", event.Name, err)
	}

	h.mu.RLock()
	room := h.rooms[recipientID]
	clients := make([]*client, 0, len(room))
	for cl := range room {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		select {
		case <-cl.done:
			// Already torn down by a concurrent disconnect.
		case cl.send <- payload:
		default:
			// The queue is full, the peer is not draining. Drop the
			// connection instead of blocking the dispatcher.
			slog.WarnContext(ctx, "dropping stalled websocket connection",
				"recipient", recipientID)
			h.unregister(recipientID, cl)
		}
	}
	return nil
}

// ServeWS upgrades the request to a websocket and parks the connection in
// the recipient's room until either side closes it.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, recipientID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade websocket for %q: %w", recipientID, err)
	}

	cl := &client{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
	h.register(recipientID, cl)

	go h.writePump(recipientID, cl)
	go h.readPump(recipientID, cl)
	return nil
}

// RoomSize reports how many connections a recipient currently holds.
func (h *Hub) RoomSize(recipientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[recipientID])
}

// Close tears down every connection in every room.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		for cl := range room {
			cl.shutdown()
		}
	}
	h.rooms = make(map[string]map[*client]struct{})
}

func (h *Hub) register(recipientID string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[recipientID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[recipientID] = room
	}
	room[cl] = struct{}{}
}

func (h *Hub) unregister(recipientID string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[recipientID]
	if !ok {
		return
	}
	if _, ok := room[cl]; !ok {
		return
	}
	delete(room, cl)
	if len(room) == 0 {
		delete(h.rooms, recipientID)
	}
	cl.shutdown()
}

// writePump drains the outbound queue and keeps the connection alive with
// periodic pings.
func (h *Hub) writePump(recipientID string, cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case <-cl.done:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; its purpose is to detect the peer
// closing and to service pong responses.
func (h *Hub) readPump(recipientID string, cl *client) {
	defer h.unregister(recipientID, cl)

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
