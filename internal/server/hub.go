package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"clipforge/internal/errs"
	"clipforge/internal/progress"
)

const (
	clientBuffer = 64
	writeTimeout = 10 * time.Second
)

// Event is one websocket message.
type Event struct {
	Type         string  `json:"type"` // update, log or result
	RunID        string  `json:"run_id"`
	Stage        string  `json:"stage"`
	Percent      int     `json:"percent"`
	StagePercent float64 `json:"stage_percent,omitempty"`
	Message      string  `json:"message,omitempty"`
	Line         string  `json:"line,omitempty"`
	OutputPath   string  `json:"output_path,omitempty"`
	Bytes        int64   `json:"bytes,omitempty"`
	Error        string  `json:"error,omitempty"`
	ErrorKind    string  `json:"error_kind,omitempty"`
	Timestamp    int64   `json:"ts"`
}

// Hub fans progress events out to websocket clients. It implements
// progress.Reporter. A client that cannot keep up is disconnected rather
// than slowing the pipeline.
type Hub struct {
	logger hclog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	last    *Event
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns an empty hub.
func NewHub(logger hclog.Logger) *Hub {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Hub{logger: logger, clients: map[*client]struct{}{}}
}

func (h *Hub) Update(u progress.Update) {
	h.broadcast(Event{
		Type:         "update",
		RunID:        u.RunID,
		Stage:        string(u.Stage),
		Percent:      u.Percent,
		StagePercent: u.StagePercent,
		Message:      u.Message,
	})
}

func (h *Hub) Log(l progress.Log) {
	h.broadcast(Event{Type: "log", RunID: l.RunID, Stage: string(l.Stage), Line: l.Line})
}

func (h *Hub) Result(r progress.Result) {
	ev := Event{Type: "result", RunID: r.RunID, Stage: string(r.Stage), OutputPath: r.OutputPath, Bytes: r.Bytes}
	if r.Err == nil {
		ev.Percent = 100
	} else {
		ev.Error = r.Err.Error()
		ev.ErrorKind = string(errs.KindOf(r.Err))
	}
	h.broadcast(ev)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ev Event) {
	ev.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("encode event", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if ev.Type != "log" {
		h.last = &ev
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow websocket client")
			h.removeLocked(c)
		}
	}
}

// serve registers conn and pumps events to it until the peer goes away.
func (h *Hub) serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	if h.last != nil {
		if data, err := json.Marshal(h.last); err == nil {
			c.send <- data
		}
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)

	// Reads only detect disconnects; clients have nothing to say.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
