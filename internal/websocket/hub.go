package websocket

import (
	"context"
	"encoding/json"

	"tasks-api/internal/models"
	"tasks-api/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	EventTaskCreated = "task.created"
	EventTaskUpdated = "task.updated"
	EventTaskDeleted = "task.deleted"

	broadcastBuffer = 64
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected listener.
type Client struct {
	Conn Conn
}

// Event is the message sent to every client when a task changes.
type Event struct {
	Event  string       `json:"event"`
	TaskID int          `json:"task_id"`
	Task   *models.Task `json:"task,omitempty"`
}

// Hub fans task events out to connected clients. All client bookkeeping
// happens on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			h.drop(client)
		case message := <-h.broadcast:
			for client := range h.clients {
				if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
					logger.RequestLogger.Info("Dropping websocket client", zap.Error(err))
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.Conn.Close()
	}
}

// Register adds conn and returns its client handle. It returns nil once the
// hub has stopped.
func (h *Hub) Register(conn Conn) *Client {
	client := &Client{Conn: conn}
	select {
	case h.register <- client:
		return client
	case <-h.done:
		return nil
	}
}

func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for broadcast. When the queue is full the event is
// dropped rather than stalling the request that produced it.
func (h *Hub) Publish(event string, taskID int, task *models.Task) {
	if h == nil {
		return
	}
	message, err := json.Marshal(Event{Event: event, TaskID: taskID, Task: task})
	if err != nil {
		logger.ErrorLogger.Error("Error encoding task event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message:
	default:
		logger.ErrorLogger.Warn("Task event dropped, broadcast queue full", zap.String("event", event), zap.Int("task_id", taskID))
	}
}
