package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/RichardoC/agroai/internal/db"
	"github.com/RichardoC/agroai/internal/httpx"
	"github.com/RichardoC/agroai/internal/models"
	"github.com/RichardoC/agroai/internal/realtime"
	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type socketFrame struct {
	Message        string `json:"message"`
	ConversationID flexID `json:"conversation_id"`
}

type socketClient struct {
	id     string
	conn   *websocket.Conn
	user   *models.User
	convID int64
	send   chan []byte
	done   chan struct{}
	logger *zap.Logger
}

// ChatSocket joins the caller to the conversation's room. Every frame it sends is
// processed like an HTTP message and the reply goes to the whole room.
func (h *Handler) ChatSocket(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Authenticate(r)
	if err != nil {
		httpx.WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	convID, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.db.GetConversation(r.Context(), user.ID, convID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			httpx.WriteError(w, "Conversation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load conversation", zap.Int64("conversation_id", convID), zap.Error(err))
		httpx.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &socketClient{
		id:     uuid.NewString(),
		conn:   conn,
		user:   user,
		convID: convID,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: h.logger.With(zap.Int64("conversation_id", convID), zap.Int64("user_id", user.ID)),
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	room := realtime.RoomName(convID)
	sub, err := h.rooms.Subscribe(ctx, room, c.enqueue)
	if err != nil {
		c.logger.Error("failed to join room", zap.String("room", room), zap.Error(err))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "room unavailable"))
		conn.Close()
		return
	}

	h.metrics.SocketOpened()
	c.logger.Info("websocket connected", zap.String("client_id", c.id), zap.String("room", room))
	defer func() {
		sub.Stop()
		close(c.done)
		conn.Close()
		h.metrics.SocketClosed()
		c.logger.Info("websocket disconnected", zap.String("client_id", c.id))
	}()

	go c.writePump()
	h.readPump(ctx, c)
}

// enqueue hands a frame to the writer without ever blocking the publisher.
func (c *socketClient) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	case <-c.done:
	default:
		c.logger.Warn("dropping frame for slow client", zap.String("client_id", c.id))
	}
}

func (c *socketClient) sendError(msg string) {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	c.enqueue(payload)
}

func (h *Handler) readPump(ctx context.Context, c *socketClient) {
	c.conn.SetReadLimit(httpx.MaxBodyBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var frame socketFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError("Invalid JSON frame")
			continue
		}
		if frame.Message == "" {
			c.sendError("Missing message")
			continue
		}
		if frame.ConversationID != 0 && int64(frame.ConversationID) != c.convID {
			c.sendError("conversation_id does not match this room")
			continue
		}
		if h.limiter != nil {
			ok, _, err := h.limiter.Allow(ctx, "user:"+strconv.FormatInt(c.user.ID, 10))
			if err != nil {
				c.logger.Warn("rate limiter unavailable", zap.Error(err))
			} else if !ok {
				c.sendError("rate limit exceeded")
				continue
			}
		}

		res, err := h.chat.ProcessMessage(ctx, c.user.ID, c.convID, frame.Message)
		if err != nil {
			c.logger.Error("failed to process message", zap.Error(err))
			c.sendError(err.Error())
			continue
		}
		h.broadcast(ctx, c.convID, frame.Message, res)
	}
}

func (c *socketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Warn("websocket write error", zap.Error(err))
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
