// Package stream serves in-character Q&A over a WebSocket.
package stream

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/prestonty/timelens-be/internal/apperr"
	"github.com/prestonty/timelens-be/internal/service/narrative"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Handler upgrades /ws/chatWithUser and answers questions frame by frame.
type Handler struct {
	narrative *narrative.Service
	upgrader  websocket.Upgrader
}

// New creates a WebSocket handler. checkOrigin may be nil to accept any origin.
func New(narrativeSvc *narrative.Service, checkOrigin func(r *http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		narrative: narrativeSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chatWithUser", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string `json:"type"`
	PersonaID int64  `json:"personaId"`
	Input     string `json:"input"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	PersonaID int64  `json:"personaId,omitempty"`
	Content   string `json:"content,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.narrative == nil {
		http.Error(w, "text generation unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go pingLoop(ctx, conn)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		// 收到消息后刷新读超时
		conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case "question":
			if err := h.answer(ctx, conn, msg); err != nil {
				log.Printf("[websocket] write failed for persona %d: %v", msg.PersonaID, err)
				return
			}
		default:
			if err := send(conn, outgoingMessage{Type: "error", Error: "unsupported message type: " + msg.Type}); err != nil {
				return
			}
		}
	}
}

// answer streams one answer. The returned error is a connection failure; generation
// failures are reported to the client as an error frame.
func (h *Handler) answer(ctx context.Context, conn *websocket.Conn, msg inboundMessage) error {
	sr, err := h.narrative.AnswerQuestion(ctx, msg.PersonaID, msg.Input)
	if err != nil {
		return send(conn, failure(msg.PersonaID, err))
	}
	defer sr.Close()

	if err := send(conn, outgoingMessage{Type: "start", PersonaID: msg.PersonaID}); err != nil {
		return err
	}

	var answer strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return send(conn, failure(msg.PersonaID, apperr.Upstream("answer", err)))
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		answer.WriteString(chunk.Content)
		if err := send(conn, outgoingMessage{Type: "delta", PersonaID: msg.PersonaID, Content: chunk.Content}); err != nil {
			return err
		}
	}

	if err := send(conn, outgoingMessage{Type: "message", PersonaID: msg.PersonaID, Content: strings.TrimSpace(answer.String())}); err != nil {
		return err
	}
	return send(conn, outgoingMessage{Type: "end", PersonaID: msg.PersonaID})
}

func failure(personaID int64, err error) outgoingMessage {
	status, message := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[websocket] answer for persona %d failed: %v", personaID, err)
	}
	return outgoingMessage{Type: "error", PersonaID: personaID, Error: message}
}

func send(conn *websocket.Conn, msg outgoingMessage) error {
	msg.Timestamp = time.Now().Unix()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// pingLoop 定期发送 ping 保持连接；WriteControl 可以与 WriteJSON 并发调用
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
