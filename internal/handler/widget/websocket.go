package widget

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	widgetService "github.com/zhouzirui/support-chat/backend/internal/service/widget"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler 挂件的双向通道：接收输入与窗口操作，推送会话变更
type WebSocketHandler struct {
	widgets  *widgetService.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(widgets *widgetService.Service) *WebSocketHandler {
	return &WebSocketHandler{
		widgets: widgets,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// TextMessage 文本输入
type TextMessage struct {
	Text *string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.widgets.Get(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := session.Subscribe(32)
	defer unsubscribe()

	out := make(chan outgoingMessage, 32)
	go h.writeLoop(ctx, cancel, conn, out)
	go h.forwardEvents(ctx, session.ID(), events, out)

	send(ctx, out, outgoingMessage{Type: "snapshot", SessionID: sessionID, Data: session.Snapshot()})

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if reply := h.handleMessage(ctx, session, &msg); reply != nil {
			reply.SessionID = sessionID
			if !send(ctx, out, *reply) {
				return
			}
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, session *widgetService.Widget, msg *inboundMessage) *outgoingMessage {
	switch msg.Type {
	case "snapshot":
		return &outgoingMessage{Type: "snapshot", Data: session.Snapshot()}
	case "draft":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil || text.Text == nil {
			return errorMessage("invalid draft payload")
		}
		session.SetDraft(*text.Text)
		return nil
	case "submit":
		return h.handleSubmit(ctx, session, msg.Data)
	case "toggleOpen":
		session.ToggleOpen()
		return nil
	case "toggleMinimize":
		session.ToggleMinimize()
		return nil
	default:
		return errorMessage("unsupported message type: " + msg.Type)
	}
}

func (h *WebSocketHandler) handleSubmit(ctx context.Context, session *widgetService.Widget, raw json.RawMessage) *outgoingMessage {
	var text TextMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &text); err != nil {
			return errorMessage("invalid submit payload")
		}
	}

	var err error
	if text.Text != nil {
		_, err = session.Send(ctx, *text.Text)
	} else {
		_, err = session.Submit(ctx)
	}

	switch {
	case err == nil, errors.Is(err, widgetService.ErrEmptyInput):
		return nil
	default:
		return errorMessage(err.Error())
	}
}

func (h *WebSocketHandler) forwardEvents(ctx context.Context, sessionID string, events <-chan widgetService.Event, out chan<- outgoingMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !send(ctx, out, outgoingMessage{Type: string(ev.Kind), SessionID: sessionID, Data: ev.Session}) {
				return
			}
		}
	}
}

// writeLoop 是连接上唯一的写者
func (h *WebSocketHandler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan outgoingMessage) {
	defer cancel()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[websocket] ping failed: %v", err)
				conn.Close()
				return
			}
		case msg := <-out:
			msg.Timestamp = time.Now().UnixMilli()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[websocket] write failed: %v", err)
				conn.Close()
				return
			}
		}
	}
}

func send(ctx context.Context, out chan<- outgoingMessage, msg outgoingMessage) bool {
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

func errorMessage(message string) *outgoingMessage {
	return &outgoingMessage{Type: "error", Data: map[string]string{"message": message}}
}

