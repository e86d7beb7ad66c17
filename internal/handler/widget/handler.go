package widget

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/support-chat/backend/internal/model/chat"
	widgetService "github.com/zhouzirui/support-chat/backend/internal/service/widget"
	"github.com/zhouzirui/support-chat/backend/pkg/utils"
)

const sseKeepAlive = 15 * time.Second

// Handler 聊天挂件的HTTP处理器
type Handler struct {
	widgets *widgetService.Service
	ws      *WebSocketHandler
}

// New 创建挂件处理器
func New(widgets *widgetService.Service) *Handler {
	return &Handler{
		widgets: widgets,
		ws:      NewWebSocketHandler(widgets),
	}
}

// RegisterRoutes 注册挂件相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/widget", func(r chi.Router) {
		r.Post("/session", h.handleCreateSession)
		r.Get("/sessions", h.handleListSessions)
		h.ws.RegisterRoutes(r)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Delete("/", h.handleCloseSession)
			r.Put("/draft", h.handleSetDraft)
			r.Post("/messages", h.handleSubmit)
			r.Post("/open", h.handleToggleOpen)
			r.Post("/minimize", h.handleToggleMinimize)
			r.Get("/events", h.handleEvents)
		})
	})
}

// handleCreateSession 挂载一个新的挂件会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProfileID string `json:"profileId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.widgets.CreateSession(r.Context(), payload.ProfileID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, widgetService.ErrProfileNotFound) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session.Snapshot())
}

// handleListSessions 列出存活的会话
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.widgets.List(r.Context()))
}

// handleGetSession 返回会话快照
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

// handleCloseSession 卸载会话
func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.widgets.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetDraft 更新输入框内容
func (h *Handler) handleSetDraft(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	utils.RespondJSON(w, http.StatusOK, session.SetDraft(payload.Text))
}

// handleSubmit 提交用户消息。默认立即返回带占位消息的快照；
// wait=true 时等待回复落定后再返回。
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text *string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		reply <-chan chat.Message
		err   error
	)
	if payload.Text != nil {
		reply, err = session.Send(r.Context(), *payload.Text)
	} else {
		reply, err = session.Submit(r.Context())
	}

	switch {
	case errors.Is(err, widgetService.ErrEmptyInput):
		utils.RespondJSON(w, http.StatusOK, session.Snapshot())
		return
	case errors.Is(err, widgetService.ErrTurnInProgress):
		utils.RespondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		utils.RespondJSON(w, http.StatusAccepted, session.Snapshot())
		return
	}

	if err := waitReply(r.Context(), reply); err != nil {
		log.Printf("[http] session=%s client left before reply: %v", session.ID(), err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

// handleToggleOpen 打开或关闭聊天窗口
func (h *Handler) handleToggleOpen(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.ToggleOpen())
}

// handleToggleMinimize 最小化或展开聊天窗口
func (h *Handler) handleToggleMinimize(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.ToggleMinimize())
}

// handleEvents 通过SSE推送会话变更，用于驱动滚动到最新消息与角标
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, cancel := session.Subscribe(32)
	defer cancel()

	utils.SetupSSEHeaders(w)
	if err := utils.SendSSEEvent(w, flusher, "snapshot", session.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "keep-alive"); err != nil {
				return
			}
		case ev, open := <-events:
			if !open {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(ev.Kind), ev.Session); err != nil {
				log.Printf("[sse] session=%s write failed: %v", session.ID(), err)
				return
			}
		}
	}
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*widgetService.Widget, bool) {
	session, err := h.widgets.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return session, true
}

func waitReply(ctx context.Context, reply <-chan chat.Message) error {
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
