package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/support-chat/backend/internal/model/chat"
	"github.com/zhouzirui/support-chat/backend/internal/model/profile"
	"github.com/zhouzirui/support-chat/backend/internal/service/inference"
	widgetService "github.com/zhouzirui/support-chat/backend/internal/service/widget"
)

type stubCompleter struct {
	gate  chan struct{}
	reply string
}

func (s *stubCompleter) Submit(_ context.Context, _ string) inference.Result {
	if s.gate != nil {
		<-s.gate
	}
	return inference.Result{Kind: inference.KindStructured, Text: s.reply}
}

func setupRouter(completer widgetService.Completer) (*chi.Mux, *widgetService.Service) {
	svc := widgetService.NewService(profile.NewMemoryStore(profile.Seed()), completer, widgetService.Config{})
	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r, svc
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal err: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeSession(t *testing.T, resp *httptest.ResponseRecorder) chat.Session {
	t.Helper()
	var session chat.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	return session
}

func createSession(t *testing.T, r http.Handler) chat.Session {
	t.Helper()
	resp := doJSON(t, r, http.MethodPost, "/widget/session", map[string]string{})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	return decodeSession(t, resp)
}

func TestCreateSessionDefaultProfile(t *testing.T) {
	r, _ := setupRouter(&stubCompleter{reply: "pong"})

	session := createSession(t, r)

	if session.ProfileID != profile.DefaultID {
		t.Fatalf("unexpected profile: %s", session.ProfileID)
	}
	if session.Visibility != chat.VisibilityClosed {
		t.Fatalf("expected closed widget, got %s", session.Visibility)
	}
	if len(session.Messages) != 1 || session.Messages[0].Sender != chat.SenderAgent {
		t.Fatalf("expected greeting, got %+v", session.Messages)
	}
}

func TestCreateSessionUnknownProfile(t *testing.T) {
	r, _ := setupRouter(&stubCompleter{})

	resp := doJSON(t, r, http.MethodPost, "/widget/session", map[string]string{"profileId": "ghost"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetUnknownSession(t *testing.T) {
	r, _ := setupRouter(&stubCompleter{})

	resp := doJSON(t, r, http.MethodGet, "/widget/missing", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSubmitBlankIsIgnored(t *testing.T) {
	r, _ := setupRouter(&stubCompleter{reply: "pong"})
	session := createSession(t, r)

	resp := doJSON(t, r, http.MethodPost, "/widget/"+session.ID+"/messages", map[string]string{"text": "   "})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := decodeSession(t, resp); len(got.Messages) != 1 {
		t.Fatalf("expected transcript unchanged, got %d messages", len(got.Messages))
	}
}

func TestSubmitAndWait(t *testing.T) {
	r, _ := setupRouter(&stubCompleter{reply: "pong"})
	session := createSession(t, r)

	resp := doJSON(t, r, http.MethodPost, "/widget/"+session.ID+"/messages?wait=true", map[string]string{"text": "ping"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	got := decodeSession(t, resp)
	if len(got.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got.Messages))
	}
	if got.Messages[1].Text != "ping" || got.Messages[2].Text != "pong" {
		t.Fatalf("unexpected transcript: %+v", got.Messages)
	}
	if got.Messages[2].Placeholder || got.Pending {
		t.Fatal("reply should be resolved")
	}
	if !got.Notification {
		t.Fatal("reply landing on a closed widget should raise the badge")
	}
}

func TestSubmitDraftWhilePending(t *testing.T) {
	gate := make(chan struct{})
	r, _ := setupRouter(&stubCompleter{gate: gate, reply: "pong"})
	defer close(gate)
	session := createSession(t, r)
	base := "/widget/" + session.ID

	if resp := doJSON(t, r, http.MethodPut, base+"/draft", map[string]string{"text": "first"}); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp := doJSON(t, r, http.MethodPost, base+"/messages", nil)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	got := decodeSession(t, resp)
	last := got.Messages[len(got.Messages)-1]
	if !last.Placeholder || last.Text != widgetService.DefaultThinkingText {
		t.Fatalf("expected placeholder, got %+v", last)
	}
	if got.Draft != "" {
		t.Fatalf("expected cleared draft, got %q", got.Draft)
	}

	resp = doJSON(t, r, http.MethodPost, base+"/messages", map[string]string{"text": "second"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestToggleRoutes(t *testing.T) {
	r, _ := setupRouter(&stubCompleter{})
	session := createSession(t, r)
	base := "/widget/" + session.ID

	if got := decodeSession(t, doJSON(t, r, http.MethodPost, base+"/minimize", nil)); got.Visibility != chat.VisibilityClosed {
		t.Fatalf("minimize from closed should be ignored, got %s", got.Visibility)
	}
	if got := decodeSession(t, doJSON(t, r, http.MethodPost, base+"/open", nil)); got.Visibility != chat.VisibilityOpen {
		t.Fatalf("expected open, got %s", got.Visibility)
	}
	if got := decodeSession(t, doJSON(t, r, http.MethodPost, base+"/minimize", nil)); got.Visibility != chat.VisibilityOpenMinimized {
		t.Fatalf("expected minimized, got %s", got.Visibility)
	}
}

func TestCloseSession(t *testing.T) {
	r, _ := setupRouter(&stubCompleter{})
	session := createSession(t, r)

	if resp := doJSON(t, r, http.MethodDelete, "/widget/"+session.ID, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp := doJSON(t, r, http.MethodGet, "/widget/"+session.ID, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after close, got %d", resp.Code)
	}
}

type wsEnvelope struct {
	Type string       `json:"type"`
	Data chat.Session `json:"data"`
}

func TestWebSocketSubmitRoundTrip(t *testing.T) {
	r, svc := setupRouter(&stubCompleter{reply: "pong"})
	server := httptest.NewServer(r)
	defer server.Close()

	session, err := svc.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/widget/ws/" + session.ID()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first wsEnvelope
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read err: %v", err)
	}
	if first.Type != "snapshot" {
		t.Fatalf("expected snapshot first, got %s", first.Type)
	}

	if err := conn.WriteJSON(map[string]any{"type": "toggleOpen"}); err != nil {
		t.Fatalf("write err: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"type": "submit", "data": map[string]string{"text": "ping"}}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	for {
		var msg wsEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read err: %v", err)
		}
		if msg.Type == "error" {
			t.Fatalf("unexpected error message")
		}
		messages := msg.Data.Messages
		if msg.Type != string(widgetService.EventMessages) || len(messages) != 3 {
			continue
		}
		if last := messages[2]; !last.Placeholder && last.Text == "pong" {
			if msg.Data.Visibility != chat.VisibilityOpen {
				t.Fatalf("expected open widget, got %s", msg.Data.Visibility)
			}
			return
		}
	}
}
