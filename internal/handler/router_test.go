package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhouzirui/support-chat/backend/internal/model/profile"
	widgetService "github.com/zhouzirui/support-chat/backend/internal/service/widget"
)

func newTestRouter(ready ReadinessFunc) http.Handler {
	profiles := profile.NewMemoryStore(profile.Seed())
	widgets := widgetService.NewService(profiles, nil, widgetService.Config{})
	return NewRouter([]string{"*"}, profiles, widgets, ready)
}

func TestHealthReportsModuleReadiness(t *testing.T) {
	router := newTestRouter(func() bool { return true })

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Status      string `json:"status"`
		ModuleReady bool   `json:"moduleReady"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if !body.ModuleReady {
		t.Fatal("expected moduleReady=true")
	}
}

func TestRoutesMounted(t *testing.T) {
	router := newTestRouter(nil)

	for _, path := range []string{"/api/profiles", "/api/widget/sessions", "/metrics"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, resp.Code)
		}
	}
}
