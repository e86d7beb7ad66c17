package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhouzirui/support-chat/backend/internal/handler/profile"
	"github.com/zhouzirui/support-chat/backend/internal/handler/widget"
	middlewarePkg "github.com/zhouzirui/support-chat/backend/internal/middleware"
	profileModel "github.com/zhouzirui/support-chat/backend/internal/model/profile"
	widgetService "github.com/zhouzirui/support-chat/backend/internal/service/widget"
	"github.com/zhouzirui/support-chat/backend/pkg/utils"
)

// ReadinessFunc reports whether the inference module finished loading.
type ReadinessFunc func() bool

// NewRouter wires HTTP routes to core services.
func NewRouter(allowedOrigins []string, profiles profileModel.Store, widgets *widgetService.Service, ready ReadinessFunc) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	profileHandler := profile.New(profiles)
	widgetHandler := widget.New(widgets)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			moduleReady := ready != nil && ready()
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":      "ok",
				"moduleReady": moduleReady,
			})
		})

		profileHandler.RegisterRoutes(api)
		widgetHandler.RegisterRoutes(api)
	})

	return r
}
