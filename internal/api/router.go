package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dataforge/internal/dashservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *dashservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Whole-state snapshot and view state.
	r.Get("/state", h.GetState)
	r.Patch("/ui", h.UpdateUI)

	// Data sources.
	r.Get("/datasources", h.ListDataSources)
	r.Post("/datasources", h.ImportDataSource)
	r.Get("/datasources/{id}", h.GetDataSource)
	r.Patch("/datasources/{id}", h.UpdateDataSource)
	r.Delete("/datasources/{id}", h.DeleteDataSource)
	r.Post("/datasources/{id}/query", h.QueryDataSource)

	// Dashboards. The id "current" addresses the current dashboard.
	r.Get("/dashboards", h.ListDashboards)
	r.Post("/dashboards", h.CreateDashboard)
	r.Post("/dashboards/import", h.ImportDashboard)
	r.Put("/current", h.SelectDashboard)
	r.Get("/dashboards/{id}", h.GetDashboard)
	r.Patch("/dashboards/{id}", h.UpdateDashboard)
	r.Delete("/dashboards/{id}", h.DeleteDashboard)
	r.Put("/dashboards/{id}/layout", h.ApplyLayout)
	r.Get("/dashboards/{id}/export", h.ExportDashboard)

	// Charts.
	r.Post("/dashboards/{id}/charts", h.AddChart)
	r.Patch("/dashboards/{id}/charts/{chartID}", h.UpdateChart)
	r.Delete("/dashboards/{id}/charts/{chartID}", h.DeleteChart)
	r.Get("/dashboards/{id}/charts/{chartID}/render", h.RenderChart)

	// Host file access.
	r.Post("/files/read", h.ReadFile)
	r.Post("/files/write", h.WriteFile)

	// SQL editor.
	r.Post("/sql", h.RunSQL)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
