package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dataforge/internal/models"
)

// ListDashboards handles GET /api/dashboards.
//
//	@Summary		List dashboards
//	@Tags			dashboards
//	@Produce		json
//	@Success		200	{object}	DashboardListResponse
//	@Security		BearerAuth
//	@Router			/dashboards [get]
func (h *Handler) ListDashboards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, DashboardListResponse{
		Dashboards:         h.svc.ListDashboards(),
		CurrentDashboardID: h.svc.State().CurrentDashboardID,
	})
}

// CreateDashboard handles POST /api/dashboards. The new dashboard becomes
// the current one.
func (h *Handler) CreateDashboard(w http.ResponseWriter, r *http.Request) {
	var req CreateDashboardRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusCreated, h.svc.NewDashboard(req.Name))
}

// SelectDashboard handles PUT /api/current.
func (h *Handler) SelectDashboard(w http.ResponseWriter, r *http.Request) {
	var req SelectDashboardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.SelectDashboard(req.ID); err != nil {
		writeError(w, "select dashboard", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDashboard handles GET /api/dashboards/{id}.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetDashboard(dashboardID(r))
	if err != nil {
		writeError(w, "get dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// UpdateDashboard handles PATCH /api/dashboards/{id}.
func (h *Handler) UpdateDashboard(w http.ResponseWriter, r *http.Request) {
	var req models.DashboardPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.UpdateDashboard(dashboardID(r), req)
	if err != nil {
		writeError(w, "update dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteDashboard handles DELETE /api/dashboards/{id}.
func (h *Handler) DeleteDashboard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDashboard(dashboardID(r)); err != nil {
		writeError(w, "delete dashboard", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyLayout handles PUT /api/dashboards/{id}/layout.
//
//	@Summary		Apply a grid layout change
//	@Tags			dashboards
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Dashboard id or current"
//	@Param			body	body		LayoutRequest	true	"Grid items"
//	@Success		200		{object}	models.Dashboard
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dashboards/{id}/layout [put]
func (h *Handler) ApplyLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.ApplyLayout(dashboardID(r), req.Layout)
	if err != nil {
		writeError(w, "apply layout", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// AddChart handles POST /api/dashboards/{id}/charts.
//
//	@Summary		Add a chart bound to the first data source
//	@Tags			charts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Dashboard id or current"
//	@Param			body	body		AddChartRequest	true	"Chart type"
//	@Success		201		{object}	models.ChartConfig
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dashboards/{id}/charts [post]
func (h *Handler) AddChart(w http.ResponseWriter, r *http.Request) {
	var req AddChartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.AddChart(dashboardID(r), req.Type)
	if err != nil {
		writeError(w, "add chart", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateChart handles PATCH /api/dashboards/{id}/charts/{chartID}.
func (h *Handler) UpdateChart(w http.ResponseWriter, r *http.Request) {
	var req models.ChartPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateChart(dashboardID(r), chi.URLParam(r, "chartID"), req)
	if err != nil {
		writeError(w, "update chart", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteChart handles DELETE /api/dashboards/{id}/charts/{chartID}.
func (h *Handler) DeleteChart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteChart(dashboardID(r), chi.URLParam(r, "chartID")); err != nil {
		writeError(w, "delete chart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenderChart handles GET /api/dashboards/{id}/charts/{chartID}/render.
// A chart whose data source is gone renders a placeholder with 200.
func (h *Handler) RenderChart(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RenderChart(dashboardID(r), chi.URLParam(r, "chartID"))
	if err != nil {
		writeError(w, "render chart", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
