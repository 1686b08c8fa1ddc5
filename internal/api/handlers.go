package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dataforge/internal/dashservice"
	"github.com/starford/dataforge/internal/state"
)

// currentAlias addresses the current dashboard in URL paths.
const currentAlias = "current"

// Handler holds API route handlers.
type Handler struct {
	svc *dashservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *dashservice.Service) *Handler {
	return &Handler{svc: svc}
}

// dashboardID returns the {id} path parameter; "current" maps to the
// empty id, which the service resolves to the current dashboard.
func dashboardID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if id == currentAlias {
		return ""
	}
	return id
}

// GetState handles GET /api/state.
//
//	@Summary		Full application state
//	@Tags			state
//	@Produce		json
//	@Success		200	{object}	state.State
//	@Security		BearerAuth
//	@Router			/state [get]
func (h *Handler) GetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.State())
}

// UpdateUI handles PATCH /api/ui.
func (h *Handler) UpdateUI(w http.ResponseWriter, r *http.Request) {
	var req state.UIPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.UpdateUI(req))
}

// ReadFile handles POST /api/files/read. Failures are reported in the
// result body with status 200, as the host IPC does.
//
//	@Summary		Read a workspace file
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReadFileRequest	true	"File to read"
//	@Success		200		{object}	storage.ReadResult
//	@Security		BearerAuth
//	@Router			/files/read [post]
func (h *Handler) ReadFile(w http.ResponseWriter, r *http.Request) {
	var req ReadFileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ReadFile(req.Path))
}

// WriteFile handles POST /api/files/write.
func (h *Handler) WriteFile(w http.ResponseWriter, r *http.Request) {
	var req WriteFileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.WriteFile(req.Path, []byte(req.Content)))
}

// RunSQL handles POST /api/sql.
//
//	@Summary		Run a SQL query against the loaded data
//	@Tags			sql
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SQLRequest	true	"Query"
//	@Failure		501		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sql [post]
func (h *Handler) RunSQL(w http.ResponseWriter, r *http.Request) {
	var req SQLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rows, err := h.svc.RunSQL(r.Context(), req.Query)
	if err != nil {
		writeError(w, "run sql", err)
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Rows: rows, Total: len(rows)})
}

// ExportDashboard handles GET /api/dashboards/{id}/export. With ?save=true
// the document is written to the workspace instead of downloaded.
//
//	@Summary		Export a dashboard as JSON
//	@Tags			dashboards
//	@Produce		json
//	@Param			id		path	string	true	"Dashboard id or current"
//	@Param			save	query	bool	false	"Write into the workspace exports directory"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dashboards/{id}/export [get]
func (h *Handler) ExportDashboard(w http.ResponseWriter, r *http.Request) {
	if save, _ := strconv.ParseBool(r.URL.Query().Get("save")); save {
		res, err := h.svc.SaveExport(dashboardID(r))
		if err != nil {
			writeError(w, "save export", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	name, data, err := h.svc.ExportDashboard(dashboardID(r))
	if err != nil {
		writeError(w, "export dashboard", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ImportDashboard handles POST /api/dashboards/import with an export
// document as the body.
func (h *Handler) ImportDashboard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	d, err := h.svc.ImportDashboard(data)
	if err != nil {
		writeError(w, "import dashboard", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}
