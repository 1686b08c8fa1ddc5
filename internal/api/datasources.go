package api

import (
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dataforge/internal/importer"
	"github.com/starford/dataforge/internal/models"
	"github.com/starford/dataforge/internal/transform"
)

const maxUploadBytes = 50 << 20 // 50 MB

// ListDataSources handles GET /api/datasources.
//
//	@Summary		List data sources without their rows
//	@Tags			datasources
//	@Produce		json
//	@Success		200	{object}	DataSourceListResponse
//	@Security		BearerAuth
//	@Router			/datasources [get]
func (h *Handler) ListDataSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, DataSourceListResponse{DataSources: h.svc.ListDataSources()})
}

// ImportDataSource handles POST /api/datasources. A multipart body uploads
// the "file" field; a JSON body imports a workspace file by path.
//
//	@Summary		Import a data file
//	@Tags			datasources
//	@Accept			multipart/form-data,json
//	@Produce		json
//	@Param			file	formData	file				false	"Data file (csv, xlsx, json, parquet)"
//	@Param			body	body		ImportFileRequest	false	"Workspace file to import"
//	@Success		201		{object}	models.DataSource
//	@Failure		400		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/datasources [post]
func (h *Handler) ImportDataSource(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		var req ImportFileRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ds, err := h.svc.ImportFile(r.Context(), req.Path)
		if err != nil {
			writeError(w, "import file", err)
			return
		}
		writeJSON(w, http.StatusCreated, ds)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	name := filepath.Base(header.Filename)
	ds, err := h.svc.ImportData(r.Context(), importer.File{Name: name, Content: content})
	if err != nil {
		writeError(w, "import upload", err)
		return
	}
	slog.Info("data source imported",
		slog.String("id", ds.ID),
		slog.String("name", ds.Name),
		slog.Int("rows", len(ds.Rows)))
	writeJSON(w, http.StatusCreated, ds)
}

// GetDataSource handles GET /api/datasources/{id}.
func (h *Handler) GetDataSource(w http.ResponseWriter, r *http.Request) {
	ds, err := h.svc.GetDataSource(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get data source", err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// UpdateDataSource handles PATCH /api/datasources/{id}.
func (h *Handler) UpdateDataSource(w http.ResponseWriter, r *http.Request) {
	var req models.DataSourcePatch
	if !decodeJSON(w, r, &req) {
		return
	}
	ds, err := h.svc.UpdateDataSource(chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "update data source", err)
		return
	}
	writeJSON(w, http.StatusOK, ds.Summary())
}

// DeleteDataSource handles DELETE /api/datasources/{id}.
func (h *Handler) DeleteDataSource(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveDataSource(chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete data source", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QueryDataSource handles POST /api/datasources/{id}/query.
//
//	@Summary		Filter and aggregate a data source
//	@Tags			datasources
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Data source id"
//	@Param			body	body		transform.Query	true	"Filters, groupBy and aggregations"
//	@Success		200		{object}	QueryResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/datasources/{id}/query [post]
func (h *Handler) QueryDataSource(w http.ResponseWriter, r *http.Request) {
	var q transform.Query
	if !decodeJSON(w, r, &q) {
		return
	}
	rows, err := h.svc.Query(chi.URLParam(r, "id"), q)
	if err != nil {
		writeError(w, "query data source", err)
		return
	}
	if rows == nil {
		rows = []models.Row{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{Rows: rows, Total: len(rows)})
}
