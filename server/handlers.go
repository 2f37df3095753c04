package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pagopa/cdcview/artifactstore"
	"github.com/pagopa/cdcview/transform"
	"github.com/pagopa/cdcview/viewgen"
)

const maxBodyBytes = 4 << 20

// APIHandler provides the REST endpoints.
type APIHandler struct {
	transform *transform.Handler
	store     *artifactstore.Store
	logger    *slog.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(h *transform.Handler, store *artifactstore.Store, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		transform: h,
		store:     store,
		logger:    logger,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("POST /transform", h.handleTransform)
	mux.HandleFunc("POST /api/views", h.generateViews)
	mux.HandleFunc("POST /api/decode", h.decodeView)
	mux.HandleFunc("GET /api/views/{view}/artifacts", h.listArtifacts)
	mux.HandleFunc("DELETE /api/views/{view}/artifacts/{key}", h.deleteArtifact)
}

func (h *APIHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// failureResponse is the macro response for a failed transform.
type failureResponse struct {
	RequestID    string `json:"requestId"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage"`
}

// handleTransform answers a macro event.
func (h *APIHandler) handleTransform(w http.ResponseWriter, r *http.Request) {
	var ev transform.Event
	if err := decodeBody(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event: "+err.Error())
		return
	}
	if ev.RequestID == "" {
		ev.RequestID = RequestID(r.Context())
	}

	resp, err := h.transform.Handle(r.Context(), ev)
	if err != nil {
		h.logger.Warn("Transform failed", "request_id", ev.RequestID, "view", ev.Params.CdcViewName, "error", err)
		writeJSON(w, errorStatus(err), failureResponse{
			RequestID:    ev.RequestID,
			Status:       "failure",
			ErrorMessage: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// generateViews renders every artifact of a view configuration.
func (h *APIHandler) generateViews(w http.ResponseWriter, r *http.Request) {
	var cfg viewgen.Config
	if err := decodeBody(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid config: "+err.Error())
		return
	}

	gen, err := viewgen.New(cfg)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	a, err := gen.Artifacts(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	h.transform.Prime(r.Context(), gen.Config(), a)
	writeJSON(w, http.StatusOK, a)
}

type decodeRequest struct {
	Text string `json:"text"`
}

// decodeView extracts the payload of a view's original text.
func (h *APIHandler) decodeView(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	view, err := viewgen.DecodePrestoView(req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type artifactJSON struct {
	Key        string          `json:"key"`
	OutputType string          `json:"outputType"`
	CreatedAt  time.Time       `json:"createdAt"`
	Fragment   json.RawMessage `json:"fragment"`
}

// listArtifacts returns the cached fragments of a view, newest first.
func (h *APIHandler) listArtifacts(w http.ResponseWriter, r *http.Request) {
	view := r.PathValue("view")
	records, err := h.store.List(r.Context(), view)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list artifacts: "+err.Error())
		return
	}

	artifacts := make([]artifactJSON, 0, len(records))
	for _, rec := range records {
		artifacts = append(artifacts, artifactJSON{
			Key:        rec.Key,
			OutputType: rec.OutputType,
			CreatedAt:  rec.CreatedAt.UTC(),
			Fragment:   json.RawMessage(rec.Fragment),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":      view,
		"artifacts": artifacts,
		"count":     len(artifacts),
	})
}

// deleteArtifact evicts one cached fragment of a view.
func (h *APIHandler) deleteArtifact(w http.ResponseWriter, r *http.Request) {
	view, key := r.PathValue("view"), r.PathValue("key")
	rec, err := h.store.Get(r.Context(), key)
	if errors.Is(err, artifactstore.ErrNotFound) || (err == nil && rec.ViewName != view) {
		writeError(w, http.StatusNotFound, "artifact not found: "+key)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get artifact: "+err.Error())
		return
	}
	if err := h.store.Delete(r.Context(), key); err != nil {
		writeError(w, http.StatusInternalServerError, "delete artifact: "+err.Error())
		return
	}
	h.logger.Info("Deleted artifact", "view", view, "key", key, "output", rec.OutputType)
	w.WriteHeader(http.StatusNoContent)
}

func errorStatus(err error) int {
	if errors.Is(err, viewgen.ErrConfiguration) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
