package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marco-pm/zencart-typesense/internal/domain"
	"github.com/marco-pm/zencart-typesense/internal/search"
	"github.com/marco-pm/zencart-typesense/internal/service"
	"github.com/marco-pm/zencart-typesense/pkg/httputil"
	"github.com/marco-pm/zencart-typesense/pkg/validator"
)

// DashboardHandler handles HTTP requests for the dashboard/control API.
type DashboardHandler struct {
	dashboard *service.Dashboard
	provider  search.Provider
	logger    *slog.Logger
}

// NewDashboardHandler creates a new dashboard HTTP handler.
func NewDashboardHandler(dashboard *service.Dashboard, provider search.Provider, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		provider:  provider,
		logger:    logger,
	}
}

// --- Request DTOs ---

// RequestFullSyncRequest is the JSON request body for requesting a full sync.
type RequestFullSyncRequest struct {
	Forced bool `json:"forced"`
}

// UpsertSynonymRequest is the JSON request body for upserting a synonym.
type UpsertSynonymRequest struct {
	Root     string   `json:"root"`
	Synonyms []string `json:"synonyms" validate:"required,min=1,dive,required"`
}

// --- Handlers ---

// SyncStatus handles GET /api/v1/sync/status
func (h *DashboardHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	state, err := h.dashboard.SyncStatus(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// RequestFullSync handles POST /api/v1/sync/full
func (h *DashboardHandler) RequestFullSync(w http.ResponseWriter, r *http.Request) {
	var req RequestFullSyncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid JSON body"},
			})
			return
		}
	}

	if err := h.dashboard.RequestFullSync(r.Context(), req.Forced); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]bool{
		"next_run_full": true,
		"forced":        req.Forced,
	}})
}

// Collections handles GET /api/v1/collections
func (h *DashboardHandler) Collections(w http.ResponseWriter, r *http.Request) {
	counts, err := h.dashboard.CollectionCounts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: counts})
}

// ListSynonyms handles GET /api/v1/synonyms
func (h *DashboardHandler) ListSynonyms(w http.ResponseWriter, r *http.Request) {
	synonyms, err := h.dashboard.ListSynonyms(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: synonyms})
}

// UpsertSynonym handles PUT /api/v1/synonyms/{collection}/{id}
func (h *DashboardHandler) UpsertSynonym(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	var req UpsertSynonymRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid JSON body"},
		})
		return
	}

	if err := validator.Validate(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	syn := domain.Synonym{ID: id, Root: req.Root, Synonyms: req.Synonyms}
	if err := h.dashboard.UpsertSynonym(r.Context(), collection, syn); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: syn})
}

// DeleteSynonym handles DELETE /api/v1/synonyms/{collection}/{id}
func (h *DashboardHandler) DeleteSynonym(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	if err := h.dashboard.DeleteSynonym(r.Context(), collection, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/v1/search
func (h *DashboardHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "q is required"},
		})
		return
	}

	req := search.Request{
		Query:    query,
		Language: r.URL.Query().Get("language"),
	}

	var err error
	if req.ProductsLimit, err = parseLimit(r, "products_limit"); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: err.Error()},
		})
		return
	}
	if req.CategoriesLimit, err = parseLimit(r, "categories_limit"); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: err.Error()},
		})
		return
	}
	if req.BrandsLimit, err = parseLimit(r, "brands_limit"); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: err.Error()},
		})
		return
	}

	resp, err := h.provider.Search(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// ServerHealth handles GET /api/v1/server/health
func (h *DashboardHandler) ServerHealth(w http.ResponseWriter, r *http.Request) {
	ok, err := h.dashboard.ServerHealth(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]bool{"ok": ok}})
}

// ServerMetrics handles GET /api/v1/server/metrics
func (h *DashboardHandler) ServerMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.dashboard.ServerMetrics(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: metrics})
}

// ServerStats handles GET /api/v1/server/stats
func (h *DashboardHandler) ServerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.ServerStats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

func parseLimit(r *http.Request, param string) (int, error) {
	v := r.URL.Query().Get(param)
	if v == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(v)
	if err != nil || limit < 1 || limit > 100 {
		return 0, &limitError{param: param}
	}
	return limit, nil
}

type limitError struct {
	param string
}

func (e *limitError) Error() string {
	return e.param + " must be an integer between 1 and 100"
}
