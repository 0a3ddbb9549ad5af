package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"powersearch/models"
	"powersearch/scraper/adapters"
	"powersearch/services"
	"powersearch/storage"
	"powersearch/utils"
)

// Searcher runs one search.
type Searcher interface {
	Search(ctx context.Context, q models.SearchQuery) (*models.SearchResult, error)
}

// RecentSearches lists logged searches, newest first.
type RecentSearches interface {
	Recent(ctx context.Context, limit int) ([]storage.SearchLogEntry, error)
}

// SearchController serves the JSON search API.
type SearchController struct {
	searcher Searcher
	recent   RecentSearches
	logger   *utils.Logger
}

// NewSearchController creates a controller. recent may be nil.
func NewSearchController(searcher Searcher, recent RecentSearches, logger *utils.Logger) *SearchController {
	return &SearchController{searcher: searcher, recent: recent, logger: logger}
}

type searchResponse struct {
	Success bool `json:"success"`
	*models.SearchResult
}

type errorResponse struct {
	Success      bool                   `json:"success"`
	Error        string                 `json:"error"`
	Products     []models.ScoredProduct `json:"products"`
	TotalResults int                    `json:"total_results"`
}

// Handler returns the routed API wrapped with CORS and tracing.
func (c *SearchController) Handler() http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/search", c.SearchHandler).Methods(http.MethodPost)
	api.HandleFunc("/regions", c.RegionsHandler).Methods(http.MethodGet)
	api.HandleFunc("/stores", c.StoresHandler).Methods(http.MethodGet)
	api.HandleFunc("/health", c.HealthHandler).Methods(http.MethodGet)
	if c.recent != nil {
		api.HandleFunc("/searches/recent", c.RecentHandler).Methods(http.MethodGet)
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return otelhttp.NewHandler(corsHandler.Handler(router), "powersearch-api")
}

// SearchHandler runs a search from a JSON body.
func (c *SearchController) SearchHandler(w http.ResponseWriter, r *http.Request) {
	var q models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Products: []models.ScoredProduct{}})
		return
	}

	c.logger.Info("[api] Search request: %q (region: %s, sort: %s)", q.Text, q.Region, q.Sort)
	result, err := c.searcher.Search(r.Context(), q)
	if errors.Is(err, services.ErrEmptyQuery) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required", Products: []models.ScoredProduct{}})
		return
	}
	if err != nil || result == nil {
		c.logger.Error("[api] Search failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "search failed", Products: []models.ScoredProduct{}})
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Success: result.Error == "", SearchResult: result})
}

// RegionsHandler lists the selectable regions.
func (c *SearchController) RegionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, adapters.Regions)
}

// StoresHandler lists the storefront catalogue.
func (c *SearchController) StoresHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"stores": adapters.Stores})
}

// HealthHandler reports liveness.
func (c *SearchController) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "message": "API is running"})
}

// RecentHandler lists the latest logged searches (?limit=, default 20).
func (c *SearchController) RecentHandler(w http.ResponseWriter, r *http.Request) {
	limit := models.DefaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= models.MaxLimit {
		limit = v
	}
	entries, err := c.recent.Recent(r.Context(), limit)
	if err != nil {
		c.logger.Error("[api] Recent searches failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load recent searches"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"searches": entries})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
