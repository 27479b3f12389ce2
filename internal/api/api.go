// Package api serves the catalog over a JSON HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/metorial/tattr/internal/catalog"
	"github.com/metorial/tattr/internal/logger"
)

type API struct {
	catalog *catalog.Catalog
}

func NewAPI(c *catalog.Catalog) *API {
	return &API{catalog: c}
}

// NewRouter returns a router serving the API under /api/v1.
func NewRouter(c *catalog.Catalog, mw ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	for _, m := range mw {
		r.Use(m)
	}
	r.Mount("/api/v1", NewAPI(c).Routes())
	return r
}

func (api *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", api.handleHealth)
	r.Get("/query", api.handleQuery)

	r.Route("/hosts", func(r chi.Router) {
		r.Get("/", api.handleListHosts)
		r.Post("/", api.handleAddHost)
		r.Route("/{hostname}", func(r chi.Router) {
			r.Get("/", api.handleGetHost)
			r.Patch("/", api.handleRenameHost)
			r.Delete("/", api.handleRemoveHost)
			r.Put("/tags/{tag}", api.handleSetTag)
			r.Delete("/tags/{tag}", api.handleUnsetTag)
			r.Put("/attributes/{attr}", api.handleSetAttribute)
			r.Delete("/attributes/{attr}", api.handleUnsetAttribute)
		})
	})

	r.Route("/tags", func(r chi.Router) {
		r.Get("/", api.handleListTags)
		r.Post("/", api.handleAddTag)
		r.Get("/{tag}", api.handleGetTag)
		r.Patch("/{tag}", api.handleRenameTag)
		r.Delete("/{tag}", api.handleRemoveTag)
	})

	r.Route("/attributes", func(r chi.Router) {
		r.Get("/", api.handleListAttributes)
		r.Post("/", api.handleAddAttribute)
		r.Get("/{attr}", api.handleGetAttribute)
		r.Patch("/{attr}", api.handleRenameAttribute)
		r.Delete("/{attr}", api.handleRemoveAttribute)
	})

	return r
}

func (api *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := api.catalog.Ping(r.Context()); err != nil {
		respondError(w, fmt.Sprintf("Database unhealthy: %v", err), http.StatusServiceUnavailable)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"database": "connected",
		"driver":   api.catalog.Driver(),
	})
}

func (api *API) handleQuery(w http.ResponseWriter, r *http.Request) {
	tokens := catalog.SplitQuery(r.URL.Query().Get("q"))

	hosts, err := api.catalog.Hosts().QueryNames(r.Context(), tokens)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query": tokens,
		"hosts": hosts,
		"count": len(hosts),
	})
}

// LoggingMiddleware logs every request once it has been served.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debugw("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// handleError maps catalog errors to HTTP statuses.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("Error serving %s %s: %v", r.Method, r.URL.Path, err)
		respondError(w, "Internal server error", status)
		return
	}
	respondError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrAlreadyExists), errors.Is(err, catalog.ErrInUse):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrInvalidQuery), errors.Is(err, catalog.ErrEmptyName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// urlParam returns the decoded path parameter, rejecting empty values. chi
// matches on RawPath when the request has one, and only then is the
// parameter still escaped.
func urlParam(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(value)
		if err != nil {
			return "", fmt.Errorf("invalid URL encoding in %s", name)
		}
		value = decoded
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%s cannot be empty", name)
	}
	return value, nil
}

// forceParam reads the optional ?force= flag.
func forceParam(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("force")
	if raw == "" {
		return false, nil
	}
	force, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid force value %q", raw)
	}
	return force, nil
}
