package api

import (
	"net/http"

	"github.com/metorial/tattr/internal/catalog"
)

type hostRequest struct {
	Hostname string `json:"hostname"`
}

type valueRequest struct {
	Value string `json:"value"`
}

// handleListHosts lists hosts, narrowed by repeated tag= and attr=name[=value]
// parameters which are all required to match.
func (api *API) handleListHosts(w http.ResponseWriter, r *http.Request) {
	q := api.catalog.Hosts().Filter()
	params := r.URL.Query()
	for _, tag := range params["tag"] {
		q = q.FilterTag(tag)
	}
	for _, attr := range params["attr"] {
		q = q.Where(catalog.ParseAttrFilter(attr))
	}

	hosts, err := q.List(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"hosts": hosts,
		"count": len(hosts),
	})
}

func (api *API) handleAddHost(w http.ResponseWriter, r *http.Request) {
	var req hostRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	hosts := api.catalog.Hosts()
	if err := hosts.Add(r.Context(), req.Hostname); err != nil {
		handleError(w, r, err)
		return
	}

	host, err := hosts.Get(r.Context(), req.Hostname)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"host": host})
}

func (api *API) handleGetHost(w http.ResponseWriter, r *http.Request) {
	hostname, err := urlParam(r, "hostname")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	host, err := api.catalog.Hosts().Get(r.Context(), hostname)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"host": host})
}

func (api *API) handleRenameHost(w http.ResponseWriter, r *http.Request) {
	hostname, err := urlParam(r, "hostname")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req hostRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	hosts := api.catalog.Hosts()
	if err := hosts.Rename(r.Context(), hostname, req.Hostname); err != nil {
		handleError(w, r, err)
		return
	}

	host, err := hosts.Get(r.Context(), req.Hostname)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"host": host})
}

func (api *API) handleRemoveHost(w http.ResponseWriter, r *http.Request) {
	hostname, err := urlParam(r, "hostname")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := api.catalog.Hosts().Remove(r.Context(), hostname); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *API) handleSetTag(w http.ResponseWriter, r *http.Request) {
	api.withHostAnd(w, r, "tag", func(hostname, tag string) error {
		return api.catalog.Hosts().SetTag(r.Context(), hostname, tag)
	})
}

func (api *API) handleUnsetTag(w http.ResponseWriter, r *http.Request) {
	api.withHostAnd(w, r, "tag", func(hostname, tag string) error {
		return api.catalog.Hosts().UnsetTag(r.Context(), hostname, tag)
	})
}

func (api *API) handleSetAttribute(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	api.withHostAnd(w, r, "attr", func(hostname, attr string) error {
		return api.catalog.Hosts().SetAttribute(r.Context(), hostname, attr, req.Value)
	})
}

func (api *API) handleUnsetAttribute(w http.ResponseWriter, r *http.Request) {
	api.withHostAnd(w, r, "attr", func(hostname, attr string) error {
		return api.catalog.Hosts().UnsetAttribute(r.Context(), hostname, attr)
	})
}

// withHostAnd runs fn with the hostname and the named second path parameter
// and answers 204 on success.
func (api *API) withHostAnd(w http.ResponseWriter, r *http.Request, param string, fn func(hostname, name string) error) {
	hostname, err := urlParam(r, "hostname")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	name, err := urlParam(r, param)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := fn(hostname, name); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
