package api

import (
	"net/http"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (api *API) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := api.catalog.Tags().List(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tags":  tags,
		"count": len(tags),
	})
}

func (api *API) handleAddTag(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	tags := api.catalog.Tags()
	if err := tags.Add(r.Context(), req.Name); err != nil {
		handleError(w, r, err)
		return
	}
	tag, err := tags.Get(r.Context(), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"tag": tag})
}

func (api *API) handleGetTag(w http.ResponseWriter, r *http.Request) {
	name, err := urlParam(r, "tag")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	tag, err := api.catalog.Tags().Get(r.Context(), name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tag": tag})
}

func (api *API) handleRenameTag(w http.ResponseWriter, r *http.Request) {
	name, err := urlParam(r, "tag")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req nameRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	tags := api.catalog.Tags()
	if err := tags.Rename(r.Context(), name, req.Name); err != nil {
		handleError(w, r, err)
		return
	}
	tag, err := tags.Get(r.Context(), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tag": tag})
}

func (api *API) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	name, err := urlParam(r, "tag")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	force, err := forceParam(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := api.catalog.Tags().Remove(r.Context(), name, force); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *API) handleListAttributes(w http.ResponseWriter, r *http.Request) {
	attrs, err := api.catalog.Attributes().List(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"attributes": attrs,
		"count":      len(attrs),
	})
}

func (api *API) handleAddAttribute(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	attrs := api.catalog.Attributes()
	if err := attrs.Add(r.Context(), req.Name); err != nil {
		handleError(w, r, err)
		return
	}
	attr, err := attrs.Get(r.Context(), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"attribute": attr})
}

func (api *API) handleGetAttribute(w http.ResponseWriter, r *http.Request) {
	name, err := urlParam(r, "attr")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	attr, err := api.catalog.Attributes().Get(r.Context(), name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"attribute": attr})
}

func (api *API) handleRenameAttribute(w http.ResponseWriter, r *http.Request) {
	name, err := urlParam(r, "attr")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req nameRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	attrs := api.catalog.Attributes()
	if err := attrs.Rename(r.Context(), name, req.Name); err != nil {
		handleError(w, r, err)
		return
	}
	attr, err := attrs.Get(r.Context(), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"attribute": attr})
}

func (api *API) handleRemoveAttribute(w http.ResponseWriter, r *http.Request) {
	name, err := urlParam(r, "attr")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	force, err := forceParam(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := api.catalog.Attributes().Remove(r.Context(), name, force); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
