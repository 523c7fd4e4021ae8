package api

import (
	"encoding/json"
	"net/http"

	"github.com/starford/nestmaid/internal/docservice"
	"github.com/starford/nestmaid/internal/nested"
)

func resultStatus(res *nested.Result) int {
	if res.Success {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

// Resolve handles POST /api/resolve.
//
//	@Summary		Resolve a posted document without storing it
//	@Tags			resolve
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ResolveRequest	true	"Document source"
//	@Success		200		{object}	nested.Result
//	@Failure		422		{object}	nested.Result
//	@Security		BearerAuth
//	@Router			/resolve [post]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Source == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source is required"))
		return
	}
	res := h.svc.Resolve(r.Context(), req.Source)
	writeJSON(w, resultStatus(res), res)
}

// Resolved handles GET /api/resolved/*.
//
//	@Summary		Resolve a stored document, optionally returning one nested node
//	@Tags			resolve
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Param			node	query		string	false	"Slash-separated chain of definition ids below the root"
//	@Success		200		{object}	nested.Result
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	nested.Result
//	@Security		BearerAuth
//	@Router			/resolved/{path} [get]
func (h *Handler) Resolved(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	if node := r.URL.Query().Get("node"); node != "" {
		n, err := h.svc.ResolvedNode(r.Context(), path, docservice.SplitNodePath(node))
		if err != nil {
			writeError(w, "resolved node", path, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
		return
	}

	res, err := h.svc.ResolveDocument(r.Context(), path)
	if err != nil {
		writeError(w, "resolve document", path, err)
		return
	}
	writeJSON(w, resultStatus(res), res)
}

// Dependents handles GET /api/dependents.
//
//	@Summary		List diagrams across the vault that embed a definition id
//	@Tags			graph
//	@Produce		json
//	@Param			id	query		string	true	"Definition id"
//	@Success		200	{object}	DependentsResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dependents [get]
func (h *Handler) Dependents(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'id' is required"))
		return
	}
	deps, err := h.svc.Dependents(r.Context(), id)
	if err != nil {
		writeError(w, "dependents", id, err)
		return
	}
	writeJSON(w, http.StatusOK, DependentsResponse{ID: id, Dependents: deps})
}

// Graph handles GET /api/graph/*.
//
//	@Summary		Get the embed dependency report of a document
//	@Tags			graph
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	GraphView
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/{path} [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	view, err := h.svc.Graph(r.Context(), path)
	if err != nil {
		writeError(w, "graph", path, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GraphSVG handles GET /api/graph.svg/*.
//
//	@Summary		Render the embed dependency graph of a document as SVG
//	@Tags			graph
//	@Produce		image/svg+xml
//	@Param			path	path	string	true	"Document path"
//	@Success		200		"SVG document"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph.svg/{path} [get]
func (h *Handler) GraphSVG(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	svg, err := h.svc.GraphSVG(r.Context(), path)
	if err != nil {
		writeError(w, "graph svg", path, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}
