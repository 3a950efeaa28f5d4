package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/server/httpserver/authctx"
)

// handleListProjects handles GET /projects.
func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	projects, err := h.projects.List(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		items = append(items, projectToResponse(p))
	}
	h.writeJSON(w, r, http.StatusOK, ListProjectsResponse{
		Items: items,
		Total: len(items),
	})
}

// handleCreateProject handles POST /projects.
func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req ProjectRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	p, err := h.projects.Create(r.Context(), userID, domain.ProjectCreate{Name: req.Name})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/projects/"+p.ID)
	h.writeJSON(w, r, http.StatusCreated, projectToResponse(p))
}

// handleGetProject handles GET /projects/{id}.
func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	p, err := h.projects.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, projectToResponse(p))
}

// handleUpdateProject handles PUT /projects/{id}.
func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req ProjectRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	p, err := h.projects.Update(r.Context(), userID, r.PathValue("id"), domain.ProjectUpdate{Name: req.Name})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, projectToResponse(p))
}

// currentUser returns the user of the session in the request context.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	sess, ok := authctx.Session(r.Context())
	if !ok {
		h.writeDomainError(w, r, domain.ErrAuthRequired)
		return 0, false
	}
	return sess.UserID, true
}

// decodeBody decodes a size-limited JSON body into v and writes a 400 on
// failure.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeDomainError(w, r, domain.ErrBadRequest.WithDetails("request body too large"))
			return false
		}
		h.writeDomainError(w, r, domain.ErrBadRequest.WithDetails("invalid request body"))
		return false
	}
	return true
}
