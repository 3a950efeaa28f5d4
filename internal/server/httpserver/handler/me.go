package handler

import (
	"net/http"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/server/httpserver/authctx"
)

// handleMe handles GET /me.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := authctx.Session(r.Context())
	if !ok {
		h.writeDomainError(w, r, domain.ErrAuthRequired)
		return
	}

	h.writeJSON(w, r, http.StatusOK, sessionToResponse(sess))
}
