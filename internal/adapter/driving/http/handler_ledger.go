package httphandler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

// ListFallbacks returns unresolved rewards owed to users without a wallet.
func (h *Handler) ListFallbacks(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.fallbacks.ListUnresolved(r.Context())
	if err != nil {
		h.logger.Error("failed to list fallback rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]FallbackResponse, 0, len(rewards))
	for _, fr := range rewards {
		resp = append(resp, toFallbackResponse(fr))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ResolveFallback marks a fallback reward as paid out by hand.
func (h *Handler) ResolveFallback(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid fallback id")
		return
	}

	if err := h.fallbacks.Resolve(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrFallbackNotFound) {
			writeError(w, http.StatusNotFound, "fallback reward not found")
			return
		}
		h.logger.Error("failed to resolve fallback reward", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListPermits returns the permit audit log, optionally filtered by
// ?repo=owner/name and ?issue=N.
func (h *Handler) ListPermits(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")

	var issue int
	if raw := r.URL.Query().Get("issue"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid issue number")
			return
		}
		issue = n
	}

	records, err := h.permits.List(r.Context(), repo, issue)
	if err != nil {
		h.logger.Error("failed to list permits", "repo", repo, "issue", issue, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]PermitResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toPermitResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}
