package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

// ListBots returns all configured bot usernames.
func (h *Handler) ListBots(w http.ResponseWriter, r *http.Request) {
	bots, err := h.bots.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list bots", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]BotAccountResponse, 0, len(bots))
	for _, bot := range bots {
		resp = append(resp, toBotAccountResponse(bot))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddBot adds a username whose comments are never rewarded.
func (h *Handler) AddBot(w http.ResponseWriter, r *http.Request) {
	var req AddBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	saved, err := h.bots.Add(r.Context(), model.BotAccount{
		Username: username,
		AddedAt:  time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, driven.ErrBotAlreadyExists) {
			writeError(w, http.StatusConflict, "bot username already exists")
			return
		}
		h.logger.Error("failed to add bot", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toBotAccountResponse(saved))
}

// RemoveBot removes a bot username.
func (h *Handler) RemoveBot(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	if err := h.bots.Remove(r.Context(), username); err != nil {
		if errors.Is(err, driven.ErrBotNotFound) {
			writeError(w, http.StatusNotFound, "bot not found")
			return
		}
		h.logger.Error("failed to remove bot", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
