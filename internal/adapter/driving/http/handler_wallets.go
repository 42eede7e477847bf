package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

// ListWallets returns every wallet record.
func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.wallets.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list wallets", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]WalletResponse, 0, len(wallets))
	for _, wr := range wallets {
		resp = append(resp, toWalletResponse(wr))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetWallet returns the wallet record for one user.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	wallet, err := h.wallets.GetWallet(r.Context(), username)
	if err != nil {
		h.logger.Error("failed to get wallet", "user", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if wallet == nil {
		writeError(w, http.StatusNotFound, "wallet not found")
		return
	}

	writeJSON(w, http.StatusOK, toWalletResponse(*wallet))
}

// PutWallet registers or replaces a user's payout address, and optionally
// their multiplier.
func (h *Handler) PutWallet(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	var req PutWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		writeError(w, http.StatusBadRequest, "invalid address: expected a 0x-prefixed 20-byte hex address")
		return
	}
	if req.Multiplier != nil && req.Multiplier.IsNegative() {
		writeError(w, http.StatusBadRequest, "multiplier must not be negative")
		return
	}

	address := common.HexToAddress(req.Address).Hex()
	if err := h.wallets.SetAddress(r.Context(), username, address); err != nil {
		h.logger.Error("failed to set wallet address", "user", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if req.Multiplier != nil {
		if err := h.wallets.SetMultiplier(r.Context(), username, *req.Multiplier, req.Reason); err != nil {
			h.logger.Error("failed to set multiplier", "user", username, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	h.writeWallet(w, r, username)
}

// PutMultiplier sets a user's payout multiplier without touching the address.
func (h *Handler) PutMultiplier(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	var req PutMultiplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Multiplier == nil {
		writeError(w, http.StatusBadRequest, "multiplier is required")
		return
	}
	if req.Multiplier.IsNegative() {
		writeError(w, http.StatusBadRequest, "multiplier must not be negative")
		return
	}

	if err := h.wallets.SetMultiplier(r.Context(), username, *req.Multiplier, req.Reason); err != nil {
		h.logger.Error("failed to set multiplier", "user", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeWallet(w, r, username)
}

// DeleteWallet removes a user's wallet record.
func (h *Handler) DeleteWallet(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	if err := h.wallets.Delete(r.Context(), username); err != nil {
		if errors.Is(err, driven.ErrWalletNotFound) {
			writeError(w, http.StatusNotFound, "wallet not found")
			return
		}
		h.logger.Error("failed to delete wallet", "user", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeWallet(w http.ResponseWriter, r *http.Request, username string) {
	wallet, err := h.wallets.GetWallet(r.Context(), username)
	if err != nil || wallet == nil {
		h.logger.Error("failed to read back wallet", "user", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toWalletResponse(*wallet))
}

// PutWalletRequest is the JSON body for the wallet upsert endpoint.
type PutWalletRequest struct {
	Address    string           `json:"address"`
	Multiplier *decimal.Decimal `json:"multiplier,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

// PutMultiplierRequest is the JSON body for the multiplier endpoint.
type PutMultiplierRequest struct {
	Multiplier *decimal.Decimal `json:"multiplier"`
	Reason     string           `json:"reason"`
}
