package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// WebhookResponse is returned for every delivery. Message explains what the
// bot did, or why it did nothing.
type WebhookResponse struct {
	Delivery string `json:"delivery"`
	Event    string `json:"event"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// WalletResponse is the JSON representation of a wallet record. Multiplier
// is a decimal string.
type WalletResponse struct {
	Username   string `json:"username"`
	Address    string `json:"address"`
	Multiplier string `json:"multiplier"`
	Reason     string `json:"reason"`
	UpdatedAt  string `json:"updated_at"`
}

// BotAccountResponse is the JSON representation of a bot account entry.
type BotAccountResponse struct {
	Username string `json:"username"`
	AddedAt  string `json:"added_at"`
}

// AddBotRequest is the JSON body for the add bot endpoint.
type AddBotRequest struct {
	Username string `json:"username"`
}

// FallbackResponse is the JSON representation of an unpaid reward.
type FallbackResponse struct {
	ID        int64  `json:"id"`
	Repo      string `json:"repo"`
	Issue     int    `json:"issue"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	UserID    int64  `json:"user_id"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"created_at"`
}

// PermitResponse is the JSON representation of a permit audit record.
type PermitResponse struct {
	ID        int64  `json:"id"`
	Repo      string `json:"repo"`
	Issue     int    `json:"issue"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Nonce     string `json:"nonce"`
	ClaimURL  string `json:"claim_url"`
	CreatedAt string `json:"created_at"`
}

func toWalletResponse(w model.WalletRecord) WalletResponse {
	return WalletResponse{
		Username:   w.Username,
		Address:    w.Address,
		Multiplier: w.Multiplier.String(),
		Reason:     w.Reason,
		UpdatedAt:  w.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toBotAccountResponse(bot model.BotAccount) BotAccountResponse {
	return BotAccountResponse{
		Username: bot.Username,
		AddedAt:  bot.AddedAt.UTC().Format(time.RFC3339),
	}
}

func toFallbackResponse(fr model.FallbackReward) FallbackResponse {
	return FallbackResponse{
		ID:        fr.ID,
		Repo:      fr.RepoFullName,
		Issue:     fr.IssueNumber,
		Title:     string(fr.Title),
		Username:  fr.Username,
		UserID:    fr.UserID,
		Amount:    fr.Amount.String(),
		CreatedAt: fr.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toPermitResponse(rec model.PermitRecord) PermitResponse {
	return PermitResponse{
		ID:        rec.ID,
		Repo:      rec.RepoFullName,
		Issue:     rec.IssueNumber,
		Title:     string(rec.Title),
		Username:  rec.Username,
		Recipient: rec.Recipient,
		Amount:    rec.Amount.String(),
		Nonce:     rec.Nonce,
		ClaimURL:  rec.ClaimURL,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}
