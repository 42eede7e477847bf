package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ericfisherdev/bountybot/internal/application"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

// EventDispatcher runs the handlers registered for a webhook event.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev *application.EventContext) (application.Outcome, error)
}

// Handler is the HTTP driving adapter that receives GitHub webhooks and
// serves the admin API.
type Handler struct {
	dispatcher    EventDispatcher
	wallets       driven.WalletStore
	bots          driven.BotAccountStore
	fallbacks     driven.FallbackStore
	permits       driven.PermitLog
	webhookSecret []byte
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. An empty
// webhookSecret disables signature validation.
func NewHandler(
	dispatcher EventDispatcher,
	wallets driven.WalletStore,
	bots driven.BotAccountStore,
	fallbacks driven.FallbackStore,
	permits driven.PermitLog,
	webhookSecret string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		dispatcher:    dispatcher,
		wallets:       wallets,
		bots:          bots,
		fallbacks:     fallbacks,
		permits:       permits,
		webhookSecret: []byte(webhookSecret),
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. The webhook route is rate-limited
// when limiter is non-nil; /metrics is served when metrics is non-nil.
func NewServeMux(h *Handler, metrics http.Handler, limiter *rate.Limiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	var webhook http.Handler = http.HandlerFunc(h.Webhook)
	if limiter != nil {
		webhook = rateLimitMiddleware(limiter, webhook)
	}
	mux.Handle("POST /webhook", webhook)

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/wallets", h.ListWallets)
	mux.HandleFunc("GET /api/v1/wallets/{username}", h.GetWallet)
	mux.HandleFunc("PUT /api/v1/wallets/{username}", h.PutWallet)
	mux.HandleFunc("DELETE /api/v1/wallets/{username}", h.DeleteWallet)
	mux.HandleFunc("PUT /api/v1/wallets/{username}/multiplier", h.PutMultiplier)
	mux.HandleFunc("GET /api/v1/bots", h.ListBots)
	mux.HandleFunc("POST /api/v1/bots", h.AddBot)
	mux.HandleFunc("DELETE /api/v1/bots/{username}", h.RemoveBot)
	mux.HandleFunc("GET /api/v1/fallbacks", h.ListFallbacks)
	mux.HandleFunc("DELETE /api/v1/fallbacks/{id}", h.ResolveFallback)
	mux.HandleFunc("GET /api/v1/permits", h.ListPermits)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
