package httphandler

import (
	"context"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v82/github"
	"github.com/google/uuid"

	ghadapter "github.com/ericfisherdev/bountybot/internal/adapter/driven/github"
	"github.com/ericfisherdev/bountybot/internal/application"
)

// maxWebhookBytes bounds the payload read from a delivery. GitHub caps
// webhook payloads at 25 MB.
const maxWebhookBytes = 25 << 20

// Webhook validates a GitHub delivery, maps issue events onto the
// dispatcher and replies with the resulting message.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	eventType := gh.WebHookType(r)
	delivery := gh.DeliveryID(r)
	if delivery == "" {
		delivery = uuid.NewString()
	}

	resp := WebhookResponse{Delivery: delivery, Event: eventType}
	if eventType == "" {
		resp.Error = "missing X-GitHub-Event header"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	payload, err := gh.ValidatePayload(r, h.webhookSecret)
	if err != nil {
		h.logger.Warn("webhook rejected", "delivery", delivery, "event", eventType, "error", err)
		resp.Error = "invalid payload or signature"
		writeJSON(w, http.StatusUnauthorized, resp)
		return
	}

	switch eventType {
	case "ping":
		resp.Message = "pong"
		writeJSON(w, http.StatusOK, resp)
		return
	case "issues":
	default:
		resp.Message = fmt.Sprintf("Ignored event %q.", eventType)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	parsed, err := gh.ParseWebHook(eventType, payload)
	if err != nil {
		resp.Error = "malformed event payload"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}
	event, ok := parsed.(*gh.IssuesEvent)
	if !ok || event.GetIssue() == nil || event.GetRepo() == nil {
		resp.Error = "malformed issues event"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	repo := event.GetRepo().GetFullName()
	ev := &application.EventContext{
		DeliveryID: delivery,
		Kind:       application.EventKind(eventType + "." + event.GetAction()),
		Repo:       repo,
		Issue:      ghadapter.MapIssue(event.GetIssue(), repo),
		Sender:     ghadapter.MapUser(event.GetSender()),
	}
	resp.Event = string(ev.Kind)

	// A delivery that started paying out must finish even if GitHub hangs up.
	outcome, err := h.dispatcher.Dispatch(context.WithoutCancel(r.Context()), ev)
	resp.Message = outcome.Message
	if err != nil {
		h.logger.Error("dispatch failed", "delivery", delivery, "event", ev.Kind, "repo", repo, "error", err)
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
