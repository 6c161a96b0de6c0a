package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/micasa-app/micasa/internal/auth"
	"github.com/micasa-app/micasa/internal/event"
	"github.com/micasa-app/micasa/internal/model"
	"github.com/micasa-app/micasa/internal/store"
)

type WebhookHandler struct {
	webhookStore *store.WebhookStore
	logger       *slog.Logger
}

func NewWebhookHandler(ws *store.WebhookStore, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{webhookStore: ws, logger: logger}
}

type webhookRequest struct {
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	IsActive *bool    `json:"isActive"`
	Secret   *string  `json:"secret"`
}

func (req *webhookRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "Name is required"
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "A valid http(s) URL is required"
	}
	if len(req.Events) == 0 {
		return "At least one event is required"
	}
	for _, e := range req.Events {
		if e != event.Wildcard && !event.Type(e).Valid() {
			return "Unknown event type: " + e
		}
	}
	return ""
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	webhooks, err := h.webhookStore.ListByHousehold(principal.HouseholdKey())
	if err != nil {
		h.logger.Error("list webhooks", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if webhooks == nil {
		webhooks = []model.Webhook{}
	}
	writeJSON(w, http.StatusOK, webhooks)
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	var secret string
	if req.Secret != nil {
		secret = *req.Secret
	}

	webhook, err := h.webhookStore.Create(
		principal.HouseholdKey(), req.Name, req.URL, req.Events, isActive, secret, principal.UserID,
	)
	if err != nil {
		h.logger.Error("create webhook", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusCreated, webhook)
}

// getOwned fetches a webhook and checks household ownership. Foreign
// ids read as not-found, never as forbidden.
func (h *WebhookHandler) getOwned(w http.ResponseWriter, r *http.Request) *model.Webhook {
	principal, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return nil
	}

	webhook, err := h.webhookStore.GetByID(id)
	if err != nil {
		h.logger.Error("get webhook", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return nil
	}
	if webhook == nil || webhook.HouseholdID != principal.HouseholdKey() {
		writeMessage(w, http.StatusNotFound, "Webhook not found")
		return nil
	}
	return webhook
}

func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.getOwned(w, r)
	if existing == nil {
		return
	}

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	isActive := existing.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	secret := existing.Secret
	if req.Secret != nil {
		secret = *req.Secret
	}

	webhook, err := h.webhookStore.Update(existing.ID, req.Name, req.URL, req.Events, isActive, secret)
	if err != nil {
		h.logger.Error("update webhook", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, webhook)
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing := h.getOwned(w, r)
	if existing == nil {
		return
	}

	if err := h.webhookStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete webhook", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeMessage(w, http.StatusOK, "Webhook deleted successfully")
}
