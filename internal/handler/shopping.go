package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/micasa-app/micasa/internal/auth"
	"github.com/micasa-app/micasa/internal/bus"
	"github.com/micasa-app/micasa/internal/event"
	"github.com/micasa-app/micasa/internal/model"
	"github.com/micasa-app/micasa/internal/store"
)

type ShoppingHandler struct {
	shoppingStore *store.ShoppingStore
	bus           *bus.Bus
	logger        *slog.Logger
}

func NewShoppingHandler(ss *store.ShoppingStore, b *bus.Bus, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{shoppingStore: ss, bus: b, logger: logger}
}

// publish hands a completed write to the fan-out sinks. The response
// has already been decided; this can neither block nor fail it.
func (h *ShoppingHandler) publish(r *http.Request, action event.Action, note *model.ShoppingNote, id int64) {
	principal, _ := auth.FromContext(r.Context())
	h.bus.Publish(bus.Mutation{
		Household:   principal.HouseholdKey(),
		Type:        event.ShoppingUpdated,
		Action:      action,
		ResourceKey: "shopping",
		Resource:    note,
		ResourceID:  id,
		Origin:      originConnection(r),
	})
}

type shoppingRequest struct {
	Item     string `json:"item"`
	Quantity string `json:"quantity"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Notes    string `json:"notes"`
}

func (req *shoppingRequest) normalize() {
	req.Item = strings.TrimSpace(req.Item)
	if req.Quantity == "" {
		req.Quantity = "1"
	}
	if req.Category == "" {
		req.Category = "groceries"
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}
}

func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	notes, err := h.shoppingStore.ListByHousehold(principal.HouseholdKey())
	if err != nil {
		h.logger.Error("list shopping notes", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if notes == nil {
		notes = []model.ShoppingNote{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *ShoppingHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	var req shoppingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.normalize()
	if req.Item == "" {
		writeMessage(w, http.StatusBadRequest, "Item is required")
		return
	}

	note, err := h.shoppingStore.Create(
		principal.HouseholdKey(), req.Item, req.Quantity, req.Category, req.Priority, req.Notes, principal.UserID,
	)
	if err != nil {
		h.logger.Error("create shopping note", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusCreated, note)
	h.publish(r, event.ActionCreate, note, note.ID)
}

func (h *ShoppingHandler) getOwned(w http.ResponseWriter, r *http.Request) *model.ShoppingNote {
	principal, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return nil
	}

	note, err := h.shoppingStore.GetByID(id)
	if err != nil {
		h.logger.Error("get shopping note", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return nil
	}
	if note == nil || note.HouseholdID != principal.HouseholdKey() {
		writeMessage(w, http.StatusNotFound, "Shopping note not found")
		return nil
	}
	return note
}

func (h *ShoppingHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.getOwned(w, r)
	if existing == nil {
		return
	}

	var req shoppingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.normalize()
	if req.Item == "" {
		writeMessage(w, http.StatusBadRequest, "Item is required")
		return
	}

	note, err := h.shoppingStore.Update(existing.ID, req.Item, req.Quantity, req.Category, req.Priority, req.Notes)
	if err != nil {
		h.logger.Error("update shopping note", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, note)
	h.publish(r, event.ActionUpdate, note, note.ID)
}

type purchaseRequest struct {
	IsPurchased bool `json:"isPurchased"`
}

func (h *ShoppingHandler) SetPurchased(w http.ResponseWriter, r *http.Request) {
	existing := h.getOwned(w, r)
	if existing == nil {
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	principal, _ := auth.FromContext(r.Context())
	note, err := h.shoppingStore.SetPurchased(existing.ID, req.IsPurchased, principal.UserID)
	if err != nil {
		h.logger.Error("set purchased", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, note)
	h.publish(r, event.ActionUpdate, note, note.ID)
}

func (h *ShoppingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing := h.getOwned(w, r)
	if existing == nil {
		return
	}

	if err := h.shoppingStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete shopping note", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeMessage(w, http.StatusOK, "Shopping note deleted successfully")
	h.publish(r, event.ActionDelete, nil, existing.ID)
}
