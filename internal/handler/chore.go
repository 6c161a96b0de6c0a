package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/micasa-app/micasa/internal/auth"
	"github.com/micasa-app/micasa/internal/bus"
	"github.com/micasa-app/micasa/internal/event"
	"github.com/micasa-app/micasa/internal/model"
	"github.com/micasa-app/micasa/internal/store"
)

type ChoreHandler struct {
	choreStore *store.ChoreStore
	bus        *bus.Bus
	logger     *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, b *bus.Bus, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{choreStore: cs, bus: b, logger: logger}
}

func (h *ChoreHandler) publish(r *http.Request, action event.Action, chore *model.Chore, id int64) {
	principal, _ := auth.FromContext(r.Context())
	h.bus.Publish(bus.Mutation{
		Household:   principal.HouseholdKey(),
		Type:        event.ChoreUpdated,
		Action:      action,
		ResourceKey: "chore",
		Resource:    chore,
		ResourceID:  id,
		Origin:      originConnection(r),
	})
}

type choreRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AssignedTo  int64     `json:"assignedTo"`
	Frequency   string    `json:"frequency"`
	DueDate     time.Time `json:"dueDate"`
	Priority    string    `json:"priority"`
	Category    string    `json:"category"`
}

func (req *choreRequest) normalize() {
	req.Title = strings.TrimSpace(req.Title)
	if req.Frequency == "" {
		req.Frequency = "weekly"
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}
	if req.Category == "" {
		req.Category = "other"
	}
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	chores, err := h.choreStore.ListByHousehold(principal.HouseholdKey())
	if err != nil {
		h.logger.Error("list chores", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.normalize()
	if req.Title == "" {
		writeMessage(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.AssignedTo == 0 {
		req.AssignedTo = principal.UserID
	}
	if req.DueDate.IsZero() {
		writeMessage(w, http.StatusBadRequest, "Due date is required")
		return
	}

	chore, err := h.choreStore.Create(
		principal.HouseholdKey(), req.Title, req.Description, req.AssignedTo,
		req.Frequency, req.DueDate, req.Priority, req.Category,
	)
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusCreated, chore)
	h.publish(r, event.ActionCreate, chore, chore.ID)
}

func (h *ChoreHandler) getOwned(w http.ResponseWriter, r *http.Request) *model.Chore {
	principal, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return nil
	}

	chore, err := h.choreStore.GetByID(id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return nil
	}
	if chore == nil || chore.HouseholdID != principal.HouseholdKey() {
		writeMessage(w, http.StatusNotFound, "Chore not found")
		return nil
	}
	return chore
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.getOwned(w, r)
	if existing == nil {
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.normalize()
	if req.Title == "" {
		writeMessage(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.AssignedTo == 0 {
		req.AssignedTo = existing.AssignedTo
	}
	if req.DueDate.IsZero() {
		req.DueDate = existing.DueDate
	}

	chore, err := h.choreStore.Update(
		existing.ID, req.Title, req.Description, req.AssignedTo,
		req.Frequency, req.DueDate, req.Priority, req.Category,
	)
	if err != nil {
		h.logger.Error("update chore", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, chore)
	h.publish(r, event.ActionUpdate, chore, chore.ID)
}

type completeRequest struct {
	IsCompleted bool `json:"isCompleted"`
}

func (h *ChoreHandler) SetCompleted(w http.ResponseWriter, r *http.Request) {
	existing := h.getOwned(w, r)
	if existing == nil {
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	principal, _ := auth.FromContext(r.Context())
	chore, err := h.choreStore.SetCompleted(existing.ID, req.IsCompleted, principal.UserID)
	if err != nil {
		h.logger.Error("set completed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, chore)
	h.publish(r, event.ActionUpdate, chore, chore.ID)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing := h.getOwned(w, r)
	if existing == nil {
		return
	}

	if err := h.choreStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete chore", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeMessage(w, http.StatusOK, "Chore deleted successfully")
	h.publish(r, event.ActionDelete, nil, existing.ID)
}
