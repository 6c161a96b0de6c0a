package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/micasa-app/micasa/internal/auth"
	"github.com/micasa-app/micasa/internal/model"
	"github.com/micasa-app/micasa/internal/store"
)

type AuthHandler struct {
	userStore *store.UserStore
	jwtSecret []byte
	logger    *slog.Logger
}

func NewAuthHandler(us *store.UserStore, jwtSecret []byte, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userStore: us, jwtSecret: jwtSecret, logger: logger}
}

type authResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	PartnerID   *int64 `json:"partnerId"`
	Token       string `json:"token"`
}

func (h *AuthHandler) authResponse(u *model.User) (*authResponse, error) {
	token, err := auth.GenerateToken(u.ID, h.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &authResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		PartnerID:   u.PartnerID,
		Token:       token,
	}, nil
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.Username == "" || req.DisplayName == "" {
		writeMessage(w, http.StatusBadRequest, "Username and display name are required")
		return
	}
	if len(req.Password) < 8 {
		writeMessage(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	user, err := h.userStore.Create(req.Username, req.DisplayName, string(hash))
	if err == store.ErrUsernameTaken {
		writeMessage(w, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	resp, err := h.authResponse(user)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error during registration")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	user, err := h.userStore.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error during login")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	resp, err := h.authResponse(user)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error during login")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	user, err := h.userStore.GetByID(principal.UserID)
	if err != nil || user == nil {
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type linkPartnerRequest struct {
	PartnerUsername string `json:"partnerUsername"`
}

// LinkPartner pairs the caller with another user. Both rows are
// updated so the tenant key resolves identically from either side.
func (h *AuthHandler) LinkPartner(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	var req linkPartnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	partner, err := h.userStore.GetByUsername(strings.TrimSpace(req.PartnerUsername))
	if err != nil {
		h.logger.Error("get partner", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if partner == nil {
		writeMessage(w, http.StatusNotFound, "Partner not found")
		return
	}
	if partner.ID == principal.UserID {
		writeMessage(w, http.StatusBadRequest, "Cannot link to yourself")
		return
	}

	if err := h.userStore.LinkPartner(principal.UserID, partner.ID); err != nil {
		h.logger.Error("link partner", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Partner linked successfully",
		"partnerId": partner.ID,
	})
}
