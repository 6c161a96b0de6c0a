package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/micasa-app/micasa/internal/auth"
	"github.com/micasa-app/micasa/internal/store"
)

// ResolvePrincipal verifies a bearer token and resolves it to a live
// Principal carrying the user's current partner link. Returns
// auth.ErrInvalidCredential or auth.ErrUnknownPrincipal.
func ResolvePrincipal(userStore *store.UserStore, secret []byte, token string) (auth.Principal, error) {
	userID, err := auth.VerifyToken(token, secret)
	if err != nil {
		return auth.Principal{}, err
	}

	user, err := userStore.GetByID(userID)
	if err != nil {
		return auth.Principal{}, err
	}
	if user == nil {
		return auth.Principal{}, auth.ErrUnknownPrincipal
	}

	return auth.Principal{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		PartnerID:   user.PartnerID,
	}, nil
}

// RequireAuth validates the bearer credential and attaches the
// resolved Principal to the request context. Missing, invalid, and
// orphaned credentials are each rejected before any resource access,
// with no partial state created.
func RequireAuth(userStore *store.UserStore, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "Not authorized, no token")
				return
			}

			principal, err := ResolvePrincipal(userStore, secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrUnknownPrincipal):
					unauthorized(w, "Not authorized, user not found")
				case errors.Is(err, auth.ErrInvalidCredential):
					unauthorized(w, "Not authorized, token failed")
				default:
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{"message": "Server error"})
				}
				return
			}

			ctx := auth.WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
