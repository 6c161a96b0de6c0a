package realtime

import (
	"net/http"
	"strings"

	ws "github.com/coder/websocket"

	"github.com/micasa-app/micasa/internal/auth"
)

// Authenticator resolves a bearer token to a live Principal.
type Authenticator func(token string) (auth.Principal, error)

// HandleWebSocket returns an HTTP handler that authenticates the
// bearer credential, upgrades the connection, and runs it as a hub
// client. Browsers cannot set headers on WebSocket requests, so the
// token is also accepted as a query parameter.
func HandleWebSocket(hub *Hub, authenticate Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "Not authorized, no token", http.StatusUnauthorized)
			return
		}

		principal, err := authenticate(token)
		if err != nil {
			http.Error(w, "Not authorized, token failed", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Household clients connect from app origins we don't control
		})
		if err != nil {
			hub.logger.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, principal)
		client.Run(r.Context())
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
