package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// connectionHeader carries the caller's real-time connection id so the
// broadcast sink can skip echoing the mutation back to the actor.
const connectionHeader = "X-Micasa-Connection"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func originConnection(r *http.Request) string {
	return r.Header.Get(connectionHeader)
}
