package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Response statuses are part of the external contract.
const (
	statusSuccess        = "SUCCESS"
	statusFailed         = "FAILED"
	statusAuthSuccess    = "AUTH_SUCCESS"
	statusAuthFailed     = "AUTH_FAILED"
	statusUserNotExist   = "USER_NOT_EXIST"
	statusError          = "ERROR"
	statusInvalidRequest = "INVALID_REQUEST"
)

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeStatus(w http.ResponseWriter, code int, status, message string) {
	writeJSON(w, code, statusResponse{Status: status, Message: message})
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeStatus(w, http.StatusMethodNotAllowed, statusInvalidRequest, "method not allowed")
}
