package utils

import (
	"encoding/json"
	"net/http"
	"time"

	"ms-attractions/internal/apperr"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps err to its HTTP status. Unclassified errors never leak their text.
func WriteError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	WriteJSON(w, kind.HTTPStatus(), ErrorResponse(apperr.MessageOf(err), apperr.CodeOf(err)))
}
