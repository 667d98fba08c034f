package http

import (
	"encoding/json"
	"net/http"

	apperrors "cinebook/pkg/errors"
)

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type PaginatedResponse struct {
	Success bool  `json:"success"`
	Data    any   `json:"data"`
	Count   int   `json:"count"`
	Limit   int   `json:"limit"`
	Offset  int64 `json:"offset"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError renders err as {"success":false,"message":...}. Gateway and
// internal failures get a generic message.
func WriteError(w http.ResponseWriter, err error) {
	_ = apperrors.WriteError(w, err)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

func WritePaginated(w http.ResponseWriter, data any, count int, limit int, offset int64) {
	WriteJSON(w, http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Count:   count,
		Limit:   limit,
		Offset:  offset,
	})
}
