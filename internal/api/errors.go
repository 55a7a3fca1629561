// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeBadRequest writes a 400 response carrying err's message
func writeBadRequest(w http.ResponseWriter, err error) {
	writeErrorCode(w, http.StatusBadRequest, err.Error())
}

// writeNotFound writes a 404 Not Found response
func writeNotFound(w http.ResponseWriter, err error) {
	writeErrorCode(w, http.StatusNotFound, err.Error())
}

func writeUnprocessable(w http.ResponseWriter, err error) {
	writeErrorCode(w, http.StatusUnprocessableEntity, err.Error())
}

// writeServiceUnavailable writes a 503 Service Unavailable response
func writeServiceUnavailable(w http.ResponseWriter, err error) {
	writeErrorCode(w, http.StatusServiceUnavailable, err.Error())
}

func writeInternal(w http.ResponseWriter) {
	writeErrorCode(w, http.StatusInternalServerError, "internal server error")
}
