package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"scenewatch/internal/errs"
	"scenewatch/internal/logger"
)

// errorResponse is the body of every non-2xx response. Detail is
// human-readable; internal identifiers and stack traces never appear here.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string, logger *logger.Logger) {
	writeJSON(w, status, errorResponse{Detail: detail}, logger)
}

// writeDomainError maps a domain error to its status code.
func writeDomainError(w http.ResponseWriter, err error, logger *logger.Logger) {
	switch {
	case errs.IsValidation(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), logger)
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "scene not found", logger)
	case errs.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, err.Error(), logger)
	case errs.IsDatabase(err):
		logger.Error("Storage failure: %v", err)
		writeError(w, http.StatusInternalServerError, "storage failure", logger)
	default:
		logger.Error("Processing failure: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error(), logger)
	}
}

// atoiDefault parses s as a positive integer, falling back to def.
func atoiDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
