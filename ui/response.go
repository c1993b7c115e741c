package ui

import (
	"net/http"

	"github.com/goccy/go-json"

	"gobrick/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"INTERNAL_ERROR","message":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func errorBody(code, message string) map[string]string {
	return map[string]string{"error": code, "message": message}
}

func (a *App) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		a.logger.Error("request failed: %v", err)
	} else {
		a.logger.Debug("request rejected: %v", err)
	}
	writeJSON(w, status, errorBody(errors.GetCode(err), err.Error()))
}
