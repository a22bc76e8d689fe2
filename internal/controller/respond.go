// internal/controller/respond.go
package controller

import (
	"encoding/json"
	"net/http"

	appErrors "github.com/unclebandit/newsboard-backend/internal/errors"
)

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the service error taxonomy onto HTTP codes with a
// machine-readable kind.
func writeError(w http.ResponseWriter, err error) {
	kind := "internal"
	code := http.StatusInternalServerError

	switch {
	case appErrors.IsNotFound(err):
		kind = "not_found"
		code = http.StatusNotFound
	case appErrors.IsInvalidState(err):
		kind = "invalid_state"
		code = http.StatusConflict
	case appErrors.IsValidation(err):
		kind = "validation"
		code = http.StatusBadRequest
	}

	writeJSON(w, code, map[string]string{
		"error": err.Error(),
		"kind":  kind,
	})
}
