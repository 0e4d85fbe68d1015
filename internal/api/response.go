package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the standard failure envelope: {"ok":false,"error":code}.
func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]interface{}{"ok": false, "error": code})
}

// writeStorageError surfaces a 500 with the raw failure message, matching
// the read_error/write_error contract the dashboard relies on.
func writeStorageError(w http.ResponseWriter, code string, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"ok":     false,
		"error":  code,
		"detail": err.Error(),
	})
}
