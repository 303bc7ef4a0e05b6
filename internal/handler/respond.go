package handler

import (
	"encoding/json"
	"log"
	"net/http"
)

// Every panel endpoint answers JSON carrying a boolean success flag.
// The admin pages key off the flag rather than the status code, so
// failures always carry both a reason string and a matching status.

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, extra map[string]interface{}) {
	body := map[string]interface{}{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeFailure(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": reason})
}
