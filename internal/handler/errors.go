package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fleetlog/backend/internal/domain"
)

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the flat error body the mobile and admin clients parse:
// {"error": <message>}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// writeServiceError maps a service-layer error onto the HTTP surface.
//
// Sequencing rejections carry the conflicting prior value so the client can
// render "must exceed X": lastOdometer for the odometer rule, lastDate for
// the departure rule. Infrastructure errors are logged and returned as a
// generic 500 — their details never reach the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var seq *domain.SequenceError
	if errors.As(err, &seq) {
		body := map[string]any{"error": unwrapMessage(err)}
		if seq.LastOdometer != nil {
			body["lastOdometer"] = *seq.LastOdometer
		}
		if seq.LastDeparture != nil {
			body["lastDate"] = seq.LastDeparture.Format(time.RFC3339)
		}
		writeJSON(w, http.StatusBadRequest, body)
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, unwrapMessage(err))
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, unwrapMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "trip not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "a concurrent trip took this odometer slot; retry with fresh data")
	default:
		slog.ErrorContext(r.Context(), "internal error", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// unwrapMessage strips the layer prefixes and the sentinel text from a
// wrapped error, leaving the human-readable part.
// e.g. "service.TripService.Create: forbidden: driver is not assigned to
// this vehicle" → "driver is not assigned to this vehicle".
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []string{
		domain.ErrValidation.Error() + ": ",
		domain.ErrForbidden.Error() + ": ",
	} {
		if i := strings.Index(msg, sentinel); i >= 0 {
			return msg[i+len(sentinel):]
		}
	}
	// No detail beyond the sentinel — drop any "pkg.Type.Method: " prefixes.
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
