package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/espacoca/agenda/services/agenda-service/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain errors onto HTTP statuses. Unknown errors become an
// opaque 500; the details go to the log, not the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *booking.ValidationError
	var cerr *booking.ConflictError
	var nerr *booking.NotFoundError
	switch {
	case errors.As(err, &verr):
		writeErrorMsg(w, http.StatusBadRequest, verr.Msg)
	case errors.As(err, &cerr):
		writeErrorMsg(w, http.StatusConflict, cerr.Error())
	case errors.As(err, &nerr):
		writeErrorMsg(w, http.StatusNotFound, nerr.Msg)
	default:
		logger.Error("request failed", "err", err)
		writeErrorMsg(w, http.StatusInternalServerError, "erro interno, tente novamente")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}
