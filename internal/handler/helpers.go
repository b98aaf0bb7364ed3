package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/parisxmas/OxiDB/OxiForms/internal/airtable"
	"github.com/parisxmas/OxiDB/OxiForms/internal/formlogic"
	"github.com/parisxmas/OxiDB/OxiForms/internal/service"
)

const maxBodyBytes = 1 << 20

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors onto HTTP statuses. Unexpected
// errors are logged and reported as fallback.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verrs formlogic.Errors
	var apiErr *airtable.APIError
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": verrs.Messages()})
	case errors.Is(err, service.ErrInvalidForm):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrFormNotFound):
		writeError(w, http.StatusNotFound, "Form not found")
	case errors.Is(err, service.ErrResponseNotFound):
		writeError(w, http.StatusNotFound, "Response not found")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "Not authorized")
	case errors.As(err, &apiErr):
		slog.Warn("airtable request failed",
			slog.String("path", r.URL.Path),
			slog.Int("airtableStatus", apiErr.Status),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fallback, "message": apiErr.Message})
	default:
		slog.Error(fallback, slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
