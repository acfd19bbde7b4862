package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"media-manager/internal/bulk"
	"media-manager/internal/database"
	"media-manager/internal/logging"
	"media-manager/internal/optimizer"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeError maps a service error to an HTTP status and writes the standard
// failure envelope.
func writeError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "internal server error"

	var verrs validation.Errors

	switch {
	case errors.As(err, &verrs):
		statusCode = http.StatusBadRequest
		message = verrs.Error()
	case errors.Is(err, database.ErrValidation):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, database.ErrNotFound):
		statusCode = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, database.ErrNameConflict),
		errors.Is(err, database.ErrFolderNotEmpty),
		errors.Is(err, database.ErrCycle),
		errors.Is(err, bulk.ErrBusy):
		statusCode = http.StatusConflict
		message = err.Error()
	case errors.Is(err, bulk.ErrEmptySelection):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, optimizer.ErrEncoding):
		statusCode = http.StatusUnprocessableEntity
		message = err.Error()
	default:
		logging.Error("request failed: %v", err)
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// decodeJSON reads the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", database.ErrValidation, err)
	}
	return nil
}
