package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/psycacid/musichub/logger"
	"github.com/psycacid/musichub/repository"
	"github.com/psycacid/musichub/storage"
)

// statusFor maps the catalog error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var ve *repository.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, storage.ErrAssetNotFound):
		return http.StatusNotFound
	default:
		// WriteError, PersistenceError and anything unclassified.
		return http.StatusInternalServerError
	}
}

// writeError logs then responds. Client errors are logged at debug level.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg,
			logger.String("requestId", RequestIDFromContext(r.Context())),
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
	} else {
		logger.Debug(msg,
			logger.String("requestId", RequestIDFromContext(r.Context())),
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
	}

	text := err.Error()
	if status >= http.StatusInternalServerError {
		text = msg
	}
	http.Error(w, text, status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", logger.ErrorField(err))
	}
}
