package utils

import (
	"encoding/json"
	"net/http"

	"github.com/nijaru/vidsight/errors"
	"github.com/sirupsen/logrus"
)

// HandleError writes message as a JSON error body.
func HandleError(w http.ResponseWriter, message string, statusCode int) {
	RespondWithJSON(w, statusCode, map[string]string{"error": message})
}

// RespondWithError writes err using the status and kind it carries. Errors
// without a kind are reported as a generic internal error.
func RespondWithError(w http.ResponseWriter, err error) {
	code := errors.StatusCode(err)
	kind := errors.KindOf(err)

	message := "Internal server error"
	var appErr *errors.Error
	if e, ok := err.(*errors.Error); ok {
		appErr = e
		message = appErr.Message
	}

	entry := logrus.WithFields(logrus.Fields{
		"status_code": code,
		"kind":        kind,
		"error":       err.Error(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	RespondWithJSON(w, code, map[string]string{
		"error": message,
		"kind":  string(kind),
	})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
	}
}
