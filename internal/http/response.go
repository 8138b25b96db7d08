package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"spendwatch/internal/api"
	"spendwatch/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

var validationErrors = []error{
	core.ErrInvalidType,
	core.ErrInvalidAmount,
	core.ErrEmptyCategory,
	core.ErrEmptyMode,
	core.ErrDescriptionLong,
	core.ErrInvalidThreshold,
	core.ErrEmptySettings,
}

// statusFor maps a service error to the status returned to the caller and
// the message that is safe to show.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, core.ErrInvalidTimeframe):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, api.ErrNoToken), errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized, "missing or expired session"
	case errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound, "not found"
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity, v.Error()
		}
	}

	var se *api.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests, "upstream rate limit exceeded"
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			msg := se.Message
			if msg == "" {
				msg = "rejected by upstream"
			}
			return http.StatusUnprocessableEntity, msg
		}
		return http.StatusBadGateway, "upstream error"
	}

	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusBadGateway, "upstream unavailable"
	}
	return http.StatusInternalServerError, "internal error"
}
