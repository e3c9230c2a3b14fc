package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/endpoint"
	"github.com/shamank/zgstore-go/pkg/model"
	"github.com/shamank/zgstore-go/pkg/sdk"
	"github.com/shamank/zgstore-go/pkg/storage"
)

// MsgUnavailable is shown when no storage endpoint answered.
const MsgUnavailable = "storage network unavailable, try again"

// statusFor maps an operation error to an HTTP status and the message shown
// to the client.
func statusFor(err error) (int, string) {
	switch {
	case sdk.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, endpoint.ErrAllEndpointsUnavailable):
		return http.StatusServiceUnavailable, MsgUnavailable
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, storage.ErrMalformedPayload):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error(op+" failed", zap.Int("status", status), zap.Error(err))
	} else {
		zap.L().Info(op+" failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, model.Response{Success: false, Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, model.Response{Success: false, Error: msg})
}
