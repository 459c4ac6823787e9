package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"csms/internal/pkg/errors"
	"csms/internal/pkg/logutil"
)

// respondErr writes a domain error as a JSON ErrorResponse at its mapped
// HTTP status, mirroring the ErrorHandler middleware's panic-path format so
// every error response on the plane has one shape.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.GetHTTPStatus(err)
	logger := logutil.FromContext(r.Context())
	if status >= 500 {
		logger.Error("request failed", zap.Error(err), zap.String("path", r.URL.Path))
	} else {
		logger.Warn("request rejected", zap.Error(err), zap.String("path", r.URL.Path), zap.Int("status", status))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errors.FromError(err))
}
