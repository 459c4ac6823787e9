package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	errors2 "csms/internal/pkg/errors"
	httputil2 "csms/internal/pkg/httputil"

	"go.uber.org/zap"

	"csms/internal/infrastructure/log"
)

// ErrorHandler is a middleware that recovers from panics and handles errors
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("error", rec),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					cause, ok := rec.(error)
					if !ok {
						cause = fmt.Errorf("%v", rec)
					}
					respondError(w, r, errors2.Internal("unhandled panic", cause))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// respondError writes an error response
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.FromContext(r.Context())

	// Determine HTTP status code
	status := errors2.GetHTTPStatus(err)

	// Log the error
	if httputil2.IsServerError(status) {
		logger.Error("internal error",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
		)
	} else {
		logger.Warn("client error",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Int("status", status),
		)
	}

	// Write response
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := errors2.FromError(err)
	json.NewEncoder(w).Encode(response)
}
