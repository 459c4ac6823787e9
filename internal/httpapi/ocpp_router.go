package httpapi

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"csms/internal/ocpp"
	"csms/internal/pkg/middleware"
)

// NewOCPPRouter builds the standalone mux for the OCPP WebSocket surface
// (§6: "WebSocket server listening on TCP port 9000 (configurable)"). It is
// mounted on its own listener rather than the JSON control plane's, since
// OCPP connections are long-lived and must not inherit the control plane's
// request write deadline.
func NewOCPPRouter(gateway *ocpp.Gateway, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing(logger))
	r.Use(chimiddleware.Recoverer)

	// §4.1: the charge point connects to "/<charge_point_id>" directly, not
	// under a "/ws/" prefix.
	r.Get("/{chargePointID}", gateway.ServeWS)

	return r
}
