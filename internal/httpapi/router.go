package httpapi

import (
	chiprometheus "github.com/766b/chi-prometheus"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"csms/internal/pkg/middleware"
)

// RouterConfig bundles every handler and cross-cutting dependency needed to
// assemble the HTTP control plane's route tree.
type RouterConfig struct {
	Auth        *AuthHandler
	Charging    *ChargingHandler
	OCPPAdmin   *OCPPAdminHandler
	Payment     *PaymentHandler
	Ticket      *TicketHandler
	AuthMW      *middleware.AuthMiddleware
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter assembles the CSMS's JSON control plane: the REST API grouped by
// auth requirement (public, owner-authenticated, admin-only, shared-secret)
// per §6. The OCPP WebSocket surface is a separate listener built by
// NewOCPPRouter, since it has its own port and connection lifetime.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing(cfg.Logger))
	r.Use(middleware.ErrorHandler(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Heartbeat("/health"))
	r.Use(chiprometheus.NewMiddleware("csms"))
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Callback-Secret"},
		AllowCredentials: true,
	}))

	// Request-count/latency histograms registered by chiprometheus above.
	r.Handle("/metrics", promhttp.Handler())

	// Interactive API docs, generated by swag from handler annotations into
	// docs/swagger.json (run `swag init` to regenerate; the generated docs
	// package self-registers with swag's doc registry on import).
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", cfg.Auth.Register)
		r.Post("/auth/login", cfg.Auth.Login)
		r.Post("/auth/refresh", cfg.Auth.Refresh)

		// Shared-secret authenticated: the payment gateway's own callback,
		// never a bearer-token user.
		r.Post("/payment/callback/{gateway}", cfg.Payment.Callback)

		// Owner-authenticated.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMW.Authenticate)

			r.Get("/auth/me", cfg.Auth.Me)

			r.Post("/charging/start", cfg.Charging.Start)
			r.Post("/charging/stop", cfg.Charging.Stop)

			r.Post("/payment/topup", cfg.Payment.Topup)
			r.Get("/payment/transactions", cfg.Payment.ListTransactions)

			r.Post("/tickets", cfg.Ticket.Create)
			r.Get("/tickets/{ticketNumber}", cfg.Ticket.Get)
			r.Post("/tickets/{ticketNumber}/reply", cfg.Ticket.Reply)
		})

		// Staff-only ticket management: visibility is further scoped inside
		// the handler (admin/manager/staff), but every route here requires
		// at minimum an authenticated support-staff principal.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMW.Authenticate)
			r.Get("/tickets", cfg.Ticket.List)
			r.Patch("/tickets/{ticketNumber}/status", cfg.Ticket.SetStatus)
			r.Patch("/tickets/{ticketNumber}/priority", cfg.Ticket.SetPriority)
		})

		// Admin-only: manual-gateway approval and every outbound OCPP
		// remote command (§6: "One endpoint per outbound action").
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMW.Authenticate)
			r.Use(cfg.AuthMW.RequireAdmin)

			r.Post("/payment/approve/{ref}", cfg.Payment.Approve)

			r.Route("/ocpp/{chargePointID}", func(r chi.Router) {
				r.Post("/remote-start", cfg.OCPPAdmin.RemoteStart)
				r.Post("/remote-stop", cfg.OCPPAdmin.RemoteStop)
				r.Get("/configuration", cfg.OCPPAdmin.GetConfiguration)
				r.Post("/configuration", cfg.OCPPAdmin.ChangeConfiguration)
				r.Post("/availability", cfg.OCPPAdmin.ChangeAvailability)
				r.Post("/clear-cache", cfg.OCPPAdmin.ClearCache)
				r.Post("/reset", cfg.OCPPAdmin.Reset)
				r.Post("/unlock-connector", cfg.OCPPAdmin.UnlockConnector)
				r.Post("/diagnostics", cfg.OCPPAdmin.GetDiagnostics)
				r.Post("/firmware", cfg.OCPPAdmin.UpdateFirmware)
				r.Post("/reserve-now", cfg.OCPPAdmin.ReserveNow)
				r.Post("/cancel-reservation", cfg.OCPPAdmin.CancelReservation)
				r.Post("/data-transfer", cfg.OCPPAdmin.DataTransfer)
				r.Get("/local-list-version", cfg.OCPPAdmin.GetLocalListVersion)
				r.Post("/local-list", cfg.OCPPAdmin.SendLocalList)
				r.Post("/trigger-message", cfg.OCPPAdmin.TriggerMessage)
				r.Get("/composite-schedule", cfg.OCPPAdmin.GetCompositeSchedule)
				r.Post("/clear-charging-profile", cfg.OCPPAdmin.ClearChargingProfile)
				r.Post("/charging-profile", cfg.OCPPAdmin.SetChargingProfile)
			})
		})
	})

	return r
}
