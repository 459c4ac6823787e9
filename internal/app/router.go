package app

import (
	"github.com/go-chi/chi/v5"

	"csms/internal/httpapi"
	"csms/internal/pkg/middleware"
)

// NewRouter builds every HTTP handler from c and assembles the chi router.
func NewRouter(c *Components) *chi.Mux {
	authHandler := httpapi.NewAuthHandler(c.Store.UserRepository(), c.JWT, c.Passwords, c.Logger)
	chargingHandler := httpapi.NewChargingHandler(c.Sessions)
	ocppAdminHandler := httpapi.NewOCPPAdminHandler(c.Gateway, c.Logger)
	paymentHandler := httpapi.NewPaymentHandler(c.Store.PaymentRepository(), c.Wallets, c.PaymentGateways,
		c.Config.PaymentCallbackSecret, c.Config.PaymentPublicBaseURL, c.Logger)
	ticketHandler := httpapi.NewTicketHandler(c.Store.TicketRepository(), c.Tickets)
	authMW := middleware.NewAuthMiddleware(c.JWT)

	return httpapi.NewRouter(httpapi.RouterConfig{
		Auth:        authHandler,
		Charging:    chargingHandler,
		OCPPAdmin:   ocppAdminHandler,
		Payment:     paymentHandler,
		Ticket:      ticketHandler,
		AuthMW:      authMW,
		CORSOrigins: c.Config.CORSOrigins,
		Logger:      c.Logger,
	})
}

// NewOCPPRouter builds the standalone mux for the OCPP WebSocket listener.
func NewOCPPRouter(c *Components) *chi.Mux {
	return httpapi.NewOCPPRouter(c.Gateway, c.Logger)
}
