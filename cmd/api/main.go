// Command api runs the CSMS HTTP/OCPP server: the WebSocket gateway that
// terminates OCPP 1.6-J connections from charge points, and the JSON
// control plane for auth, charging, payments, and support tickets.
//
// Required environment: DATABASE_URL, JWT_SECRET_KEY. Apply pending schema
// migrations first with cmd/migrate before starting this process.
//
// @title CSMS API
// @version 1.0
// @description Central System for EV charge point management, wallet top-ups, and support tickets.

// @host localhost:8000
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT access token.
package main

import (
	"context"
	"log"

	"csms/internal/app"
)

func main() {
	application, err := app.New(context.Background())
	if err != nil {
		log.Fatalf("failed to bootstrap csms: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("csms exited with error: %v", err)
	}
}
