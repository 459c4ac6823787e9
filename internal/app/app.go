// Package app assembles the CSMS process: configuration, database, the
// four core engines, the HTTP/OCPP surface, and graceful shutdown.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"csms/internal/domain/user"
	"csms/internal/infrastructure/shutdown"
)

// App is the fully wired CSMS process.
type App struct {
	components *Components
	server     *Server
	ocppServer *Server
	logger     *zap.Logger
}

// New bootstraps every component, the JSON control plane's HTTP server, and
// the OCPP WebSocket gateway's own listener (§6: they are distinct TCP
// ports, since the OCPP surface carries long-lived connections that must
// not inherit the control plane's request write deadline), and seeds the
// configured admin account if it does not already exist.
func New(ctx context.Context) (*App, error) {
	components, err := Bootstrap(ctx)
	if err != nil {
		return nil, err
	}

	if err := seedAdmin(ctx, components); err != nil {
		components.Close()
		return nil, fmt.Errorf("app: seed admin: %w", err)
	}

	router := NewRouter(components)
	server := NewServer(components.Config.HTTPPort, router,
		components.Config.ReadTimeout, components.Config.WriteTimeout, components.Logger)

	ocppRouter := NewOCPPRouter(components)
	ocppServer := NewServer(components.Config.OCPPPort, ocppRouter,
		components.Config.ReadTimeout, 0, components.Logger)

	return &App{
		components: components,
		server:     server,
		ocppServer: ocppServer,
		logger:     components.Logger,
	}, nil
}

// seedAdmin creates the operator account named by AdminEmail/AdminPassword
// if it is not already present, so a freshly migrated database always has
// one admin able to reach the OCPP remote-command and ticket-management
// endpoints.
func seedAdmin(ctx context.Context, c *Components) error {
	if c.Config.AdminEmail == "" || c.Config.AdminPassword == "" {
		return nil
	}

	users := c.Store.UserRepository()
	if _, found, err := users.GetByEmail(ctx, c.Config.AdminEmail); err != nil {
		return err
	} else if found {
		return nil
	}

	hash, err := c.Passwords.HashPassword(c.Config.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = users.Create(ctx, user.Entity{
		Email:        c.Config.AdminEmail,
		PasswordHash: hash,
		FullName:     c.Config.AdminName,
		IsAdmin:      true,
	})
	return err
}

// Run starts the JSON control plane and the OCPP WebSocket listener and
// blocks until SIGINT/SIGTERM, then drains in-flight requests and closes
// the database pool through the phased shutdown manager.
func (a *App) Run() error {
	serverErr := make(chan error, 2)
	go func() {
		if err := a.server.Start(); err != nil {
			serverErr <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := a.ocppServer.Start(); err != nil {
			serverErr <- fmt.Errorf("ocpp server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("app: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	mgr := shutdown.NewManager(a.logger)
	mgr.RegisterDefaultHooks(a.server, a.components.Store)
	mgr.RegisterHook(shutdown.PhaseStopAcceptingRequests, "stop_ocpp_server", a.ocppServer.Shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), a.components.Config.ShutdownTimeout+10*time.Second)
	defer cancel()

	if err := mgr.Shutdown(ctx); err != nil {
		return fmt.Errorf("app: graceful shutdown: %w", err)
	}
	a.logger.Info("application stopped gracefully")
	return nil
}
