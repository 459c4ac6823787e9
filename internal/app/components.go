// Package app wires the CSMS's boot sequence: config, database, the Store,
// the four core engines, the payment-gateway registry, and the HTTP/OCPP
// surfaces that sit on top of them. cmd/api and cmd/worker share this
// wiring through Bootstrap so the Reminder Scheduler and the HTTP process
// see identically constructed engines.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"csms/internal/clock"
	"csms/internal/config"
	"csms/internal/domain/charger"
	sessionengine "csms/internal/engine/session"
	ticketengine "csms/internal/engine/ticket"
	walletengine "csms/internal/engine/wallet"
	"csms/internal/infrastructure/auth"
	"csms/internal/mailer"
	"csms/internal/ocpp"
	"csms/internal/paymentgw"
	"csms/internal/store"
	"csms/pkg/broker/nats/jetstream"
	"csms/pkg/database"
	"csms/pkg/tracing"
)

// Components is every long-lived dependency the API server and the
// Reminder Scheduler are built from.
type Components struct {
	Config *config.Config
	Logger *zap.Logger
	Pool   *pgxpool.Pool
	Store  *store.Store
	Redis  *redis.Client

	Gateway  *ocpp.Gateway
	Sessions *sessionengine.Engine
	Wallets  *walletengine.Engine
	Tickets  *ticketengine.Engine

	PaymentGateways paymentgw.Registry

	JWT       *auth.JWTService
	Passwords *auth.PasswordService
	Mailer    mailer.Mailer

	Events *jetstream.JetStream

	tracingShutdown func(context.Context) error
}

// Bootstrap loads configuration, connects to Postgres, and constructs the
// Store and every engine. It does not start any network listener; callers
// (cmd/api, cmd/worker) decide what to run on top of the result.
func Bootstrap(ctx context.Context) (*Components, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("app: build logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("app: load config: %w", err)
	}
	if cfg.IsDevelopment() {
		if devLogger, err := zap.NewDevelopment(); err == nil {
			logger = devLogger
		}
	}

	tracingShutdown, err := tracing.Bootstrap(ctx, tracing.Config{
		Endpoint:    cfg.OTELExporterEndpoint,
		Insecure:    cfg.OTELExporterInsecure,
		ServiceName: cfg.OTELServiceName,
	})
	if err != nil {
		logger.Warn("tracing unavailable, continuing without it", zap.Error(err))
		tracingShutdown = func(context.Context) error { return nil }
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		ConnMaxIdle:  cfg.DBConnMaxIdleTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("app: connect database: %w", err)
	}

	st := store.New(pool)
	clk := clock.Real{}

	var redisClient *redis.Client
	var chargers charger.Repository = st
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("app: parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, charger reads will hit postgres directly", zap.Error(err))
			redisClient = nil
		} else {
			chargers = store.NewCachedChargerRepository(st, redisClient)
		}
	}

	gateway := ocpp.NewGateway(chargers, nil, ocpp.GatewayConfig{
		DefaultCallTimeout:       cfg.OCPPDefaultCallTimeout,
		FirmwareCallTimeout:      cfg.OCPPFirmwareCallTimeout,
		DefaultHeartbeatInterval: cfg.DefaultHeartbeatInterval,
		OnlineWindow:             cfg.HeartbeatOnlineWindow,
	}, logger, clk.Now)

	sessions := sessionengine.New(st.SessionRepository(), st, gateway, clk, cfg.HeartbeatOnlineWindow, logger)
	gateway.SetSessionHandler(sessions)

	var m mailer.Mailer
	if cfg.MailerEnabled() {
		m = mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, logger)
	} else {
		m = mailer.NewNoopMailer(logger)
	}

	wallets := walletengine.New(st, st.PaymentRepository(), st.AuditRepository(), logger)
	tickets := ticketengine.New(st.TicketRepository(), m, clk, time.Duration(cfg.ReminderCooldownHours)*time.Hour, logger)

	var events *jetstream.JetStream
	if cfg.NATSURL != "" {
		events, err = jetstream.New(jetstream.Config{
			URL:        cfg.NATSURL,
			StreamName: "CSMS_EVENTS",
			Subjects:   []string{"events.>"},
			MaxAge:     7 * 24 * time.Hour,
		})
		if err != nil {
			logger.Warn("domain event bus unavailable, continuing without it", zap.Error(err))
		} else {
			publisher := jetstream.NewPublisher(events, logger, "csms")
			gateway.SetEventPublisher(publisher)
			wallets.SetEventPublisher(publisher)
			tickets.SetEventPublisher(publisher)
			sessions.SetEventPublisher(publisher)
		}
	}

	gateways := paymentgw.Registry{
		"manual": paymentgw.NewManualAdapter(),
		"billplz": paymentgw.NewBillplzAdapter(paymentgw.BillplzConfig{
			APIKey:        cfg.BillplzAPIKey,
			XSignatureKey: cfg.BillplzXSignatureKey,
			CollectionID:  cfg.BillplzCollectionID,
			BaseURL:       cfg.BillplzBaseURL,
			CallbackURL:   cfg.PaymentPublicBaseURL + "/api/payment/callback/billplz",
			RedirectURL:   cfg.PaymentPublicBaseURL + "/payment/complete",
		}),
		"ocbc": paymentgw.NewOCBCAdapter(paymentgw.OCBCConfig{
			ClientID:     cfg.OCBCClientID,
			ClientSecret: cfg.OCBCClientSecret,
			SigningKey:   cfg.OCBCSigningKey,
			BaseURL:      cfg.OCBCBaseURL,
			CallbackURL:  cfg.PaymentPublicBaseURL + "/api/payment/callback/ocbc",
		}),
		"epay": paymentgw.NewEpayAdapter(paymentgw.EpayConfig{
			TerminalID:   cfg.EpayTerminalID,
			ClientID:     cfg.EpayClientID,
			ClientSecret: cfg.EpayClientSecret,
			OAuthURL:     cfg.EpayOAuthURL,
			APIBaseURL:   cfg.EpayAPIBaseURL,
			WidgetJSURL:  cfg.EpayWidgetJSURL,
			CallbackURL:  cfg.PaymentPublicBaseURL + "/api/payment/callback/epay",
		}),
	}

	jwtSvc := auth.NewJWTService(cfg.JWTSecretKey,
		time.Duration(cfg.AccessTokenExpireMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenExpireDays)*24*time.Hour,
		"csms")
	passwordSvc := auth.NewPasswordService()

	return &Components{
		Config:          cfg,
		Logger:          logger,
		Pool:            pool,
		Store:           st,
		Redis:           redisClient,
		Gateway:         gateway,
		Sessions:        sessions,
		Wallets:         wallets,
		Tickets:         tickets,
		PaymentGateways: gateways,
		JWT:             jwtSvc,
		Passwords:       passwordSvc,
		Mailer:          m,
		Events:          events,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Close releases the database pool, the event bus connection, any
// payment-gateway adapter with a background refresher, flushes pending
// trace spans, and flushes the logger.
func (c *Components) Close() {
	if epay, ok := c.PaymentGateways["epay"].(*paymentgw.EpayAdapter); ok {
		epay.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Events != nil {
		c.Events.Close()
	}
	if c.tracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.tracingShutdown(ctx)
	}
	if c.Store != nil {
		c.Store.Close()
	}
	_ = c.Logger.Sync()
}
