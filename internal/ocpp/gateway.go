package ocpp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"csms/internal/domain/charger"
	"csms/internal/pkg/errors"
)

// SessionHandler is the Session Engine's view from the gateway: the set of
// inbound OCPP events that carry ChargingSession/MeterValue semantics. The
// gateway owns Charger/Fault writes itself and only delegates session state.
type SessionHandler interface {
	// OnBootReconnect runs the reconnection reconciliation described in §4.2
	// when a charger that was offline sends BootNotification again.
	OnBootReconnect(ctx context.Context, chargePointID string) error

	OnStartTransaction(ctx context.Context, chargePointID string, transactionID int64, idTag string, startTime time.Time) error

	OnStopTransaction(ctx context.Context, transactionID int64, stopTime time.Time) error

	OnMeterValue(ctx context.Context, chargePointID string, transactionID int64, timestamp time.Time,
		voltage, currentAmps, powerKW, energyWhTotal *float64) error

	// OnStatusNotification runs session reconciliation for a StatusNotification
	// and returns the availability the gateway should persist on the Charger
	// row, which may differ from the naive status→availability map.
	OnStatusNotification(ctx context.Context, chargePointID, ocppStatus string, now time.Time) (charger.Availability, error)
}

// GatewayConfig carries the OCPP-specific tunables from the process config.
type GatewayConfig struct {
	DefaultCallTimeout       time.Duration
	FirmwareCallTimeout      time.Duration
	DefaultHeartbeatInterval int
	OnlineWindow             time.Duration
}

// EventPublisher is the Gateway's view of the domain-event bus: connect and
// disconnect transitions other consumers (monitoring, notification fan-out)
// want to observe without polling the charger table.
type EventPublisher interface {
	PublishChargerConnected(ctx context.Context, chargePointID, vendor, model string) error
	PublishChargerDisconnected(ctx context.Context, chargePointID string) error
}

// Gateway terminates the OCPP 1.6-J WebSocket channel for every connected
// charge point: one Connection per charger, inbound dispatch into the
// Session Engine and the charger/fault ledger, and a correlated outbound
// call primitive for operator-initiated commands.
type Gateway struct {
	registry  *Registry
	chargers  charger.Repository
	sessions  SessionHandler
	events    EventPublisher
	logger    *zap.Logger
	clockNow  func() time.Time

	defaultTimeout  time.Duration
	firmwareTimeout time.Duration
	defaultHBIntvl  int
	onlineWindow    time.Duration

	upgrader websocket.Upgrader
}

// NewGateway constructs a Gateway. clockNow defaults to time.Now when nil;
// tests may inject a fixed clock.
func NewGateway(chargers charger.Repository, sessions SessionHandler, cfg GatewayConfig, logger *zap.Logger, clockNow func() time.Time) *Gateway {
	if clockNow == nil {
		clockNow = func() time.Time { return time.Now().UTC() }
	}
	return &Gateway{
		registry:        NewRegistry(),
		chargers:        chargers,
		sessions:        sessions,
		logger:          logger,
		clockNow:        clockNow,
		defaultTimeout:  cfg.DefaultCallTimeout,
		firmwareTimeout: cfg.FirmwareCallTimeout,
		defaultHBIntvl:  cfg.DefaultHeartbeatInterval,
		onlineWindow:    cfg.OnlineWindow,
		upgrader: websocket.Upgrader{
			Subprotocols:    []string{"ocpp1.6"},
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Registry exposes the connection table for read-only queries (e.g. the HTTP
// control plane reporting live-connection counts).
func (gw *Gateway) Registry() *Registry { return gw.registry }

// SetSessionHandler wires the Session Engine after construction, breaking
// the Gateway/Session Engine constructor cycle: the engine needs the
// Gateway as its outbound caller, and the Gateway needs the engine as its
// inbound session handler.
func (gw *Gateway) SetSessionHandler(sessions SessionHandler) {
	gw.sessions = sessions
}

// SetEventPublisher wires domain-event publishing; nil (the default) skips it.
func (gw *Gateway) SetEventPublisher(events EventPublisher) {
	gw.events = events
}

// ServeWS upgrades an incoming HTTP request to an OCPP WebSocket connection
// for the charge point named by the {chargePointID} chi route parameter.
func (gw *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	chargePointID := strings.TrimSpace(chi.URLParam(r, "chargePointID"))
	if chargePointID == "" {
		http.Error(w, "charge point id required", http.StatusBadRequest)
		return
	}

	ws, err := gw.upgrader.Upgrade(w, r, nil)
	if err != nil {
		gw.logger.Warn("ocpp upgrade failed", zap.String("charge_point_id", chargePointID), zap.Error(err))
		return
	}
	if ws.Subprotocol() != "ocpp1.6" {
		gw.logger.Warn("ocpp subprotocol rejected", zap.String("charge_point_id", chargePointID))
		_ = ws.Close()
		return
	}

	conn := newConnection(chargePointID, ws, gw.logger)
	if old := gw.registry.Put(chargePointID, conn); old != nil {
		gw.logger.Info("ocpp connection superseded", zap.String("charge_point_id", chargePointID))
		old.Close()
	}

	go conn.writePump()
	gw.readLoop(conn)
}

// readLoop is the charger's inbound message pump: one long-lived goroutine
// per connection, per the process's concurrency model (§5).
func (gw *Gateway) readLoop(conn *Connection) {
	defer func() {
		gw.registry.Delete(conn.chargePointID, conn)
		conn.Close()
		if gw.events != nil {
			if err := gw.events.PublishChargerDisconnected(context.Background(), conn.chargePointID); err != nil {
				gw.logger.Warn("failed to publish charger disconnected event",
					zap.String("charge_point_id", conn.chargePointID), zap.Error(err))
			}
		}
	}()

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			gw.logger.Debug("ocpp read loop ended", zap.String("charge_point_id", conn.chargePointID), zap.Error(err))
			return
		}

		msgType, frame, err := DecodeFrame(raw)
		if err != nil {
			gw.logger.Warn("ocpp malformed frame", zap.String("charge_point_id", conn.chargePointID), zap.Error(err))
			continue
		}

		switch msgType {
		case TypeCall:
			call := frame.(CallFrame)
			gw.dispatchCall(conn, call)
		case TypeCallResult:
			res := frame.(CallResultFrame)
			conn.resolvePending(res.UniqueID, res.Payload)
		case TypeCallError:
			ce := frame.(CallErrorFrame)
			conn.rejectPending(ce.UniqueID, errors.GatewayError(conn.chargePointID, ce.ErrorCode+": "+ce.ErrorDescription))
		}
	}
}

// Call issues an outbound RPC to a connected charger and blocks for its
// CALLRESULT/CALLERROR up to the per-action timeout (§4.1).
func (gw *Gateway) Call(ctx context.Context, chargePointID, action string, payload interface{}) (json.RawMessage, error) {
	conn, ok := gw.registry.Get(chargePointID)
	if !ok {
		return nil, errors.TransportError(chargePointID, "charger not connected")
	}

	uniqueID := uuid.New().String()
	waiter := conn.registerPending(uniqueID)

	frame, err := EncodeCall(uniqueID, action, payload)
	if err != nil {
		conn.forgetPending(uniqueID)
		return nil, errors.Internal("encode ocpp call", err)
	}
	if err := conn.enqueue(frame); err != nil {
		conn.forgetPending(uniqueID)
		return nil, err
	}

	timer := time.NewTimer(gw.actionTimeout(action))
	defer timer.Stop()

	select {
	case res := <-waiter:
		if res.err != nil {
			return nil, res.err
		}
		return json.RawMessage(res.payload), nil
	case <-timer.C:
		conn.forgetPending(uniqueID)
		return nil, errors.TransportTimeout(chargePointID, action)
	case <-ctx.Done():
		conn.forgetPending(uniqueID)
		return nil, ctx.Err()
	}
}

// IsConnected reports whether a charge point currently holds a live socket.
func (gw *Gateway) IsConnected(chargePointID string) bool {
	return gw.registry.IsConnected(chargePointID)
}
