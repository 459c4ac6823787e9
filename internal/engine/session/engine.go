// Package sessionengine implements the Session Engine: the sole writer of
// ChargingSession/MeterValue rows and the reconciliation logic that keeps a
// charger's availability consistent with what its sessions actually show.
package sessionengine

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"csms/internal/domain/charger"
	"csms/internal/domain/session"
	"csms/internal/ocpp"
	"csms/internal/pkg/errors"
)

// OutboundCaller is the engine's view of the OCPP Gateway's correlated
// request/response primitive.
type OutboundCaller interface {
	Call(ctx context.Context, chargePointID, action string, payload interface{}) (json.RawMessage, error)
}

// Clock abstracts wall-clock time so reconciliation windows are testable.
type Clock interface {
	Now() time.Time
}

// EventPublisher is the Engine's view of the domain-event bus.
type EventPublisher interface {
	PublishSessionCompleted(ctx context.Context, transactionID int64, chargePointID string, energyKWh float64) error
}

// Engine orchestrates remote_start/remote_stop and the inbound OCPP event
// handlers that mutate ChargingSession/MeterValue state.
type Engine struct {
	sessions session.Repository
	chargers charger.Repository
	caller   OutboundCaller
	clock    Clock
	events   EventPublisher
	logger   *zap.Logger

	onlineWindow time.Duration
}

var _ ocpp.SessionHandler = (*Engine)(nil)

// New constructs a Session Engine.
func New(sessions session.Repository, chargers charger.Repository, caller OutboundCaller, clk Clock, onlineWindow time.Duration, logger *zap.Logger) *Engine {
	return &Engine{
		sessions:     sessions,
		chargers:     chargers,
		caller:       caller,
		clock:        clk,
		onlineWindow: onlineWindow,
		logger:       logger,
	}
}

// SetEventPublisher wires domain-event publishing; nil (the default) skips it.
func (e *Engine) SetEventPublisher(events EventPublisher) {
	e.events = events
}

// RemoteStartResult reports the outcome of RemoteStart, distinguishing a
// confirmed Accepted from a best-effort result after a transport timeout.
type RemoteStartResult struct {
	BestEffort bool `json:"best_effort"`
}

type remoteCommandResponse struct {
	Status string `json:"status"`
}

// RemoteStart pre-allocates a placeholder session and issues
// RemoteStartTransaction to the charger (§4.2).
func (e *Engine) RemoteStart(ctx context.Context, chargePointID string, connectorID int, idTag string) (RemoteStartResult, error) {
	c, err := e.chargers.Get(ctx, chargePointID)
	if err != nil {
		return RemoteStartResult{}, err
	}

	now := e.clock.Now()
	if c.EffectiveStatus(now, e.onlineWindow) != charger.StatusOnline {
		return RemoteStartResult{}, errors.Conflict("charger", "charger is not online")
	}
	if c.Availability != charger.AvailabilityAvailable && c.Availability != charger.AvailabilityPreparing {
		return RemoteStartResult{}, errors.Conflict("charger", "charger is not available to start a session")
	}
	if connectorID < 1 || connectorID > c.NumberOfConnectors {
		return RemoteStartResult{}, errors.ValidationRange("connector_id", 1, c.NumberOfConnectors)
	}

	existing, found, err := e.sessions.OpenOnCharger(ctx, chargePointID)
	if err != nil {
		return RemoteStartResult{}, err
	}
	if found && existing.Status == session.StatusActive {
		return RemoteStartResult{}, errors.Conflict("session", "charger already has an active session")
	}

	priorAvailability := c.Availability
	placeholder := existing
	if !found {
		placeholder, err = e.sessions.Insert(ctx, session.Entity{
			ChargePointID: chargePointID,
			TransactionID: session.PlaceholderTransactionID,
			ConnectorID:   connectorID,
			UserTag:       idTag,
			Status:        session.StatusPending,
			StartTime:     now,
		})
		if err != nil {
			return RemoteStartResult{}, err
		}
	}

	if err := e.chargers.UpdateAvailability(ctx, chargePointID, charger.AvailabilityCharging); err != nil {
		return RemoteStartResult{}, err
	}

	resp, err := e.caller.Call(ctx, chargePointID, ocpp.ActionRemoteStartTransaction,
		ocpp.RemoteStartTransactionPayload{ConnectorID: connectorID, IdTag: idTag})
	if err != nil {
		if errors.GetHTTPStatus(err) == 408 {
			// Best-effort: charger may still start the session locally even
			// though the CALLRESULT never arrived.
			_ = e.chargers.UpdateAvailability(ctx, chargePointID, charger.AvailabilityPreparing)
			return RemoteStartResult{BestEffort: true}, nil
		}
		e.rollbackPlaceholder(ctx, placeholder, priorAvailability)
		return RemoteStartResult{}, err
	}

	var out remoteCommandResponse
	_ = json.Unmarshal(resp, &out)
	if out.Status != "Accepted" {
		e.rollbackPlaceholder(ctx, placeholder, priorAvailability)
		return RemoteStartResult{}, errors.Conflict("remote_start", "charger responded "+out.Status)
	}
	return RemoteStartResult{}, nil
}

func (e *Engine) rollbackPlaceholder(ctx context.Context, placeholder session.Entity, priorAvailability charger.Availability) {
	if placeholder.IsPlaceholder() && placeholder.Status == session.StatusPending {
		if err := e.sessions.Delete(ctx, placeholder.ID); err != nil {
			e.logger.Warn("failed to roll back placeholder session", zap.Int64("session_id", placeholder.ID), zap.Error(err))
		}
	}
	if err := e.chargers.UpdateAvailability(ctx, placeholder.ChargePointID, priorAvailability); err != nil {
		e.logger.Warn("failed to revert availability after rejected remote_start", zap.Error(err))
	}
}

// RemoteStopResult carries the gateway's raw outcome verbatim rather than
// normalizing it, since callers (the HTTP control plane) are expected to
// surface it as-is to the operator.
type RemoteStopResult struct {
	BestEffort bool   `json:"best_effort"`
	RawStatus  string `json:"raw_status"`
}

// RemoteStop issues RemoteStopTransaction, resolving the charger from either
// identifier (§4.2).
func (e *Engine) RemoteStop(ctx context.Context, transactionID int64, chargePointID string) (RemoteStopResult, error) {
	if chargePointID == "" {
		if transactionID <= 0 {
			return RemoteStopResult{}, errors.ValidationRequired("charger_id")
		}
		s, found, err := e.sessions.ByTransactionID(ctx, transactionID)
		if err != nil {
			return RemoteStopResult{}, err
		}
		if !found {
			return RemoteStopResult{}, errors.NotFoundWithID("session", strconv.FormatInt(transactionID, 10))
		}
		chargePointID = s.ChargePointID
	}

	idToSend := transactionID
	if idToSend <= 0 {
		idToSend = 0
	}

	resp, err := e.caller.Call(ctx, chargePointID, ocpp.ActionRemoteStopTransaction,
		ocpp.RemoteStopTransactionPayload{TransactionID: idToSend})
	if err != nil {
		if errors.GetHTTPStatus(err) == 408 {
			e.markStopping(ctx, chargePointID, transactionID)
			return RemoteStopResult{BestEffort: true, RawStatus: "NoResponse"}, nil
		}
		return RemoteStopResult{}, err
	}

	var out remoteCommandResponse
	_ = json.Unmarshal(resp, &out)
	if out.Status == "Accepted" {
		e.markStopping(ctx, chargePointID, transactionID)
	}
	return RemoteStopResult{RawStatus: out.Status}, nil
}

func (e *Engine) markStopping(ctx context.Context, chargePointID string, transactionID int64) {
	var s session.Entity
	var found bool
	var err error

	if transactionID > 0 {
		s, found, err = e.sessions.ByTransactionID(ctx, transactionID)
	} else {
		s, found, err = e.sessions.OpenOnCharger(ctx, chargePointID)
	}
	if err != nil || !found {
		return
	}
	s.Status = session.StatusStopping
	if err := e.sessions.Update(ctx, s); err != nil {
		e.logger.Warn("failed to mark session stopping", zap.Error(err))
	}
}

// OnBootReconnect runs the reconnection reconciliation: if the DB shows a
// session that was evidently still in progress, trust it over unknown
// post-reconnect state (§4.2).
func (e *Engine) OnBootReconnect(ctx context.Context, chargePointID string) error {
	s, found, err := e.sessions.OpenOnCharger(ctx, chargePointID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	now := e.clock.Now()
	trust := (s.Status == session.StatusActive && s.TransactionID > 0) ||
		(s.Status == session.StatusPending && s.IsPlaceholder() && now.Sub(s.StartTime) < 10*time.Minute)

	if trust {
		return e.chargers.UpdateAvailability(ctx, chargePointID, charger.AvailabilityCharging)
	}
	return nil
}

// OnStartTransaction binds a charger-confirmed transaction to the pending
// placeholder, or creates/updates an active session directly (§4.2).
func (e *Engine) OnStartTransaction(ctx context.Context, chargePointID string, transactionID int64, idTag string, startTime time.Time) error {
	existing, found, err := e.sessions.OpenOnCharger(ctx, chargePointID)
	if err != nil {
		return err
	}

	switch {
	case found && existing.IsPlaceholder():
		if err := e.sessions.Delete(ctx, existing.ID); err != nil {
			return err
		}
		if _, err := e.sessions.Insert(ctx, session.Entity{
			ChargePointID: chargePointID,
			TransactionID: transactionID,
			ConnectorID:   existing.ConnectorID,
			UserTag:       idTag,
			Status:        session.StatusActive,
			StartTime:     startTime,
		}); err != nil {
			return err
		}
	case found:
		existing.TransactionID = transactionID
		existing.UserTag = idTag
		existing.StartTime = startTime
		existing.Status = session.StatusActive
		if err := e.sessions.Update(ctx, existing); err != nil {
			return err
		}
	default:
		if _, err := e.sessions.Insert(ctx, session.Entity{
			ChargePointID: chargePointID,
			TransactionID: transactionID,
			ConnectorID:   1,
			UserTag:       idTag,
			Status:        session.StatusActive,
			StartTime:     startTime,
		}); err != nil {
			return err
		}
	}

	if err := e.chargers.UpdateAvailability(ctx, chargePointID, charger.AvailabilityCharging); err != nil {
		return err
	}
	return e.chargers.UpdateHeartbeat(ctx, chargePointID, startTime)
}

// OnStopTransaction terminalizes the session bound to transactionID.
func (e *Engine) OnStopTransaction(ctx context.Context, transactionID int64, stopTime time.Time) error {
	s, found, err := e.sessions.ByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}
	if !found {
		return errors.NotFoundWithID("session", strconv.FormatInt(transactionID, 10))
	}

	s.Status = session.StatusCompleted
	stop := stopTime
	s.StopTime = &stop
	if err := e.sessions.Update(ctx, s); err != nil {
		return err
	}
	if err := e.chargers.UpdateAvailability(ctx, s.ChargePointID, charger.AvailabilityAvailable); err != nil {
		return err
	}

	if e.events != nil {
		if err := e.events.PublishSessionCompleted(ctx, s.TransactionID, s.ChargePointID, s.EnergyKWh); err != nil {
			e.logger.Warn("failed to publish session completed event", zap.Int64("transaction_id", s.TransactionID), zap.Error(err))
		}
	}
	return nil
}

// OnMeterValue appends one telemetry row and, when it carries a cumulative
// energy reading, updates the owning session's energy_kwh.
func (e *Engine) OnMeterValue(ctx context.Context, chargePointID string, transactionID int64, timestamp time.Time,
	voltage, currentAmps, powerKW, energyWhTotal *float64) error {

	if err := e.sessions.AppendMeterValue(ctx, session.MeterValue{
		ChargePointID: chargePointID,
		TransactionID: transactionID,
		Timestamp:     timestamp,
		Voltage:       voltage,
		CurrentAmps:   currentAmps,
		PowerKW:       powerKW,
		EnergyWhTotal: energyWhTotal,
	}); err != nil {
		return err
	}

	if energyWhTotal == nil {
		return nil
	}

	var s session.Entity
	var found bool
	var err error
	if transactionID > 0 {
		s, found, err = e.sessions.ByTransactionID(ctx, transactionID)
	} else {
		s, found, err = e.sessions.OpenOnCharger(ctx, chargePointID)
	}
	if err != nil || !found {
		return err
	}

	s.EnergyKWh = *energyWhTotal / 1000
	return e.sessions.Update(ctx, s)
}

// OnStatusNotification runs the session-reconciliation rules of §4.2 and
// returns the availability the gateway should persist on the Charger row.
func (e *Engine) OnStatusNotification(ctx context.Context, chargePointID, ocppStatus string, now time.Time) (charger.Availability, error) {
	mapped := charger.StatusNotificationAvailability(ocppStatus)
	if ocppStatus != "Available" && ocppStatus != "Preparing" {
		return mapped, nil
	}

	s, found, err := e.sessions.OpenOnCharger(ctx, chargePointID)
	if err != nil {
		return "", err
	}
	if !found {
		return mapped, nil
	}

	if s.Status == session.StatusActive && s.TransactionID > 0 {
		age := now.Sub(s.StartTime)
		if age < 120*time.Second {
			return charger.AvailabilityCharging, nil
		}
		stop := now
		s.Status = session.StatusCompleted
		s.StopTime = &stop
		if err := e.sessions.Update(ctx, s); err != nil {
			return "", err
		}
		return mapped, nil
	}

	if s.IsPlaceholder() && s.Open() {
		stop := now
		s.Status = session.StatusCompleted
		s.StopTime = &stop
		if err := e.sessions.Update(ctx, s); err != nil {
			return "", err
		}
	}

	return mapped, nil
}
