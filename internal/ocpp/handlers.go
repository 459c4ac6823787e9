package ocpp

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"csms/internal/domain/charger"
	"csms/internal/pkg/errors"
)

type bootNotificationReq struct {
	ChargePointVendor string `json:"chargePointVendor"`
	ChargePointModel  string `json:"chargePointModel"`
	FirmwareVersion   string `json:"firmwareVersion"`
}

type bootNotificationRes struct {
	CurrentTime string `json:"currentTime"`
	Interval    int    `json:"interval"`
	Status      string `json:"status"`
}

type heartbeatRes struct {
	CurrentTime string `json:"currentTime"`
}

type statusNotificationReq struct {
	ConnectorID int    `json:"connectorId"`
	ErrorCode   string `json:"errorCode"`
	Status      string `json:"status"`
	Info        string `json:"info,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type startTransactionReq struct {
	ConnectorID int    `json:"connectorId"`
	IdTag       string `json:"idTag"`
	MeterStart  int    `json:"meterStart"`
	Timestamp   string `json:"timestamp"`
	// TransactionID is charger-proposed in this deployment's StartTransaction
	// dialect (the CSMS echoes rather than assigns it).
	TransactionID int64 `json:"transactionId"`
	// ReservationID is accepted but reservation semantics are not modeled.
	ReservationID *int `json:"reservationId,omitempty"`
}

type idTagInfo struct {
	Status string `json:"status"`
}

type startTransactionRes struct {
	TransactionID int64     `json:"transactionId"`
	IdTagInfo     idTagInfo `json:"idTagInfo"`
}

type stopTransactionReq struct {
	TransactionID int64  `json:"transactionId"`
	IdTag         string `json:"idTag,omitempty"`
	MeterStop     int    `json:"meterStop"`
	Timestamp     string `json:"timestamp"`
	Reason        string `json:"reason,omitempty"`
}

type stopTransactionRes struct {
	IdTagInfo idTagInfo `json:"idTagInfo"`
}

type sampledValue struct {
	Value     string `json:"value"`
	Measurand string `json:"measurand,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

type meterValueSample struct {
	Timestamp    string         `json:"timestamp"`
	SampledValue []sampledValue `json:"sampledValue"`
}

type meterValuesReq struct {
	ConnectorID   int                `json:"connectorId"`
	TransactionID *int64             `json:"transactionId,omitempty"`
	MeterValue    []meterValueSample `json:"meterValue"`
}

// dispatchCall routes one inbound CALL to its handler and always replies
// with a CALLRESULT, even on internal failure (§4.1 failure policy: a
// CALLERROR risks the charger dropping its socket for good).
func (gw *Gateway) dispatchCall(conn *Connection, call CallFrame) {
	ctx := context.Background()
	logger := gw.logger.With(zap.String("charge_point_id", conn.chargePointID), zap.String("action", call.Action))

	resp, err := gw.handle(ctx, conn, call)
	if err != nil {
		logger.Error("ocpp handler failed, returning benign ack", zap.Error(err))
		resp = struct{}{}
	}

	frame, encErr := EncodeCallResult(call.UniqueID, resp)
	if encErr != nil {
		logger.Error("failed to encode callresult", zap.Error(encErr))
		return
	}
	if err := conn.enqueue(frame); err != nil {
		logger.Warn("failed to send callresult", zap.Error(err))
	}
}

func (gw *Gateway) handle(ctx context.Context, conn *Connection, call CallFrame) (interface{}, error) {
	switch call.Action {
	case ActionBootNotification:
		return gw.handleBootNotification(ctx, conn, call.Payload)
	case ActionHeartbeat:
		return gw.handleHeartbeat(ctx, conn)
	case ActionStatusNotification:
		return gw.handleStatusNotification(ctx, conn, call.Payload)
	case ActionStartTransaction:
		return gw.handleStartTransaction(ctx, conn, call.Payload)
	case ActionStopTransaction:
		return gw.handleStopTransaction(ctx, conn, call.Payload)
	case ActionMeterValues:
		return gw.handleMeterValues(ctx, conn, call.Payload)
	default:
		return struct{}{}, nil
	}
}

func (gw *Gateway) handleBootNotification(ctx context.Context, conn *Connection, payload json.RawMessage) (interface{}, error) {
	var req bootNotificationReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.Validation("payload", "malformed BootNotification")
	}

	now := gw.clockNow()
	wasOffline := true
	if existing, err := gw.chargers.Get(ctx, conn.chargePointID); err == nil {
		wasOffline = existing.EffectiveStatus(now, gw.onlineWindow) == charger.StatusOffline
	}

	entity := charger.Entity{
		ChargePointID:      conn.chargePointID,
		Vendor:             req.ChargePointVendor,
		Model:              req.ChargePointModel,
		FirmwareVersion:    req.FirmwareVersion,
		LastHeartbeat:      now,
		HeartbeatIntervalS: gw.defaultHBIntvl,
	}
	out, err := gw.chargers.Upsert(ctx, entity)
	if err != nil {
		return nil, err
	}

	if wasOffline {
		if err := gw.sessions.OnBootReconnect(ctx, conn.chargePointID); err != nil {
			gw.logger.Warn("boot reconnect reconciliation failed",
				zap.String("charge_point_id", conn.chargePointID), zap.Error(err))
		}
		if gw.events != nil {
			if err := gw.events.PublishChargerConnected(ctx, conn.chargePointID, out.Vendor, out.Model); err != nil {
				gw.logger.Warn("failed to publish charger connected event",
					zap.String("charge_point_id", conn.chargePointID), zap.Error(err))
			}
		}
	}

	return bootNotificationRes{
		CurrentTime: now.UTC().Format(time.RFC3339),
		Interval:    out.HeartbeatIntervalS,
		Status:      "Accepted",
	}, nil
}

func (gw *Gateway) handleHeartbeat(ctx context.Context, conn *Connection) (interface{}, error) {
	now := gw.clockNow()
	if err := gw.chargers.UpdateHeartbeat(ctx, conn.chargePointID, now); err != nil {
		return nil, err
	}
	return heartbeatRes{CurrentTime: now.UTC().Format(time.RFC3339)}, nil
}

func (gw *Gateway) handleStatusNotification(ctx context.Context, conn *Connection, payload json.RawMessage) (interface{}, error) {
	var req statusNotificationReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.Validation("payload", "malformed StatusNotification")
	}

	now := gw.clockNow()

	availability, err := gw.sessions.OnStatusNotification(ctx, conn.chargePointID, req.Status, now)
	if err != nil {
		return nil, err
	}
	if err := gw.chargers.UpdateAvailability(ctx, conn.chargePointID, availability); err != nil {
		return nil, err
	}

	if req.ErrorCode != "" && req.ErrorCode != "NoError" {
		_, found, err := gw.chargers.UnclearedFault(ctx, conn.chargePointID, req.ErrorCode)
		if err != nil {
			return nil, err
		}
		if !found {
			if _, err := gw.chargers.OpenFault(ctx, charger.FaultEntity{
				ChargePointID: conn.chargePointID,
				FaultType:     req.ErrorCode,
				Message:       req.Info,
				Timestamp:     now,
			}); err != nil {
				return nil, err
			}
		}
	} else if req.Status != "Faulted" {
		if err := gw.chargers.ClearAllFaults(ctx, conn.chargePointID); err != nil {
			return nil, err
		}
	}

	return struct{}{}, nil
}

func (gw *Gateway) handleStartTransaction(ctx context.Context, conn *Connection, payload json.RawMessage) (interface{}, error) {
	var req startTransactionReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.Validation("payload", "malformed StartTransaction")
	}

	startTime := parseOCPPTime(req.Timestamp, gw.clockNow())

	if err := gw.sessions.OnStartTransaction(ctx, conn.chargePointID, req.TransactionID, req.IdTag, startTime); err != nil {
		return nil, err
	}
	if err := gw.chargers.UpdateAvailability(ctx, conn.chargePointID, charger.AvailabilityCharging); err != nil {
		return nil, err
	}

	return startTransactionRes{
		TransactionID: req.TransactionID,
		IdTagInfo:     idTagInfo{Status: "Accepted"},
	}, nil
}

func (gw *Gateway) handleStopTransaction(ctx context.Context, conn *Connection, payload json.RawMessage) (interface{}, error) {
	var req stopTransactionReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.Validation("payload", "malformed StopTransaction")
	}

	stopTime := parseOCPPTime(req.Timestamp, gw.clockNow())
	if err := gw.sessions.OnStopTransaction(ctx, req.TransactionID, stopTime); err != nil {
		return nil, err
	}
	if err := gw.chargers.UpdateAvailability(ctx, conn.chargePointID, charger.AvailabilityAvailable); err != nil {
		return nil, err
	}

	return stopTransactionRes{IdTagInfo: idTagInfo{Status: "Accepted"}}, nil
}

func (gw *Gateway) handleMeterValues(ctx context.Context, conn *Connection, payload json.RawMessage) (interface{}, error) {
	var req meterValuesReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.Validation("payload", "malformed MeterValues")
	}

	var transactionID int64
	if req.TransactionID != nil {
		transactionID = *req.TransactionID
	}

	for _, sample := range req.MeterValue {
		ts := parseOCPPTime(sample.Timestamp, gw.clockNow())
		voltage, currentAmps, powerKW, energyWh := parseSampledValues(sample.SampledValue)
		if err := gw.sessions.OnMeterValue(ctx, conn.chargePointID, transactionID, ts, voltage, currentAmps, powerKW, energyWh); err != nil {
			return nil, err
		}
	}

	return struct{}{}, nil
}

// parseSampledValues extracts the measurands the Session Engine cares about
// from one MeterValues sample. Unknown/unparseable readings are skipped.
func parseSampledValues(values []sampledValue) (voltage, currentAmps, powerKW, energyWhTotal *float64) {
	for _, sv := range values {
		f, err := strconv.ParseFloat(sv.Value, 64)
		if err != nil {
			continue
		}
		measurand := sv.Measurand
		if measurand == "" {
			measurand = "Energy.Active.Import.Register"
		}
		switch measurand {
		case "Energy.Active.Import.Register":
			energyWhTotal = floatPtr(f)
		case "Voltage":
			voltage = floatPtr(f)
		case "Current.Import":
			currentAmps = floatPtr(f)
		case "Power.Active.Import":
			if sv.Unit == "W" {
				f /= 1000
			}
			powerKW = floatPtr(f)
		}
	}
	return
}

func floatPtr(f float64) *float64 { return &f }

// parseOCPPTime parses an OCPP ISO-8601 timestamp, falling back to now on
// malformed or empty input rather than rejecting the message outright.
func parseOCPPTime(s string, now time.Time) time.Time {
	if s == "" {
		return now
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return now
	}
	return t
}

