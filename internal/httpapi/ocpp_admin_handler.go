package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"csms/internal/ocpp"
	"csms/internal/pkg/errors"
	"csms/internal/pkg/httputil"
)

// OCPPAdminHandler exposes one admin-only endpoint per outbound OCPP action
// (§6), each a thin decode-dispatch-respond wrapper around Gateway.Call.
type OCPPAdminHandler struct {
	gateway *ocpp.Gateway
	logger  *zap.Logger
}

// NewOCPPAdminHandler constructs the remote-command endpoints handler.
func NewOCPPAdminHandler(gateway *ocpp.Gateway, logger *zap.Logger) *OCPPAdminHandler {
	return &OCPPAdminHandler{gateway: gateway, logger: logger}
}

// call decodes the request body into payload (unless decoded is true,
// meaning the handler already consumed the body itself, as Reset does for
// its own validation), issues the named action against the
// {chargePointID} route param, and writes the raw CALLRESULT back as the
// response body.
func (h *OCPPAdminHandler) call(w http.ResponseWriter, r *http.Request, action string, payload interface{}, decoded ...bool) {
	chargePointID, err := httputil.GetURLParam(r, "chargePointID")
	if err != nil {
		respondErr(w, r, err)
		return
	}

	alreadyDecoded := len(decoded) > 0 && decoded[0]
	if !alreadyDecoded && payload != nil && r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, payload); err != nil {
			respondErr(w, r, err)
			return
		}
	}

	result, err := h.gateway.Call(r.Context(), chargePointID, action, payload)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	h.logger.Info("ocpp remote command dispatched",
		zap.String("charge_point_id", chargePointID), zap.String("action", action))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result)
}

func (h *OCPPAdminHandler) RemoteStart(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionRemoteStartTransaction, &ocpp.RemoteStartTransactionPayload{})
}

func (h *OCPPAdminHandler) RemoteStop(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionRemoteStopTransaction, &ocpp.RemoteStopTransactionPayload{})
}

func (h *OCPPAdminHandler) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionGetConfiguration, &ocpp.GetConfigurationPayload{})
}

func (h *OCPPAdminHandler) ChangeConfiguration(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionChangeConfiguration, &ocpp.ChangeConfigurationPayload{})
}

func (h *OCPPAdminHandler) ChangeAvailability(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionChangeAvailability, &ocpp.ChangeAvailabilityPayload{})
}

func (h *OCPPAdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionClearCache, &struct{}{})
}

type resetRequest struct {
	Type string `json:"type"`
}

func (h *OCPPAdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if req.Type != "Hard" && req.Type != "Soft" {
		respondErr(w, r, errors.ValidationInvalid("type", req.Type))
		return
	}
	h.call(w, r, ocpp.ActionReset, &req, true)
}

func (h *OCPPAdminHandler) UnlockConnector(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionUnlockConnector, &ocpp.UnlockConnectorPayload{})
}

func (h *OCPPAdminHandler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionGetDiagnostics, &ocpp.GetDiagnosticsPayload{})
}

func (h *OCPPAdminHandler) UpdateFirmware(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionUpdateFirmware, &ocpp.UpdateFirmwarePayload{})
}

func (h *OCPPAdminHandler) ReserveNow(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionReserveNow, &ocpp.ReserveNowPayload{})
}

func (h *OCPPAdminHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionCancelReservation, &ocpp.CancelReservationPayload{})
}

func (h *OCPPAdminHandler) DataTransfer(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionDataTransfer, &ocpp.DataTransferPayload{})
}

func (h *OCPPAdminHandler) GetLocalListVersion(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionGetLocalListVersion, &struct{}{})
}

func (h *OCPPAdminHandler) SendLocalList(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionSendLocalList, &ocpp.SendLocalListPayload{})
}

func (h *OCPPAdminHandler) TriggerMessage(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionTriggerMessage, &ocpp.TriggerMessagePayload{})
}

func (h *OCPPAdminHandler) GetCompositeSchedule(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionGetCompositeSchedule, &ocpp.GetCompositeSchedulePayload{})
}

func (h *OCPPAdminHandler) ClearChargingProfile(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionClearChargingProfile, &ocpp.ClearChargingProfilePayload{})
}

func (h *OCPPAdminHandler) SetChargingProfile(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, ocpp.ActionSetChargingProfile, &ocpp.SetChargingProfilePayload{})
}
