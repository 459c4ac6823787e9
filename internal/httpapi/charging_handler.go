package httpapi

import (
	"net/http"

	sessionengine "csms/internal/engine/session"
	"csms/internal/pkg/errors"
	"csms/internal/pkg/httputil"
)

// ChargingHandler exposes the Session Engine's remote_start/remote_stop
// operations to end users.
type ChargingHandler struct {
	sessions *sessionengine.Engine
}

// NewChargingHandler constructs the charging endpoints handler.
func NewChargingHandler(sessions *sessionengine.Engine) *ChargingHandler {
	return &ChargingHandler{sessions: sessions}
}

type startChargingRequest struct {
	ChargerID   string `json:"charger_id"`
	ConnectorID int    `json:"connector_id"`
	IDTag       string `json:"id_tag"`
}

// Start delegates to remote_start.
//
// @Summary Start a charging session
// @Tags charging
// @Accept json
// @Produce json
// @Param request body startChargingRequest true "charger, connector, and id tag"
// @Success 200 {object} sessionengine.RemoteStartResult
// @Security BearerAuth
// @Router /charging/start [post]
func (h *ChargingHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startChargingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if req.ChargerID == "" {
		respondErr(w, r, errors.ValidationRequired("charger_id"))
		return
	}
	if req.IDTag == "" {
		respondErr(w, r, errors.ValidationRequired("id_tag"))
		return
	}

	result, err := h.sessions.RemoteStart(r.Context(), req.ChargerID, req.ConnectorID, req.IDTag)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

type stopChargingRequest struct {
	TransactionID int64  `json:"transaction_id"`
	ChargerID     string `json:"charger_id,omitempty"`
}

// Stop delegates to remote_stop. Best-effort: a transport timeout is
// reported as a BestEffort result rather than an error (§4.2).
//
// @Summary Stop a charging session
// @Tags charging
// @Accept json
// @Produce json
// @Param request body stopChargingRequest true "transaction to stop"
// @Success 200 {object} sessionengine.RemoteStopResult
// @Security BearerAuth
// @Router /charging/stop [post]
func (h *ChargingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	var req stopChargingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if req.TransactionID <= 0 && req.ChargerID == "" {
		respondErr(w, r, errors.ValidationRequired("transaction_id or charger_id"))
		return
	}

	result, err := h.sessions.RemoteStop(r.Context(), req.TransactionID, req.ChargerID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}
