package handlers

import (
	"fmt"

	"cpsys/ocpp"
	"cpsys/ocpp/core"
)

// OnMeterValues records every reading. Readings of a known transaction are
// stamped with its session id; readings without a resolvable transaction are
// kept unlinked.
func (h *Handler) OnMeterValues(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
	request, ok := env.Payload.(*core.MeterValuesRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", env.Payload)
	}
	chargePoint, found := h.chargePoint(env.Client)
	if !found {
		callback(env, nil, unknownChargePointError(env.Client))
		return nil
	}
	sessionId := ""
	if request.TransactionId != nil {
		if chargeSession, active := h.sessions.GetActiveChargingSession(chargePoint.Id, *request.TransactionId); active {
			sessionId = chargeSession.Id
		}
	}
	readings := flattenMeterValues(chargePoint.Id, request.ConnectorId, sessionId, request.MeterValue)
	if err := h.sessions.AddChargingSessionReadings(readings); err != nil {
		return err
	}
	h.logger.FeatureEvent(core.MeterValuesFeatureName, env.Client.Identifier, fmt.Sprintf("connector %d: %d readings", request.ConnectorId, len(readings)))
	callback(env, core.NewMeterValuesResponse(), nil)
	return nil
}
