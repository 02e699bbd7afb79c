package handlers

import (
	"errors"
	"fmt"
	"time"

	"cpsys/internal"
	"cpsys/models"
	"cpsys/ocpp"
	"cpsys/ocpp/core"
	"cpsys/session"
	"cpsys/types"
)

// OnStartTransaction answers with the minted transaction id on success. On an
// authorization failure the failure status is echoed with the transaction id
// the error carries, zero otherwise: the response always holds a numeric
// transaction id.
func (h *Handler) OnStartTransaction(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
	request, ok := env.Payload.(*core.StartTransactionRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", env.Payload)
	}
	chargePoint, found := h.chargePoint(env.Client)
	if !found {
		callback(env, nil, unknownChargePointError(env.Client))
		return nil
	}
	info := &session.StartInfo{
		ChargePointId: chargePoint.Id,
		ConnectorId:   request.ConnectorId,
		AuthId:        request.IdTag,
		MeterStart:    request.MeterStart,
		ReservationId: request.ReservationId,
	}
	if request.Timestamp != nil {
		timestamp := request.Timestamp.Time
		info.Timestamp = &timestamp
	}
	chargeSession, err := h.sessions.StartChargingSession(info)
	if err != nil {
		var authErr *ocpp.AuthorizationError
		if errors.As(err, &authErr) {
			h.logger.FeatureEvent(core.StartTransactionFeatureName, env.Client.Identifier, fmt.Sprintf("tag %s rejected: %s", request.IdTag, authErr.Status))
			callback(env, core.NewStartTransactionResponse(types.NewIdTagInfo(authErr.Status), authErr.TransactionId), nil)
			return nil
		}
		return err
	}
	h.logger.FeatureEvent(core.StartTransactionFeatureName, env.Client.Identifier, fmt.Sprintf("connector %d transaction %d", request.ConnectorId, chargeSession.TransactionId))
	h.notify(func(events internal.EventHandler) {
		events.OnSessionStart(&internal.EventMessage{
			Type:          "SessionStart",
			ChargePointId: chargePoint.Id,
			Identity:      env.Client.Identifier,
			ConnectorId:   request.ConnectorId,
			Time:          time.Now(),
			IdTag:         request.IdTag,
			TransactionId: chargeSession.TransactionId,
			SessionId:     chargeSession.Id,
		})
	})
	callback(env, core.NewStartTransactionResponse(types.NewIdTagInfo(types.AuthorizationStatusAccepted), chargeSession.TransactionId), nil)
	return nil
}

// OnStopTransaction completes the session of the transaction. An unknown
// transaction id is logged and acknowledged anyway; the charge point cannot act
// on a failure here.
func (h *Handler) OnStopTransaction(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
	request, ok := env.Payload.(*core.StopTransactionRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", env.Payload)
	}
	chargePoint, found := h.chargePoint(env.Client)
	if !found {
		callback(env, nil, unknownChargePointError(env.Client))
		return nil
	}
	var timestamp *time.Time
	if request.Timestamp != nil {
		t := request.Timestamp.Time
		timestamp = &t
	}
	chargeSession, err := h.sessions.EndChargingSession(chargePoint.Id, request.TransactionId, request.MeterStop, timestamp, string(request.Reason))
	if err != nil {
		h.logger.Warn(fmt.Sprintf("%s from %s: %s", core.StopTransactionFeatureName, env.Client.Identifier, err))
		callback(env, core.NewStopTransactionResponse(), nil)
		return nil
	}
	if len(request.TransactionData) > 0 {
		readings := flattenMeterValues(chargePoint.Id, chargeSession.ConnectorId, chargeSession.Id, request.TransactionData)
		if err = h.sessions.AddChargingSessionReadings(readings); err != nil {
			h.logger.Error(fmt.Sprintf("recording transaction data of session %s", chargeSession.Id), err)
		}
	}
	h.logger.FeatureEvent(core.StopTransactionFeatureName, env.Client.Identifier, fmt.Sprintf("transaction %d ended: %s", request.TransactionId, request.Reason))
	h.notify(func(events internal.EventHandler) {
		events.OnSessionStop(&internal.EventMessage{
			Type:          "SessionStop",
			ChargePointId: chargePoint.Id,
			Identity:      env.Client.Identifier,
			ConnectorId:   chargeSession.ConnectorId,
			Time:          time.Now(),
			IdTag:         request.IdTag,
			TransactionId: request.TransactionId,
			SessionId:     chargeSession.Id,
			Info:          string(request.Reason),
		})
	})
	response := core.NewStopTransactionResponse()
	if request.IdTag != "" {
		idTagInfo, authErr := h.authorizer.Authorize(request.IdTag)
		if authErr == nil {
			response.IdTagInfo = idTagInfo
		}
	}
	callback(env, response, nil)
	return nil
}

// flattenMeterValues turns the nested wire samples into one reading per sampled
// value, stamped with the session they belong to.
func flattenMeterValues(chargePointId int64, connectorId int, sessionId string, meterValues []types.MeterValue) []models.SampledValue {
	var readings []models.SampledValue
	for _, meterValue := range meterValues {
		timestamp := time.Now()
		if meterValue.Timestamp != nil {
			timestamp = meterValue.Timestamp.Time
		}
		for _, sampled := range meterValue.SampledValue {
			readings = append(readings, models.SampledValue{
				SessionId:     sessionId,
				ChargePointId: chargePointId,
				ConnectorId:   connectorId,
				Timestamp:     timestamp,
				Context:       string(sampled.Context),
				Location:      string(sampled.Location),
				Measurand:     string(sampled.Measurand),
				Phase:         string(sampled.Phase),
				Unit:          string(sampled.Unit),
				Value:         sampled.Value,
			})
		}
	}
	return readings
}
