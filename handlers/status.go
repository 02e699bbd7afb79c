package handlers

import (
	"fmt"
	"time"

	"cpsys/internal"
	"cpsys/ocpp"
	"cpsys/ocpp/core"
	"cpsys/ocpp/firmware"
	"cpsys/status"
)

func (h *Handler) OnStatusNotification(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
	request, ok := env.Payload.(*core.StatusNotificationRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", env.Payload)
	}
	chargePoint, found := h.chargePoint(env.Client)
	if !found {
		callback(env, nil, unknownChargePointError(env.Client))
		return nil
	}
	update := &status.Update{
		ChargePointId:   chargePoint.Id,
		ConnectorId:     request.ConnectorId,
		Status:          string(request.Status),
		ErrorCode:       string(request.ErrorCode),
		Info:            request.Info,
		VendorId:        request.VendorId,
		VendorErrorCode: request.VendorErrorCode,
	}
	if request.Timestamp != nil {
		update.Timestamp = request.Timestamp.Time
	}
	h.tracker.Apply(update)
	if request.ConnectorId == 0 {
		chargePoint.Status = string(request.Status)
		chargePoint.ErrorCode = string(request.ErrorCode)
		h.persistChargePoint(chargePoint)
	}
	h.logger.FeatureEvent(core.StatusNotificationFeatureName, env.Client.Identifier, fmt.Sprintf("connector %d: %s (%s)", request.ConnectorId, request.Status, request.ErrorCode))
	h.notify(func(events internal.EventHandler) {
		events.OnStatusNotification(&internal.EventMessage{
			Type:          "StatusNotification",
			ChargePointId: chargePoint.Id,
			Identity:      env.Client.Identifier,
			ConnectorId:   request.ConnectorId,
			Time:          time.Now(),
			Status:        string(request.Status),
			Info:          request.Info,
		})
	})
	callback(env, core.NewStatusNotificationResponse(), nil)
	return nil
}

func (h *Handler) OnDiagnosticsStatusNotification(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
	request, ok := env.Payload.(*firmware.DiagnosticsStatusNotificationRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", env.Payload)
	}
	h.logger.FeatureEvent(firmware.DiagnosticsStatusNotificationFeatureName, env.Client.Identifier, string(request.Status))
	callback(env, &firmware.DiagnosticsStatusNotificationResponse{}, nil)
	return nil
}

func (h *Handler) OnFirmwareStatusNotification(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
	request, ok := env.Payload.(*firmware.StatusNotificationRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", env.Payload)
	}
	h.logger.FeatureEvent(firmware.StatusNotificationFeatureName, env.Client.Identifier, string(request.Status))
	callback(env, &firmware.StatusNotificationResponse{}, nil)
	return nil
}
