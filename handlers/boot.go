package handlers

import (
	"fmt"
	"time"

	"cpsys/models"
	"cpsys/ocpp"
	"cpsys/ocpp/core"
	"cpsys/types"
)

func (h *Handler) OnBootNotification(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
	request, ok := env.Payload.(*core.BootNotificationRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", env.Payload)
	}
	now := types.NewDateTime(time.Now())
	info := models.ChargePointInfo{
		Vendor:          request.ChargePointVendor,
		Model:           request.ChargePointModel,
		SerialNumber:    request.ChargePointSerialNumber,
		FirmwareVersion: request.FirmwareVersion,
	}
	chargePoint, found := h.chargePoint(env.Client)
	if !found {
		if !h.conf.AcceptUnknownChp {
			h.logger.Warn(fmt.Sprintf("boot from unknown charge point %s rejected", env.Client.Identifier))
			callback(env, core.NewBootNotificationResponse(now, defaultHeartbeatInterval, core.RegistrationStatusRejected), nil)
			return nil
		}
		chargePoint = h.register(env.Client, info)
	} else {
		chargePoint.Info = info
		h.persistChargePoint(chargePoint)
	}
	registration := core.RegistrationStatusAccepted
	if !chargePoint.IsEnabled {
		registration = core.RegistrationStatusPending
	}
	h.logger.FeatureEvent(core.BootNotificationFeatureName, env.Client.Identifier, fmt.Sprintf("%s %s; registration %s", info.Vendor, info.Model, registration))
	callback(env, core.NewBootNotificationResponse(now, defaultHeartbeatInterval, registration), nil)
	return nil
}

func (h *Handler) OnHeartbeat(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
	callback(env, core.NewHeartbeatResponse(types.NewDateTime(time.Now())), nil)
	return nil
}
