package handlers

import (
	"fmt"
	"time"

	"cpsys/internal"
	"cpsys/ocpp"
	"cpsys/ocpp/core"
)

func (h *Handler) OnAuthorize(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
	request, ok := env.Payload.(*core.AuthorizeRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", env.Payload)
	}
	chargePoint, found := h.chargePoint(env.Client)
	if !found {
		callback(env, nil, unknownChargePointError(env.Client))
		return nil
	}
	idTagInfo, err := h.authorizer.Authorize(request.IdTag)
	if err != nil {
		return err
	}
	h.logger.FeatureEvent(core.AuthorizeFeatureName, env.Client.Identifier, fmt.Sprintf("tag %s: %s", request.IdTag, idTagInfo.Status))
	h.notify(func(events internal.EventHandler) {
		events.OnAuthorize(&internal.EventMessage{
			Type:          "Authorize",
			ChargePointId: chargePoint.Id,
			Identity:      env.Client.Identifier,
			Time:          time.Now(),
			IdTag:         request.IdTag,
			Status:        string(idTagInfo.Status),
		})
	})
	callback(env, core.NewAuthorizationResponse(idTagInfo), nil)
	return nil
}
