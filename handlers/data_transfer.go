package handlers

import (
	"fmt"

	"cpsys/ocpp"
	"cpsys/ocpp/core"
)

func (h *Handler) OnDataTransfer(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
	request, ok := env.Payload.(*core.DataTransferRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", env.Payload)
	}
	h.logger.FeatureEvent(core.DataTransferFeatureName, env.Client.Identifier, fmt.Sprintf("vendor %s message %s", request.VendorId, request.MessageId))
	callback(env, core.NewDataTransferResponse(core.DataTransferStatusAccepted), nil)
	return nil
}
