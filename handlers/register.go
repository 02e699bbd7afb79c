package handlers

import (
	"cpsys/dispatch"
	"cpsys/ocpp"
	"cpsys/ocpp/core"
	"cpsys/ocpp/firmware"
)

// Register binds every inbound action of both protocol versions to its handler.
func (h *Handler) Register(registry *dispatch.Registry) {
	bindings := []struct {
		name      string
		processor dispatch.ProcessorFunc
	}{
		{core.BootNotificationFeatureName, h.OnBootNotification},
		{core.AuthorizeFeatureName, h.OnAuthorize},
		{core.HeartbeatFeatureName, h.OnHeartbeat},
		{core.StartTransactionFeatureName, h.OnStartTransaction},
		{core.StopTransactionFeatureName, h.OnStopTransaction},
		{core.MeterValuesFeatureName, h.OnMeterValues},
		{core.StatusNotificationFeatureName, h.OnStatusNotification},
		{core.DataTransferFeatureName, h.OnDataTransfer},
		{firmware.DiagnosticsStatusNotificationFeatureName, h.OnDiagnosticsStatusNotification},
		{firmware.StatusNotificationFeatureName, h.OnFirmwareStatusNotification},
	}
	for _, version := range []ocpp.Version{ocpp.V15, ocpp.V16} {
		for _, binding := range bindings {
			action, ok := ocpp.LookupAction(version, ocpp.CentralSystemBound, binding.name)
			if !ok {
				continue
			}
			registry.Register(action, binding.processor)
		}
	}
}
