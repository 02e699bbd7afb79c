package decoder

import (
	"reflect"

	"cpsys/ocpp"
	"cpsys/ocpp/core"
	"cpsys/ocpp/firmware"
	"cpsys/ocpp/localauth"
	"cpsys/ocpp/remotetrigger"
	"cpsys/ocpp/smartcharging"
)

type payloadKey struct {
	name      string
	forResult bool
}

// payloadTypes maps an action name to its concrete request/response shape.
// Feature names never collide across directions, so the name plus the
// request/response flag is a sufficient key within one version.
var payloadTypes = map[payloadKey]reflect.Type{
	{core.BootNotificationFeatureName, false}:                 reflect.TypeOf(core.BootNotificationRequest{}),
	{core.BootNotificationFeatureName, true}:                  reflect.TypeOf(core.BootNotificationResponse{}),
	{core.AuthorizeFeatureName, false}:                        reflect.TypeOf(core.AuthorizeRequest{}),
	{core.AuthorizeFeatureName, true}:                         reflect.TypeOf(core.AuthorizeResponse{}),
	{core.HeartbeatFeatureName, false}:                        reflect.TypeOf(core.HeartbeatRequest{}),
	{core.HeartbeatFeatureName, true}:                         reflect.TypeOf(core.HeartbeatResponse{}),
	{core.StartTransactionFeatureName, false}:                 reflect.TypeOf(core.StartTransactionRequest{}),
	{core.StartTransactionFeatureName, true}:                  reflect.TypeOf(core.StartTransactionResponse{}),
	{core.StopTransactionFeatureName, false}:                  reflect.TypeOf(core.StopTransactionRequest{}),
	{core.StopTransactionFeatureName, true}:                   reflect.TypeOf(core.StopTransactionResponse{}),
	{core.MeterValuesFeatureName, false}:                      reflect.TypeOf(core.MeterValuesRequest{}),
	{core.MeterValuesFeatureName, true}:                       reflect.TypeOf(core.MeterValuesResponse{}),
	{core.StatusNotificationFeatureName, false}:               reflect.TypeOf(core.StatusNotificationRequest{}),
	{core.StatusNotificationFeatureName, true}:                reflect.TypeOf(core.StatusNotificationResponse{}),
	{core.DataTransferFeatureName, false}:                     reflect.TypeOf(core.DataTransferRequest{}),
	{core.DataTransferFeatureName, true}:                      reflect.TypeOf(core.DataTransferResponse{}),
	{core.RemoteStartTransactionFeatureName, false}:           reflect.TypeOf(core.RemoteStartTransactionRequest{}),
	{core.RemoteStartTransactionFeatureName, true}:            reflect.TypeOf(core.RemoteStartTransactionResponse{}),
	{core.RemoteStopTransactionFeatureName, false}:            reflect.TypeOf(core.RemoteStopTransactionRequest{}),
	{core.RemoteStopTransactionFeatureName, true}:             reflect.TypeOf(core.RemoteStopTransactionResponse{}),
	{core.GetConfigurationFeatureName, false}:                 reflect.TypeOf(core.GetConfigurationRequest{}),
	{core.GetConfigurationFeatureName, true}:                  reflect.TypeOf(core.GetConfigurationResponse{}),
	{core.ChangeConfigurationFeatureName, false}:              reflect.TypeOf(core.ChangeConfigurationRequest{}),
	{core.ChangeConfigurationFeatureName, true}:               reflect.TypeOf(core.ChangeConfigurationResponse{}),
	{core.ResetFeatureName, false}:                            reflect.TypeOf(core.ResetRequest{}),
	{core.ResetFeatureName, true}:                             reflect.TypeOf(core.ResetResponse{}),
	{core.UnlockConnectorFeatureName, false}:                  reflect.TypeOf(core.UnlockConnectorRequest{}),
	{core.UnlockConnectorFeatureName, true}:                   reflect.TypeOf(core.UnlockConnectorResponse{}),
	{firmware.DiagnosticsStatusNotificationFeatureName, false}: reflect.TypeOf(firmware.DiagnosticsStatusNotificationRequest{}),
	{firmware.DiagnosticsStatusNotificationFeatureName, true}:  reflect.TypeOf(firmware.DiagnosticsStatusNotificationResponse{}),
	{firmware.StatusNotificationFeatureName, false}:            reflect.TypeOf(firmware.StatusNotificationRequest{}),
	{firmware.StatusNotificationFeatureName, true}:             reflect.TypeOf(firmware.StatusNotificationResponse{}),
	{firmware.GetDiagnosticsFeatureName, false}:                reflect.TypeOf(firmware.GetDiagnosticsRequest{}),
	{firmware.GetDiagnosticsFeatureName, true}:                 reflect.TypeOf(firmware.GetDiagnosticsResponse{}),
	{remotetrigger.TriggerMessageFeatureName, false}:           reflect.TypeOf(remotetrigger.TriggerMessageRequest{}),
	{remotetrigger.TriggerMessageFeatureName, true}:            reflect.TypeOf(remotetrigger.TriggerMessageConfirmation{}),
	{localauth.SendLocalListFeatureName, false}:                reflect.TypeOf(localauth.SendLocalListRequest{}),
	{localauth.SendLocalListFeatureName, true}:                 reflect.TypeOf(localauth.SendLocalListResponse{}),
	{smartcharging.SetChargingProfileFeatureName, false}:       reflect.TypeOf(smartcharging.SetChargingProfileRequest{}),
	{smartcharging.SetChargingProfileFeatureName, true}:        reflect.TypeOf(smartcharging.SetChargingProfileResponse{}),
	{smartcharging.GetCompositeScheduleFeatureName, false}:     reflect.TypeOf(smartcharging.GetCompositeScheduleRequest{}),
	{smartcharging.GetCompositeScheduleFeatureName, true}:      reflect.TypeOf(smartcharging.GetCompositeScheduleResponse{}),
	{smartcharging.ClearChargingProfileFeatureName, false}:     reflect.TypeOf(smartcharging.ClearChargingProfileRequest{}),
	{smartcharging.ClearChargingProfileFeatureName, true}:      reflect.TypeOf(smartcharging.ClearChargingProfileResponse{}),
}

func payloadType(action ocpp.Action, forResult bool) (reflect.Type, bool) {
	t, ok := payloadTypes[payloadKey{name: action.Name, forResult: forResult}]
	return t, ok
}
