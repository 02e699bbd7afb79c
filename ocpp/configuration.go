package ocpp

import (
	"fmt"
	"strconv"
)

type FeatureProfile string

const (
	ProfileCore                    FeatureProfile = "Core"
	ProfileFirmwareManagement      FeatureProfile = "FirmwareManagement"
	ProfileLocalAuthListManagement FeatureProfile = "LocalAuthListManagement"
	ProfileReservation             FeatureProfile = "Reservation"
	ProfileSmartCharging           FeatureProfile = "SmartCharging"
	ProfileRemoteTrigger           FeatureProfile = "RemoteTrigger"
)

type KeyType string

const (
	KeyTypeBoolean KeyType = "boolean"
	KeyTypeInteger KeyType = "integer"
	KeyTypeCSL     KeyType = "CSL"
)

// ConfigurationKey is one well-known remote-configuration key. The table is
// read-only reference data used to validate Get/ChangeConfiguration exchanges.
type ConfigurationKey struct {
	Name     string
	Profile  FeatureProfile
	Type     KeyType
	ReadOnly bool
}

var configurationKeys = []ConfigurationKey{
	{Name: "AllowOfflineTxForUnknownId", Profile: ProfileCore, Type: KeyTypeBoolean},
	{Name: "AuthorizationCacheEnabled", Profile: ProfileCore, Type: KeyTypeBoolean},
	{Name: "AuthorizeRemoteTxRequests", Profile: ProfileCore, Type: KeyTypeBoolean},
	{Name: "BlinkRepeat", Profile: ProfileCore, Type: KeyTypeInteger},
	{Name: "ClockAlignedDataInterval", Profile: ProfileCore, Type: KeyTypeInteger},
	{Name: "ConnectionTimeOut", Profile: ProfileCore, Type: KeyTypeInteger},
	{Name: "ConnectorPhaseRotation", Profile: ProfileCore, Type: KeyTypeCSL},
	{Name: "ConnectorPhaseRotationMaxLength", Profile: ProfileCore, Type: KeyTypeInteger, ReadOnly: true},
	{Name: "GetConfigurationMaxKeys", Profile: ProfileCore, Type: KeyTypeInteger, ReadOnly: true},
	{Name: "HeartbeatInterval", Profile: ProfileCore, Type: KeyTypeInteger},
	{Name: "LightIntensity", Profile: ProfileCore, Type: KeyTypeInteger},
	{Name: "LocalAuthorizeOffline", Profile: ProfileCore, Type: KeyTypeBoolean},
	{Name: "LocalPreAuthorize", Profile: ProfileCore, Type: KeyTypeBoolean},
	{Name: "MaxEnergyOnInvalidId", Profile: ProfileCore, Type: KeyTypeInteger},
	{Name: "MeterValuesAlignedData", Profile: ProfileCore, Type: KeyTypeCSL},
	{Name: "MeterValuesAlignedDataMaxLength", Profile: ProfileCore, Type: KeyTypeInteger, ReadOnly: true},
	{Name: "MeterValuesSampledData", Profile: ProfileCore, Type: KeyTypeCSL},
	{Name: "MeterValuesSampledDataMaxLength", Profile: ProfileCore, Type: KeyTypeInteger, ReadOnly: true},
	{Name: "MeterValueSampleInterval", Profile: ProfileCore, Type: KeyTypeInteger},
	{Name: "MinimumStatusDuration", Profile: ProfileCore, Type: KeyTypeInteger},
	{Name: "NumberOfConnectors", Profile: ProfileCore, Type: KeyTypeInteger, ReadOnly: true},
	{Name: "ResetRetries", Profile: ProfileCore, Type: KeyTypeInteger},
	{Name: "StopTransactionOnEVSideDisconnect", Profile: ProfileCore, Type: KeyTypeBoolean},
	{Name: "StopTransactionOnInvalidId", Profile: ProfileCore, Type: KeyTypeBoolean},
	{Name: "StopTxnAlignedData", Profile: ProfileCore, Type: KeyTypeCSL},
	{Name: "StopTxnAlignedDataMaxLength", Profile: ProfileCore, Type: KeyTypeInteger, ReadOnly: true},
	{Name: "StopTxnSampledData", Profile: ProfileCore, Type: KeyTypeCSL},
	{Name: "StopTxnSampledDataMaxLength", Profile: ProfileCore, Type: KeyTypeInteger, ReadOnly: true},
	{Name: "SupportedFeatureProfiles", Profile: ProfileCore, Type: KeyTypeCSL, ReadOnly: true},
	{Name: "TransactionMessageAttempts", Profile: ProfileCore, Type: KeyTypeInteger},
	{Name: "TransactionMessageRetryInterval", Profile: ProfileCore, Type: KeyTypeInteger},
	{Name: "UnlockConnectorOnEVSideDisconnect", Profile: ProfileCore, Type: KeyTypeBoolean},
	{Name: "WebSocketPingInterval", Profile: ProfileCore, Type: KeyTypeInteger},
	{Name: "LocalAuthListEnabled", Profile: ProfileLocalAuthListManagement, Type: KeyTypeBoolean},
	{Name: "LocalAuthListMaxLength", Profile: ProfileLocalAuthListManagement, Type: KeyTypeInteger, ReadOnly: true},
	{Name: "SendLocalListMaxLength", Profile: ProfileLocalAuthListManagement, Type: KeyTypeInteger, ReadOnly: true},
	{Name: "ReserveConnectorZeroSupported", Profile: ProfileReservation, Type: KeyTypeBoolean, ReadOnly: true},
	{Name: "ChargeProfileMaxStackLevel", Profile: ProfileSmartCharging, Type: KeyTypeInteger, ReadOnly: true},
	{Name: "ChargingScheduleAllowedChargingRateUnit", Profile: ProfileSmartCharging, Type: KeyTypeCSL, ReadOnly: true},
	{Name: "ChargingScheduleMaxPeriods", Profile: ProfileSmartCharging, Type: KeyTypeInteger, ReadOnly: true},
	{Name: "ConnectorSwitch3to1PhaseSupported", Profile: ProfileSmartCharging, Type: KeyTypeBoolean, ReadOnly: true},
	{Name: "MaxChargingProfilesInstalled", Profile: ProfileSmartCharging, Type: KeyTypeInteger, ReadOnly: true},
}

var configurationKeyIndex map[string]ConfigurationKey

func init() {
	configurationKeyIndex = make(map[string]ConfigurationKey, len(configurationKeys))
	for _, key := range configurationKeys {
		configurationKeyIndex[key.Name] = key
	}
}

func LookupConfigurationKey(name string) (ConfigurationKey, bool) {
	key, ok := configurationKeyIndex[name]
	return key, ok
}

func ConfigurationKeys() []ConfigurationKey {
	keys := make([]ConfigurationKey, len(configurationKeys))
	copy(keys, configurationKeys)
	return keys
}

// ValidateValue checks a candidate value against the key's primitive type.
func (k ConfigurationKey) ValidateValue(value string) error {
	switch k.Type {
	case KeyTypeBoolean:
		if value != "true" && value != "false" {
			return fmt.Errorf("key %s expects a boolean value, got %q", k.Name, value)
		}
	case KeyTypeInteger:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("key %s expects an integer value, got %q", k.Name, value)
		}
	case KeyTypeCSL:
		// any comma separated list is acceptable, including empty
	}
	return nil
}
