package ocpp

import (
	"fmt"

	"cpsys/types"
)

// Request message
type Request interface {
	// GetFeatureName Returns the unique name of the feature, to which this request belongs to.
	GetFeatureName() string
}

// Response message
type Response interface {
	// GetFeatureName Returns the unique name of the feature, to which this request belongs to.
	GetFeatureName() string
}

// Payload is a decoded request or response body.
type Payload interface {
	GetFeatureName() string
}

type Version string

const (
	V15 Version = "1.5"
	V16 Version = "1.6"
)

// VersionFromSubProtocol maps a negotiated websocket subprotocol to a protocol version.
func VersionFromSubProtocol(proto string) (Version, bool) {
	switch proto {
	case types.SubProtocol15:
		return V15, true
	case types.SubProtocol16:
		return V16, true
	default:
		return "", false
	}
}

func (v Version) SubProtocol() string {
	if v == V15 {
		return types.SubProtocol15
	}
	return types.SubProtocol16
}

// Direction tells which side of the link a message is addressed to.
type Direction string

const (
	CentralSystemBound Direction = "CentralSystemBound"
	ChargePointBound   Direction = "ChargePointBound"
)

// Action identifies one protocol operation. The triple makes cross-version name
// collisions impossible: the same feature name under two versions is two keys.
type Action struct {
	Version   Version
	Direction Direction
	Name      string
}

func (a Action) String() string {
	return fmt.Sprintf("%s/%s/%s", a.Version, a.Direction, a.Name)
}

var actionNames15In = []string{
	"BootNotification",
	"Authorize",
	"Heartbeat",
	"StartTransaction",
	"StopTransaction",
	"MeterValues",
	"StatusNotification",
	"DataTransfer",
	"DiagnosticsStatusNotification",
	"FirmwareStatusNotification",
}

var actionNames15Out = []string{
	"RemoteStartTransaction",
	"RemoteStopTransaction",
	"GetConfiguration",
	"ChangeConfiguration",
	"Reset",
	"UnlockConnector",
	"GetDiagnostics",
}

var actionNames16In = []string{
	"BootNotification",
	"Authorize",
	"Heartbeat",
	"StartTransaction",
	"StopTransaction",
	"MeterValues",
	"StatusNotification",
	"DataTransfer",
	"DiagnosticsStatusNotification",
	"FirmwareStatusNotification",
}

var actionNames16Out = []string{
	"RemoteStartTransaction",
	"RemoteStopTransaction",
	"GetConfiguration",
	"ChangeConfiguration",
	"Reset",
	"UnlockConnector",
	"GetDiagnostics",
	"TriggerMessage",
	"SendLocalList",
	"SetChargingProfile",
	"GetCompositeSchedule",
	"ClearChargingProfile",
}

var actions map[Action]struct{}

func init() {
	actions = make(map[Action]struct{})
	load := func(version Version, direction Direction, names []string) {
		for _, name := range names {
			actions[Action{Version: version, Direction: direction, Name: name}] = struct{}{}
		}
	}
	load(V15, CentralSystemBound, actionNames15In)
	load(V15, ChargePointBound, actionNames15Out)
	load(V16, CentralSystemBound, actionNames16In)
	load(V16, ChargePointBound, actionNames16Out)
}

// LookupAction resolves a wire-level action name against the closed per-version table.
func LookupAction(version Version, direction Direction, name string) (Action, bool) {
	action := Action{Version: version, Direction: direction, Name: name}
	_, ok := actions[action]
	return action, ok
}
