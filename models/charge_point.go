package models

import "time"

// ChargePointInfo is the descriptive data reported with a BootNotification.
type ChargePointInfo struct {
	Vendor          string `json:"vendor" bson:"vendor"`
	Model           string `json:"model" bson:"model"`
	SerialNumber    string `json:"serial_number" bson:"serial_number"`
	FirmwareVersion string `json:"firmware_version" bson:"firmware_version"`
}

// ChargePoint is created on the first successful boot notification; the wire-level
// identity resolves to this record through the store.
type ChargePoint struct {
	Id           int64           `json:"charge_point_id" bson:"charge_point_id"`
	Identity     string          `json:"identity" bson:"identity"`
	UserScope    int64           `json:"user_scope,omitempty" bson:"user_scope,omitempty"`
	IsEnabled    bool            `json:"is_enabled" bson:"is_enabled"`
	Title        string          `json:"title" bson:"title"`
	Description  string          `json:"description" bson:"description"`
	RegisteredAt time.Time       `json:"registered_at" bson:"registered_at"`
	Info         ChargePointInfo `json:"info" bson:"info"`
	Status       string          `json:"status" bson:"status"`
	ErrorCode    string          `json:"error_code" bson:"error_code"`
}
