package models

import "time"

// SampledValue is one persisted meter reading. SessionId stays empty when the
// reading arrived without a resolvable transaction; such readings are still kept.
type SampledValue struct {
	SessionId     string    `json:"session_id,omitempty" bson:"session_id,omitempty"`
	ChargePointId int64     `json:"charge_point_id" bson:"charge_point_id"`
	ConnectorId   int       `json:"connector_id" bson:"connector_id"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
	Context       string    `json:"context,omitempty" bson:"context,omitempty"`
	Location      string    `json:"location,omitempty" bson:"location,omitempty"`
	Measurand     string    `json:"measurand,omitempty" bson:"measurand,omitempty"`
	Phase         string    `json:"phase,omitempty" bson:"phase,omitempty"`
	Unit          string    `json:"unit,omitempty" bson:"unit,omitempty"`
	Value         string    `json:"value" bson:"value"`
}
