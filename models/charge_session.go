package models

import "time"

// ChargeSession records one charging event from start to stop. A session is
// incomplete while Ended is unset; for a given (charge point, connector) at most
// one incomplete session exists at a time. Posted is stamped once the session is
// uploaded downstream; posted sessions are purged after a retention window.
type ChargeSession struct {
	Id            string     `json:"session_id" bson:"session_id"`
	Created       time.Time  `json:"created" bson:"created"`
	AuthId        string     `json:"auth_id" bson:"auth_id"`
	ChargePointId int64      `json:"charge_point_id" bson:"charge_point_id"`
	ConnectorId   int        `json:"connector_id" bson:"connector_id"`
	TransactionId int        `json:"transaction_id" bson:"transaction_id"`
	MeterStart    int        `json:"meter_start" bson:"meter_start"`
	MeterEnd      int        `json:"meter_end" bson:"meter_end"`
	Started       *time.Time `json:"started,omitempty" bson:"started,omitempty"`
	Ended         *time.Time `json:"ended,omitempty" bson:"ended,omitempty"`
	Posted        *time.Time `json:"posted,omitempty" bson:"posted,omitempty"`
	EndReason     string     `json:"end_reason,omitempty" bson:"end_reason,omitempty"`
}

func (s *ChargeSession) IsIncomplete() bool {
	return s.Ended == nil
}
