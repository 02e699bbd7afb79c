package models

import "time"

// Connector holds the latest status notification for one connector of a charge
// point. Connector id 0 denotes the charge point itself. Records are created
// lazily on the first status report and live as long as the owning charge point.
type Connector struct {
	Id              int       `json:"connector_id" bson:"connector_id"`
	ChargePointId   int64     `json:"charge_point_id" bson:"charge_point_id"`
	Status          string    `json:"status" bson:"status"`
	ErrorCode       string    `json:"error_code" bson:"error_code"`
	Info            string    `json:"info" bson:"info"`
	VendorId        string    `json:"vendor_id" bson:"vendor_id"`
	VendorErrorCode string    `json:"vendor_error_code" bson:"vendor_error_code"`
	Timestamp       time.Time `json:"timestamp" bson:"timestamp"`
}

func NewConnector(id int, chargePointId int64) *Connector {
	return &Connector{
		Id:            id,
		ChargePointId: chargePointId,
	}
}
