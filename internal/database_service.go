package internal

import (
	"time"

	"cpsys/models"
)

// Database is the persistence collaborator. All calls may block on I/O; callers
// must not hold in-process locks across them. Failures are reported to the
// caller, which logs and continues: persistence never fails protocol handling.
type Database interface {
	Write(table string, data Data) error
	WriteLogMessage(data Data) error

	GetChargePointByIdentity(identity string) (*models.ChargePoint, error)
	GetChargePoints() ([]models.ChargePoint, error)
	AddChargePoint(chargePoint *models.ChargePoint) error
	UpdateChargePoint(chargePoint *models.ChargePoint) error

	GetConnectors(chargePointId int64) ([]*models.Connector, error)
	AddConnector(connector *models.Connector) error
	UpdateConnector(connector *models.Connector) error

	AddChargeSession(session *models.ChargeSession) error
	UpdateChargeSession(session *models.ChargeSession) error
	GetIncompleteSessions() ([]*models.ChargeSession, error)
	GetLastTransactionId(chargePointId int64) (int, error)
	DeleteSessionsPostedBefore(cutoff time.Time) (int64, error)

	AddReadings(readings []models.SampledValue) error

	GetUserTag(idTag string) (*models.UserTag, error)
	GetUserTags() ([]models.UserTag, error)
	AddUserTag(userTag *models.UserTag) error

	GetSubscriptions() ([]models.UserSubscription, error)
	AddSubscription(subscription *models.UserSubscription) error
	DeleteSubscription(userId int) error
}

type Data interface {
	DataType() string
}
