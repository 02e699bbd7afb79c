// Package status caches the latest reported state per connector. The cache is
// the authoritative view; the store is written best effort.
package status

import (
	"fmt"
	"sync"
	"time"

	"cpsys/internal"
	"cpsys/models"
	"cpsys/ocpp"
)

// Update is one status report for a connector. Connector id 0 addresses the
// charge point itself and fans out to every known connector of it.
type Update struct {
	ChargePointId   int64
	ConnectorId     int
	Status          string
	ErrorCode       string
	Info            string
	VendorId        string
	VendorErrorCode string
	Timestamp       time.Time
}

// Tracker applies status updates last-write-wins and creates connector records
// lazily on their first report.
type Tracker struct {
	database internal.Database
	logger   internal.LogHandler

	mu         sync.Mutex
	connectors map[ocpp.SessionKey]*models.Connector
}

func NewTracker(database internal.Database, logger internal.LogHandler) *Tracker {
	return &Tracker{
		database:   database,
		logger:     logger,
		connectors: make(map[ocpp.SessionKey]*models.Connector),
	}
}

// OnStart loads the known connectors of the registered charge points so status
// queries answer from the last persisted state after a restart.
func (t *Tracker) OnStart() {
	if t.database == nil {
		return
	}
	chargePoints, err := t.database.GetChargePoints()
	if err != nil {
		t.logger.Error("loading charge points", err)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, chargePoint := range chargePoints {
		connectors, err := t.database.GetConnectors(chargePoint.Id)
		if err != nil {
			t.logger.Error(fmt.Sprintf("loading connectors of charge point %d", chargePoint.Id), err)
			continue
		}
		for _, connector := range connectors {
			key := ocpp.SessionKey{ChargePointId: connector.ChargePointId, ConnectorId: connector.Id}
			t.connectors[key] = connector
		}
	}
}

// Apply records one status update. An update for connector 0 is applied to the
// charge point record and to every known connector of it.
func (t *Tracker) Apply(update *Update) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}
	// snapshots are persisted after the lock is released
	var touched []models.Connector
	t.mu.Lock()
	if update.ConnectorId == 0 {
		for key, connector := range t.connectors {
			if key.ChargePointId != update.ChargePointId {
				continue
			}
			applyTo(connector, update)
			touched = append(touched, *connector)
		}
	} else {
		key := ocpp.SessionKey{ChargePointId: update.ChargePointId, ConnectorId: update.ConnectorId}
		connector, ok := t.connectors[key]
		if !ok {
			connector = models.NewConnector(update.ConnectorId, update.ChargePointId)
			t.connectors[key] = connector
		}
		applyTo(connector, update)
		touched = append(touched, *connector)
	}
	t.mu.Unlock()

	if t.database == nil {
		return
	}
	for i := range touched {
		if err := t.database.UpdateConnector(&touched[i]); err != nil {
			t.logger.Error(fmt.Sprintf("persisting connector %d:%d", touched[i].ChargePointId, touched[i].Id), err)
		}
	}
}

func applyTo(connector *models.Connector, update *Update) {
	connector.Status = update.Status
	connector.ErrorCode = update.ErrorCode
	connector.Info = update.Info
	connector.VendorId = update.VendorId
	connector.VendorErrorCode = update.VendorErrorCode
	connector.Timestamp = update.Timestamp
}

// Get returns the last reported state of one connector.
func (t *Tracker) Get(chargePointId int64, connectorId int) (models.Connector, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	connector, ok := t.connectors[ocpp.SessionKey{ChargePointId: chargePointId, ConnectorId: connectorId}]
	if !ok {
		return models.Connector{}, false
	}
	return *connector, true
}

// List returns the state of every known connector of a charge point.
func (t *Tracker) List(chargePointId int64) []models.Connector {
	t.mu.Lock()
	defer t.mu.Unlock()
	var connectors []models.Connector
	for key, connector := range t.connectors {
		if key.ChargePointId == chargePointId {
			connectors = append(connectors, *connector)
		}
	}
	return connectors
}
