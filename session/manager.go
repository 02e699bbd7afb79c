// Package session maintains the authoritative in-memory state of active
// charging sessions and enforces the one-incomplete-session-per-connector
// invariant. The store is written best effort; a failed write is logged and
// never fails a protocol call.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"cpsys/internal"
	"cpsys/internal/config"
	"cpsys/metrics/counters"
	"cpsys/models"
	"cpsys/ocpp"
	"cpsys/types"
	"cpsys/utility"
)

// StartInfo is the input of a session start.
type StartInfo struct {
	ChargePointId int64
	ConnectorId   int
	AuthId        string
	MeterStart    int
	Timestamp     *time.Time
	ReservationId *int
}

type transactionKey struct {
	chargePointId int64
	transactionId int
}

// Manager holds incomplete sessions keyed per connector. Check-and-create runs
// under the lock of the connector; authorization and store calls run outside
// any lock.
type Manager struct {
	database   internal.Database
	logger     internal.LogHandler
	authorizer Authorizer

	reuseConcurrentTx bool
	retention         time.Duration
	purgeInterval     time.Duration

	mu             sync.Mutex
	locks          map[ocpp.SessionKey]*sync.Mutex
	sessions       map[ocpp.SessionKey]*models.ChargeSession
	byTransaction  map[transactionKey]*models.ChargeSession
	transactionIds map[int64]int

	stop chan struct{}
	done chan struct{}
}

func NewManager(database internal.Database, logger internal.LogHandler, authorizer Authorizer, conf *config.Config) *Manager {
	return &Manager{
		database:          database,
		logger:            logger,
		authorizer:        authorizer,
		reuseConcurrentTx: conf.Sessions.ReuseConcurrentTx,
		retention:         time.Duration(conf.Sessions.RetentionHours) * time.Hour,
		purgeInterval:     time.Duration(conf.Sessions.PurgeIntervalMin) * time.Minute,
		locks:             make(map[ocpp.SessionKey]*sync.Mutex),
		sessions:          make(map[ocpp.SessionKey]*models.ChargeSession),
		byTransaction:     make(map[transactionKey]*models.ChargeSession),
		transactionIds:    make(map[int64]int),
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
	}
}

// OnStart restores incomplete sessions from the store and begins the purge
// sweep of posted sessions.
func (m *Manager) OnStart() {
	if m.database != nil {
		incomplete, err := m.database.GetIncompleteSessions()
		if err != nil {
			m.logger.Error("restoring incomplete sessions", err)
		}
		m.mu.Lock()
		for _, session := range incomplete {
			key := ocpp.SessionKey{ChargePointId: session.ChargePointId, ConnectorId: session.ConnectorId}
			m.sessions[key] = session
			m.byTransaction[transactionKey{session.ChargePointId, session.TransactionId}] = session
			if session.TransactionId > m.transactionIds[session.ChargePointId] {
				m.transactionIds[session.ChargePointId] = session.TransactionId
			}
		}
		count := len(m.sessions)
		m.mu.Unlock()
		counters.ObserveActiveSessions(count)
		if count > 0 {
			m.logger.Debug(fmt.Sprintf("restored %d incomplete sessions", count))
		}
	}
	go m.purgeLoop()
}

func (m *Manager) OnStop() {
	close(m.stop)
	<-m.done
}

func (m *Manager) connectorLock(key ocpp.SessionKey) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

// seedTransactionId makes sure the counter of a charge point starts above the
// highest persisted transaction id. Runs store I/O, so it is called before any
// connector lock is taken.
func (m *Manager) seedTransactionId(chargePointId int64) {
	m.mu.Lock()
	_, seeded := m.transactionIds[chargePointId]
	m.mu.Unlock()
	if seeded || m.database == nil {
		return
	}
	last, err := m.database.GetLastTransactionId(chargePointId)
	if err != nil {
		m.logger.Error(fmt.Sprintf("reading last transaction id for charge point %d", chargePointId), err)
		return
	}
	m.mu.Lock()
	if current, ok := m.transactionIds[chargePointId]; !ok || last > current {
		m.transactionIds[chargePointId] = last
	}
	m.mu.Unlock()
}

// StartChargingSession creates a new session for the connector. It fails with
// *ocpp.AuthorizationError when the tag is not authorized or when an incomplete
// session already occupies the connector; in the latter case the error carries
// the existing transaction id when continuation is allowed.
func (m *Manager) StartChargingSession(info *StartInfo) (*models.ChargeSession, error) {
	idTagInfo, err := m.authorizer.Authorize(info.AuthId)
	if err != nil {
		return nil, err
	}
	if idTagInfo.Status != types.AuthorizationStatusAccepted {
		return nil, ocpp.NewAuthorizationError(idTagInfo.Status)
	}
	m.seedTransactionId(info.ChargePointId)

	key := ocpp.SessionKey{ChargePointId: info.ChargePointId, ConnectorId: info.ConnectorId}
	lock := m.connectorLock(key)
	lock.Lock()

	m.mu.Lock()
	if existing, busy := m.sessions[key]; busy {
		authErr := ocpp.NewAuthorizationError(types.AuthorizationStatusConcurrentTx)
		if m.reuseConcurrentTx {
			authErr.TransactionId = existing.TransactionId
		}
		m.mu.Unlock()
		lock.Unlock()
		return nil, authErr
	}
	m.transactionIds[info.ChargePointId]++
	transactionId := m.transactionIds[info.ChargePointId]
	now := time.Now()
	started := now
	if info.Timestamp != nil {
		started = *info.Timestamp
	}
	session := &models.ChargeSession{
		Id:            utility.NewUUID(),
		Created:       now,
		AuthId:        info.AuthId,
		ChargePointId: info.ChargePointId,
		ConnectorId:   info.ConnectorId,
		TransactionId: transactionId,
		MeterStart:    info.MeterStart,
		Started:       &started,
	}
	m.sessions[key] = session
	m.byTransaction[transactionKey{info.ChargePointId, transactionId}] = session
	active := len(m.sessions)
	m.mu.Unlock()
	lock.Unlock()
	counters.ObserveActiveSessions(active)
	counters.CountSession(strconv.FormatInt(info.ChargePointId, 10))

	if m.database != nil {
		if err = m.database.AddChargeSession(session); err != nil {
			m.logger.Error(fmt.Sprintf("persisting session %s", session.Id), err)
		}
	}
	return session, nil
}

// EndChargingSession completes the incomplete session of a transaction. Fails
// when no such session exists.
func (m *Manager) EndChargingSession(chargePointId int64, transactionId int, meterEnd int, timestamp *time.Time, reason string) (*models.ChargeSession, error) {
	m.mu.Lock()
	session, ok := m.byTransaction[transactionKey{chargePointId, transactionId}]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no incomplete session for transaction %d on charge point %d", transactionId, chargePointId)
	}

	key := ocpp.SessionKey{ChargePointId: chargePointId, ConnectorId: session.ConnectorId}
	lock := m.connectorLock(key)
	lock.Lock()
	m.mu.Lock()
	if _, ok = m.byTransaction[transactionKey{chargePointId, transactionId}]; !ok {
		m.mu.Unlock()
		lock.Unlock()
		return nil, fmt.Errorf("no incomplete session for transaction %d on charge point %d", transactionId, chargePointId)
	}
	ended := time.Now()
	if timestamp != nil {
		ended = *timestamp
	}
	session.Ended = &ended
	session.MeterEnd = meterEnd
	session.EndReason = reason
	delete(m.sessions, key)
	delete(m.byTransaction, transactionKey{chargePointId, transactionId})
	active := len(m.sessions)
	m.mu.Unlock()
	lock.Unlock()
	counters.ObserveActiveSessions(active)

	if m.database != nil {
		if err := m.database.UpdateChargeSession(session); err != nil {
			m.logger.Error(fmt.Sprintf("persisting session %s", session.Id), err)
		}
	}
	return session, nil
}

// AddChargingSessionReadings records meter readings. Readings without a session
// id are kept as well, a lost transaction reference is not an error.
func (m *Manager) AddChargingSessionReadings(readings []models.SampledValue) error {
	if len(readings) == 0 {
		return nil
	}
	if m.database == nil {
		return nil
	}
	if err := m.database.AddReadings(readings); err != nil {
		return fmt.Errorf("persisting %d readings: %w", len(readings), err)
	}
	return nil
}

// GetActiveChargingSession looks up the incomplete session of a transaction.
func (m *Manager) GetActiveChargingSession(chargePointId int64, transactionId int) (*models.ChargeSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.byTransaction[transactionKey{chargePointId, transactionId}]
	return session, ok
}

// GetActiveChargingSessionForConnector looks up the incomplete session of a connector.
func (m *Manager) GetActiveChargingSessionForConnector(chargePointId int64, connectorId int) (*models.ChargeSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[ocpp.SessionKey{ChargePointId: chargePointId, ConnectorId: connectorId}]
	return session, ok
}

// MarkPosted stamps a completed session as uploaded downstream, making it
// eligible for the purge sweep after the retention window.
func (m *Manager) MarkPosted(session *models.ChargeSession) error {
	if session.IsIncomplete() {
		return errors.New("cannot post an incomplete session")
	}
	now := time.Now()
	session.Posted = &now
	if m.database == nil {
		return nil
	}
	return m.database.UpdateChargeSession(session)
}

func (m *Manager) purgeLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.purge()
		}
	}
}

func (m *Manager) purge() {
	if m.database == nil {
		return
	}
	cutoff := time.Now().Add(-m.retention)
	removed, err := m.database.DeleteSessionsPostedBefore(cutoff)
	if err != nil {
		m.logger.Error("purging posted sessions", err)
		return
	}
	if removed > 0 {
		m.logger.Debug(fmt.Sprintf("purged %d posted sessions", removed))
	}
}
