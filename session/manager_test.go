package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"cpsys/internal"
	"cpsys/internal/config"
	"cpsys/models"
	"cpsys/ocpp"
	"cpsys/types"
)

type testLogger struct{}

func (l *testLogger) FeatureEvent(feature, id, text string) {}
func (l *testLogger) Debug(text string)                     {}
func (l *testLogger) Warn(text string)                      {}
func (l *testLogger) Error(text string, err error)          {}
func (l *testLogger) RawDataEvent(direction, data string)   {}

type staticAuthorizer struct {
	status types.AuthorizationStatus
}

func (a *staticAuthorizer) Authorize(idTag string) (*types.IdTagInfo, error) {
	return types.NewIdTagInfo(a.status), nil
}

func testManager(status types.AuthorizationStatus) *Manager {
	conf := &config.Config{}
	conf.Sessions.RetentionHours = 4
	conf.Sessions.PurgeIntervalMin = 15
	conf.Sessions.ReuseConcurrentTx = true
	return NewManager(nil, &testLogger{}, &staticAuthorizer{status: status}, conf)
}

// purgeStore records the cutoffs passed to the purge sweep.
type purgeStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
}

func (s *purgeStore) recorded() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.cutoffs...)
}

func (s *purgeStore) DeleteSessionsPostedBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return 1, nil
}

func (s *purgeStore) Write(table string, data internal.Data) error { return nil }
func (s *purgeStore) WriteLogMessage(data internal.Data) error { return nil }
func (s *purgeStore) GetChargePointByIdentity(identity string) (*models.ChargePoint, error) {
	return nil, nil
}
func (s *purgeStore) GetChargePoints() ([]models.ChargePoint, error) { return nil, nil }
func (s *purgeStore) AddChargePoint(chargePoint *models.ChargePoint) error { return nil }
func (s *purgeStore) UpdateChargePoint(chargePoint *models.ChargePoint) error { return nil }
func (s *purgeStore) GetConnectors(chargePointId int64) ([]*models.Connector, error) {
	return nil, nil
}
func (s *purgeStore) AddConnector(connector *models.Connector) error { return nil }
func (s *purgeStore) UpdateConnector(connector *models.Connector) error { return nil }
func (s *purgeStore) AddChargeSession(session *models.ChargeSession) error { return nil }
func (s *purgeStore) UpdateChargeSession(session *models.ChargeSession) error { return nil }
func (s *purgeStore) GetIncompleteSessions() ([]*models.ChargeSession, error) { return nil, nil }
func (s *purgeStore) GetLastTransactionId(chargePointId int64) (int, error) { return 0, nil }
func (s *purgeStore) AddReadings(readings []models.SampledValue) error { return nil }
func (s *purgeStore) GetUserTag(idTag string) (*models.UserTag, error) { return nil, nil }
func (s *purgeStore) GetUserTags() ([]models.UserTag, error) { return nil, nil }
func (s *purgeStore) AddUserTag(userTag *models.UserTag) error { return nil }
func (s *purgeStore) GetSubscriptions() ([]models.UserSubscription, error) { return nil, nil }
func (s *purgeStore) AddSubscription(sub *models.UserSubscription) error { return nil }
func (s *purgeStore) DeleteSubscription(userId int) error { return nil }

func TestStartChargingSession(t *testing.T) {
	m := testManager(types.AuthorizationStatusAccepted)
	session, err := m.StartChargingSession(&StartInfo{ChargePointId: 1, ConnectorId: 1, AuthId: "tag1", MeterStart: 1000})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if session.TransactionId == 0 {
		t.Error("transaction id must be non-zero")
	}
	if session.Id == "" {
		t.Error("session id not assigned")
	}
	if session.Started == nil {
		t.Error("start time not stamped")
	}
	if !session.IsIncomplete() {
		t.Error("new session must be incomplete")
	}
	if found, ok := m.GetActiveChargingSession(1, session.TransactionId); !ok || found.Id != session.Id {
		t.Error("active session not found by transaction id")
	}
	if found, ok := m.GetActiveChargingSessionForConnector(1, 1); !ok || found.Id != session.Id {
		t.Error("active session not found by connector")
	}
}

func TestStartChargingSessionRejected(t *testing.T) {
	m := testManager(types.AuthorizationStatusBlocked)
	_, err := m.StartChargingSession(&StartInfo{ChargePointId: 1, ConnectorId: 1, AuthId: "tag1"})
	var authErr *ocpp.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if authErr.Status != types.AuthorizationStatusBlocked {
		t.Errorf("unexpected status %s", authErr.Status)
	}
}

func TestStartChargingSessionConcurrentTx(t *testing.T) {
	m := testManager(types.AuthorizationStatusAccepted)
	first, err := m.StartChargingSession(&StartInfo{ChargePointId: 1, ConnectorId: 1, AuthId: "tag1"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_, err = m.StartChargingSession(&StartInfo{ChargePointId: 1, ConnectorId: 1, AuthId: "tag2"})
	var authErr *ocpp.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if authErr.Status != types.AuthorizationStatusConcurrentTx {
		t.Errorf("unexpected status %s", authErr.Status)
	}
	if authErr.TransactionId != first.TransactionId {
		t.Errorf("expected existing transaction id %d, got %d", first.TransactionId, authErr.TransactionId)
	}
}

func TestStartChargingSessionOtherConnector(t *testing.T) {
	m := testManager(types.AuthorizationStatusAccepted)
	first, err := m.StartChargingSession(&StartInfo{ChargePointId: 1, ConnectorId: 1, AuthId: "tag1"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	second, err := m.StartChargingSession(&StartInfo{ChargePointId: 1, ConnectorId: 2, AuthId: "tag1"})
	if err != nil {
		t.Fatalf("start on a free connector failed: %v", err)
	}
	if second.TransactionId == first.TransactionId {
		t.Error("transaction ids must be unique per charge point")
	}
}

func TestStartChargingSessionRace(t *testing.T) {
	m := testManager(types.AuthorizationStatusAccepted)
	const attempts = 16
	var wg sync.WaitGroup
	wg.Add(attempts)
	succeeded := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if _, err := m.StartChargingSession(&StartInfo{ChargePointId: 7, ConnectorId: 3, AuthId: "tag1"}); err == nil {
				succeeded <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(succeeded)
	count := 0
	for range succeeded {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly one successful start, got %d", count)
	}
}

func TestEndChargingSession(t *testing.T) {
	m := testManager(types.AuthorizationStatusAccepted)
	session, err := m.StartChargingSession(&StartInfo{ChargePointId: 1, ConnectorId: 1, AuthId: "tag1", MeterStart: 1000})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	ended, err := m.EndChargingSession(1, session.TransactionId, 1500, nil, "Local")
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if ended.IsIncomplete() {
		t.Error("ended session must not be incomplete")
	}
	if ended.MeterEnd != 1500 || ended.EndReason != "Local" {
		t.Errorf("end data not recorded: %+v", ended)
	}
	if _, ok := m.GetActiveChargingSession(1, session.TransactionId); ok {
		t.Error("ended session still listed as active")
	}
	// the connector is free again
	if _, err = m.StartChargingSession(&StartInfo{ChargePointId: 1, ConnectorId: 1, AuthId: "tag1"}); err != nil {
		t.Errorf("start after end failed: %v", err)
	}
}

func TestEndChargingSessionUnknown(t *testing.T) {
	m := testManager(types.AuthorizationStatusAccepted)
	if _, err := m.EndChargingSession(1, 42, 0, nil, ""); err == nil {
		t.Error("expected an error for unknown transaction")
	}
}

func TestMarkPosted(t *testing.T) {
	m := testManager(types.AuthorizationStatusAccepted)
	session, err := m.StartChargingSession(&StartInfo{ChargePointId: 1, ConnectorId: 1, AuthId: "tag1"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err = m.MarkPosted(session); err == nil {
		t.Error("posting an incomplete session must fail")
	}
	ended, err := m.EndChargingSession(1, session.TransactionId, 100, nil, "Remote")
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if err = m.MarkPosted(ended); err != nil {
		t.Fatalf("posting failed: %v", err)
	}
	if ended.Posted == nil || time.Since(*ended.Posted) > time.Minute {
		t.Error("posted timestamp not stamped")
	}
}

func TestPurgeUsesRetentionCutoff(t *testing.T) {
	store := &purgeStore{}
	conf := &config.Config{}
	conf.Sessions.RetentionHours = 4
	conf.Sessions.PurgeIntervalMin = 15
	m := NewManager(store, &testLogger{}, &staticAuthorizer{status: types.AuthorizationStatusAccepted}, conf)

	before := time.Now().Add(-4 * time.Hour)
	m.purge()
	after := time.Now().Add(-4 * time.Hour)

	cutoffs := store.recorded()
	if len(cutoffs) != 1 {
		t.Fatalf("expected one purge call, got %d", len(cutoffs))
	}
	if cutoffs[0].Before(before) || cutoffs[0].After(after) {
		t.Errorf("cutoff %v is not now minus the retention window", cutoffs[0])
	}
}

func TestPurgeLoopShutdown(t *testing.T) {
	store := &purgeStore{}
	conf := &config.Config{}
	conf.Sessions.RetentionHours = 4
	conf.Sessions.PurgeIntervalMin = 15
	m := NewManager(store, &testLogger{}, &staticAuthorizer{status: types.AuthorizationStatusAccepted}, conf)

	m.OnStart()
	stopped := make(chan struct{})
	go func() {
		m.OnStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("purge loop did not stop")
	}
}
