package handlers

import (
	"testing"
	"time"

	"cpsys/internal/config"
	"cpsys/models"
	"cpsys/ocpp"
	"cpsys/ocpp/core"
	"cpsys/session"
	"cpsys/status"
	"cpsys/types"

	"cpsys/internal"
)

type testLogger struct{}

func (l *testLogger) FeatureEvent(feature, id, text string) {}
func (l *testLogger) Debug(text string)                     {}
func (l *testLogger) Warn(text string)                      {}
func (l *testLogger) Error(text string, err error)          {}
func (l *testLogger) RawDataEvent(direction, data string)   {}

// fakeDatabase keeps everything in memory. Only the parts the handlers touch
// are populated; the rest satisfy the interface.
type fakeDatabase struct {
	chargePoints map[string]*models.ChargePoint
	userTags     map[string]*models.UserTag
	sessions     map[string]*models.ChargeSession
	readings     []models.SampledValue
	connectors   map[string]*models.Connector
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{
		chargePoints: make(map[string]*models.ChargePoint),
		userTags:     make(map[string]*models.UserTag),
		sessions:     make(map[string]*models.ChargeSession),
		connectors:   make(map[string]*models.Connector),
	}
}

func (f *fakeDatabase) Write(table string, data internal.Data) error { return nil }
func (f *fakeDatabase) WriteLogMessage(data internal.Data) error { return nil }

func (f *fakeDatabase) GetChargePointByIdentity(identity string) (*models.ChargePoint, error) {
	return f.chargePoints[identity], nil
}

func (f *fakeDatabase) GetChargePoints() ([]models.ChargePoint, error) {
	var chargePoints []models.ChargePoint
	for _, chargePoint := range f.chargePoints {
		chargePoints = append(chargePoints, *chargePoint)
	}
	return chargePoints, nil
}

func (f *fakeDatabase) AddChargePoint(chargePoint *models.ChargePoint) error {
	f.chargePoints[chargePoint.Identity] = chargePoint
	return nil
}

func (f *fakeDatabase) UpdateChargePoint(chargePoint *models.ChargePoint) error {
	f.chargePoints[chargePoint.Identity] = chargePoint
	return nil
}

func (f *fakeDatabase) GetConnectors(chargePointId int64) ([]*models.Connector, error) {
	return nil, nil
}
func (f *fakeDatabase) AddConnector(connector *models.Connector) error { return nil }
func (f *fakeDatabase) UpdateConnector(connector *models.Connector) error {
	return nil
}

func (f *fakeDatabase) AddChargeSession(session *models.ChargeSession) error {
	f.sessions[session.Id] = session
	return nil
}

func (f *fakeDatabase) UpdateChargeSession(session *models.ChargeSession) error {
	f.sessions[session.Id] = session
	return nil
}

func (f *fakeDatabase) GetIncompleteSessions() ([]*models.ChargeSession, error) { return nil, nil }
func (f *fakeDatabase) GetLastTransactionId(chargePointId int64) (int, error) { return 0, nil }
func (f *fakeDatabase) DeleteSessionsPostedBefore(cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeDatabase) AddReadings(readings []models.SampledValue) error {
	f.readings = append(f.readings, readings...)
	return nil
}

func (f *fakeDatabase) GetUserTag(idTag string) (*models.UserTag, error) {
	return f.userTags[idTag], nil
}

func (f *fakeDatabase) GetUserTags() ([]models.UserTag, error) { return nil, nil }

func (f *fakeDatabase) AddUserTag(userTag *models.UserTag) error {
	f.userTags[userTag.IdTag] = userTag
	return nil
}

func (f *fakeDatabase) GetSubscriptions() ([]models.UserSubscription, error) { return nil, nil }
func (f *fakeDatabase) AddSubscription(subscription *models.UserSubscription) error { return nil }
func (f *fakeDatabase) DeleteSubscription(userId int) error { return nil }

type captured struct {
	result  ocpp.Response
	callErr *ocpp.Error
}

func capture(c *captured) ocpp.ResultCallback {
	return func(_ *ocpp.Envelope, result ocpp.Response, callErr *ocpp.Error) {
		c.result = result
		c.callErr = callErr
	}
}

func testHandler(t *testing.T) (*Handler, *fakeDatabase) {
	t.Helper()
	conf := &config.Config{}
	conf.AcceptUnknownChp = true
	conf.AcceptUnknownTag = true
	conf.Sessions.RetentionHours = 4
	conf.Sessions.PurgeIntervalMin = 15
	conf.Sessions.ReuseConcurrentTx = true

	database := newFakeDatabase()
	logger := &testLogger{}
	authorizer := session.NewTagAuthorizer(database, logger, conf.AcceptUnknownTag)
	sessions := session.NewManager(database, logger, authorizer, conf)
	tracker := status.NewTracker(database, logger)
	handler := NewHandler(conf, database, logger, sessions, tracker, authorizer)
	handler.OnStart()
	return handler, database
}

func env(name string, payload ocpp.Request) *ocpp.Envelope {
	action, _ := ocpp.LookupAction(ocpp.V16, ocpp.CentralSystemBound, name)
	return &ocpp.Envelope{
		Client:        ocpp.NewIdentity("cp001"),
		Action:        action,
		Payload:       payload,
		CorrelationId: "msg-001",
	}
}

func boot(t *testing.T, handler *Handler) {
	t.Helper()
	var c captured
	err := handler.OnBootNotification(env(core.BootNotificationFeatureName, &core.BootNotificationRequest{
		ChargePointVendor: "vendor",
		ChargePointModel:  "model",
	}), capture(&c))
	if err != nil {
		t.Fatalf("boot failed: %v", err)
	}
	response, ok := c.result.(*core.BootNotificationResponse)
	if !ok {
		t.Fatalf("unexpected boot result %T", c.result)
	}
	if response.Status != core.RegistrationStatusAccepted {
		t.Fatalf("boot not accepted: %s", response.Status)
	}
}

func TestChargingScenario(t *testing.T) {
	handler, database := testHandler(t)
	boot(t, handler)

	// start a transaction
	var start captured
	err := handler.OnStartTransaction(env(core.StartTransactionFeatureName, &core.StartTransactionRequest{
		ConnectorId: 1,
		IdTag:       "tag1",
		MeterStart:  1000,
		Timestamp:   types.NewDateTime(time.Now()),
	}), capture(&start))
	if err != nil {
		t.Fatalf("start transaction failed: %v", err)
	}
	startResponse := start.result.(*core.StartTransactionResponse)
	if startResponse.IdTagInfo.Status != types.AuthorizationStatusAccepted {
		t.Fatalf("start not accepted: %s", startResponse.IdTagInfo.Status)
	}
	transactionId := startResponse.TransactionId
	if transactionId == 0 {
		t.Fatal("transaction id must be non-zero")
	}

	// meter values for the running transaction
	var meter captured
	err = handler.OnMeterValues(env(core.MeterValuesFeatureName, &core.MeterValuesRequest{
		ConnectorId:   1,
		TransactionId: &transactionId,
		MeterValue: []types.MeterValue{{
			Timestamp: types.NewDateTime(time.Now()),
			SampledValue: []types.SampledValue{{
				Value:     "1234",
				Measurand: types.MeasurandEnergyActiveImportRegister,
				Unit:      types.UnitOfMeasureWh,
			}},
		}},
	}), capture(&meter))
	if err != nil {
		t.Fatalf("meter values failed: %v", err)
	}
	if len(database.readings) != 1 {
		t.Fatalf("expected 1 stored reading, got %d", len(database.readings))
	}
	if database.readings[0].SessionId == "" {
		t.Error("reading not stamped with session id")
	}

	// connector status moves to charging
	var notify captured
	err = handler.OnStatusNotification(env(core.StatusNotificationFeatureName, &core.StatusNotificationRequest{
		ConnectorId: 1,
		ErrorCode:   core.NoError,
		Status:      core.ChargePointStatusCharging,
	}), capture(&notify))
	if err != nil {
		t.Fatalf("status notification failed: %v", err)
	}

	// stop the transaction
	var stop captured
	err = handler.OnStopTransaction(env(core.StopTransactionFeatureName, &core.StopTransactionRequest{
		TransactionId: transactionId,
		MeterStop:     1500,
		Timestamp:     types.NewDateTime(time.Now()),
		Reason:        core.ReasonLocal,
	}), capture(&stop))
	if err != nil {
		t.Fatalf("stop transaction failed: %v", err)
	}
	if _, ok := stop.result.(*core.StopTransactionResponse); !ok {
		t.Fatalf("unexpected stop result %T", stop.result)
	}
}

func TestMeterValuesWithoutTransaction(t *testing.T) {
	handler, database := testHandler(t)
	boot(t, handler)

	var c captured
	err := handler.OnMeterValues(env(core.MeterValuesFeatureName, &core.MeterValuesRequest{
		ConnectorId: 1,
		MeterValue: []types.MeterValue{{
			Timestamp:    types.NewDateTime(time.Now()),
			SampledValue: []types.SampledValue{{Value: "10"}, {Value: "20"}},
		}},
	}), capture(&c))
	if err != nil {
		t.Fatalf("meter values failed: %v", err)
	}
	if c.callErr != nil {
		t.Fatalf("unexpected call error: %v", c.callErr)
	}
	if len(database.readings) != 2 {
		t.Fatalf("expected 2 stored readings, got %d", len(database.readings))
	}
	for _, reading := range database.readings {
		if reading.SessionId != "" {
			t.Error("unlinked reading carries a session id")
		}
	}
}

func TestStartTransactionEchoesConcurrentTx(t *testing.T) {
	handler, _ := testHandler(t)
	boot(t, handler)

	first := &captured{}
	_ = handler.OnStartTransaction(env(core.StartTransactionFeatureName, &core.StartTransactionRequest{
		ConnectorId: 1, IdTag: "tag1", MeterStart: 0,
	}), capture(first))
	existing := first.result.(*core.StartTransactionResponse).TransactionId

	second := &captured{}
	err := handler.OnStartTransaction(env(core.StartTransactionFeatureName, &core.StartTransactionRequest{
		ConnectorId: 1, IdTag: "tag2", MeterStart: 0,
	}), capture(second))
	if err != nil {
		t.Fatalf("second start returned error: %v", err)
	}
	response := second.result.(*core.StartTransactionResponse)
	if response.IdTagInfo.Status != types.AuthorizationStatusConcurrentTx {
		t.Errorf("expected ConcurrentTx, got %s", response.IdTagInfo.Status)
	}
	if response.TransactionId != existing {
		t.Errorf("expected echoed transaction id %d, got %d", existing, response.TransactionId)
	}
}

func TestStatusNotificationFanOut(t *testing.T) {
	handler, _ := testHandler(t)
	boot(t, handler)

	for _, connectorId := range []int{1, 2} {
		var c captured
		_ = handler.OnStatusNotification(env(core.StatusNotificationFeatureName, &core.StatusNotificationRequest{
			ConnectorId: connectorId,
			ErrorCode:   core.NoError,
			Status:      core.ChargePointStatusAvailable,
		}), capture(&c))
	}
	var c captured
	err := handler.OnStatusNotification(env(core.StatusNotificationFeatureName, &core.StatusNotificationRequest{
		ConnectorId: 0,
		ErrorCode:   core.NoError,
		Status:      core.ChargePointStatusUnavailable,
	}), capture(&c))
	if err != nil {
		t.Fatalf("status notification failed: %v", err)
	}
}

func TestUnknownChargePointRejected(t *testing.T) {
	conf := &config.Config{}
	conf.Sessions.PurgeIntervalMin = 15
	database := newFakeDatabase()
	logger := &testLogger{}
	authorizer := session.NewTagAuthorizer(database, logger, false)
	sessions := session.NewManager(database, logger, authorizer, conf)
	tracker := status.NewTracker(database, logger)
	handler := NewHandler(conf, database, logger, sessions, tracker, authorizer)

	var c captured
	err := handler.OnBootNotification(env(core.BootNotificationFeatureName, &core.BootNotificationRequest{
		ChargePointVendor: "vendor",
		ChargePointModel:  "model",
	}), capture(&c))
	if err != nil {
		t.Fatalf("boot failed: %v", err)
	}
	response := c.result.(*core.BootNotificationResponse)
	if response.Status != core.RegistrationStatusRejected {
		t.Errorf("expected rejection, got %s", response.Status)
	}
}
