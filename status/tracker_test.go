package status

import (
	"testing"
	"time"
)

type testLogger struct{}

func (l *testLogger) FeatureEvent(feature, id, text string) {}
func (l *testLogger) Debug(text string)                     {}
func (l *testLogger) Warn(text string)                      {}
func (l *testLogger) Error(text string, err error)          {}
func (l *testLogger) RawDataEvent(direction, data string)   {}

func TestApplyCreatesConnector(t *testing.T) {
	tracker := NewTracker(nil, &testLogger{})
	tracker.Apply(&Update{ChargePointId: 1, ConnectorId: 1, Status: "Charging", ErrorCode: "NoError"})

	connector, ok := tracker.Get(1, 1)
	if !ok {
		t.Fatal("connector not created on first report")
	}
	if connector.Status != "Charging" || connector.ErrorCode != "NoError" {
		t.Errorf("unexpected connector state: %+v", connector)
	}
	if connector.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}
}

func TestApplyLastWriteWins(t *testing.T) {
	tracker := NewTracker(nil, &testLogger{})
	tracker.Apply(&Update{ChargePointId: 1, ConnectorId: 1, Status: "Preparing"})
	tracker.Apply(&Update{ChargePointId: 1, ConnectorId: 1, Status: "Charging"})

	connector, _ := tracker.Get(1, 1)
	if connector.Status != "Charging" {
		t.Errorf("expected Charging, got %s", connector.Status)
	}
}

func TestApplyFanOut(t *testing.T) {
	tracker := NewTracker(nil, &testLogger{})
	tracker.Apply(&Update{ChargePointId: 1, ConnectorId: 1, Status: "Available"})
	tracker.Apply(&Update{ChargePointId: 1, ConnectorId: 2, Status: "Available"})
	tracker.Apply(&Update{ChargePointId: 2, ConnectorId: 1, Status: "Available"})

	tracker.Apply(&Update{ChargePointId: 1, ConnectorId: 0, Status: "Unavailable", Timestamp: time.Now()})

	for _, connectorId := range []int{1, 2} {
		connector, _ := tracker.Get(1, connectorId)
		if connector.Status != "Unavailable" {
			t.Errorf("connector %d not updated by fan-out: %s", connectorId, connector.Status)
		}
	}
	other, _ := tracker.Get(2, 1)
	if other.Status != "Available" {
		t.Errorf("fan-out leaked to another charge point: %s", other.Status)
	}
}

func TestList(t *testing.T) {
	tracker := NewTracker(nil, &testLogger{})
	tracker.Apply(&Update{ChargePointId: 1, ConnectorId: 1, Status: "Available"})
	tracker.Apply(&Update{ChargePointId: 1, ConnectorId: 2, Status: "Charging"})
	tracker.Apply(&Update{ChargePointId: 2, ConnectorId: 1, Status: "Faulted"})

	connectors := tracker.List(1)
	if len(connectors) != 2 {
		t.Fatalf("expected 2 connectors, got %d", len(connectors))
	}
	if _, ok := tracker.Get(3, 1); ok {
		t.Error("unknown connector reported as present")
	}
}
