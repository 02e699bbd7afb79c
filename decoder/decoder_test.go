package decoder

import (
	"encoding/json"
	"testing"

	"cpsys/ocpp"
	"cpsys/ocpp/core"
)

func action(t *testing.T, version ocpp.Version, direction ocpp.Direction, name string) ocpp.Action {
	t.Helper()
	a, ok := ocpp.LookupAction(version, direction, name)
	if !ok {
		t.Fatalf("action %s not registered for version %s", name, version)
	}
	return a
}

func TestV15DecodeValidRequest(t *testing.T) {
	dec := NewV15()
	raw := json.RawMessage(`{"chargePointVendor":"vendor","chargePointModel":"model"}`)
	payload, callErr := dec.Decode(action(t, ocpp.V15, ocpp.CentralSystemBound, core.BootNotificationFeatureName), false, raw)
	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	request, ok := payload.(*core.BootNotificationRequest)
	if !ok {
		t.Fatalf("unexpected payload type %T", payload)
	}
	if request.ChargePointVendor != "vendor" || request.ChargePointModel != "model" {
		t.Errorf("decoded fields do not match input: %+v", request)
	}
}

func TestV15DecodeMalformed(t *testing.T) {
	dec := NewV15()
	raw := json.RawMessage(`{"chargePointVendor":`)
	_, callErr := dec.Decode(action(t, ocpp.V15, ocpp.CentralSystemBound, core.BootNotificationFeatureName), false, raw)
	if callErr == nil {
		t.Fatal("expected an error for malformed payload")
	}
	if callErr.Code != ocpp.FormationViolation {
		t.Errorf("expected %s, got %s", ocpp.FormationViolation, callErr.Code)
	}
}

func TestV15DecodeInvalidCarriesPayload(t *testing.T) {
	dec := NewV15()
	raw := json.RawMessage(`{"chargePointModel":"model"}`)
	_, callErr := dec.Decode(action(t, ocpp.V15, ocpp.CentralSystemBound, core.BootNotificationFeatureName), false, raw)
	if callErr == nil {
		t.Fatal("expected an error for missing required field")
	}
	if callErr.Code != ocpp.SchemaValidation {
		t.Errorf("expected %s, got %s", ocpp.SchemaValidation, callErr.Code)
	}
	details, ok := callErr.Details.(json.RawMessage)
	if !ok {
		t.Fatalf("expected raw payload in details, got %T", callErr.Details)
	}
	if string(details) != string(raw) {
		t.Errorf("details do not carry the original payload: %s", details)
	}
}

func TestV15DecodeAbsentPayload(t *testing.T) {
	dec := NewV15()
	heartbeat := action(t, ocpp.V15, ocpp.CentralSystemBound, core.HeartbeatFeatureName)
	for _, raw := range []string{"", "null", "{}", " { } "} {
		payload, callErr := dec.Decode(heartbeat, false, json.RawMessage(raw))
		if callErr != nil {
			t.Fatalf("payload %q: unexpected error: %v", raw, callErr)
		}
		if _, ok := payload.(*core.HeartbeatRequest); !ok {
			t.Errorf("payload %q: unexpected type %T", raw, payload)
		}
	}
}

func TestV15DecodeResponseShape(t *testing.T) {
	dec := NewV15()
	raw := json.RawMessage(`{"status":"Accepted"}`)
	payload, callErr := dec.Decode(action(t, ocpp.V15, ocpp.ChargePointBound, core.RemoteStartTransactionFeatureName), true, raw)
	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	if _, ok := payload.(*core.RemoteStartTransactionResponse); !ok {
		t.Errorf("unexpected payload type %T", payload)
	}
}

func TestV16DecodeValidRequest(t *testing.T) {
	dec, err := NewV16()
	if err != nil {
		t.Fatalf("decoder setup: %v", err)
	}
	raw := json.RawMessage(`{"connectorId":1,"idTag":"tag1","meterStart":1000,"timestamp":"2026-03-01T10:00:00Z"}`)
	payload, callErr := dec.Decode(action(t, ocpp.V16, ocpp.CentralSystemBound, core.StartTransactionFeatureName), false, raw)
	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	request, ok := payload.(*core.StartTransactionRequest)
	if !ok {
		t.Fatalf("unexpected payload type %T", payload)
	}
	if request.ConnectorId != 1 || request.IdTag != "tag1" || request.MeterStart != 1000 {
		t.Errorf("decoded fields do not match input: %+v", request)
	}
	if request.Timestamp == nil {
		t.Error("timestamp not decoded")
	}
}

func TestV16DecodeMissingRequired(t *testing.T) {
	dec, err := NewV16()
	if err != nil {
		t.Fatalf("decoder setup: %v", err)
	}
	raw := json.RawMessage(`{"connectorId":1,"meterStart":1000}`)
	_, callErr := dec.Decode(action(t, ocpp.V16, ocpp.CentralSystemBound, core.StartTransactionFeatureName), false, raw)
	if callErr == nil {
		t.Fatal("expected an error for missing required fields")
	}
	if callErr.Code != ocpp.SchemaValidation {
		t.Errorf("expected %s, got %s", ocpp.SchemaValidation, callErr.Code)
	}
}

func TestV16DecodeRejectsUnknownProperty(t *testing.T) {
	dec, err := NewV16()
	if err != nil {
		t.Fatalf("decoder setup: %v", err)
	}
	raw := json.RawMessage(`{"idTag":"tag1","extra":true}`)
	_, callErr := dec.Decode(action(t, ocpp.V16, ocpp.CentralSystemBound, core.AuthorizeFeatureName), false, raw)
	if callErr == nil {
		t.Fatal("expected an error for unknown property")
	}
	if callErr.Code != ocpp.SchemaValidation {
		t.Errorf("expected %s, got %s", ocpp.SchemaValidation, callErr.Code)
	}
}

func TestV16DecodeStatusEnum(t *testing.T) {
	dec, err := NewV16()
	if err != nil {
		t.Fatalf("decoder setup: %v", err)
	}
	statusAction := action(t, ocpp.V16, ocpp.CentralSystemBound, core.StatusNotificationFeatureName)
	raw := json.RawMessage(`{"connectorId":1,"errorCode":"NoError","status":"Charging"}`)
	payload, callErr := dec.Decode(statusAction, false, raw)
	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	request := payload.(*core.StatusNotificationRequest)
	if request.Status != core.ChargePointStatusCharging {
		t.Errorf("unexpected status %s", request.Status)
	}

	raw = json.RawMessage(`{"connectorId":1,"errorCode":"NoError","status":"Sleeping"}`)
	_, callErr = dec.Decode(statusAction, false, raw)
	if callErr == nil || callErr.Code != ocpp.SchemaValidation {
		t.Errorf("expected schema validation failure for unknown status, got %v", callErr)
	}
}

func TestDecodeUnknownPayloadType(t *testing.T) {
	dec := NewV15()
	bogus := ocpp.Action{Version: ocpp.V15, Direction: ocpp.CentralSystemBound, Name: "Nonexistent"}
	_, callErr := dec.Decode(bogus, false, json.RawMessage(`{}`))
	if callErr == nil || callErr.Code != ocpp.NotSupported {
		t.Errorf("expected %s, got %v", ocpp.NotSupported, callErr)
	}
}
