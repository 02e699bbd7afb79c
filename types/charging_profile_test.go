package types

import (
	"testing"
	"time"
)

func sampleProfile() *ChargingProfile {
	duration := 3600
	phases := 3
	start := NewDateTime(time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC))
	return &ChargingProfile{
		ChargingProfileId:      7,
		StackLevel:             1,
		ChargingProfilePurpose: ChargingProfilePurposeTxDefaultProfile,
		ChargingProfileKind:    ChargingProfileKindAbsolute,
		ChargingSchedule: &ChargingSchedule{
			Duration:         &duration,
			StartSchedule:    start,
			ChargingRateUnit: ChargingRateUnitAmperes,
			ChargingSchedulePeriod: []ChargingSchedulePeriod{
				{StartPeriod: 0, Limit: 32, NumberPhases: &phases},
				{StartPeriod: 1800, Limit: 16},
			},
		},
	}
}

func TestChargingProfileIsSameAs(t *testing.T) {
	first := sampleProfile()
	second := sampleProfile()
	if !first.IsSameAs(second) {
		t.Error("structurally equal profiles reported as different")
	}
	if first.DiffersFrom(second) {
		t.Error("DiffersFrom must be the negation of IsSameAs")
	}

	second.ChargingSchedule.ChargingSchedulePeriod[1].Limit = 10
	if first.IsSameAs(second) {
		t.Error("changed period limit not detected")
	}

	third := sampleProfile()
	third.ChargingSchedule.Duration = nil
	if first.IsSameAs(third) {
		t.Error("dropped duration not detected")
	}

	fourth := sampleProfile()
	fourth.StackLevel = 2
	if first.IsSameAs(fourth) {
		t.Error("changed stack level not detected")
	}
}

func TestChargingProfileNilComparison(t *testing.T) {
	var absent *ChargingProfile
	if absent.IsSameAs(sampleProfile()) {
		t.Error("nil must differ from a populated profile")
	}
	if !absent.IsSameAs(nil) {
		t.Error("two nil profiles are the same")
	}
}
