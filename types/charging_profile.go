package types

// Charging profiles describe a rate schedule for managed charging. A charge point
// may resend an unchanged profile, so comparison is structural, never by identity.

type ChargingProfilePurposeType string
type ChargingProfileKindType string
type RecurrencyKindType string
type ChargingRateUnitType string

const (
	ChargingProfilePurposeChargePointMaxProfile ChargingProfilePurposeType = "ChargePointMaxProfile"
	ChargingProfilePurposeTxDefaultProfile      ChargingProfilePurposeType = "TxDefaultProfile"
	ChargingProfilePurposeTxProfile             ChargingProfilePurposeType = "TxProfile"
	ChargingProfileKindAbsolute                 ChargingProfileKindType    = "Absolute"
	ChargingProfileKindRecurring                ChargingProfileKindType    = "Recurring"
	ChargingProfileKindRelative                 ChargingProfileKindType    = "Relative"
	RecurrencyKindDaily                         RecurrencyKindType         = "Daily"
	RecurrencyKindWeekly                        RecurrencyKindType         = "Weekly"
	ChargingRateUnitWatts                       ChargingRateUnitType       = "W"
	ChargingRateUnitAmperes                     ChargingRateUnitType       = "A"
)

type ChargingSchedulePeriod struct {
	StartPeriod  int     `json:"startPeriod" validate:"gte=0"`
	Limit        float64 `json:"limit" validate:"gte=0"`
	NumberPhases *int    `json:"numberPhases,omitempty" validate:"omitempty,gte=0"`
}

type ChargingSchedule struct {
	Duration               *int                     `json:"duration,omitempty" validate:"omitempty,gte=0"`
	StartSchedule          *DateTime                `json:"startSchedule,omitempty"`
	ChargingRateUnit       ChargingRateUnitType     `json:"chargingRateUnit" validate:"required"`
	ChargingSchedulePeriod []ChargingSchedulePeriod `json:"chargingSchedulePeriod" validate:"required,min=1"`
	MinChargingRate        *float64                 `json:"minChargingRate,omitempty" validate:"omitempty,gte=0"`
}

type ChargingProfile struct {
	ChargingProfileId      int                        `json:"chargingProfileId"`
	TransactionId          int                        `json:"transactionId,omitempty"`
	StackLevel             int                        `json:"stackLevel" validate:"gte=0"`
	ChargingProfilePurpose ChargingProfilePurposeType `json:"chargingProfilePurpose" validate:"required"`
	ChargingProfileKind    ChargingProfileKindType    `json:"chargingProfileKind" validate:"required"`
	RecurrencyKind         RecurrencyKindType         `json:"recurrencyKind,omitempty" validate:"omitempty"`
	ValidFrom              *DateTime                  `json:"validFrom,omitempty"`
	ValidTo                *DateTime                  `json:"validTo,omitempty"`
	ChargingSchedule       *ChargingSchedule          `json:"chargingSchedule" validate:"required"`
}

func (p ChargingSchedulePeriod) IsSameAs(other ChargingSchedulePeriod) bool {
	if p.StartPeriod != other.StartPeriod || p.Limit != other.Limit {
		return false
	}
	return equalIntPtr(p.NumberPhases, other.NumberPhases)
}

func (s *ChargingSchedule) IsSameAs(other *ChargingSchedule) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.ChargingRateUnit != other.ChargingRateUnit {
		return false
	}
	if !equalIntPtr(s.Duration, other.Duration) {
		return false
	}
	if !equalFloatPtr(s.MinChargingRate, other.MinChargingRate) {
		return false
	}
	if !equalDateTimePtr(s.StartSchedule, other.StartSchedule) {
		return false
	}
	if len(s.ChargingSchedulePeriod) != len(other.ChargingSchedulePeriod) {
		return false
	}
	for i, period := range s.ChargingSchedulePeriod {
		if !period.IsSameAs(other.ChargingSchedulePeriod[i]) {
			return false
		}
	}
	return true
}

func (p *ChargingProfile) IsSameAs(other *ChargingProfile) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.ChargingProfileId != other.ChargingProfileId ||
		p.TransactionId != other.TransactionId ||
		p.StackLevel != other.StackLevel ||
		p.ChargingProfilePurpose != other.ChargingProfilePurpose ||
		p.ChargingProfileKind != other.ChargingProfileKind ||
		p.RecurrencyKind != other.RecurrencyKind {
		return false
	}
	if !equalDateTimePtr(p.ValidFrom, other.ValidFrom) || !equalDateTimePtr(p.ValidTo, other.ValidTo) {
		return false
	}
	return p.ChargingSchedule.IsSameAs(other.ChargingSchedule)
}

func (p *ChargingProfile) DiffersFrom(other *ChargingProfile) bool {
	return !p.IsSameAs(other)
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalDateTimePtr(a, b *DateTime) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b.Time)
}
