package types

import (
	"encoding/json"
	"time"
)

// DateTime wraps time.Time for the wire timestamp fields. Charge points are
// not consistent about zone designators, so decoding falls back to a zoneless
// layout interpreted as UTC.
type DateTime struct {
	time.Time
}

func NewDateTime(t time.Time) *DateTime {
	return &DateTime{Time: t}
}

func (dt *DateTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		parsed, err = time.ParseInLocation("2006-01-02T15:04:05.999999999", raw, time.UTC)
		if err != nil {
			return err
		}
	}
	dt.Time = parsed
	return nil
}
