package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FeeSchedule maps an itemized fee label to its amount in rupiah.
// It is stored as a JSONB column on periods and applicants.
type FeeSchedule map[string]int64

// Total sums all item amounts. Nil or empty schedules total zero and
// negative entries contribute nothing.
func (s FeeSchedule) Total() int64 {
	var total int64
	for _, amount := range s {
		if amount < 0 {
			continue
		}
		total += amount
	}
	return total
}

// Value implements driver.Valuer for JSONB storage.
func (s FeeSchedule) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal fee schedule: %w", err)
	}
	return payload, nil
}

// Scan implements sql.Scanner for JSONB columns.
func (s *FeeSchedule) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported fee schedule source %T", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}
