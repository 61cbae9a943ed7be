package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05"
)

// acceptedLayouts are tried in order when parsing a remote date value.
var acceptedLayouts = []string{
	dateLayout,
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseFlexible(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range acceptedLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Date is a calendar date as exchanged with the ERP's OData endpoints.
// The ERP uses 0001-01-01 for "no date"; it decodes to the zero value.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// IsSet reports whether the date carries a real value.
func (d Date) IsSet() bool {
	return !d.Time.IsZero() && d.Time.Year() > 1
}

// String formats the date as yyyy-MM-dd, or empty when unset.
func (d Date) String() string {
	if !d.IsSet() {
		return ""
	}
	return d.Time.Format(dateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.IsSet() {
		return []byte(`"0001-01-01"`), nil
	}
	return json.Marshal(d.Time.Format(dateLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := parseFlexible(s)
	if err != nil {
		return fmt.Errorf("date: %q: %w", s, err)
	}
	if t.Year() <= 1 {
		d.Time = time.Time{}
		return nil
	}
	d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return nil
}

// Timestamp is a local date-time as exchanged with Tradecloud.
// A value at midnight is written as a plain date.
type Timestamp struct {
	time.Time
}

// TimestampOf wraps t.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// CalendarDate returns the date part.
func (ts Timestamp) CalendarDate() Date {
	if ts.Time.IsZero() {
		return Date{}
	}
	return NewDate(ts.Year(), ts.Month(), ts.Day())
}

func (ts Timestamp) isMidnight() bool {
	return ts.Hour() == 0 && ts.Minute() == 0 && ts.Second() == 0 && ts.Nanosecond() == 0
}

// String formats the timestamp the way it is sent on the wire.
func (ts Timestamp) String() string {
	if ts.isMidnight() {
		return ts.Time.Format(dateLayout)
	}
	return ts.Time.Format(timestampLayout)
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		ts.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		ts.Time = time.Time{}
		return nil
	}
	t, err := parseFlexible(s)
	if err != nil {
		return fmt.Errorf("timestamp: %q: %w", s, err)
	}
	ts.Time = t
	return nil
}
