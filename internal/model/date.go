package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and display format of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time of day.  It is stored in SQL DATE
// columns and travels over JSON as "YYYY-MM-DD".  The wrapped time is always
// midnight UTC so that two Dates for the same day compare equal.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string.  RFC 3339 timestamps are accepted
// as well and truncated to their day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected %s", s, DateLayout)
	}
	return NewDate(t), nil
}

// MustDate is ParseDate for literals known to be valid.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Today returns the current UTC calendar day.
func Today() Date { return NewDate(time.Now()) }

func (d Date) String() string { return d.Time.Format(DateLayout) }

// Before reports whether d is an earlier day than other.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After reports whether d is a later day than other.
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

// Equal reports whether both values denote the same day.
func (d Date) Equal(other Date) bool { return d.Time.Equal(other.Time) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalParam lets echo bind dates from query and form values.
func (d *Date) UnmarshalParam(param string) error {
	parsed, err := ParseDate(param)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the day as a DATE-compatible time.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan accepts the time.Time produced by the MySQL driver with
// parseTime=true, or the raw textual form when parseTime is off.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case nil:
		*d = Date{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into model.Date", src)
}
