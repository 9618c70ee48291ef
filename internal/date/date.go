// Package date provides calendar days and day ranges for ledger bookkeeping.
package date

import (
	"encoding/json"
	"fmt"
	"time"
)

// Format is the ISO-8601 representation of a Date.
const Format = "2006-01-02"

// readFormat is permissive and accepts single-digit months and days.
const readFormat = "2006-1-2"

// Date is a calendar day with no time-of-day component.
// The zero value is not a valid day; use IsZero to detect it.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date, so New(2025, 1, 32) is 2025-02-01.
func New(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	y, m, d := t.Date()
	return Date{y, m, d}
}

// Of returns the calendar day t falls on, observed in loc.
func Of(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return New(t.In(loc).Date())
}

// Today returns the current day in loc.
func Today(loc *time.Location) Date { return Of(time.Now(), loc) }

// Parse reads a Date in YYYY-MM-DD form (YYYY-M-D is also accepted).
func Parse(s string) (Date, error) {
	t, err := time.Parse(readFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", s, Format, err)
	}
	return New(t.Date()), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

func (d Date) utc() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Start returns midnight at the beginning of the day in loc.
func (d Date) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, loc)
}

// End returns the last representable instant of the day in loc.
func (d Date) End(loc *time.Location) time.Time {
	return d.Add(1).Start(loc).Add(-time.Nanosecond)
}

func (d Date) Year() int             { return d.y }
func (d Date) Month() time.Month     { return d.m }
func (d Date) Day() int              { return d.d }
func (d Date) Weekday() time.Weekday { return d.utc().Weekday() }
func (d Date) IsZero() bool          { return d == Date{} }
func (d Date) Add(days int) Date     { return New(d.y, d.m, d.d+days) }
func (d Date) Before(x Date) bool    { return d.utc().Before(x.utc()) }
func (d Date) After(x Date) bool     { return d.utc().After(x.utc()) }
func (d Date) Compare(x Date) int    { return d.utc().Compare(x.utc()) }
func (d Date) String() string        { return d.utc().Format(Format) }

// Sub returns the number of days from x to d.
func (d Date) Sub(x Date) int { return int(d.utc().Sub(x.utc()) / (24 * time.Hour)) }

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}
