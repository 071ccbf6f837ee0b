package clock

import (
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Clock supplies the current time in UTC and in the care-programme's
// local zone. All calendar-date bucketing (vital logs, notification
// dedupe, escalation dates) uses the local time.
type Clock interface {
	Now() time.Time
	Local() time.Time
}

type zoneClock struct {
	offset time.Duration
}

// New returns a Clock with a fixed minute offset from UTC
// (e.g. 330 for IST).
func New(offsetMinutes int) Clock {
	return &zoneClock{offset: time.Duration(offsetMinutes) * time.Minute}
}

func (c *zoneClock) Now() time.Time {
	return time.Now().UTC()
}

func (c *zoneClock) Local() time.Time {
	return c.Now().Add(c.offset)
}

// Fixed is a Clock pinned to a single instant, for tests.
type Fixed struct {
	UTC    time.Time
	Offset time.Duration
}

func NewFixed(utc time.Time, offsetMinutes int) *Fixed {
	return &Fixed{UTC: utc, Offset: time.Duration(offsetMinutes) * time.Minute}
}

func (f *Fixed) Now() time.Time {
	return f.UTC
}

func (f *Fixed) Local() time.Time {
	return f.UTC.Add(f.Offset)
}

// Date formats t as a calendar date (YYYY-MM-DD).
func Date(t time.Time) string {
	return t.Format(DateLayout)
}

// HHMM formats t as a wall-clock time (HH:MM).
func HHMM(t time.Time) string {
	return t.Format(TimeLayout)
}

// MinuteOfDay converts an HH:MM string to minutes since midnight.
func MinuteOfDay(hhmm string) (int, bool) {
	t, err := time.Parse(TimeLayout, hhmm)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
