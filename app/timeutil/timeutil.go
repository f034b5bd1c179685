// Package timeutil normalizes calendar days in the business timezone.
// Every date comparison in the app goes through DayKey/NormalizeDay so that
// "same day" means the same thing on every device, regardless of the device's
// local zone.
package timeutil

import (
	"time"
	_ "time/tzdata"
)

// DayKeyFormat is the canonical calendar-day form used throughout the app.
const DayKeyFormat = "2006-01-02"

var businessZone *time.Location

func init() {
	loc, err := time.LoadLocation("Asia/Kuala_Lumpur")
	if err != nil {
		// MYT has no DST, a fixed offset is equivalent
		loc = time.FixedZone("MYT", 8*60*60)
	}
	businessZone = loc
}

// Location returns the business timezone
func Location() *time.Location {
	return businessZone
}

// DayKey formats a point in time as its calendar day in the business timezone
func DayKey(t time.Time) string {
	return t.In(businessZone).Format(DayKeyFormat)
}

// Today returns the current calendar day in the business timezone
func Today() string {
	return DayKey(time.Now())
}

// NormalizeDay reduces a stored date value to a canonical day key. Accepts
// the canonical form, RFC 3339 timestamps and a few legacy variants; values
// that do not parse are returned unchanged so they only ever match themselves.
func NormalizeDay(s string) string {
	if len(s) == len(DayKeyFormat) {
		if _, err := time.ParseInLocation(DayKeyFormat, s, businessZone); err == nil {
			return s
		}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006/01/02",
	} {
		if t, err := time.ParseInLocation(layout, s, businessZone); err == nil {
			if layout == time.RFC3339 {
				return DayKey(t)
			}
			return t.In(businessZone).Format(DayKeyFormat)
		}
	}
	return s
}

// AddDays shifts a day key by n calendar days
func AddDays(day string, n int) string {
	t, err := time.ParseInLocation(DayKeyFormat, day, businessZone)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, n).Format(DayKeyFormat)
}
