package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDay(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2025-03-14", "2025-03-14"},
		{"2025/03/14", "2025-03-14"},
		{"2025-03-14T09:30:00", "2025-03-14"},
		{"2025-03-14 09:30:00", "2025-03-14"},
		// UTC evening is already the next morning in the business zone
		{"2025-03-14T23:30:00Z", "2025-03-15"},
		{"not-a-date", "not-a-date"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeDay(c.in), "input %q", c.in)
	}
}

func TestDayKeyUsesBusinessZone(t *testing.T) {
	// 2025-03-14 18:00 UTC is 2025-03-15 02:00 in Kuala Lumpur
	utc := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-15", DayKey(utc))
}

func TestAddDays(t *testing.T) {
	assert.Equal(t, "2025-03-01", AddDays("2025-02-28", 1))
	assert.Equal(t, "2025-03-07", AddDays("2025-03-14", -7))
	assert.Equal(t, "garbage", AddDays("garbage", 3))
}
