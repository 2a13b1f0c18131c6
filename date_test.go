package fintalk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTime assert that the time() is cannonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := NewDate(2025, 7, 31)
	d2 := NewDate(2025, 7, 31)

	if d1.time() != d2.time() {
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestParseDate(t *testing.T) {
	today := NewDate(2025, 8, 15) // a Friday

	testCases := []struct {
		in   string
		want Date
	}{
		{"2025-07-01", NewDate(2025, 7, 1)},
		{"2025-7-1", NewDate(2025, 7, 1)},
		{" today ", today},
		{"0d", today},
		{"yesterday", NewDate(2025, 8, 14)},
		{"-1d", NewDate(2025, 8, 14)},
		{"+2w", NewDate(2025, 8, 29)},
		{"-1m", NewDate(2025, 7, 15)},
		{"-1q", NewDate(2025, 5, 15)},
		{"-1y", NewDate(2024, 8, 15)},
		{"27", NewDate(2025, 8, 27)},
		{"3-5", NewDate(2025, 3, 5)},
		{"0", NewDate(2025, 7, 31)},
		{"31", NewDate(2025, 8, 31)},
		{"2-28", NewDate(2025, 2, 28)},
		{"3-0", NewDate(2025, 2, 28)},
		{"12-31", NewDate(2025, 12, 31)},
		{"2025-03-14T10:00:00Z", NewDate(2025, 3, 14)},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDate(tc.in, today)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"", "tomorrowish", "2025-13-40", "+d", "02-30", "13-45", "0-5", "99", "32", "2025-02-30"} {
		_, err := ParseDate(bad, today)
		assert.Error(t, err, "ParseDate(%q)", bad)
	}
}

func TestParseRange(t *testing.T) {
	today := NewDate(2025, 8, 15)

	testCases := []struct {
		name     string
		from, to string
		want     Range
	}{
		{"open", "", "", All},
		{"dates", "2025-01-01", "2025-01-31", Range{NewDate(2025, 1, 1), NewDate(2025, 1, 31)}},
		{"swapped", "2025-01-31", "2025-01-01", Range{NewDate(2025, 1, 1), NewDate(2025, 1, 31)}},
		{"month", "month", "month", Range{NewDate(2025, 8, 1), NewDate(2025, 8, 31)}},
		{"this week", "this week", "today", Range{NewDate(2025, 8, 11), today}},
		{"since", "-1m", "", Range{From: NewDate(2025, 7, 15)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRange(tc.from, tc.to, today)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseRange("garbage", "", today)
	assert.ErrorContains(t, err, "from:")
}

func TestRange_Contains(t *testing.T) {
	r := NewRange(NewDate(2025, 1, 1), NewDate(2025, 1, 31))
	assert.True(t, r.Contains(NewDate(2025, 1, 1)))
	assert.True(t, r.Contains(NewDate(2025, 1, 31)))
	assert.False(t, r.Contains(NewDate(2025, 2, 1)))
	assert.True(t, All.Contains(NewDate(1900, 1, 1)))
	assert.Equal(t, "all time", All.String())
	assert.Equal(t, "2025-01-01 to 2025-01-31", r.String())
}

func TestDate_JSON(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalJSON([]byte(`"2025-7-1"`)))
	assert.Equal(t, NewDate(2025, 7, 1), d)

	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2025-07-01"`, string(b))
}
