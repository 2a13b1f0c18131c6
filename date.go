package fintalk

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar day. The zero Date means "no date".
type Date struct {
	t time.Time // midnight UTC
}

const (
	isoLayout     = "2006-01-02"
	lenientLayout = "2006-1-2"
)

// NewDate returns the Date of year, month and day, normalized the way
// time.Date does: NewDate(2025, 3, 0) is the last day of February.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the day of t, in t's location.
func DateOf(t time.Time) Date { return NewDate(t.Date()) }

// Today is the current day in the local time zone.
func Today() Date { return DateOf(time.Now()) }

func (d Date) time() time.Time { return d.t }

func (d Date) Year() int          { return d.t.Year() }
func (d Date) Month() time.Month  { return d.t.Month() }
func (d Date) Day() int           { return d.t.Day() }
func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) Before(x Date) bool { return d.t.Before(x.t) }
func (d Date) After(x Date) bool  { return d.t.After(x.t) }

// Add moves d by days, negative values go back.
func (d Date) Add(days int) Date { return Date{d.t.AddDate(0, 0, days)} }

// AddMonths keeps the day of month, overflowing into the next month the
// way time.AddDate does.
func (d Date) AddMonths(months int) Date { return Date{d.t.AddDate(0, months, 0)} }

// String is the ISO 8601 form, empty for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(isoLayout)
}

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(lenientLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q, want %s: %w", s, isoLayout, err)
	}
	*d = DateOf(t)
	return nil
}

// MustParse is ParseDate relative to Today, panicking on error.
func MustParse(s string) Date {
	d, err := ParseDate(s, Today())
	if err != nil {
		panic(err)
	}
	return d
}

var errNoMatch = errors.New("no match")

// dateParsers are tried in order by ParseDate.
var dateParsers = []func(s string, today Date) (Date, error){
	parseKeyword,
	parseOffset,
	parseMonthDay,
	parseAbsolute,
}

// ParseDate reads a day relative to today. Accepted forms:
//
//	today, yesterday          keywords
//	-1d +2w -1m -1q -1y 0d    offsets in days, weeks, months, quarters, years
//	27, 8-27                  day of the current month, month-day of the current year
//	2025-08-27, 2025-8-27     absolute dates, RFC 3339 timestamps too
func ParseDate(s string, today Date) (Date, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, parse := range dateParsers {
		d, err := parse(s, today)
		if errors.Is(err, errNoMatch) {
			continue
		}
		return d, err
	}
	return Date{}, fmt.Errorf("invalid date %q, want %s, [MM-]DD or an offset like -1d", s, isoLayout)
}

func parseKeyword(s string, today Date) (Date, error) {
	switch s {
	case "today", "0d":
		return today, nil
	case "yesterday":
		return today.Add(-1), nil
	}
	return Date{}, errNoMatch
}

var offsetRE = regexp.MustCompile(`^([+-]\d+)([dwmqy])$`)

func parseOffset(s string, today Date) (Date, error) {
	m := offsetRE.FindStringSubmatch(s)
	if m == nil {
		return Date{}, errNoMatch
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Date{}, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	switch m[2] {
	case "d":
		return today.Add(n), nil
	case "w":
		return today.Add(7 * n), nil
	case "m":
		return today.AddMonths(n), nil
	case "q":
		return today.AddMonths(3 * n), nil
	default:
		return today.AddMonths(12 * n), nil
	}
}

var monthDayRE = regexp.MustCompile(`^(?:(\d{1,2})-)?(\d{1,2})$`)

// parseMonthDay reads "DD" or "MM-DD" in the current year. Day 0 is the
// last day of the previous month.
func parseMonthDay(s string, today Date) (Date, error) {
	m := monthDayRE.FindStringSubmatch(s)
	if m == nil {
		return Date{}, errNoMatch
	}
	month := today.Month()
	if m[1] != "" {
		n, _ := strconv.Atoi(m[1])
		if n < 1 || n > 12 {
			return Date{}, fmt.Errorf("invalid date %q, month %d out of range", s, n)
		}
		month = time.Month(n)
	}
	day, _ := strconv.Atoi(m[2])
	if last := NewDate(today.Year(), month+1, 0).Day(); day > last {
		return Date{}, fmt.Errorf("invalid date %q, %s has %d days", s, month, last)
	}
	return NewDate(today.Year(), month, day), nil
}

func parseAbsolute(s string, _ Date) (Date, error) {
	if t, err := time.Parse(lenientLayout, s); err == nil {
		return DateOf(t), nil
	}
	// models often send full timestamps
	if t, err := time.Parse(time.RFC3339, strings.ToUpper(s)); err == nil {
		return DateOf(t), nil
	}
	return Date{}, errNoMatch
}
