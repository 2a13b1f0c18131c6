package fintalk

import (
	"fmt"
	"strings"
	"time"
)

// Period is a calendar span: day, week (Monday to Sunday), month, quarter
// or year.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

var periodNames = map[Period][]string{
	Daily:     {"daily", "day"},
	Weekly:    {"weekly", "week"},
	Monthly:   {"monthly", "month"},
	Quarterly: {"quarterly", "quarter"},
	Yearly:    {"yearly", "year"},
}

func (p Period) String() string {
	if names, ok := periodNames[p]; ok {
		return names[0]
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// ParsePeriod reads a period name, "month", "monthly" and "this month" are
// all Monthly.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "this ")
	for p, names := range periodNames {
		for _, name := range names {
			if s == name {
				return p, nil
			}
		}
	}
	return Daily, fmt.Errorf("unknown period %q", s)
}

// StartOf is the first day of the period containing d.
func (d Date) StartOf(p Period) Date {
	switch p {
	case Daily:
		return d
	case Weekly:
		back := (int(d.t.Weekday()) + 6) % 7 // days since Monday
		return d.Add(-back)
	case Monthly:
		return NewDate(d.Year(), d.Month(), 1)
	case Quarterly:
		first := d.Month() - (d.Month()-1)%3
		return NewDate(d.Year(), first, 1)
	case Yearly:
		return NewDate(d.Year(), time.January, 1)
	}
	panic(fmt.Sprintf("unknown period %d", p))
}

// EndOf is the last day of the period containing d.
func (d Date) EndOf(p Period) Date {
	start := d.StartOf(p)
	switch p {
	case Daily:
		return d
	case Weekly:
		return start.Add(6)
	case Monthly:
		return start.AddMonths(1).Add(-1)
	case Quarterly:
		return start.AddMonths(3).Add(-1)
	default:
		return start.AddMonths(12).Add(-1)
	}
}

// Range is an inclusive span of days. A zero bound is open.
type Range struct{ From, To Date }

// All is the unbounded Range.
var All = Range{}

// NewRange returns the Range between two days, in any order.
func NewRange(from, to Date) Range {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return Range{From: to, To: from}
	}
	return Range{From: from, To: to}
}

// Contains reports whether d lies in r, bounds included.
func (r Range) Contains(d Date) bool {
	return (r.From.IsZero() || !d.Before(r.From)) && (r.To.IsZero() || !d.After(r.To))
}

func (r Range) String() string {
	switch {
	case r.From.IsZero() && r.To.IsZero():
		return "all time"
	case r.From.IsZero():
		return "until " + r.To.String()
	case r.To.IsZero():
		return "since " + r.From.String()
	}
	return r.From.String() + " to " + r.To.String()
}

// ParseRange reads the bounds of a Range relative to today. A bound is
// empty (open), a day accepted by ParseDate, or a period name standing for
// the start (from) or the end (to) of the current period.
func ParseRange(from, to string, today Date) (Range, error) {
	f, err := parseBound(from, today, Date.StartOf)
	if err != nil {
		return Range{}, fmt.Errorf("from: %w", err)
	}
	t, err := parseBound(to, today, Date.EndOf)
	if err != nil {
		return Range{}, fmt.Errorf("to: %w", err)
	}
	return NewRange(f, t), nil
}

func parseBound(s string, today Date, edge func(Date, Period) Date) (Date, error) {
	if strings.TrimSpace(s) == "" {
		return Date{}, nil
	}
	if p, err := ParsePeriod(s); err == nil {
		return edge(today, p), nil
	}
	return ParseDate(s, today)
}
