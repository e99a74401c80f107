package aggregation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AggregationLevel represents the period size of a bucket
type AggregationLevel string

const (
	AggregationWeekly  AggregationLevel = "weekly"
	AggregationMonthly AggregationLevel = "monthly"
)

// ErrInvalidAggregationLevel is returned for any level other than weekly or monthly
var ErrInvalidAggregationLevel = errors.New("invalid aggregation level")

// ParseLevel maps a frequency name onto a level, ignoring case
func ParseLevel(s string) (AggregationLevel, error) {
	switch AggregationLevel(strings.ToLower(strings.TrimSpace(s))) {
	case AggregationWeekly:
		return AggregationWeekly, nil
	case AggregationMonthly:
		return AggregationMonthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAggregationLevel, s)
	}
}

var weekdayCodes = map[string]time.Weekday{
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
	"SUN": time.Sunday,
}

// Anchor fixes period boundaries: weeks start on WeekStart, months on the 1st.
// One Anchor value is shared by aggregation, gap filling and future period
// generation so all three produce the same grid.
type Anchor struct {
	WeekStart time.Weekday
}

// DefaultAnchor anchors weeks on Monday
func DefaultAnchor() Anchor {
	return Anchor{WeekStart: time.Monday}
}

// ParseAnchor reads rules such as "W-MON" and "MS"
func ParseAnchor(weeklyRule, monthlyRule string) (Anchor, error) {
	rule := strings.ToUpper(strings.TrimSpace(weeklyRule))
	day, ok := weekdayCodes[strings.TrimPrefix(rule, "W-")]
	if !ok || !strings.HasPrefix(rule, "W-") {
		return Anchor{}, fmt.Errorf("unsupported weekly rule %q", weeklyRule)
	}
	if strings.ToUpper(strings.TrimSpace(monthlyRule)) != "MS" {
		return Anchor{}, fmt.Errorf("unsupported monthly rule %q", monthlyRule)
	}
	return Anchor{WeekStart: day}, nil
}

// TruncateToDay drops the clock part of t in UTC
func TruncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TruncateToWeek returns the most recent start weekday on or before t
func TruncateToWeek(t time.Time, start time.Weekday) time.Time {
	day := TruncateToDay(t)
	offset := (int(day.Weekday()) - int(start) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// TruncateToMonth truncates time to the start of the month
func TruncateToMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Truncate maps t onto the start of its period
func (a Anchor) Truncate(level AggregationLevel, t time.Time) (time.Time, error) {
	switch level {
	case AggregationWeekly:
		return TruncateToWeek(t, a.WeekStart), nil
	case AggregationMonthly:
		return TruncateToMonth(t), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidAggregationLevel, level)
	}
}

// Next returns the period start following the period that contains t
func (a Anchor) Next(level AggregationLevel, t time.Time) (time.Time, error) {
	start, err := a.Truncate(level, t)
	if err != nil {
		return time.Time{}, err
	}
	if level == AggregationWeekly {
		return start.AddDate(0, 0, 7), nil
	}
	return start.AddDate(0, 1, 0), nil
}

// OnGrid reports whether t is exactly a period start
func (a Anchor) OnGrid(level AggregationLevel, t time.Time) bool {
	start, err := a.Truncate(level, t)
	return err == nil && start.Equal(t)
}

// Range lists every period start from the period containing from up to the
// period containing to, inclusive.
func (a Anchor) Range(level AggregationLevel, from, to time.Time) ([]time.Time, error) {
	cur, err := a.Truncate(level, from)
	if err != nil {
		return nil, err
	}
	last, err := a.Truncate(level, to)
	if err != nil {
		return nil, err
	}

	var out []time.Time
	for !cur.After(last) {
		out = append(out, cur)
		if cur, err = a.Next(level, cur); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Future returns n period starts strictly after the period containing last
func (a Anchor) Future(level AggregationLevel, last time.Time, n int) ([]time.Time, error) {
	out := make([]time.Time, 0, n)
	cur := last
	for i := 0; i < n; i++ {
		next, err := a.Next(level, cur)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}
