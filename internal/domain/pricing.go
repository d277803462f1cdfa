package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var secondsPerHour = decimal.NewFromInt(int64(time.Hour / time.Second))

// CalculateDetailPrice walks [start, end) in schedule-boundary steps and sums
// duration * hourly rate of the schedule covering each step.
func CalculateDetailPrice(schedules []CourtSchedule, day time.Weekday, start, end time.Duration) (decimal.Decimal, error) {
	if start >= end {
		return decimal.Zero, InvalidOperation("start time %s must be before end time %s", FormatTimeOfDay(start), FormatTimeOfDay(end))
	}

	total := decimal.Zero
	for cursor := start; cursor < end; {
		schedule, ok := findSchedule(schedules, day, cursor)
		if !ok {
			return decimal.Zero, InvalidOperation("no schedule covers %s on %s", FormatTimeOfDay(cursor), day)
		}
		next := min(schedule.EndTime, end)
		seconds := decimal.NewFromInt(int64((next - cursor) / time.Second))
		total = total.Add(schedule.PricePerHour.Mul(seconds).Div(secondsPerHour))
		cursor = next
	}
	return total, nil
}

func findSchedule(schedules []CourtSchedule, day time.Weekday, at time.Duration) (CourtSchedule, bool) {
	for _, s := range schedules {
		if s.DayOfWeek == day && s.StartTime <= at && at < s.EndTime {
			return s, true
		}
	}
	return CourtSchedule{}, false
}

func hoursBetween(start, end time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64((end - start) / time.Second)).Div(secondsPerHour)
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
}

func FormatTimeOfDay(d time.Duration) string {
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	return fmt.Sprintf("%02d:%02d", h, m)
}
