package pg

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// TimeOfDay converts an offset from midnight into a TIME parameter.
func TimeOfDay(d time.Duration) pgtype.Time {
	return pgtype.Time{Microseconds: d.Microseconds(), Valid: true}
}

func Duration(t pgtype.Time) time.Duration {
	return time.Duration(t.Microseconds) * time.Microsecond
}

// Date truncates t to the calendar day stored in a DATE column.
func Date(t time.Time) pgtype.Date {
	return pgtype.Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
}
