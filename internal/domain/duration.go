package domain

import (
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// FormatElapsed renders the time a task stayed open.
//
// Spans of at least one day read "<days> days, <h>:<mm>:00", shorter spans "<h>:<mm>:00".
// The span is rounded to the nearest whole minute (30s rounds up), so the seconds
// component is always zero. Negative spans, caused by clock skew between writers,
// are clamped to zero.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	minutes := int64(d.Round(time.Minute) / time.Minute)
	days := minutes / minutesPerDay
	rem := minutes % minutesPerDay
	hours, mins := rem/60, rem%60

	if days >= 1 {
		return fmt.Sprintf("%d days, %d:%02d:00", days, hours, mins)
	}
	return fmt.Sprintf("%d:%02d:00", hours, mins)
}
