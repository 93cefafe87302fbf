package dashboard

import (
	"fmt"
	"time"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
)

// TimeAgo renders the elapsed time between t and now as a relative label
// such as "just now", "1 minute ago" or "3 weeks ago". Future timestamps
// render as "just now".
func TimeAgo(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return ago(int(d/time.Minute), "minute")
	case d < day:
		return ago(int(d/time.Hour), "hour")
	case d < week:
		return ago(int(d/day), "day")
	case d < month:
		return ago(int(d/week), "week")
	default:
		return ago(int(d/month), "month")
	}
}

func ago(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
