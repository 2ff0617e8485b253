package notification

import (
	"strconv"
	"strings"
	"time"

	"tusach-congdong/internal/domain"
)

// IsQuietAt reports whether now falls inside the user's do-not-disturb
// window. The window is [start, end) over minute-of-day in the
// timestamp's location; start > end means it wraps past midnight
// (22:00–07:00 covers late evening and early morning). Disabled quiet
// hours or an unparsable boundary always means "not quiet".
func IsQuietAt(settings *domain.NotificationSettings, now time.Time) bool {
	if settings == nil || !settings.QuietHoursEnabled {
		return false
	}

	start, ok := parseMinuteOfDay(settings.QuietHoursStart)
	if !ok {
		return false
	}
	end, ok := parseMinuteOfDay(settings.QuietHoursEnd)
	if !ok {
		return false
	}
	if start == end {
		return false
	}

	minute := now.Hour()*60 + now.Minute()

	if start < end {
		return minute >= start && minute < end
	}
	// Wraps past midnight.
	return minute >= start || minute < end
}

func parseMinuteOfDay(value string) (int, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, false
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}

	return hour*60 + minute, true
}
