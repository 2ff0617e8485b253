package unit_test

import (
	"testing"
	"time"

	"tusach-congdong/internal/domain"
	"tusach-congdong/internal/service/notification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func quietSettings(start, end string, enabled bool) *domain.NotificationSettings {
	return &domain.NotificationSettings{
		UserID:            uuid.New(),
		EmailEnabled:      true,
		InAppEnabled:      true,
		QuietHoursEnabled: enabled,
		QuietHoursStart:   start,
		QuietHoursEnd:     end,
	}
}

func atClock(hour, minute int) time.Time {
	return time.Date(2026, 3, 15, hour, minute, 0, 0, time.UTC)
}

func TestIsQuietAt_WrapsPastMidnight(t *testing.T) {
	settings := quietSettings("22:00", "07:00", true)

	assert.True(t, notification.IsQuietAt(settings, atClock(23, 30)))
	assert.True(t, notification.IsQuietAt(settings, atClock(3, 0)))
	assert.True(t, notification.IsQuietAt(settings, atClock(22, 0)), "start boundary is inside the window")
	assert.False(t, notification.IsQuietAt(settings, atClock(7, 0)), "end boundary is outside the window")
	assert.False(t, notification.IsQuietAt(settings, atClock(12, 0)))
	assert.False(t, notification.IsQuietAt(settings, atClock(21, 59)))
}

func TestIsQuietAt_SameDayWindow(t *testing.T) {
	settings := quietSettings("13:00", "15:00", true)

	assert.True(t, notification.IsQuietAt(settings, atClock(13, 0)))
	assert.True(t, notification.IsQuietAt(settings, atClock(14, 59)))
	assert.False(t, notification.IsQuietAt(settings, atClock(15, 0)))
	assert.False(t, notification.IsQuietAt(settings, atClock(12, 59)))
	assert.False(t, notification.IsQuietAt(settings, atClock(23, 0)))
}

func TestIsQuietAt_Disabled(t *testing.T) {
	settings := quietSettings("22:00", "07:00", false)

	assert.False(t, notification.IsQuietAt(settings, atClock(23, 30)))
	assert.False(t, notification.IsQuietAt(nil, atClock(23, 30)))
}

func TestIsQuietAt_DegenerateAndInvalidWindows(t *testing.T) {
	t.Run("start equals end", func(t *testing.T) {
		settings := quietSettings("09:00", "09:00", true)
		assert.False(t, notification.IsQuietAt(settings, atClock(9, 0)))
		assert.False(t, notification.IsQuietAt(settings, atClock(21, 0)))
	})

	t.Run("unparsable boundaries", func(t *testing.T) {
		for _, bad := range []string{"", "25:00", "22:60", "2200", "aa:bb", "22:00:00"} {
			settings := quietSettings(bad, "07:00", true)
			assert.False(t, notification.IsQuietAt(settings, atClock(23, 0)), "start %q", bad)

			settings = quietSettings("22:00", bad, true)
			assert.False(t, notification.IsQuietAt(settings, atClock(23, 0)), "end %q", bad)
		}
	})
}
