package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDailyRefresh(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		hour int
		loc  *time.Location
		want time.Time
	}{
		{
			name: "BeforeBoundarySameDay",
			now:  time.Date(2026, 8, 29, 1, 0, 0, 0, time.UTC),
			hour: 4,
			loc:  time.UTC,
			want: time.Date(2026, 8, 29, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "AfterBoundaryNextDay",
			now:  time.Date(2026, 8, 29, 5, 0, 0, 0, time.UTC),
			hour: 4,
			loc:  time.UTC,
			want: time.Date(2026, 8, 30, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "ExactlyAtBoundaryRollsOver",
			now:  time.Date(2026, 8, 29, 4, 0, 0, 0, time.UTC),
			hour: 4,
			loc:  time.UTC,
			want: time.Date(2026, 8, 30, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "BoundaryInterpretedInLocalZone",
			// 01:00 UTC is 03:00 in Berlin (CEST); next 04:00 Berlin is 02:00 UTC
			now:  time.Date(2026, 8, 29, 1, 0, 0, 0, time.UTC),
			hour: 4,
			loc:  berlin,
			want: time.Date(2026, 8, 29, 2, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDailyRefresh(tt.now, tt.hour, tt.loc)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestBadgeExpiry(t *testing.T) {
	const maxTTL = 12 * time.Hour

	t.Run("TTLWinsWhenBoundaryIsFar", func(t *testing.T) {
		// 05:00 + 12h = 17:00, next 04:00 boundary is tomorrow
		now := time.Date(2026, 8, 29, 5, 0, 0, 0, time.UTC)
		got := BadgeExpiry(now, maxTTL, 4, time.UTC)
		assert.True(t, now.Add(maxTTL).Equal(got), "got %s", got)
	})

	t.Run("BoundaryWinsWhenCloser", func(t *testing.T) {
		// 23:00 + 12h = 11:00 next day, but 04:00 comes first
		now := time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC)
		got := BadgeExpiry(now, maxTTL, 4, time.UTC)
		want := time.Date(2026, 8, 30, 4, 0, 0, 0, time.UTC)
		assert.True(t, want.Equal(got), "got %s", got)
	})

	t.Run("ExpiryAlwaysInTheFuture", func(t *testing.T) {
		for hour := 0; hour < 24; hour++ {
			now := time.Date(2026, 8, 29, hour, 30, 0, 0, time.UTC)
			got := BadgeExpiry(now, maxTTL, 4, time.UTC)
			assert.True(t, got.After(now), "hour %d: expiry %s not after %s", hour, got, now)
		}
	})
}

func TestExpiryHelpers(t *testing.T) {
	past := UTCNow().Add(-time.Minute)
	future := UTCNow().Add(time.Minute)

	assert.True(t, IsExpired(past))
	assert.False(t, IsExpired(future))
	assert.False(t, IsExpiredPtr(nil))
	assert.True(t, IsExpiredPtr(&past))
	assert.True(t, IsValid(future))
	assert.False(t, IsValidPtr(nil))
}
