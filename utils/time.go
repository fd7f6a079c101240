// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// UTCNowAdd returns the current UTC time plus the given duration
func UTCNowAdd(d time.Duration) time.Time {
	return UTCNow().Add(d)
}

// IsExpired checks if the given time is in the past (expired)
func IsExpired(t time.Time) bool {
	return UTCNow().After(t)
}

// IsExpiredPtr checks if the given time pointer is in the past (expired)
func IsExpiredPtr(t *time.Time) bool {
	if t == nil {
		return false
	}
	return IsExpired(*t)
}

// IsValid checks if the given time is in the future (valid)
func IsValid(t time.Time) bool {
	return UTCNow().Before(t)
}

// IsValidPtr checks if the given time pointer is in the future (valid)
func IsValidPtr(t *time.Time) bool {
	if t == nil {
		return false
	}
	return IsValid(*t)
}

// NextDailyRefresh returns the next occurrence of the daily ingestion boundary
// (hour o'clock in loc) strictly after now.
func NextDailyRefresh(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.UTC()
}

// BadgeExpiry returns the freshness-badge expiry for a checkpoint taken at now:
// the earlier of now+maxTTL and the next daily refresh boundary.
func BadgeExpiry(now time.Time, maxTTL time.Duration, refreshHour int, loc *time.Location) time.Time {
	byTTL := now.Add(maxTTL)
	byRefresh := NextDailyRefresh(now, refreshHour, loc)
	if byRefresh.Before(byTTL) {
		return byRefresh
	}
	return byTTL
}
