package projects

import "time"

// DefaultCooldown is how long a removed member waits before requesting to rejoin.
const DefaultCooldown = time.Hour

// IsReentryAllowed reports whether window has elapsed since removalTime.
func IsReentryAllowed(removalTime, now time.Time, window time.Duration) bool {
	return now.Sub(removalTime) >= window
}

// RemainingCooldown returns how long is left before re-entry is allowed, or zero.
func RemainingCooldown(removalTime, now time.Time, window time.Duration) time.Duration {
	if IsReentryAllowed(removalTime, now, window) {
		return 0
	}
	return window - now.Sub(removalTime)
}
