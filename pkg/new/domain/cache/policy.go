package cache

import "time"

const MaxCacheAgeInDays = 7

// IsValid reports whether a cache written at timestamp may still be served at now.
// Age is counted in calendar days in now's location, so the result doesn't depend on
// the zone a store hands the timestamp back in. If the expiry can't be represented
// the cache is treated as expired.
func IsValid(now time.Time, timestamp time.Time) bool {
	maxAge := timestamp.In(now.Location()).AddDate(0, 0, MaxCacheAgeInDays)
	if !maxAge.After(timestamp) {
		return false
	}
	return now.Before(maxAge)
}
