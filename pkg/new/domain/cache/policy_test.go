package cache_test

import (
	"math"
	"testing"
	"time"

	"github.com/piraces/feedcache/pkg/new/domain/cache"
	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	now := time.Date(2023, time.January, 10, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		timestamp time.Time
		valid     bool
	}{
		{name: "just_written", timestamp: now, valid: true},
		{name: "less_than_seven_days_old", timestamp: now.AddDate(0, 0, -7).Add(time.Second), valid: true},
		{name: "exactly_seven_days_old", timestamp: now.AddDate(0, 0, -7), valid: false},
		{name: "more_than_seven_days_old", timestamp: now.AddDate(0, 0, -7).Add(-time.Second), valid: false},
		{name: "written_in_the_future", timestamp: now.Add(time.Hour), valid: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, cache.IsValid(now, tc.timestamp))
		})
	}
}

func TestIsValidCountsCalendarDays(t *testing.T) {
	location, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("timezone data not available: %s", err)
	}

	// Daylight saving starts on 2023-03-26, so that week is an hour shorter.
	timestamp := time.Date(2023, time.March, 21, 12, 0, 0, 0, location)
	halfPastNoonSevenDaysLater := time.Date(2023, time.March, 28, 12, 30, 0, 0, location)

	assert.True(t, halfPastNoonSevenDaysLater.Sub(timestamp) < 7*24*time.Hour)
	assert.False(t, cache.IsValid(halfPastNoonSevenDaysLater, timestamp))
	assert.True(t, cache.IsValid(time.Date(2023, time.March, 28, 11, 59, 59, 0, location), timestamp))
}

func TestIsValidDoesNotDependOnTimestampLocation(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data not available: %s", err)
	}

	// Daylight saving starts in New York on 2023-03-12.
	timestamp := time.Date(2023, time.March, 5, 12, 0, 0, 0, newYork)
	_, offset := timestamp.Zone()
	sameInstants := []time.Time{
		timestamp.UTC(),
		timestamp.In(time.FixedZone("", offset)),
	}

	nows := []time.Time{
		time.Date(2023, time.March, 12, 16, 30, 0, 0, time.UTC),
		time.Date(2023, time.March, 12, 12, 30, 0, 0, newYork),
		time.Date(2023, time.March, 12, 11, 59, 0, 0, newYork),
	}

	for _, now := range nows {
		for _, other := range sameInstants {
			assert.Equal(t, cache.IsValid(now, timestamp), cache.IsValid(now, other), "now=%s timestamp=%s", now, other)
		}
	}
}

func TestIsValidCountsCalendarDaysInNowsLocation(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data not available: %s", err)
	}

	timestamp := time.Date(2023, time.March, 5, 17, 0, 0, 0, time.UTC)

	assert.False(t, cache.IsValid(time.Date(2023, time.March, 12, 12, 30, 0, 0, newYork), timestamp))
	assert.True(t, cache.IsValid(time.Date(2023, time.March, 12, 11, 59, 0, 0, newYork), timestamp))
}

func TestIsValidTreatsUnrepresentableExpiryAsExpired(t *testing.T) {
	timestamp := time.Unix(math.MaxInt64-62135596800, 0)

	assert.False(t, cache.IsValid(timestamp, timestamp))
}
