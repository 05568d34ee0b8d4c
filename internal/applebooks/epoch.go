package applebooks

import "time"

// Apple Books uses Core Data timestamp format: seconds since 2001-01-01 00:00:00 UTC
var coreDataEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// CoreDataTime converts a Core Data timestamp to a UTC time, keeping fractions of a second.
func CoreDataTime(seconds float64) time.Time {
	return coreDataEpoch.Add(time.Duration(seconds * float64(time.Second)))
}
