package trim

import (
	"math"
	"time"
)

// toMillis converts d to the int32 milliseconds of the wire fields, saturating
// at the bounds of the type.
func toMillis(d time.Duration) int32 {
	switch ms := d.Milliseconds(); {
	case ms > math.MaxInt32:
		return math.MaxInt32
	case ms < math.MinInt32:
		return math.MinInt32
	default:
		return int32(ms)
	}
}

func fromMillis(ms int32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
