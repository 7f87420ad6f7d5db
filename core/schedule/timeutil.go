package schedule

import (
	"strconv"
	"strings"
)

// minutesInfinity sorts unparseable times to the end of a day's list instead
// of crashing the sort; corrupt entries stay visible rather than losing data.
const minutesInfinity = 1 << 30

// MinutesOf parses a 24-hour "HH:MM" wall-clock string into minutes since
// midnight. Any malformed input (empty, non-numeric, out-of-range parts)
// yields minutesInfinity so comparisons and sorts stay total.
func MinutesOf(s string) int {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return minutesInfinity
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return minutesInfinity
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return minutesInfinity
	}
	return hours*60 + minutes
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back slots (one ends exactly when the
// other starts) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return MinutesOf(aStart) < MinutesOf(bEnd) && MinutesOf(aEnd) > MinutesOf(bStart)
}
