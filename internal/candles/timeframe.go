package candles

import (
	"fmt"
	"strconv"
	"strings"
)

// Timeframe is a parsed "<n><unit>" tag, unit in {s, m, h, d, w, mo}.
type Timeframe struct {
	Tag       string
	Seconds   int64
	SubMinute bool
}

// ParseTimeframe parses tags like "1s", "5m", "1h", "1d". Weeks ("1w") and
// months ("1mo") are accepted and expressed as days (7 and 30 respectively).
func ParseTimeframe(tag string) (Timeframe, error) {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return Timeframe{}, fmt.Errorf("empty timeframe tag")
	}

	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == 0 {
		return Timeframe{}, fmt.Errorf("timeframe %q missing numeric prefix", tag)
	}
	n, err := strconv.ParseInt(trimmed[:i], 10, 64)
	if err != nil {
		return Timeframe{}, fmt.Errorf("timeframe %q: %w", tag, err)
	}
	unit := trimmed[i:]

	switch unit {
	case "s":
		return Timeframe{Tag: trimmed, Seconds: n, SubMinute: true}, nil
	case "m":
		return Timeframe{Tag: trimmed, Seconds: n * 60}, nil
	case "h":
		return Timeframe{Tag: trimmed, Seconds: n * 3600}, nil
	case "d":
		return Timeframe{Tag: trimmed, Seconds: n * 86400}, nil
	case "w":
		return Timeframe{Tag: trimmed, Seconds: n * 7 * 86400}, nil
	case "mo":
		return Timeframe{Tag: trimmed, Seconds: n * 30 * 86400}, nil
	default:
		return Timeframe{}, fmt.Errorf("timeframe %q: unsupported unit %q", tag, unit)
	}
}

// Align returns the start of the bucket containing tsUs, in microseconds.
func (tf Timeframe) Align(tsUs int64) int64 {
	if tf.SubMinute {
		bucket := (tsUs / 1_000_000) / tf.Seconds
		return bucket * tf.Seconds * 1_000_000
	}
	bucket := (tsUs / 60_000_000) / (tf.Seconds / 60)
	return bucket * (tf.Seconds / 60) * 60_000_000
}

// throttleMsByTag is the minimum gap in trade time, in milliseconds, between two
// live (not-yet-closed) publishes on a sub-minute timeframe.
var throttleMsByTag = map[string]int64{
	"1s":  100,
	"3s":  200,
	"5s":  300,
	"10s": 500,
	"15s": 750,
	"30s": 1000,
}

// ThrottleMicros returns the throttle gap for tf in microseconds, or 0 if
// tf is not throttled (minute-and-above timeframes, or an untabulated
// sub-minute tag).
func (tf Timeframe) ThrottleMicros() int64 {
	if !tf.SubMinute {
		return 0
	}
	if ms, ok := throttleMsByTag[tf.Tag]; ok {
		return ms * 1000
	}
	return 0
}
