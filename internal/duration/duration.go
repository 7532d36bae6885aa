// Package duration provides the simulation time unit shared by every clock,
// model and trigger in the core.
package duration

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Duration is a signed nanosecond count. Arithmetic on Duration is exact;
// the step loop rejects negative durations wherever one would imply time
// travel (step width, resolutions, sleep budgets).
type Duration int64

// Zero is the additive identity.
const Zero Duration = 0

// FromNanoseconds constructs a Duration from a raw nanosecond count.
func FromNanoseconds(ns int64) Duration {
	return Duration(ns)
}

// FromSeconds constructs a Duration from a floating-point second count,
// rounding to the nearest nanosecond.
func FromSeconds(s float64) Duration {
	return Duration(math.Round(s * float64(time.Second)))
}

// Seconds returns the duration as a floating-point second count.
func (d Duration) Seconds() float64 {
	return float64(d) / float64(time.Second)
}

// Milliseconds returns the duration as a floating-point millisecond count.
func (d Duration) Milliseconds() float64 {
	return float64(d) / float64(time.Millisecond)
}

// Nanoseconds returns the raw nanosecond count.
func (d Duration) Nanoseconds() int64 {
	return int64(d)
}

// AsStdlib converts to a time.Duration for use with stdlib timers.
func (d Duration) AsStdlib() time.Duration {
	return time.Duration(d)
}

// IsNegative reports whether the duration is strictly less than zero.
func (d Duration) IsNegative() bool {
	return d < 0
}

// String renders the duration the way the original source does: with a
// unit suffix chosen by magnitude (ns, us, ms, s), never scientific notation.
func (d Duration) String() string {
	ns := int64(d)
	neg := ""
	if ns < 0 {
		neg = "-"
		ns = -ns
	}
	switch {
	case ns < 1_000:
		return fmt.Sprintf("%s%dns", neg, ns)
	case ns < 1_000_000:
		return fmt.Sprintf("%s%.3fus", neg, float64(ns)/1_000)
	case ns < 1_000_000_000:
		return fmt.Sprintf("%s%.3fms", neg, float64(ns)/1_000_000)
	default:
		return fmt.Sprintf("%s%.6fs", neg, float64(ns)/1_000_000_000)
	}
}

// Parse parses a duration given either as a bare number of seconds
// ("0.1", "20") or with an explicit unit suffix ("20ms", "100us", "1s"),
// matching the inline-string forms accepted throughout the trigger registrar.
func Parse(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("duration: empty string")
	}
	for _, unit := range []struct {
		suffix string
		scale  float64
	}{
		{"ms", float64(time.Millisecond)},
		{"us", float64(time.Microsecond)},
		{"ns", float64(time.Nanosecond)},
		{"s", float64(time.Second)},
	} {
		if strings.HasSuffix(s, unit.suffix) {
			numPart := strings.TrimSuffix(s, unit.suffix)
			f, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, fmt.Errorf("duration: invalid number %q: %w", numPart, err)
			}
			return Duration(f * unit.scale), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("duration: cannot parse %q: %w", s, err)
	}
	return FromSeconds(f), nil
}
