package duration

import (
	"strconv"
	"strings"
)

// ParseClock reads a clock as printed by scheduler listings:
// "D-HH:MM:SS", "H:MM:SS", "M:SS" or a bare minute count.
// Seconds are truncated. Sentinels such as "UNLIMITED", "INVALID" or
// "N/A" report ok=false.
func ParseClock(text string) (Duration, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}

	days := 0
	if before, after, found := strings.Cut(s, "-"); found {
		d, err := strconv.Atoi(before)
		if err != nil || d < 0 {
			return 0, false
		}
		days = d
		s = after
	}

	fields := strings.Split(s, ":")
	nums := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return 0, false
		}
		nums[i] = n
	}

	var h, m int
	switch len(nums) {
	case 1:
		m = nums[0]
	case 2:
		// M:SS, or H:MM when a day prefix is present.
		if days > 0 {
			h, m = nums[0], nums[1]
		} else {
			m = nums[0]
		}
	case 3:
		h, m = nums[0], nums[1]
	default:
		return 0, false
	}

	dd, ok := scale(days, Day)
	if !ok {
		return 0, false
	}
	hh, ok := scale(h, Hour)
	if !ok {
		return 0, false
	}
	total, ok := sum(dd, hh)
	if ok {
		total, ok = sum(total, Duration(m))
	}
	return total, ok
}

// Set implements pflag.Value so durations can be passed as flags.
func (d *Duration) Set(text string) error {
	v, err := Parse(text)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// String implements fmt.Stringer and pflag.Value.
func (d Duration) String() string {
	return d.Human()
}

// Type implements pflag.Value.
func (d *Duration) Type() string {
	return "duration"
}
