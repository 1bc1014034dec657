package registry

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(`^(\d+)([dwh])$`)

// ParseDuration parses duration strings including "d" for days and "w" for weeks.
func ParseDuration(s string) (time.Duration, error) {
	matches := durationPattern.FindStringSubmatch(strings.ToLower(s))

	if len(matches) != 3 {
		return time.ParseDuration(s)
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, err
	}

	switch matches[2] {
	case "d":
		return time.Duration(num) * 24 * time.Hour, nil
	case "w":
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return time.Duration(num) * time.Hour, nil
	}
}
