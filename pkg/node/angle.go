package node

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseScalar converts a constant operand into a number. Numbers of any Go
// numeric type are accepted, booleans become 1 or 0, and strings may carry a
// "deg" or "rad" suffix; degrees are converted to radians.
func ParseScalar(x any) (float64, error) {
	switch t := x.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseAngle(t)
	default:
		return 0, fmt.Errorf("expected a number or angle string, got %T", x)
	}
}

func parseAngle(s string) (float64, error) {
	s = strings.TrimSpace(s)
	scale := 1.0
	switch {
	case strings.HasSuffix(s, "deg"):
		s = strings.TrimSuffix(s, "deg")
		scale = math.Pi / 180
	case strings.HasSuffix(s, "rad"):
		s = strings.TrimSuffix(s, "rad")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid angle %q", s)
	}
	return f * scale, nil
}
