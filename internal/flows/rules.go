package flows

import (
	"time"

	"insurance-desk/internal/engine"
)

// notBefore builds a rule check requiring field later to be on or after
// field earlier. Values that are not dates are left to field validation.
func notBefore(later, earlier string) func(map[string]interface{}) bool {
	return func(f map[string]interface{}) bool {
		l, lok := dateOf(f[later])
		e, eok := dateOf(f[earlier])
		if !lok || !eok {
			return true
		}
		return !l.Before(e)
	}
}

// atLeast requires the number in field a to be >= the number in field b.
func atLeast(a, b string) func(map[string]interface{}) bool {
	return func(f map[string]interface{}) bool {
		x, xok := f[a].(float64)
		y, yok := f[b].(float64)
		if !xok || !yok {
			return true
		}
		return x >= y
	}
}

func dateOf(v interface{}) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	return engine.ParseDate(s)
}
