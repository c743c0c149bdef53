package types

import (
	"fmt"
	"time"
)

// Range is an inclusive [Min, Max] duration interval from which randomized
// sleeps are drawn uniformly.
type Range struct {
	Min time.Duration `json:"min" yaml:"min" env:"MIN"`
	Max time.Duration `json:"max" yaml:"max" env:"MAX"`
}

// Between is shorthand for Range{Min: min, Max: max}.
func Between(min, max time.Duration) Range {
	return Range{Min: min, Max: max}
}

// Millis builds a Range from millisecond bounds.
func Millis(min, max int) Range {
	return Range{Min: time.Duration(min) * time.Millisecond, Max: time.Duration(max) * time.Millisecond}
}

// IsZero reports whether both bounds are zero.
func (r Range) IsZero() bool {
	return r.Min == 0 && r.Max == 0
}

// Validate checks 0 <= Min <= Max.
func (r Range) Validate() error {
	if r.Min < 0 {
		return fmt.Errorf("range min %s is negative", r.Min)
	}
	if r.Max < r.Min {
		return fmt.Errorf("range max %s is below min %s", r.Max, r.Min)
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", r.Min, r.Max)
}
