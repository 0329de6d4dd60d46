// Package valuerange parses and samples the numeric ranges used by particle
// configuration files.
package valuerange

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRange is returned for range strings that cannot be parsed.
var ErrInvalidRange = errors.New("invalid range")

// Range is a half-open interval [Min, Max) sampled uniformly.
// Min == Max describes a fixed value.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Fixed returns a range that always samples v.
func Fixed(v float64) Range {
	return Range{Min: v, Max: v}
}

// Parse parses a range string.
// Supports the following formats:
//   - Fixed value: "1.5" → [1.5, 1.5]
//   - Single bracketed value: "[1.5]" → [1.5, 1.5]
//   - Range: "[-2 3]" → [-2, 3)
//
// Commas are accepted as separators inside brackets ("[-2, 3]").
func Parse(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, fmt.Errorf("%w: empty string", ErrInvalidRange)
	}

	if !strings.HasPrefix(s, "[") {
		v, err := parseFloat(s)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
		}
		return Fixed(v), nil
	}

	if !strings.HasSuffix(s, "]") {
		return Range{}, fmt.Errorf("%w: %q: missing closing bracket", ErrInvalidRange, s)
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	inner = strings.ReplaceAll(inner, ",", " ")
	parts := strings.Fields(inner)

	switch len(parts) {
	case 1:
		v, err := parseFloat(parts[0])
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
		}
		return Fixed(v), nil
	case 2:
		lo, err := parseFloat(parts[0])
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
		}
		hi, err := parseFloat(parts[1])
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
		}
		r := Range{Min: lo, Max: hi}
		if err := r.Validate(); err != nil {
			return Range{}, err
		}
		return r, nil
	default:
		return Range{}, fmt.Errorf("%w: %q: expected 1 or 2 values, got %d", ErrInvalidRange, s, len(parts))
	}
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// Validate reports whether the range bounds are finite and ordered.
func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsInf(r.Min, 0) || math.IsNaN(r.Max) || math.IsInf(r.Max, 0) {
		return fmt.Errorf("%w: non-finite bounds %v", ErrInvalidRange, r)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: min %g greater than max %g", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

// IsFixed reports whether the range has a single value.
func (r Range) IsFixed() bool {
	return r.Min == r.Max
}

// Sample maps u ∈ [0, 1) onto the range.
func (r Range) Sample(u float64) float64 {
	if r.IsFixed() {
		return r.Min
	}
	v := r.Min + u*(r.Max-r.Min)
	// u 接近 1 时可能舍入到 Max，保持半开区间
	if v >= r.Max {
		return math.Nextafter(r.Max, r.Min)
	}
	return v
}

// Contains reports whether v could have been produced by Sample.
func (r Range) Contains(v float64) bool {
	if r.IsFixed() {
		return v == r.Min
	}
	return v >= r.Min && v < r.Max
}

// String formats the range in the bracketed form accepted by Parse.
func (r Range) String() string {
	if r.IsFixed() {
		return strconv.FormatFloat(r.Min, 'g', -1, 64)
	}
	return "[" + strconv.FormatFloat(r.Min, 'g', -1, 64) + " " + strconv.FormatFloat(r.Max, 'g', -1, 64) + "]"
}

// UnmarshalYAML accepts a scalar ("[-2 3]", "1.5", 1.5) or a {min, max} mapping.
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err := Parse(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*r = parsed
		return nil
	case yaml.MappingNode:
		var raw struct {
			Min float64 `yaml:"min"`
			Max float64 `yaml:"max"`
		}
		if err := node.Decode(&raw); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		parsed := Range{Min: raw.Min, Max: raw.Max}
		if err := parsed.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*r = parsed
		return nil
	case yaml.SequenceNode:
		var values []float64
		if err := node.Decode(&values); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		switch len(values) {
		case 1:
			*r = Fixed(values[0])
		case 2:
			parsed := Range{Min: values[0], Max: values[1]}
			if err := parsed.Validate(); err != nil {
				return fmt.Errorf("line %d: %w", node.Line, err)
			}
			*r = parsed
		default:
			return fmt.Errorf("line %d: %w: expected 1 or 2 values, got %d", node.Line, ErrInvalidRange, len(values))
		}
		return nil
	default:
		return fmt.Errorf("line %d: %w: unsupported YAML node", node.Line, ErrInvalidRange)
	}
}

// MarshalYAML writes the range in its bracketed string form.
func (r Range) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}
