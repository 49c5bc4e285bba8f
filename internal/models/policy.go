package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPolicy is returned by [ParsePolicy] for unrecognised names.
var ErrUnknownPolicy = errors.New("unknown sync policy")

// Policy selects when a parent's priority is copied to its subtasks.
type Policy int

const (
	// Unconditional copies any set priority value.
	Unconditional Policy = iota
	// CriticalOnly copies the priority only when its label is "critical".
	CriticalOnly
)

func (p Policy) String() string {
	switch p {
	case Unconditional:
		return "unconditional"
	case CriticalOnly:
		return "critical"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration value to a [Policy]. The empty string means [Unconditional].
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unconditional", "all", "always":
		return Unconditional, nil
	case "critical", "critical-only", "critical_only":
		return CriticalOnly, nil
	default:
		return Unconditional, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}
