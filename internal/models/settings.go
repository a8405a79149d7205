package models

import (
	"fmt"
	"maps"
	"strings"
)

// CapacityMode selects the usage ceiling.
type CapacityMode string

const (
	// CapacityNormal caps usage at 100%.
	CapacityNormal CapacityMode = "normal"
	// CapacityDoubled caps usage at 200% ("x2" mode).
	CapacityDoubled CapacityMode = "doubled"
)

// Cap returns the usage ceiling for the mode.
func (m CapacityMode) Cap() float64 {
	if m == CapacityDoubled {
		return 200
	}
	return 100
}

// Toggle switches between normal and doubled.
func (m CapacityMode) Toggle() CapacityMode {
	if m == CapacityDoubled {
		return CapacityNormal
	}
	return CapacityDoubled
}

// Label returns a short display label.
func (m CapacityMode) Label() string {
	if m == CapacityDoubled {
		return "x2"
	}
	return "x1"
}

// ParseCapacityMode parses "normal", "doubled", "x1" or "x2".
func ParseCapacityMode(s string) (CapacityMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "x1":
		return CapacityNormal, nil
	case "doubled", "x2":
		return CapacityDoubled, nil
	default:
		return "", fmt.Errorf("unknown capacity mode %q", s)
	}
}

// Settings holds per-user preferences.
type Settings struct {
	AccountNames map[int]string `json:"account_names"`
	CapacityMode CapacityMode   `json:"capacity_mode"`
}

// DefaultSettings returns settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{CapacityMode: CapacityNormal, AccountNames: map[int]string{}}
}

// Doubled reports whether x2 mode is active.
func (s Settings) Doubled() bool {
	return s.CapacityMode == CapacityDoubled
}

// Capacity returns the usage ceiling.
func (s Settings) Capacity() float64 {
	return s.CapacityMode.Cap()
}

// NameFor returns the configured name of an account or its default label.
func (s Settings) NameFor(id int) string {
	if name := strings.TrimSpace(s.AccountNames[id]); name != "" {
		return name
	}
	return DefaultAccountName(id)
}

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	clone := s
	clone.AccountNames = make(map[int]string, len(s.AccountNames))
	maps.Copy(clone.AccountNames, s.AccountNames)
	return clone
}
