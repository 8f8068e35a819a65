package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHexColor parses "#RRGGBB" or "RRGGBB" into its components.
func ParseHexColor(hex string) (uint8, uint8, uint8, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: must be 6 hex digits", hex)
	}

	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: %w", hex, err)
	}

	return uint8(value >> 16), uint8(value >> 8), uint8(value), nil
}
