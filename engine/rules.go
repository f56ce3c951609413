package engine

import (
	"errors"
	"strconv"
	"strings"
)

const (
	DefaultMaxSteals = 3
	MinMaxSteals     = 1
	MaxMaxSteals     = 10
)

// Settings is a partial update of the pre-game options. Nil fields are left
// unchanged.
type Settings struct {
	FinalRoundType       *FinalRoundType
	FinalSwapAllowLocked *bool
	// MaxSteals is raw client input; see ClampMaxSteals.
	MaxSteals *string
}

// ClampMaxSteals parses the leading integer of raw and clamps it to
// [MinMaxSteals, MaxMaxSteals]. Input without a leading integer, or a zero,
// yields DefaultMaxSteals. Values too large for an int clamp like any other.
func ClampMaxSteals(raw string) int {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil && !errors.Is(err, strconv.ErrRange) || n == 0 {
		n = DefaultMaxSteals
	}
	return max(MinMaxSteals, min(MaxMaxSteals, n))
}
