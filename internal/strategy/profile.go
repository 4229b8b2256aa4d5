// Package strategy maps operator-selectable risk modes onto concrete
// position-sizing profiles.
package strategy

import "strings"

// Mode names accepted by Build. Unknown modes fall back to balanced.
const (
	ModeConservative = "conservative"
	ModeBalanced     = "balanced"
	ModeAggressive   = "aggressive"
	ModeCustom       = "custom"
)

// DefaultRiskFraction is the balanced-profile sizing rule: each BUY commits
// this fraction of current cash.
const DefaultRiskFraction = 0.10

// Profile carries the tunables the ledger needs from a strategy mode.
// Signal thresholds are fixed policy constants and deliberately not here;
// modes only change how much a trade commits.
type Profile struct {
	Mode         string
	RiskFraction float64
}

// Build resolves a mode string into a Profile. The custom fraction is only
// consulted for ModeCustom and is clamped to (0,1]; a non-positive custom
// value degrades to the balanced default.
func Build(mode string, customFraction float64) Profile {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeConservative:
		return Profile{Mode: ModeConservative, RiskFraction: 0.05}
	case ModeAggressive:
		return Profile{Mode: ModeAggressive, RiskFraction: 0.20}
	case ModeCustom:
		if customFraction > 0 && customFraction <= 1 {
			return Profile{Mode: ModeCustom, RiskFraction: customFraction}
		}
		return Profile{Mode: ModeCustom, RiskFraction: DefaultRiskFraction}
	default:
		return Profile{Mode: ModeBalanced, RiskFraction: DefaultRiskFraction}
	}
}
