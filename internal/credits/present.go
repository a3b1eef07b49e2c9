// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package credits

// Band is the colour band of the balance indicator.
type Band string

const (
	BandGreen  Band = "green"
	BandYellow Band = "yellow"
	BandRed    Band = "red"
)

// BandFor picks the indicator colour from the remaining share.
func BandFor(current, limit int) Band {
	if limit <= 0 {
		return BandRed
	}
	pct := float64(current) / float64(limit) * 100
	switch {
	case pct > 50:
		return BandGreen
	case pct > 20:
		return BandYellow
	default:
		return BandRed
	}
}
