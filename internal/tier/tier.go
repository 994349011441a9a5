// Package tier decides which platform islands an account may read.
package tier

import (
	"fmt"

	"github.com/dmitrijs2005/gigbook/internal/schema"
)

// Tier is the account's subscription level.
type Tier string

const (
	Free Tier = "free"
	Paid Tier = "paid"
)

// Parse validates a tier name. An empty string is treated as free.
func Parse(s string) (Tier, error) {
	switch t := Tier(s); t {
	case Free, Paid:
		return t, nil
	case "":
		return Free, nil
	default:
		return "", fmt.Errorf("unknown tier %q", s)
	}
}

// CanAccessPlatform reports whether an account on tier t, running on the
// current platform, may see a record created on recordPlatform. Free
// accounts stay on their own island; paid accounts see both.
func CanAccessPlatform(t Tier, recordPlatform, current schema.Platform) bool {
	if t == Paid {
		return true
	}
	return recordPlatform == current
}

// AccessiblePlatforms lists the platforms t may read from current, current
// first.
func AccessiblePlatforms(t Tier, current schema.Platform) []schema.Platform {
	out := []schema.Platform{current}
	if CanAccessPlatform(t, current.Other(), current) {
		out = append(out, current.Other())
	}
	return out
}

// Filter keeps the requested platforms that t may read from current.
func Filter(t Tier, current schema.Platform, requested []schema.Platform) []schema.Platform {
	out := make([]schema.Platform, 0, len(requested))
	seen := make(map[schema.Platform]bool, len(requested))
	for _, p := range requested {
		if seen[p] || !p.Valid() {
			continue
		}
		seen[p] = true
		if CanAccessPlatform(t, p, current) {
			out = append(out, p)
		}
	}
	return out
}

func (t Tier) String() string {
	return string(t)
}
