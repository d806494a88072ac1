package catalog

import "strings"

// Match reports whether an event type name matches a subscription pattern.
//
// Supported patterns:
//
//	"payment_verified" → exact match
//	"tournament.*"     → any type under the tournament group
//	"*"                → everything
//
// Wildcards cover a whole dot-separated segment; segment counts must line
// up, so "tournament.*" does not match "tournament.bracket.seeded".
func Match(pattern, eventType string) bool {
	if pattern == "*" || pattern == eventType {
		return true
	}

	for {
		p, pRest, pMore := strings.Cut(pattern, ".")
		e, eRest, eMore := strings.Cut(eventType, ".")
		if p != "*" && p != e {
			return false
		}
		if pMore != eMore {
			return false
		}
		if !pMore {
			return true
		}
		pattern, eventType = pRest, eRest
	}
}
