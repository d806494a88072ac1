package catalog

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern   string
		eventType string
		want      bool
	}{
		// Wildcard "*" matches everything.
		{"*", "payment_verified", true},
		{"*", "match_started", true},
		{"*", "x", true},

		// Exact match.
		{"payment_verified", "payment_verified", true},
		{"registration_opened", "registration_opened", true},

		// Exact mismatch.
		{"payment_verified", "payment_refunded", false},
		{"payment_verified", "match_started", false},

		// Single-segment wildcard on dotted names.
		{"tournament.*", "tournament.created", true},
		{"tournament.*", "tournament.finished", true},
		{"tournament.*", "match.created", false},
		{"*.created", "tournament.created", true},
		{"*.created", "match.created", true},
		{"*.created", "tournament.finished", false},

		// Multi-segment with wildcard.
		{"tournament.*.completed", "tournament.payout.completed", true},
		{"tournament.*.completed", "tournament.payout.failed", false},
		{"*.payout.*", "tournament.payout.completed", true},
		{"*.payout.*", "tournament.refund.completed", false},

		// Segment count mismatch.
		{"tournament.*", "tournament.payout.completed", false},
		{"tournament.*.completed", "tournament.created", false},
		{"tournament", "tournament.created", false},

		// Edge cases.
		{"", "", true},
		{"a", "a", true},
		{"a", "b", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_vs_"+tt.eventType, func(t *testing.T) {
			got := Match(tt.pattern, tt.eventType)
			if got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.eventType, got, tt.want)
			}
		})
	}
}
