// Package household derives the canonical tenant key for a pair of
// users. Every component that needs tenancy (persistence filters,
// channel authorization, webhook dispatch) calls Key; there is no
// second formula anywhere in the codebase.
package household

import "fmt"

// Key returns the household identifier for a user. Paired users share a
// single key built from both ids sorted ascending, so either member's
// perspective yields the same value. An unpaired user's key is their
// own id.
func Key(userID int64, partnerID *int64) string {
	if partnerID == nil {
		return fmt.Sprintf("%d", userID)
	}
	lo, hi := userID, *partnerID
	if hi < lo {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("%d-%d", lo, hi)
}
