// Package insights generates and caches the LLM-written narrative insights
// for agents and cities.
package insights

import "time"

// IsStale decides whether a cached insight needs regeneration.
//
// A cache entry is stale when it has never been generated, when its age
// reached the TTL, or when fresh activity arrived after generation and is
// still inside the grace window. Activity older than the grace window does
// not force a refresh on its own; the TTL will pick it up.
func IsStale(ttl, grace time.Duration, lastGenerated, lastEvent *time.Time, now time.Time) bool {
	if lastGenerated == nil {
		return true
	}
	if now.Sub(*lastGenerated) >= ttl {
		return true
	}
	if lastEvent != nil && lastEvent.After(*lastGenerated) && now.Sub(*lastEvent) < grace {
		return true
	}
	return false
}
