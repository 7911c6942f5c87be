// Package resolver negotiates a usable media session through an ordered list
// of client-identity strategies, and selects streams from the result.
package resolver

import "time"

// Profile is one named connection strategy: a client identity the extractor
// presents to the upstream source. Profiles are pure configuration values.
type Profile struct {
	// Identity tags the profile in logs and on resolved sessions.
	Identity string
	// PlayerClient is the extractor-side client identity
	// (youtube:player_client extractor argument).
	PlayerClient string
	// UsesToken attaches configured cookies/tokens to the attempt.
	UsesToken bool
	// DelayMin/DelayMax bound the jittered pause taken before this profile is
	// attempted (skipped for the first profile in a catalog).
	DelayMin time.Duration
	DelayMax time.Duration
}

// DefaultCatalog is the standard strategy order, most reliable first. The
// order is significant: resolution walks it front to back and stops at the
// first verified success.
func DefaultCatalog() []Profile {
	return []Profile{
		{Identity: "android", PlayerClient: "android", DelayMin: time.Second, DelayMax: 3 * time.Second},
		{Identity: "ios", PlayerClient: "ios", DelayMin: time.Second, DelayMax: 3 * time.Second},
		{Identity: "web", PlayerClient: "web", UsesToken: true, DelayMin: time.Second, DelayMax: 3 * time.Second},
		{Identity: "tv_embedded", PlayerClient: "tv_embedded", UsesToken: true, DelayMin: 2 * time.Second, DelayMax: 4 * time.Second},
	}
}
