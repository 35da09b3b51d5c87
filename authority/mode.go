package authority

import "strings"

// Mode is how a hand's physics authority is chosen.
type Mode byte

const (
	// ModeDynamic lets the server decide every tick from zone occupancy.
	ModeDynamic Mode = iota
	// ModeClient always gives authority to the owning client.
	ModeClient
	// ModeServer always gives authority to the server.
	ModeServer
)

// String ...
func (m Mode) String() string {
	switch m {
	case ModeDynamic:
		return "dynamic"
	case ModeClient:
		return "client"
	case ModeServer:
		return "server"
	}
	return "unknown"
}

// ParseMode parses the name of a mode, case-insensitively.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(s) {
	case "dynamic":
		return ModeDynamic, true
	case "client":
		return ModeClient, true
	case "server":
		return ModeServer, true
	}
	return ModeServer, false
}

// Authority is the side whose simulation is ground truth for a hand.
type Authority byte

const (
	AuthorityServer Authority = iota
	AuthorityClient
)

// String ...
func (a Authority) String() string {
	if a == AuthorityClient {
		return "client"
	}
	return "server"
}

// IsPhysicsAuthority reports whether this machine simulates a hand as ground truth.
func IsPhysicsAuthority(server, locallyControlled bool, a Authority) bool {
	return (server && a == AuthorityServer) || (locallyControlled && a == AuthorityClient)
}
