package authority

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Arbiter decides who is authoritative over one hand.
type Arbiter struct {
	log  *logrus.Logger
	mode Mode

	authority Authority
	epoch     uint32

	onChange []func(previous, current Authority)
}

// NewArbiter creates an Arbiter. Hands start out server authoritative.
func NewArbiter(log *logrus.Logger, mode Mode) *Arbiter {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	a := &Arbiter{log: log, mode: mode, authority: AuthorityServer}
	if mode == ModeClient {
		a.authority = AuthorityClient
	}
	return a
}

// Resolve computes the authority a zone calls for under a mode.
func Resolve(mode Mode, zone *Zone, table *Table) Authority {
	switch mode {
	case ModeClient:
		return AuthorityClient
	case ModeServer:
		return AuthorityServer
	}
	if zone.HandOverlaps() > 0 {
		return AuthorityServer
	}
	if table.Contested(zone.Objects()) {
		return AuthorityServer
	}
	return AuthorityClient
}

// Evaluate recomputes the authority of the hand owning zone. It is only meaningful on the server,
// which is the only machine that sees every pawn's zone. It returns true if the authority changed.
func (a *Arbiter) Evaluate(zone *Zone, table *Table) bool {
	return a.Set(Resolve(a.mode, zone, table))
}

// Set applies an authority decision, such as one replicated from the server. Listeners are
// notified if the authority changed.
func (a *Arbiter) Set(authority Authority) bool {
	if authority == a.authority {
		return false
	}
	previous := a.authority
	a.authority = authority
	a.epoch++
	a.log.Debugf("physics authority changed from %s to %s (epoch %d)", previous, authority, a.epoch)
	for _, fn := range a.onChange {
		fn(previous, authority)
	}
	return true
}

// OnChange registers a listener for authority changes.
func (a *Arbiter) OnChange(fn func(previous, current Authority)) {
	a.onChange = append(a.onChange, fn)
}

// Authority returns the current authority.
func (a *Arbiter) Authority() Authority {
	return a.authority
}

// Epoch counts authority changes.
func (a *Arbiter) Epoch() uint32 {
	return a.epoch
}

// Mode returns the mode.
func (a *Arbiter) Mode() Mode {
	return a.mode
}

// SetMode changes the mode. Fixed modes take effect immediately.
func (a *Arbiter) SetMode(mode Mode) {
	a.mode = mode
	switch mode {
	case ModeClient:
		a.Set(AuthorityClient)
	case ModeServer:
		a.Set(AuthorityServer)
	}
}
