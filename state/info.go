package state

import "github.com/beamlink/dmgsta/frames"

// StationInformation is what an Information Response taught us about a
// peer.
type StationInformation struct {
	Capabilities frames.DmgCapabilities
}
