package core

import (
	"time"

	"github.com/beamlink/dmgsta/frames"
	"github.com/beamlink/dmgsta/state"
)

// AssocState is the association machine state.
type AssocState uint8

const (
	BeaconMissed AssocState = iota
	WaitProbeResp
	WaitAssocResp
	Associated
	Refused
)

func (a AssocState) String() string {
	switch a {
	case BeaconMissed:
		return "beacon-missed"
	case WaitProbeResp:
		return "wait-probe-resp"
	case WaitAssocResp:
		return "wait-assoc-resp"
	case Associated:
		return "associated"
	default:
		return "refused"
	}
}

// Assoc tracks association with the PCP/AP: probing, the association
// exchange and the beacon loss watchdog.
type Assoc struct {
	st            AssocState
	activeProbing bool

	probeRequestEvent *state.EventHandle
	assocRequestEvent *state.EventHandle
	beaconWatchdog    *state.EventHandle
	watchdogEnd       time.Duration
}

func (m *Assoc) Init(s *state.State) error {
	m.st = BeaconMissed
	if s.Cfg.ActiveProbing {
		m.activeProbing = true
		s.Schedule(0, m.TryToEnsureAssociated)
	}
	return nil
}

func (m *Assoc) Cleanup(s *state.State) error {
	m.probeRequestEvent.Cancel()
	m.assocRequestEvent.Cancel()
	m.beaconWatchdog.Cancel()
	return nil
}

func (m *Assoc) State() AssocState {
	return m.st
}

func (m *Assoc) IsAssociated() bool {
	return m.st == Associated
}

// SetActiveProbing toggles unsolicited probing. Turning it on immediately
// kicks the association machine.
func (m *Assoc) SetActiveProbing(s *state.State, enable bool) {
	m.activeProbing = enable
	if enable {
		s.Schedule(0, m.TryToEnsureAssociated)
	} else {
		m.probeRequestEvent.Cancel()
	}
}

// TryToEnsureAssociated drives the machine out of BEACON_MISSED. In every
// other state an exchange is already pending, or a refusal is sticky until
// the caller restarts association explicitly.
func (m *Assoc) TryToEnsureAssociated(s *state.State) error {
	switch m.st {
	case BeaconMissed:
		if s.LinkDown != nil {
			s.LinkDown()
		}
		if m.activeProbing {
			m.setState(s, WaitProbeResp)
			m.sendProbeRequest(s)
		}
	case WaitProbeResp, WaitAssocResp, Associated, Refused:
	}
	return nil
}

// RestartAssociation clears a sticky refusal and retries.
func (m *Assoc) RestartAssociation(s *state.State) error {
	if m.st == Refused {
		m.setState(s, BeaconMissed)
	}
	return m.TryToEnsureAssociated(s)
}

func (m *Assoc) sendProbeRequest(s *state.State) {
	f := &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeProbeRequest,
			Addr1: frames.BroadcastAddress(),
			Addr2: s.Address(),
			Addr3: frames.BroadcastAddress(),
		},
		Body: frames.ProbeRequest{Ssid: s.Cfg.Ssid},
	}
	// Management frames go through the contention queue regardless of the
	// QoS association state.
	s.ContentionQueue.Queue(f)

	m.probeRequestEvent.Cancel()
	m.probeRequestEvent = s.Schedule(s.Cfg.ProbeRequestTimeout, m.probeRequestTimeout)
}

func (m *Assoc) probeRequestTimeout(s *state.State) error {
	m.setState(s, WaitProbeResp)
	m.sendProbeRequest(s)
	return nil
}

func (m *Assoc) sendAssociationRequest(s *state.State) {
	f := &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeAssocRequest,
			Addr1: s.Bssid,
			Addr2: s.Address(),
			Addr3: s.Bssid,
		},
		Body: frames.AssocRequest{
			Ssid:         s.Cfg.Ssid,
			Capabilities: DmgCapabilitiesOf(s),
			MultiBand:    multiBandElement(s),
			RelayCaps: frames.RelayCapabilities{
				SupportsRelaying: s.Cfg.RdsActivated,
				RelayUsable:      true,
				RelayPermission:  true,
				TdmaRelay:        false,
			},
		},
	}
	s.ContentionQueue.Queue(f)

	m.assocRequestEvent.Cancel()

	// The station talks to the DMG AP only, steer towards it.
	if best, ok := s.Antennas.Best(s.Bssid); ok {
		s.Antenna.SetTxSector(best.Tx.Sector)
		s.Antenna.SetTxAntenna(best.Tx.Antenna)
		if best.Rx.Sector != 0 {
			s.Antenna.SetRxSector(best.Rx.Sector)
			s.Antenna.SetRxAntenna(best.Rx.Antenna)
		}
	}

	m.assocRequestEvent = s.Schedule(s.Cfg.AssocRequestTimeout, m.assocRequestTimeout)
}

func (m *Assoc) assocRequestTimeout(s *state.State) error {
	m.setState(s, WaitAssocResp)
	m.sendAssociationRequest(s)
	return nil
}

// RestartBeaconWatchdog extends the beacon loss deadline. The deadline is
// monotone non-decreasing: a restart never brings it forward.
func (m *Assoc) RestartBeaconWatchdog(s *state.State, delay time.Duration) {
	m.watchdogEnd = max(s.Now()+delay, m.watchdogEnd)
	if !m.beaconWatchdog.Pending() {
		s.Log.Debug("restart beacon watchdog", "delay", delay)
		m.beaconWatchdog = s.Schedule(delay, m.missedBeacons)
	}
}

func (m *Assoc) missedBeacons(s *state.State) error {
	if m.watchdogEnd > s.Now() {
		m.beaconWatchdog.Cancel()
		m.beaconWatchdog = s.Schedule(m.watchdogEnd-s.Now(), m.missedBeacons)
		return nil
	}
	s.Log.Debug("beacon missed")
	m.setState(s, BeaconMissed)
	return m.TryToEnsureAssociated(s)
}

func (m *Assoc) handleProbeResponse(s *state.State, hdr frames.Header, resp frames.ProbeResponse) {
	if m.st != WaitProbeResp {
		return
	}
	if resp.Ssid != s.Cfg.Ssid {
		// not a probe response for our ssid
		return
	}
	s.Bssid = hdr.Addr3
	m.RestartBeaconWatchdog(s, resp.BeaconInterval*time.Duration(s.Cfg.MaxMissedBeacons))
	m.probeRequestEvent.Cancel()
	m.setState(s, WaitAssocResp)
	m.sendAssociationRequest(s)
}

func (m *Assoc) handleAssocResponse(s *state.State, hdr frames.Header, resp frames.AssocResponse) {
	if m.st != WaitAssocResp {
		return
	}
	m.assocRequestEvent.Cancel()
	if resp.Status.IsSuccess() {
		s.Aid = resp.Aid
		m.setState(s, Associated)
		s.Log.Debug("association completed", "with", hdr.Addr1)
		if s.LinkUp != nil {
			s.LinkUp()
		}
	} else {
		s.Log.Debug("association refused")
		m.setState(s, Refused)
	}
}

func (m *Assoc) setState(s *state.State, value AssocState) {
	previous := m.st
	m.st = value
	if value == Associated && previous != Associated {
		s.Traces.FireAssoc(s.Bssid)
	} else if value != Associated && previous == Associated {
		s.Traces.FireDeAssoc(s.Bssid)
	}
}

// DmgCapabilitiesOf builds the capability element this station advertises.
func DmgCapabilitiesOf(s *state.State) frames.DmgCapabilities {
	return frames.DmgCapabilities{
		StaAddress:       s.Address(),
		Aid:              s.Aid,
		ReverseDirection: s.Cfg.SupportRdp,
		RxDmgAntennas:    s.Cfg.Antennas,
		Sectors:          s.Cfg.Sectors,
		RxssLength:       s.Cfg.Sectors,
		MaxAmpduExponent: 5,
		AppduSupported:   false,
	}
}

func multiBandElement(s *state.State) frames.MultiBandElement {
	return frames.MultiBandElement{
		Role:                 frames.RoleNonPcpNonAp,
		StaMacPresent:        false, // same MAC address across all bands
		BandID:               1,
		OperatingClass:       18,
		ChannelNumber:        1,
		Bssid:                s.Bssid,
		ConnectionCapability: 1,
		FstSessionTimeout:    1,
	}
}
