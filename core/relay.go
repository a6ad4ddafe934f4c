package core

import (
	"time"

	"github.com/beamlink/dmgsta/frames"
	"github.com/beamlink/dmgsta/state"
	"github.com/jellydator/ttlcache/v3"
)

// RelayRole distinguishes the three parties of a relay session.
type RelayRole uint8

const (
	RelayNone RelayRole = iota
	RelaySourceReds
	RelayRds
	RelayDestReds
)

// stationInformationTTL bounds how long cached peer capabilities stay
// valid before a fresh Information Request is needed.
const stationInformationTTL = 120 * time.Second

// Relay coordinates relay link setup between a source REDS, an RDS and a
// destination REDS, and answers the information/measurement exchanges that
// precede it.
type Relay struct {
	role      RelayRole
	relayMode bool
	suspended bool

	relayInitiator                bool
	waitingDestinationRedsReports bool

	dstRedsAddress       frames.MacAddress
	srcRedsAddress       frames.MacAddress
	selectedRelayAddress frames.MacAddress
	dstRedsAid           frames.AID
	selectedRelayAid     frames.AID

	rdsList []frames.RelayCapableStation

	info             *ttlcache.Cache[frames.MacAddress, state.StationInformation]
	pendingDiscovery *frames.MacAddress

	dialogToken uint8
}

func (m *Relay) Init(s *state.State) error {
	m.info = ttlcache.New[frames.MacAddress, state.StationInformation](
		ttlcache.WithTTL[frames.MacAddress, state.StationInformation](stationInformationTTL),
	)
	go m.info.Start()
	return nil
}

func (m *Relay) Cleanup(s *state.State) error {
	m.info.Stop()
	return nil
}

func (m *Relay) RelayMode() bool {
	return m.relayMode
}

func (m *Relay) Role() RelayRole {
	return m.role
}

func (m *Relay) suspend(s *state.State) {
	if !m.suspended {
		m.suspended = true
		s.Log.Debug("relay operation suspended")
	}
}

func (m *Relay) resume(s *state.State) {
	if m.suspended {
		m.suspended = false
		s.Log.Debug("relay operation resumed")
	}
}

func (m *Relay) nextToken() uint8 {
	m.dialogToken++
	return m.dialogToken
}

// DoRelayDiscovery starts relay establishment towards peer. Without cached
// capabilities for the peer the procedure parks until the Information
// Response arrives.
func (m *Relay) DoRelayDiscovery(s *state.State, peer frames.MacAddress) error {
	m.dstRedsAddress = peer
	m.waitingDestinationRedsReports = false

	item := m.info.Get(peer)
	if item == nil {
		m.pendingDiscovery = &peer
		m.requestInformation(s, peer)
		return nil
	}

	m.dstRedsAid = item.Value().Capabilities.Aid
	m.relayInitiator = true
	m.role = RelaySourceReds
	m.sendRelaySearchRequest(s, m.dstRedsAid)
	return nil
}

// requestInformation asks the PCP/AP for the capabilities and AID of a
// station.
func (m *Relay) requestInformation(s *state.State, subject frames.MacAddress) {
	f := &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeAction,
			Addr1: s.Bssid,
			Addr2: s.Address(),
			Addr3: s.Bssid,
		},
		Body: frames.InformationRequest{
			Subject:           subject,
			RequestedElements: []frames.ElementID{frames.ElementDmgCapabilities},
		},
	}
	s.ContentionQueue.Queue(f)
}

func (m *Relay) sendRelaySearchRequest(s *state.State, destAid frames.AID) {
	f := &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeAction,
			Addr1: s.Bssid,
			Addr2: s.Address(),
			Addr3: s.Bssid,
		},
		Body: frames.RelaySearchRequest{
			DialogToken:    m.nextToken(),
			DestinationAid: destAid,
		},
	}
	s.ContentionQueue.Queue(f)
}

func (m *Relay) sendChannelMeasurementRequest(s *state.State, to frames.MacAddress) {
	f := &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeAction,
			Addr1: to,
			Addr2: s.Address(),
			Addr3: s.Bssid,
		},
		Body: frames.ChannelMeasurementRequest{DialogToken: m.nextToken()},
	}
	s.ContentionQueue.Queue(f)
}

func (m *Relay) sendChannelMeasurementReport(s *state.State, to frames.MacAddress, token uint8, list []frames.ChannelMeasurement) {
	f := &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeAction,
			Addr1: to,
			Addr2: s.Address(),
			Addr3: s.Bssid,
		},
		Body: frames.ChannelMeasurementReport{
			DialogToken:  token,
			Measurements: list,
		},
	}
	s.ContentionQueue.Queue(f)
}

// setupRls sends an RLS Request naming the whole source/relay/destination
// triple.
func (m *Relay) setupRls(s *state.State, to frames.MacAddress, token uint8, sourceAid, relayAid, destAid frames.AID) {
	f := &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeAction,
			Addr1: to,
			Addr2: s.Address(),
			Addr3: s.Bssid,
		},
		Body: frames.RlsRequest{
			DialogToken:    token,
			SourceAid:      sourceAid,
			RelayAid:       relayAid,
			DestinationAid: destAid,
		},
	}
	s.ContentionQueue.Queue(f)
}

func (m *Relay) sendRlsResponse(s *state.State, to frames.MacAddress, token uint8) {
	f := &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeAction,
			Addr1: to,
			Addr2: s.Address(),
			Addr3: s.Bssid,
		},
		Body: frames.RlsResponse{
			DialogToken:       token,
			RelayStatus:       frames.StatusSuccess,
			DestinationStatus: frames.StatusSuccess,
		},
	}
	s.ContentionQueue.Queue(f)
}

func (m *Relay) sendRlsAnnouncement(s *state.State, to frames.MacAddress, destAid, relayAid, sourceAid frames.AID) {
	f := &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeAction,
			Addr1: to,
			Addr2: s.Address(),
			Addr3: s.Bssid,
		},
		Body: frames.RlsAnnouncement{
			Status:         frames.StatusSuccess,
			SourceAid:      sourceAid,
			RelayAid:       relayAid,
			DestinationAid: destAid,
		},
	}
	s.ContentionQueue.Queue(f)
}

func (m *Relay) handleInformationResponse(s *state.State, hdr frames.Header, body frames.InformationResponse) error {
	if body.Subject.IsBroadcast() {
		// information about every associated station, nothing cached yet
		return nil
	}
	if len(body.Capabilities) == 0 {
		return nil
	}
	caps := body.Capabilities[0]
	m.info.Set(body.Subject, state.StationInformation{Capabilities: caps}, ttlcache.DefaultTTL)
	s.MapAidToMacAddress(caps.Aid, body.Subject)

	if m.pendingDiscovery != nil && *m.pendingDiscovery == body.Subject {
		m.pendingDiscovery = nil
		return m.DoRelayDiscovery(s, body.Subject)
	}
	return nil
}

func (m *Relay) handleRelaySearchResponse(s *state.State, hdr frames.Header, body frames.RelaySearchResponse) error {
	m.rdsList = body.Relays
	if !m.relayInitiator {
		return nil
	}
	// Measure the channel towards every candidate RDS first; the
	// destination REDS is asked once the first report lands.
	for _, rds := range m.rdsList {
		addr, ok := s.AidMap[rds.Aid]
		if !ok {
			s.Log.Warn("relay candidate with unknown aid", "aid", rds.Aid)
			continue
		}
		m.sendChannelMeasurementRequest(s, addr)
	}
	return nil
}

func (m *Relay) handleChannelMeasurementRequest(s *state.State, hdr frames.Header, body frames.ChannelMeasurementRequest) error {
	s.Log.Info("received channel measurement request", "from", hdr.Addr2)

	var list []frames.ChannelMeasurement
	if s.Cfg.RdsActivated {
		// We are the RDS: report the link towards the requesting source REDS.
		_, snr, _ := s.Antennas.BestTxFor(hdr.Addr2)
		list = append(list, frames.ChannelMeasurement{PeerAid: 0, Snr: frames.EncodeSnr(snr)})
	} else if len(m.rdsList) > 0 {
		// We are the destination REDS: report the link towards every RDS we
		// know of.
		for _, rds := range m.rdsList {
			addr, ok := s.AidMap[rds.Aid]
			if !ok {
				continue
			}
			_, snr, _ := s.Antennas.BestTxFor(addr)
			list = append(list, frames.ChannelMeasurement{PeerAid: rds.Aid, Snr: frames.EncodeSnr(snr)})
		}
	} else {
		_, snr, _ := s.Antennas.BestTxFor(hdr.Addr2)
		list = append(list, frames.ChannelMeasurement{PeerAid: s.MacMap[hdr.Addr2], Snr: frames.EncodeSnr(snr)})
	}

	m.sendChannelMeasurementReport(s, hdr.Addr2, body.DialogToken, list)
	return nil
}

func (m *Relay) handleChannelMeasurementReport(s *state.State, hdr frames.Header, body frames.ChannelMeasurementReport) error {
	if !m.relayInitiator {
		return nil
	}
	if !m.waitingDestinationRedsReports {
		// The first candidate report is in; ask the destination REDS for
		// its view of the relays.
		m.waitingDestinationRedsReports = true
		m.sendChannelMeasurementRequest(s, m.dstRedsAddress)
	} else if hdr.Addr2 == m.dstRedsAddress {
		// The destination's report selects the relay; the last entry wins.
		for _, entry := range body.Measurements {
			m.selectedRelayAid = entry.PeerAid
		}
		if addr, ok := s.AidMap[m.selectedRelayAid]; ok {
			m.selectedRelayAddress = addr
			m.setupRls(s, addr, m.nextToken(), s.Aid, m.selectedRelayAid, m.dstRedsAid)
		} else {
			s.Log.Warn("selected relay has no known address", "aid", m.selectedRelayAid)
		}
	}
	s.Traces.FireChannelReportReceived(hdr.Addr2)
	return nil
}

func (m *Relay) handleRlsRequest(s *state.State, hdr frames.Header, body frames.RlsRequest) error {
	if s.Cfg.RdsActivated {
		// We are the RDS: remember the source REDS and pass the request on
		// to the destination REDS.
		s.Log.Info("received RLS request from source REDS, forwarding", "source", hdr.Addr2)
		m.srcRedsAddress = hdr.Addr2
		m.role = RelayRds
		dest, ok := s.AidMap[body.DestinationAid]
		if !ok {
			s.Log.Warn("rls request names unknown destination aid", "aid", body.DestinationAid)
			return nil
		}
		m.setupRls(s, dest, body.DialogToken, body.SourceAid, body.RelayAid, body.DestinationAid)
		return nil
	}
	// We are the destination REDS: accept and answer the RDS.
	s.Log.Info("received RLS request from RDS, responding", "rds", hdr.Addr2)
	m.selectedRelayAddress = hdr.Addr2
	m.role = RelayDestReds
	m.relayMode = true
	m.sendRlsResponse(s, hdr.Addr2, body.DialogToken)
	return nil
}

func (m *Relay) handleRlsResponse(s *state.State, hdr frames.Header, body frames.RlsResponse) error {
	if s.Cfg.RdsActivated {
		// We are the RDS: pass the response back to the source REDS.
		s.Log.Info("received RLS response from destination REDS, forwarding", "dest", hdr.Addr2)
		m.sendRlsResponse(s, m.srcRedsAddress, body.DialogToken)
		m.relayMode = true
		return nil
	}
	if body.RelayStatus.IsSuccess() && body.DestinationStatus.IsSuccess() {
		// Relay link is up end to end, announce it to the PCP/AP.
		m.relayMode = true
		m.role = RelaySourceReds
		m.sendRlsAnnouncement(s, s.Bssid, m.dstRedsAid, m.selectedRelayAid, s.Aid)
		s.Log.Info("relay link setup succeeded, announcing", "ap", s.Bssid)
	}
	return nil
}
