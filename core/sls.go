package core

import (
	"fmt"
	"time"

	"github.com/beamlink/dmgsta/frames"
	"github.com/beamlink/dmgsta/state"
)

// dtiRssAllocation is the responder sweep window granted when an initiator
// sweep is heard inside the DTI.
const dtiRssAllocation = 300 * time.Microsecond

// Sls runs the sector level sweep: the initiator sweep, the responder
// sweep, and the SSW-FBCK / SSW-ACK close. One sweep is active at a time;
// the per-frame pacing happens through transmit-complete callbacks.
type Sls struct {
	issInitiator bool

	sectorId  frames.SectorID
	antennaId frames.AntennaID
	// sweep frames remaining after the one in flight
	totalSectors uint16

	allocationStarted time.Duration
	allocationLength  time.Duration

	// best transmit configuration of the peer, echoed back in responder
	// sweep frames and in SSW-FBCK
	feedbackConfig state.AntennaConfig

	sectorFeedbackSent map[frames.MacAddress]bool
	rssEvent           *state.EventHandle
	sswFbckDuration    time.Duration
}

func (m *Sls) Init(s *state.State) error {
	m.sectorFeedbackSent = make(map[frames.MacAddress]bool)
	return nil
}

func (m *Sls) Cleanup(s *state.State) error {
	m.rssEvent.Cancel()
	return nil
}

func (m *Sls) resetFeedback() {
	clear(m.sectorFeedbackSent)
}

// InitiateBeamforming starts beamforming with a peer inside a DTI
// allocation of the given length.
func (m *Sls) InitiateBeamforming(s *state.State, peer frames.MacAddress, isTxss bool, duration time.Duration) error {
	s.Log.Info("initiating beamforming", "peer", peer, "at", s.Now())
	return m.StartInitiatorSectorSweep(s, peer, isTxss, duration)
}

func (m *Sls) StartInitiatorSectorSweep(s *state.State, peer frames.MacAddress, isTxss bool, duration time.Duration) error {
	s.Log.Info("starting ISS", "at", s.Now())
	m.issInitiator = true
	m.allocationStarted = s.Now()
	m.allocationLength = duration
	if isTxss {
		return m.startTransmitSectorSweep(s, peer, frames.DirectionInitiator)
	}
	return m.startReceiveSectorSweep(s, peer, frames.DirectionInitiator)
}

func (m *Sls) StartResponderSectorSweep(s *state.State, peer frames.MacAddress, isTxss bool, duration time.Duration) error {
	s.Log.Info("starting RSS", "at", s.Now())
	m.issInitiator = false
	m.allocationStarted = s.Now()
	m.allocationLength = duration
	// Feed back the configuration with the highest SNR heard from the peer.
	if best, _, ok := s.Antennas.BestTxFor(peer); ok {
		m.feedbackConfig = best
	}
	if isTxss {
		return m.startTransmitSectorSweep(s, peer, frames.DirectionResponder)
	}
	// The initiator is switching receive antennas at the same time.
	s.Antenna.SetOmniRx()
	return m.startReceiveSectorSweep(s, peer, frames.DirectionResponder)
}

func (m *Sls) startTransmitSectorSweep(s *state.State, peer frames.MacAddress, direction frames.Direction) error {
	s.Log.Info("starting TxSS", "at", s.Now(), "direction", direction)
	m.sectorId = 1
	m.antennaId = 1
	m.totalSectors = uint16(s.Cfg.Sectors)*uint16(s.Cfg.Antennas) - 1
	return m.sendSectorSweepFrame(s, peer, direction)
}

func (m *Sls) startReceiveSectorSweep(s *state.State, peer frames.MacAddress, direction frames.Direction) error {
	s.Log.Info("starting RxSS", "at", s.Now(), "peer", peer, "direction", direction)
	return nil
}

func (m *Sls) remainingAllocationTime(s *state.State) time.Duration {
	return m.allocationLength - (s.Now() - m.allocationStarted)
}

// sendSectorSweepFrame transmits one SSW frame of the active sweep over
// (sectorId, antennaId), bypassing contention.
func (m *Sls) sendSectorSweepFrame(s *state.State, peer frames.MacAddress, direction frames.Direction) error {
	hdr := frames.Header{
		Type:     frames.TypeSSW,
		Addr1:    peer,
		Addr2:    s.Address(),
		Duration: m.remainingAllocationTime(s),
	}

	var feedback frames.SSWFeedbackField
	if direction == frames.DirectionInitiator {
		// During the ISS the feedback field advertises the sweep geometry.
		feedback = frames.SSWFeedbackField{
			PartOfIss: true,
			Sector:    frames.SectorID(uint16(s.Cfg.Sectors) * uint16(s.Cfg.Antennas)),
			Antenna:   frames.AntennaID(s.Cfg.Antennas),
		}
	} else {
		feedback = frames.SSWFeedbackField{
			PartOfIss: false,
			Sector:    m.feedbackConfig.Sector,
			Antenna:   m.feedbackConfig.Antenna,
		}
	}

	f := &frames.Frame{
		Header: hdr,
		Body: frames.SSW{
			Sweep: frames.SSWField{
				Direction: direction,
				CountDown: m.totalSectors,
				Sector:    m.sectorId,
				Antenna:   m.antennaId,
			},
			Feedback: feedback,
		},
	}

	if direction == frames.DirectionInitiator || Get[*BeaconInterval](s).responderTxss {
		s.Antenna.SetTxSector(m.sectorId)
		s.Antenna.SetTxAntenna(m.antennaId)
		s.Log.Debug("sending SSW frame", "sector", m.sectorId, "antenna", m.antennaId, "countdown", m.totalSectors)
	}

	m.startControlTransmission(s, f)
	return nil
}

func (m *Sls) sendSswFbckFrame(s *state.State, peer frames.MacAddress) error {
	hdr := frames.Header{
		Type:  frames.TypeSSWFeedback,
		Addr1: peer,
		Addr2: s.Address(),
		// the duration field runs until the end of the current allocation
		Duration: m.remainingAllocationTime(s),
	}

	if best, _, ok := s.Antennas.BestTxFor(peer); ok {
		m.feedbackConfig = best
	}

	f := &frames.Frame{
		Header: hdr,
		Body: frames.SSWFeedback{
			Feedback: frames.SSWFeedbackField{
				PartOfIss: false,
				Sector:    m.feedbackConfig.Sector,
				Antenna:   m.feedbackConfig.Antenna,
			},
			Maintenance: frames.LinkMaintenanceField{Master: true},
		},
	}
	s.Log.Info("sending SSW-FBCK", "to", peer, "at", s.Now())

	m.steerToBest(s, peer)
	m.startControlTransmission(s, f)
	return nil
}

func (m *Sls) sendSswAckFrame(s *state.State, peer frames.MacAddress) error {
	remaining := m.sswFbckDuration - (state.Sifs + state.SswAckTxTime)
	if remaining <= 0 {
		return fmt.Errorf("ssw-ack does not fit in the remaining feedback window %v", m.sswFbckDuration)
	}

	hdr := frames.Header{
		Type:  frames.TypeSSWAck,
		Addr1: peer,
		Addr2: s.Address(),
		// the full allocation length is authoritative here
		Duration: m.allocationLength,
	}

	if best, _, ok := s.Antennas.BestTxFor(peer); ok {
		m.feedbackConfig = best
	}

	f := &frames.Frame{
		Header: hdr,
		Body: frames.SSWAck{
			Feedback: frames.SSWFeedbackField{
				PartOfIss: false,
				Sector:    m.feedbackConfig.Sector,
				Antenna:   m.feedbackConfig.Antenna,
			},
			Maintenance: frames.LinkMaintenanceField{Master: true},
		},
	}
	s.Log.Info("sending SSW-ACK", "to", peer, "at", s.Now())

	m.steerToBest(s, peer)
	m.startControlTransmission(s, f)
	return nil
}

// steerToBest points the transmitter at the trained best sector towards the
// peer.
func (m *Sls) steerToBest(s *state.State, peer frames.MacAddress) {
	if best, ok := s.Antennas.Best(peer); ok {
		s.Antenna.SetTxSector(best.Tx.Sector)
		s.Antenna.SetTxAntenna(best.Tx.Antenna)
	}
}

// startControlTransmission sends a control frame directly, without the
// contention engine.
func (m *Sls) startControlTransmission(s *state.State, f *frames.Frame) {
	s.Low.StartTransmission(f, state.TxParams{
		OverrideDuration: f.Header.Duration,
		DisableRts:       true,
		DisableAck:       true,
		DisableNextData:  true,
	}, func(hdr frames.Header) {
		if err := m.frameTxOk(s, hdr); err != nil {
			s.Cancel(err)
		}
	})
}

// frameTxOk advances the sweep after each SSW leaves the air, and completes
// the responder side of the exchange after the SSW-ACK.
func (m *Sls) frameTxOk(s *state.State, hdr frames.Header) error {
	switch hdr.Type {
	case frames.TypeSSW:
		if m.totalSectors > 0 {
			if m.sectorId < frames.SectorID(s.Cfg.Sectors) {
				m.sectorId++
			} else if m.sectorId == frames.SectorID(s.Cfg.Sectors) && m.antennaId < frames.AntennaID(s.Cfg.Antennas) {
				m.sectorId = 1
				m.antennaId++
			}
			m.totalSectors--

			peer := hdr.Addr1
			if s.AccessPeriod == state.AccessABFT {
				s.Schedule(state.Sbifs, func(s *state.State) error {
					return m.sendSectorSweepFrame(s, peer, frames.DirectionResponder)
				})
			} else if m.issInitiator {
				s.Schedule(state.Sbifs, func(s *state.State) error {
					return m.sendSectorSweepFrame(s, peer, frames.DirectionInitiator)
				})
			} else {
				s.Schedule(state.Sbifs, func(s *state.State) error {
					return m.sendSectorSweepFrame(s, peer, frames.DirectionResponder)
				})
			}
		} else {
			// sweep finished, wait for the peer in omni mode
			s.Antenna.SetOmniRx()
		}
	case frames.TypeSSWAck:
		// responder side is done
		if best, ok := s.Antennas.Best(hdr.Addr1); ok {
			s.Traces.FireSlsCompleted(hdr.Addr1, state.AccessDTI, best.Tx.Sector, best.Tx.Antenna)
		}
	}
	return nil
}

// handleSSW processes a sweep frame from the peer and schedules the
// response phase it calls for.
func (m *Sls) handleSSW(s *state.State, hdr frames.Header, body frames.SSW, snr float64) error {
	peer := hdr.Addr2
	s.Antennas.MapTxSnr(peer, body.Sweep.Sector, body.Sweep.Antenna, snr)

	if body.Sweep.Direction == frames.DirectionResponder {
		s.Log.Info("received SSW as part of RSS", "from", peer)
		// Schedule the SSW-FBCK on the first responder frame of the sweep.
		if !m.sectorFeedbackSent[peer] {
			m.sectorFeedbackSent[peer] = true

			// The responder echoes the best initiator sector it heard.
			s.Antennas.SetBest(peer, state.BestConfig{
				Tx: state.AntennaConfig{Sector: body.Feedback.Sector, Antenna: body.Feedback.Antenna},
			})
			s.Log.Info("best tx antenna config", "peer", peer,
				"sector", body.Feedback.Sector, "antenna", body.Feedback.Antenna)

			sswFbckTime := state.SectorSweepDuration(body.Sweep.CountDown) + state.Mbifs
			s.Schedule(sswFbckTime, func(s *state.State) error {
				return m.sendSswFbckFrame(s, peer)
			})
			s.Log.Debug("SSW-FBCK scheduled", "to", peer, "at", s.Now()+sswFbckTime)
		}
	} else {
		s.Log.Info("received SSW as part of ISS", "from", peer)
		if !m.rssEvent.Pending() {
			rssTime := state.SectorSweepDuration(body.Sweep.CountDown) + state.Mbifs
			m.rssEvent = s.Schedule(rssTime, func(s *state.State) error {
				return m.StartResponderSectorSweep(s, peer, true, dtiRssAllocation)
			})
			s.Log.Debug("RSS scheduled", "at", s.Now()+rssTime)
		}
	}
	return nil
}

// handleSSWFeedback closes the sweep from the peer's side: the frame names
// our best transmit sector towards it.
func (m *Sls) handleSSWFeedback(s *state.State, hdr frames.Header, body frames.SSWFeedback) error {
	peer := hdr.Addr2
	s.Log.Info("received SSW-FBCK", "from", peer)

	cfg := state.AntennaConfig{Sector: body.Feedback.Sector, Antenna: body.Feedback.Antenna}
	s.Antennas.SetBest(peer, state.BestConfig{Tx: cfg})

	switch s.AccessPeriod {
	case state.AccessABFT:
		s.Log.Info("best tx antenna config towards AP", "sector", cfg.Sector, "antenna", cfg.Antenna)
		s.Traces.FireSlsCompleted(peer, state.AccessBTI, cfg.Sector, cfg.Antenna)

		// feedback received, the fallback retry is moot
		bi := Get[*BeaconInterval](s)
		bi.slotIndex = 0
		bi.sswFbckTimeout.Cancel()
	case state.AccessDTI:
		m.sswFbckDuration = hdr.Duration
		s.Log.Info("best tx antenna config towards peer", "sector", cfg.Sector, "antenna", cfg.Antenna)

		s.AddDataForwarding(peer)
		s.Schedule(state.Mbifs, func(s *state.State) error {
			return m.sendSswAckFrame(s, peer)
		})
	}
	return nil
}

// handleSSWAck completes the initiator side of the exchange.
func (m *Sls) handleSSWAck(s *state.State, hdr frames.Header, body frames.SSWAck) error {
	peer := hdr.Addr2
	s.Log.Info("received SSW-ACK", "from", peer)

	s.AddDataForwarding(peer)

	if best, ok := s.Antennas.Best(peer); ok {
		s.Traces.FireSlsCompleted(peer, state.AccessDTI, best.Tx.Sector, best.Tx.Antenna)
	}
	return nil
}
