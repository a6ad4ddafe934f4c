package core

import (
	"time"

	"github.com/beamlink/dmgsta/frames"
	"github.com/beamlink/dmgsta/state"
)

// BeaconInterval drives the station through the access periods of the
// beacon interval: BTI, A-BFT, optional ATI and DTI. Every event it installs
// is keyed to the BTI start extracted from the beacon so clock skew does not
// accumulate.
type BeaconInterval struct {
	btiStarted     time.Duration
	btiDuration    time.Duration
	abftDuration   time.Duration
	atiDuration    time.Duration
	beaconInterval time.Duration

	atiPresent    bool
	nBI           uint8
	slotsPerABFT  uint8
	framesPerSlot uint8
	responderTxss bool
	cbapOnly      bool
	cbapSource    bool

	receivedDmgBeacon        bool
	scheduledPeriodAfterABFT bool

	slotIndex      uint8
	remainingSlots uint8
	abftEvent      *state.EventHandle
	sswFbckTimeout *state.EventHandle

	allocations []frames.AllocationField
}

func (m *BeaconInterval) Init(s *state.State) error {
	return m.StartBTI(s)
}

func (m *BeaconInterval) Cleanup(s *state.State) error {
	m.abftEvent.Cancel()
	m.sswFbckTimeout.Cancel()
	return nil
}

// StartBTI enters the beacon transmission interval: the station parks in
// omni receive mode and all data channel access is closed.
func (m *BeaconInterval) StartBTI(s *state.State) error {
	s.Log.Info("starting BTI", "at", s.Now())
	s.AccessPeriod = state.AccessBTI

	m.scheduledPeriodAfterABFT = false
	Get[*Sls](s).resetFeedback()

	s.ContentionQueue.Revoke()
	s.SpQueue.Revoke()
	if s.Cfg.RdsActivated {
		Get[*Relay](s).suspend(s)
	}

	s.Antenna.SetOmniRx()
	return nil
}

// StartABFT picks a responder slot uniformly over the slots still available
// and schedules both the responder sweep and the fallback that fires when
// no SSW-FBCK arrives within the chosen slot.
func (m *BeaconInterval) StartABFT(s *state.State) error {
	if s.AccessPeriod == state.AccessATI || s.AccessPeriod == state.AccessDTI {
		// a late fallback retry, the A-BFT is already over
		return nil
	}
	s.Log.Info("starting A-BFT", "at", s.Now())
	s.AccessPeriod = state.AccessABFT

	if !m.scheduledPeriodAfterABFT {
		if m.atiPresent {
			s.Schedule(m.abftDuration, m.StartATI)
			s.Log.Debug("ATI scheduled", "at", s.Now()+m.abftDuration)
		} else {
			s.Schedule(m.abftDuration, m.StartDTI)
			s.Log.Debug("DTI scheduled", "at", s.Now()+m.abftDuration)
		}
		m.scheduledPeriodAfterABFT = true
	}

	if m.remainingSlots == 0 {
		// every slot of this A-BFT is spent, wait for the next BI
		s.Log.Debug("no A-BFT slots remaining, waiting for next BI")
		return nil
	}

	m.slotIndex = uint8(s.Rand.Intn(int(m.remainingSlots)))
	slotTime := state.SectorSweepSlotTime(m.framesPerSlot)
	rssTime := time.Duration(m.slotIndex) * slotTime
	sls := Get[*Sls](s)
	s.Schedule(rssTime, func(s *state.State) error {
		return sls.StartResponderSectorSweep(s, s.Bssid, m.responderTxss, state.SectorSweepDuration(uint16(m.framesPerSlot)))
	})
	s.Log.Debug("chose sector sweep slot", "slot", m.slotIndex, "rss", s.Now()+rssTime)

	// Missing SSW-FBCK by the end of the chosen slot means collision:
	// re-enter slot selection over whatever slots remain.
	timeout := time.Duration(m.slotIndex+1) * slotTime
	m.sswFbckTimeout = s.Schedule(timeout, m.StartABFT)
	s.Log.Debug("ssw-fbck timeout scheduled", "at", s.Now()+timeout)
	m.remainingSlots -= m.slotIndex + 1
	return nil
}

// StartATI hands the announcement window to the ATI queue and stays omni.
func (m *BeaconInterval) StartATI(s *state.State) error {
	s.Log.Info("starting ATI", "at", s.Now())
	s.AccessPeriod = state.AccessATI
	m.scheduledPeriodAfterABFT = false
	s.Antenna.SetOmniRx()
	s.Schedule(m.atiDuration, m.StartDTI)
	s.AtiQueue.Grant(m.atiDuration)
	return nil
}

// StartDTI schedules the next BTI, kicks association if the station has no
// pending attempt, and walks the allocation schedule.
func (m *BeaconInterval) StartDTI(s *state.State) error {
	s.Log.Info("starting DTI", "at", s.Now())
	s.AccessPeriod = state.AccessDTI

	m.receivedDmgBeacon = false

	nextBeaconInterval := m.beaconInterval - (s.Now() - m.btiStarted)
	s.Schedule(nextBeaconInterval, m.StartBTI)
	s.Log.Debug("next BI", "at", s.Now()+nextBeaconInterval)

	if s.Cfg.RdsActivated {
		Get[*Relay](s).resume(s)
	}

	assoc := Get[*Assoc](s)
	if assoc.State() == BeaconMissed {
		assoc.setState(s, WaitAssocResp)
		assoc.sendAssociationRequest(s)
	}

	return Get[*Dti](s).evaluateSchedule(s, m.allocations, m.cbapOnly, m.cbapSource, nextBeaconInterval)
}

// handleBeacon digests a DMG beacon. The first beacon of a BI installs the
// timing snapshot and the A-BFT; every beacon maps the sweep SNR.
func (m *BeaconInterval) handleBeacon(s *state.State, hdr frames.Header, b frames.DMGBeacon, snr float64) error {
	s.Log.Debug("received DMG beacon", "bssid", hdr.Addr1)

	if !m.receivedDmgBeacon {
		m.receivedDmgBeacon = true
		s.Antennas.ForgetSnr(hdr.Addr1)

		m.atiPresent = b.Control.ATIPresent
		m.nBI = b.Control.NextBeacon
		m.slotsPerABFT = b.Control.ABFTLength
		m.framesPerSlot = b.Control.FSS
		m.responderTxss = b.Control.ResponderTxss

		m.cbapOnly = b.Parameters.CbapOnly
		m.cbapSource = b.Parameters.CbapSource

		m.atiDuration = 0
		if b.NextAti != nil {
			m.atiDuration = b.NextAti.Duration
		}

		// Synchronize the medium access periods with the AP's TSF.
		m.abftDuration = (time.Duration(m.slotsPerABFT) * state.SectorSweepSlotTime(m.framesPerSlot)).Round(time.Microsecond)
		m.btiDuration = b.Operation.MinBHIDuration - m.abftDuration - m.atiDuration - 2*state.Mbifs
		m.btiStarted = b.Timestamp + hdr.Duration - m.btiDuration
		m.beaconInterval = b.BeaconInterval
		s.Log.Debug("beacon timing",
			"btiStarted", m.btiStarted,
			"btiDuration", m.btiDuration,
			"beaconInterval", m.beaconInterval)

		if b.Control.CCPresent && b.Control.DiscoveryMode {
			// clustering discovery beacons do not open an A-BFT for us
		} else if m.nBI == 1 {
			abftStart := m.btiDuration + state.Mbifs - (s.Now() - m.btiStarted)
			s.Bssid = hdr.Addr1
			m.slotIndex = 0
			m.remainingSlots = m.slotsPerABFT
			m.abftEvent = s.Schedule(abftStart, m.StartABFT)
			s.Log.Debug("A-BFT scheduled", "at", s.Now()+abftStart)
		}

		m.allocations = b.Schedule
	}

	s.Antennas.MapTxSnr(hdr.Addr1, b.Sweep.Sector, b.Sweep.Antenna, snr)
	return nil
}
