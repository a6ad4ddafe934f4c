package core

import (
	"time"

	"github.com/beamlink/dmgsta/frames"
	"github.com/beamlink/dmgsta/state"
)

// Dti dispatches the data transmission interval according to the extended
// schedule announced in the beacon, and owns the data path ingress.
type Dti struct{}

func (m *Dti) Init(s *state.State) error {
	return nil
}

func (m *Dti) Cleanup(s *state.State) error {
	return nil
}

// evaluateSchedule installs the timers of every allocation that involves
// this station. remaining is the time left until the next BTI, used when the
// whole DTI is a single contention period.
func (m *Dti) evaluateSchedule(s *state.State, allocations []frames.AllocationField, cbapOnly, cbapSource bool, remaining time.Duration) error {
	if cbapOnly && !cbapSource {
		s.Log.Info("CBAP allocation only in DTI")
		return m.startContentionPeriod(s, remaining)
	}

	for _, a := range allocations {
		switch {
		case a.Type == frames.AllocationServicePeriod && a.SourceAid == frames.BroadcastAID && a.DestinationAid == frames.BroadcastAID:
			// Source and destination 255 quiet the medium: nothing may be
			// scheduled inside this window.
			s.Log.Info("quiet period", "from", a.Start, "duration", a.Duration)

		case a.Type == frames.AllocationServicePeriod && a.SourceAid == s.Aid:
			dest, ok := s.AidMap[a.DestinationAid]
			if !ok {
				s.Log.Warn("allocation names unknown destination aid", "aid", a.DestinationAid)
				continue
			}
			if a.BfControl.BeamformTraining {
				alloc := a
				s.Schedule(a.Start, func(s *state.State) error {
					return Get[*Sls](s).InitiateBeamforming(s, dest, alloc.BfControl.InitiatorTxss, alloc.Duration)
				})
			} else {
				s.AddSpStation(dest)
				duration := a.Duration
				s.Schedule(a.Start, func(s *state.State) error {
					return m.startServicePeriod(s, duration, dest, true)
				})
				s.Schedule(a.Start+a.Duration, m.endServicePeriod)
			}

		case a.Type == frames.AllocationServicePeriod &&
			(a.DestinationAid == s.Aid || a.DestinationAid == frames.BroadcastAID):
			// Stay in receive state towards the source for the whole SP.
			source, ok := s.AidMap[a.SourceAid]
			if !ok {
				s.Log.Warn("allocation names unknown source aid", "aid", a.SourceAid)
				continue
			}
			duration := a.Duration
			s.Schedule(a.Start, func(s *state.State) error {
				return m.startServicePeriod(s, duration, source, false)
			})
			s.Schedule(a.Start+a.Duration, m.endServicePeriod)

		case a.Type == frames.AllocationCbap &&
			(a.SourceAid == frames.BroadcastAID || a.SourceAid == s.Aid || a.DestinationAid == s.Aid):
			duration := a.Duration
			s.Schedule(a.Start, func(s *state.State) error {
				return m.startContentionPeriod(s, duration)
			})
		}
	}
	return nil
}

func (m *Dti) startContentionPeriod(s *state.State, duration time.Duration) error {
	s.Log.Debug("contention period", "at", s.Now(), "duration", duration)
	s.ContentionQueue.Grant(duration)
	return nil
}

// startServicePeriod steers the antenna for a contention-free allocation.
// As the source the service period queue gets the window; as the
// destination the receiver points at the source.
func (m *Dti) startServicePeriod(s *state.State, duration time.Duration, peer frames.MacAddress, isSource bool) error {
	s.Log.Debug("service period", "at", s.Now(), "peer", peer, "source", isSource, "duration", duration)
	if isSource {
		if best, ok := s.Antennas.Best(peer); ok {
			s.Antenna.SetTxSector(best.Tx.Sector)
			s.Antenna.SetTxAntenna(best.Tx.Antenna)
		}
		s.SpQueue.Grant(duration)
		return nil
	}
	if best, ok := s.Antennas.Best(peer); ok && best.Rx.Sector != 0 {
		s.Antenna.SetRxSector(best.Rx.Sector)
		s.Antenna.SetRxAntenna(best.Rx.Antenna)
	} else {
		s.Antenna.SetOmniRx()
	}
	return nil
}

func (m *Dti) endServicePeriod(s *state.State) error {
	s.SpQueue.Revoke()
	return nil
}

// Enqueue is the higher layer ingress. The payload goes out as a QoS Data
// frame over the service period queue when the destination has an SP with
// us, otherwise over the contention queue.
func Enqueue(s *state.State, payload []byte, to frames.MacAddress, tid uint8) error {
	assoc := Get[*Assoc](s)
	if !assoc.IsAssociated() {
		s.Traces.FireTxDrop(to)
		return assoc.TryToEnsureAssociated(s)
	}

	hdr := frames.Header{
		Type: frames.TypeQosData,
		// anything above seven had no QoS tag, fall back to best effort
		QosTID:     tid & 0x7,
		QosRdGrant: s.Cfg.SupportRdp,
	}
	setHeaderAddresses(s, &hdr, to)

	f := &frames.Frame{Header: hdr, Body: frames.Data{Payload: payload}}

	for _, sta := range s.SpStations {
		if sta == to {
			s.SpQueue.Queue(f)
			return nil
		}
	}
	s.ContentionQueue.Queue(f)
	return nil
}

// setHeaderAddresses fills the three address fields: directly trained peers
// are addressed station-to-station, everything else relays over the AP.
func setHeaderAddresses(s *state.State, hdr *frames.Header, dest frames.MacAddress) {
	direct := false
	for _, sta := range s.DataForwarding {
		if sta == dest {
			direct = true
			break
		}
	}
	if direct {
		hdr.Addr1 = dest
		hdr.Addr2 = s.Address()
		hdr.Addr3 = s.Bssid
	} else {
		hdr.Addr1 = s.Bssid
		hdr.Addr2 = s.Address()
		hdr.Addr3 = dest
		hdr.DsTo = true
	}
}

// SendQosNull keeps a service period alive when there is nothing to send.
func SendQosNull(s *state.State, to frames.MacAddress) {
	hdr := frames.Header{
		Type:       frames.TypeQosNull,
		QosRdGrant: s.Cfg.SupportRdp,
	}
	setHeaderAddresses(s, &hdr, to)
	s.SpQueue.Queue(&frames.Frame{Header: hdr})
}

// SendSprFrame polls the PCP/AP for a service period during the ATI.
func SendSprFrame(s *state.State, to frames.MacAddress, duration time.Duration) {
	f := &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeSPR,
			Addr1: to,
			Addr2: s.Address(),
		},
		Body: frames.SPR{
			SourceAid:          s.Aid,
			AllocationDuration: duration,
		},
	}
	s.AtiQueue.Queue(f)
}
