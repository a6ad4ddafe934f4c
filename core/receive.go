package core

import (
	"errors"
	"fmt"

	"github.com/beamlink/dmgsta/frames"
	"github.com/beamlink/dmgsta/state"
)

// ErrUnknownAction marks a DMG action subtype the station cannot model. It
// is fatal: the peer speaks a protocol we do not understand.
var ErrUnknownAction = errors.New("unsupported DMG action frame")

// Receive classifies an inbound frame and routes it to the owning module.
// It must run on the MAC main goroutine; external receivers dispatch into
// it.
func Receive(s *state.State, f *frames.Frame, snr float64) error {
	hdr := f.Header

	if hdr.Addr3 == s.Address() {
		// one of our own transmissions echoed back
		s.Log.Debug("dropping frame sent by us")
		return nil
	}
	if hdr.Addr1 != s.Address() && !hdr.Addr1.IsGroup() && hdr.Type != frames.TypeDMGBeacon {
		s.Log.Debug("frame is not for us", "addr1", hdr.Addr1)
		s.Traces.FireRxDrop(f)
		return nil
	}

	switch hdr.Type {
	case frames.TypeQosData, frames.TypeQosNull:
		assoc := Get[*Assoc](s)
		if !assoc.IsAssociated() && hdr.Addr2 != s.Bssid {
			s.Log.Debug("received data frame while not associated")
			s.Traces.FireRxDrop(f)
			return nil
		}
		if hdr.Type == frames.TypeQosNull {
			return nil
		}
		data, ok := f.Body.(frames.Data)
		if !ok {
			return nil
		}
		if hdr.QosAmsdu {
			if hdr.Addr3 != s.Bssid {
				s.Log.Warn("a-msdu not from our bssid", "addr3", hdr.Addr3)
				return nil
			}
			forwardUpAmsdu(s, hdr, data.Payload)
			return nil
		}
		if s.ForwardUp != nil {
			s.ForwardUp(data.Payload, hdr.Addr3, hdr.Addr1)
		}
		return nil

	case frames.TypeProbeRequest, frames.TypeAssocRequest:
		// aimed at an AP, nothing for us here
		s.Traces.FireRxDrop(f)
		return nil

	case frames.TypeAction, frames.TypeActionNoAck:
		return receiveAction(s, f)

	case frames.TypeSSW:
		body, ok := f.Body.(frames.SSW)
		if !ok {
			return nil
		}
		return Get[*Sls](s).handleSSW(s, hdr, body, snr)

	case frames.TypeSSWFeedback:
		body, ok := f.Body.(frames.SSWFeedback)
		if !ok {
			return nil
		}
		return Get[*Sls](s).handleSSWFeedback(s, hdr, body)

	case frames.TypeSSWAck:
		body, ok := f.Body.(frames.SSWAck)
		if !ok {
			return nil
		}
		return Get[*Sls](s).handleSSWAck(s, hdr, body)

	case frames.TypePoll:
		s.Log.Info("received poll frame", "from", hdr.Addr2)
		return nil

	case frames.TypeGrant:
		s.Log.Info("received grant frame", "from", hdr.Addr2)
		return nil

	case frames.TypeDMGBeacon:
		body, ok := f.Body.(frames.DMGBeacon)
		if !ok {
			return nil
		}
		return Get[*BeaconInterval](s).handleBeacon(s, hdr, body, snr)

	case frames.TypeProbeResponse:
		if body, ok := f.Body.(frames.ProbeResponse); ok {
			Get[*Assoc](s).handleProbeResponse(s, hdr, body)
		}
		return nil

	case frames.TypeAssocResponse:
		if body, ok := f.Body.(frames.AssocResponse); ok {
			Get[*Assoc](s).handleAssocResponse(s, hdr, body)
		}
		return nil
	}

	s.Log.Debug("unhandled frame", "type", hdr.Type)
	return nil
}

func receiveAction(s *state.State, f *frames.Frame) error {
	relay := Get[*Relay](s)
	hdr := f.Header
	switch body := f.Body.(type) {
	case frames.RelaySearchResponse:
		return relay.handleRelaySearchResponse(s, hdr, body)
	case frames.ChannelMeasurementRequest:
		return relay.handleChannelMeasurementRequest(s, hdr, body)
	case frames.ChannelMeasurementReport:
		return relay.handleChannelMeasurementReport(s, hdr, body)
	case frames.RlsRequest:
		return relay.handleRlsRequest(s, hdr, body)
	case frames.RlsResponse:
		return relay.handleRlsResponse(s, hdr, body)
	case frames.InformationResponse:
		return relay.handleInformationResponse(s, hdr, body)
	default:
		return fmt.Errorf("%w: %T from %v", ErrUnknownAction, f.Body, hdr.Addr2)
	}
}

func forwardUpAmsdu(s *state.State, hdr frames.Header, payload []byte) {
	if s.ForwardUp == nil {
		return
	}
	if s.Deaggregate == nil {
		s.ForwardUp(payload, hdr.Addr3, hdr.Addr1)
		return
	}
	for _, msdu := range s.Deaggregate(payload) {
		s.ForwardUp(msdu, hdr.Addr3, hdr.Addr1)
	}
}
