package core

import (
	"errors"
	"testing"

	"github.com/beamlink/dmgsta/frames"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Frames carrying our own address in Addr3 are echoes of our own
// transmissions and vanish silently.
func TestReceiveDropsOwnEcho(t *testing.T) {
	h := NewHarness(t, defaultCfg())

	h.Deliver(&frames.Frame{Header: frames.Header{
		Type:  frames.TypeQosData,
		Addr1: peerAddr,
		Addr2: apAddr,
		Addr3: staAddr,
	}}, 10)

	assert.Zero(t, h.RxDrops, "own echo is not a drop-trace event")
}

// Frames addressed elsewhere are dropped with a trace.
func TestReceiveDropsForeignFrames(t *testing.T) {
	h := NewHarness(t, defaultCfg())

	h.Deliver(&frames.Frame{Header: frames.Header{
		Type:  frames.TypeQosData,
		Addr1: peerAddr,
		Addr2: apAddr,
		Addr3: apAddr,
	}, Body: frames.Data{Payload: []byte("x")}}, 10)

	assert.Equal(t, 1, h.RxDrops)
}

// Data from an unknown sender while unassociated is dropped.
func TestReceiveDropsDataWhileUnassociated(t *testing.T) {
	h := NewHarness(t, defaultCfg())

	h.Deliver(&frames.Frame{Header: frames.Header{
		Type:  frames.TypeQosData,
		Addr1: staAddr,
		Addr2: peerAddr,
		Addr3: apAddr,
	}, Body: frames.Data{Payload: []byte("x")}}, 10)

	assert.Equal(t, 1, h.RxDrops)
}

// QoS data forwards up with source and destination addresses.
func TestReceiveForwardsData(t *testing.T) {
	h := NewHarness(t, defaultCfg())
	h.Associate(apAddr, 1)

	var gotPayload []byte
	var gotFrom frames.MacAddress
	h.S.ForwardUp = func(payload []byte, from, to frames.MacAddress) {
		gotPayload = payload
		gotFrom = from
	}

	h.Deliver(&frames.Frame{Header: frames.Header{
		Type:  frames.TypeQosData,
		Addr1: staAddr,
		Addr2: apAddr,
		Addr3: peerAddr,
	}, Body: frames.Data{Payload: []byte("payload")}}, 10)

	assert.Equal(t, []byte("payload"), gotPayload)
	assert.Equal(t, peerAddr, gotFrom)
}

// Aggregated frames are split before forwarding.
func TestReceiveDeaggregatesAmsdu(t *testing.T) {
	h := NewHarness(t, defaultCfg())
	h.Associate(apAddr, 1)

	var got [][]byte
	h.S.ForwardUp = func(payload []byte, from, to frames.MacAddress) {
		got = append(got, payload)
	}
	h.S.Deaggregate = func(payload []byte) [][]byte {
		return [][]byte{payload[:2], payload[2:]}
	}

	h.Deliver(&frames.Frame{Header: frames.Header{
		Type:     frames.TypeQosData,
		Addr1:    staAddr,
		Addr2:    apAddr,
		Addr3:    apAddr,
		QosAmsdu: true,
	}, Body: frames.Data{Payload: []byte("aabb")}}, 10)

	require.Len(t, got, 2)
	assert.Equal(t, []byte("aa"), got[0])
	assert.Equal(t, []byte("bb"), got[1])
}

// AP-bound management frames are silently irrelevant to a station.
func TestReceiveDropsApBoundFrames(t *testing.T) {
	h := NewHarness(t, defaultCfg())

	h.Deliver(&frames.Frame{Header: frames.Header{
		Type:  frames.TypeProbeRequest,
		Addr1: frames.BroadcastAddress(),
		Addr2: peerAddr,
		Addr3: frames.BroadcastAddress(),
	}, Body: frames.ProbeRequest{Ssid: "test-bss"}}, 10)

	assert.Equal(t, 1, h.RxDrops)
}

// An action subtype the station cannot model is a fatal error, not a
// silent drop.
func TestReceiveUnknownActionIsFatal(t *testing.T) {
	h := NewHarness(t, defaultCfg())

	err := Receive(h.S, actionFrom(peerAddr, frames.RelaySearchRequest{DestinationAid: 2}), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAction))
}
