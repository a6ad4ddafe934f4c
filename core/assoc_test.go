package core

import (
	"testing"
	"time"

	"github.com/beamlink/dmgsta/frames"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probeResponse(interval time.Duration) *frames.Frame {
	return &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeProbeResponse,
			Addr1: staAddr,
			Addr2: apAddr,
			Addr3: apAddr,
		},
		Body: frames.ProbeResponse{Ssid: "test-bss", BeaconInterval: interval},
	}
}

func assocResponse(status frames.StatusCode, aid frames.AID) *frames.Frame {
	return &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeAssocResponse,
			Addr1: staAddr,
			Addr2: apAddr,
			Addr3: apAddr,
		},
		Body: frames.AssocResponse{Status: status, Aid: aid},
	}
}

// A station with active probing and no beacons probes every probe timeout,
// then associates off the probe response.
func TestActiveProbingAssociation(t *testing.T) {
	cfg := defaultCfg()
	cfg.ActiveProbing = true
	h := NewHarness(t, cfg)

	h.Run(time.Second)
	probes := h.Contention.QueuedOfType(frames.TypeProbeRequest)
	// one at t=0, then one per 50ms timeout
	require.Len(t, probes, 21)
	assert.Equal(t, frames.BroadcastAddress(), probes[0].Header.Addr1)

	assoc := Get[*Assoc](h.S)
	require.Equal(t, WaitProbeResp, assoc.State())

	h.Deliver(probeResponse(100*time.Millisecond), 15)
	require.Equal(t, WaitAssocResp, assoc.State())
	require.Len(t, h.Contention.QueuedOfType(frames.TypeAssocRequest), 1)
	assert.Equal(t, apAddr, h.S.Bssid)

	h.Deliver(assocResponse(frames.StatusSuccess, 5), 15)
	require.Equal(t, Associated, assoc.State())
	assert.Equal(t, frames.AID(5), h.S.Aid)
	assert.Equal(t, []frames.MacAddress{apAddr}, h.Assocs)
	assert.Empty(t, h.Sls)
}

func TestAssocRequestRetry(t *testing.T) {
	cfg := defaultCfg()
	cfg.ActiveProbing = true
	h := NewHarness(t, cfg)

	h.Run(10 * time.Millisecond)
	h.Deliver(probeResponse(100*time.Millisecond), 15)
	require.Len(t, h.Contention.QueuedOfType(frames.TypeAssocRequest), 1)

	// no response: the request is re-sent after the assoc timeout
	h.Run(h.S.Now() + 600*time.Millisecond)
	assert.Len(t, h.Contention.QueuedOfType(frames.TypeAssocRequest), 2)
	assert.Equal(t, WaitAssocResp, Get[*Assoc](h.S).State())
}

// A refusal is sticky until association is restarted explicitly.
func TestAssocRefusedIsSticky(t *testing.T) {
	cfg := defaultCfg()
	cfg.ActiveProbing = true
	h := NewHarness(t, cfg)

	h.Run(10 * time.Millisecond)
	h.Deliver(probeResponse(100*time.Millisecond), 15)
	h.Deliver(assocResponse(frames.StatusRefused, 0), 15)

	assoc := Get[*Assoc](h.S)
	require.Equal(t, Refused, assoc.State())

	require.NoError(t, assoc.TryToEnsureAssociated(h.S))
	assert.Equal(t, Refused, assoc.State())

	require.NoError(t, assoc.RestartAssociation(h.S))
	assert.Equal(t, WaitProbeResp, assoc.State())
}

// Losing more beacons than allowed tears the association down and restarts
// probing.
func TestBeaconLoss(t *testing.T) {
	cfg := defaultCfg()
	cfg.ActiveProbing = true
	cfg.MaxMissedBeacons = 3
	h := NewHarness(t, cfg)

	h.Run(10 * time.Millisecond)
	h.Deliver(probeResponse(100*time.Millisecond), 15)
	h.Deliver(assocResponse(frames.StatusSuccess, 5), 15)
	require.Equal(t, Associated, Get[*Assoc](h.S).State())

	// four beacon intervals without a beacon
	h.Run(h.S.Now() + 400*time.Millisecond)

	assert.Equal(t, []frames.MacAddress{apAddr}, h.DeAssocs)
	assert.Equal(t, WaitProbeResp, Get[*Assoc](h.S).State())
}

// The watchdog deadline never moves forward when restarted.
func TestWatchdogMonotone(t *testing.T) {
	h := NewHarness(t, defaultCfg())
	assoc := Get[*Assoc](h.S)

	assoc.RestartBeaconWatchdog(h.S, 100*time.Millisecond)
	assoc.RestartBeaconWatchdog(h.S, 300*time.Millisecond)

	// the 100ms expiry re-arms itself towards the extended deadline
	h.Run(150 * time.Millisecond)
	assert.Empty(t, h.DeAssocs)
	assert.True(t, assoc.beaconWatchdog.Pending())

	h.Run(301 * time.Millisecond)
	assert.False(t, assoc.beaconWatchdog.Pending())
	assert.Equal(t, BeaconMissed, assoc.State())
}

func TestWatchdogNeverShortens(t *testing.T) {
	h := NewHarness(t, defaultCfg())
	assoc := Get[*Assoc](h.S)

	assoc.RestartBeaconWatchdog(h.S, 300*time.Millisecond)
	assoc.RestartBeaconWatchdog(h.S, 100*time.Millisecond)

	h.Run(150 * time.Millisecond)
	assert.True(t, assoc.beaconWatchdog.Pending(), "deadline must not shrink")
}
