package core

import (
	"testing"
	"time"

	"github.com/beamlink/dmgsta/frames"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Unassociated stations drop outbound data and kick the association
// machine instead.
func TestEnqueueUnassociated(t *testing.T) {
	h := NewHarness(t, defaultCfg())

	drops := 0
	h.S.Traces.TxDrop = func(to frames.MacAddress) { drops++ }

	require.NoError(t, Enqueue(h.S, []byte("hello"), peerAddr, 0))
	assert.Equal(t, 1, drops)
	assert.Empty(t, h.Contention.Queued)
	assert.Empty(t, h.Sp.Queued)
}

// Data towards a peer without a service period goes through contention and
// relays over the AP.
func TestEnqueueViaContention(t *testing.T) {
	h := NewHarness(t, defaultCfg())
	h.Associate(apAddr, 1)

	require.NoError(t, Enqueue(h.S, []byte("hello"), peerAddr, 3))

	require.Len(t, h.Contention.Queued, 1)
	f := h.Contention.Queued[0]
	assert.Equal(t, frames.TypeQosData, f.Header.Type)
	assert.Equal(t, apAddr, f.Header.Addr1, "relayed over the AP")
	assert.Equal(t, peerAddr, f.Header.Addr3)
	assert.True(t, f.Header.DsTo)
	assert.Equal(t, uint8(3), f.Header.QosTID)
}

// A peer with a service period takes the SP queue, and a trained peer is
// addressed directly.
func TestEnqueueViaServicePeriod(t *testing.T) {
	h := NewHarness(t, defaultCfg())
	h.Associate(apAddr, 1)
	h.S.AddSpStation(peerAddr)
	h.S.AddDataForwarding(peerAddr)

	require.NoError(t, Enqueue(h.S, []byte("hello"), peerAddr, 0))

	require.Len(t, h.Sp.Queued, 1)
	f := h.Sp.Queued[0]
	assert.Equal(t, peerAddr, f.Header.Addr1, "direct to the trained peer")
	assert.Equal(t, staAddr, f.Header.Addr2)
	assert.Equal(t, apAddr, f.Header.Addr3)
	assert.False(t, f.Header.DsTo)
	assert.Empty(t, h.Contention.Queued)
}

// Out-of-range TIDs fall back to best effort.
func TestEnqueueClampsTid(t *testing.T) {
	h := NewHarness(t, defaultCfg())
	h.Associate(apAddr, 1)

	require.NoError(t, Enqueue(h.S, []byte("hello"), peerAddr, 13))

	require.Len(t, h.Contention.Queued, 1)
	assert.Equal(t, uint8(5), h.Contention.Queued[0].Header.QosTID)
}

func TestSendQosNull(t *testing.T) {
	h := NewHarness(t, defaultCfg())
	h.Associate(apAddr, 1)
	h.S.AddDataForwarding(peerAddr)

	SendQosNull(h.S, peerAddr)

	require.Len(t, h.Sp.Queued, 1)
	f := h.Sp.Queued[0]
	assert.Equal(t, frames.TypeQosNull, f.Header.Type)
	assert.Equal(t, peerAddr, f.Header.Addr1)
	assert.Nil(t, f.Body)
}

func TestSendSprFrame(t *testing.T) {
	h := NewHarness(t, defaultCfg())
	h.Associate(apAddr, 1)

	SendSprFrame(h.S, apAddr, 32*time.Microsecond)

	require.Len(t, h.Ati.Queued, 1)
	f := h.Ati.Queued[0]
	assert.Equal(t, frames.TypeSPR, f.Header.Type)
	assert.Equal(t, frames.AID(1), f.Body.(frames.SPR).SourceAid)
}
