package frames

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMacAddress(t *testing.T) {
	a, err := ParseMacAddress("02:1a:ff:00:00:01")
	require.NoError(t, err)
	assert.Equal(t, "02:1a:ff:00:00:01", a.String())

	_, err = ParseMacAddress("02:1a:ff:00:00")
	assert.Error(t, err)
	_, err = ParseMacAddress("zz:1a:ff:00:00:01")
	assert.Error(t, err)
}

func TestAddressClasses(t *testing.T) {
	assert.True(t, BroadcastAddress().IsBroadcast())
	assert.True(t, BroadcastAddress().IsGroup())

	multicast := MacAddress{0x01, 0x00, 0x5e, 0, 0, 1}
	assert.True(t, multicast.IsGroup())
	assert.False(t, multicast.IsBroadcast())

	unicast := MacAddress{0x02, 0, 0, 0, 0, 1}
	assert.False(t, unicast.IsGroup())
}

func TestMacAddressTextRoundTrip(t *testing.T) {
	a := MacAddress{0x02, 0xab, 0x00, 0x11, 0x22, 0x33}
	text, err := a.MarshalText()
	require.NoError(t, err)

	var b MacAddress
	require.NoError(t, b.UnmarshalText(text))
	assert.Equal(t, a, b)
}

// The wire encoding is -4 x (snr - 19) wrapped into an unsigned octet.
func TestEncodeSnr(t *testing.T) {
	assert.Equal(t, uint8(0), EncodeSnr(19))
	assert.Equal(t, uint8(16), EncodeSnr(15))
	assert.Equal(t, uint8(232), EncodeSnr(25))
}
