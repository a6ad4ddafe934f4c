package frames

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// MacAddress is an EUI-48 station identifier.
type MacAddress [6]byte

// AID is the association identifier assigned by the PCP/AP. Zero means
// unassociated; BroadcastAID addresses every associated station.
type AID uint8

const BroadcastAID AID = 255

type SectorID uint8
type AntennaID uint8

// Direction tags a sector sweep frame as belonging to the initiator or the
// responder side of the exchange.
type Direction uint8

const (
	DirectionInitiator Direction = iota
	DirectionResponder
)

func (d Direction) String() string {
	if d == DirectionInitiator {
		return "initiator"
	}
	return "responder"
}

func BroadcastAddress() MacAddress {
	return MacAddress{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
}

func (a MacAddress) IsBroadcast() bool {
	return a == BroadcastAddress()
}

// IsGroup reports whether the group bit of the first octet is set.
func (a MacAddress) IsGroup() bool {
	return a[0]&0x01 != 0
}

func (a MacAddress) String() string {
	parts := make([]string, len(a))
	for i, b := range a {
		parts[i] = hex.EncodeToString([]byte{b})
	}
	return strings.Join(parts, ":")
}

func ParseMacAddress(s string) (MacAddress, error) {
	var a MacAddress
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return a, fmt.Errorf("invalid mac address %q", s)
	}
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil || len(b) != 1 {
			return a, fmt.Errorf("invalid mac address %q", s)
		}
		a[i] = b[0]
	}
	return a, nil
}

func (a MacAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *MacAddress) UnmarshalText(text []byte) error {
	parsed, err := ParseMacAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
