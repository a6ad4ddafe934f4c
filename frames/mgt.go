package frames

import "time"

type StatusCode uint16

const (
	StatusSuccess StatusCode = 0
	StatusRefused StatusCode = 1
)

func (c StatusCode) IsSuccess() bool {
	return c == StatusSuccess
}

type ProbeRequest struct {
	Ssid string
}

func (ProbeRequest) frameBody() {}

type ProbeResponse struct {
	Ssid           string
	BeaconInterval time.Duration
}

func (ProbeResponse) frameBody() {}

type AssocRequest struct {
	Ssid         string
	Capabilities DmgCapabilities
	MultiBand    MultiBandElement
	RelayCaps    RelayCapabilities
}

func (AssocRequest) frameBody() {}

type AssocResponse struct {
	Status StatusCode
	Aid    AID
}

func (AssocResponse) frameBody() {}

// DmgCapabilities is the capability element a DMG station advertises in
// association and information exchanges.
type DmgCapabilities struct {
	StaAddress       MacAddress
	Aid              AID
	ReverseDirection bool
	RxDmgAntennas    uint8
	Sectors          uint8
	RxssLength       uint8
	MaxAmpduExponent uint8
	AppduSupported   bool
}

// RelayCapabilities advertises whether the station can act as an RDS or
// make use of one.
type RelayCapabilities struct {
	SupportsRelaying bool
	RelayUsable      bool
	RelayPermission  bool
	TdmaRelay        bool
}

type StaRole uint8

const (
	RoleNonPcpNonAp StaRole = iota
	RolePcp
	RoleAp
)

type MultiBandElement struct {
	Role                 StaRole
	StaMacPresent        bool
	BandID               uint8
	OperatingClass       uint8
	ChannelNumber        uint8
	Bssid                MacAddress
	ConnectionCapability uint8
	FstSessionTimeout    uint8
}
