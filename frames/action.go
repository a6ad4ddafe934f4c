package frames

type ElementID uint8

const (
	ElementDmgCapabilities ElementID = 148
	ElementDmgOperation    ElementID = 151
	ElementNextDmgAti      ElementID = 150
	ElementExtSchedule     ElementID = 153
)

type RelayCapableStation struct {
	Aid          AID
	Capabilities RelayCapabilities
}

type RelaySearchRequest struct {
	DialogToken    uint8
	DestinationAid AID
}

func (RelaySearchRequest) frameBody() {}

type RelaySearchResponse struct {
	DialogToken uint8
	StatusCode  StatusCode
	Relays      []RelayCapableStation
}

func (RelaySearchResponse) frameBody() {}

type ChannelMeasurementRequest struct {
	DialogToken uint8
}

func (ChannelMeasurementRequest) frameBody() {}

// ChannelMeasurement pairs a peer AID with its encoded link SNR.
type ChannelMeasurement struct {
	PeerAid AID
	Snr     uint8
}

type ChannelMeasurementReport struct {
	DialogToken  uint8
	Measurements []ChannelMeasurement
}

func (ChannelMeasurementReport) frameBody() {}

type RlsRequest struct {
	DialogToken    uint8
	SourceAid      AID
	RelayAid       AID
	DestinationAid AID
}

func (RlsRequest) frameBody() {}

type RlsResponse struct {
	DialogToken       uint8
	RelayStatus       StatusCode
	DestinationStatus StatusCode
}

func (RlsResponse) frameBody() {}

type RlsAnnouncement struct {
	Status         StatusCode
	SourceAid      AID
	RelayAid       AID
	DestinationAid AID
}

func (RlsAnnouncement) frameBody() {}

type InformationRequest struct {
	Subject           MacAddress
	RequestedElements []ElementID
}

func (InformationRequest) frameBody() {}

type InformationResponse struct {
	Subject      MacAddress
	Capabilities []DmgCapabilities
}

func (InformationResponse) frameBody() {}

// EncodeSnr maps a measured SNR in dB onto the unsigned 8-bit wire value
// -4 x (snr - 19), wrapping modulo 256.
func EncodeSnr(snrDb float64) uint8 {
	return uint8(-int32(4 * (snrDb - 19)))
}
