package frames

import "time"

// SSWField is the sector sweep field carried by SSW frames and DMG beacons.
// CountDown is the number of sweep frames remaining after this one.
type SSWField struct {
	Direction Direction
	CountDown uint16
	Sector    SectorID
	Antenna   AntennaID
}

// SSWFeedbackField reports the best sector observed from the peer. During
// an ISS the field instead carries the total sweep length.
type SSWFeedbackField struct {
	PartOfIss    bool
	Sector       SectorID
	Antenna      AntennaID
	PollRequired bool
}

type BrpRequestField struct {
	MidReq bool
	BcReq  bool
}

type LinkMaintenanceField struct {
	Master bool
}

// SSW is a sector sweep frame.
type SSW struct {
	Sweep    SSWField
	Feedback SSWFeedbackField
}

func (SSW) frameBody() {}

// SSWFeedback is the SSW-FBCK frame closing the responder sweep.
type SSWFeedback struct {
	Feedback    SSWFeedbackField
	Brp         BrpRequestField
	Maintenance LinkMaintenanceField
}

func (SSWFeedback) frameBody() {}

// SSWAck acknowledges an SSW-FBCK and completes the SLS exchange.
type SSWAck struct {
	Feedback    SSWFeedbackField
	Brp         BrpRequestField
	Maintenance LinkMaintenanceField
}

func (SSWAck) frameBody() {}

// SPR requests a service period from the PCP/AP during the ATI.
type SPR struct {
	SourceAid          AID
	AllocationDuration time.Duration
}

func (SPR) frameBody() {}

type Poll struct{}

func (Poll) frameBody() {}

type Grant struct{}

func (Grant) frameBody() {}
