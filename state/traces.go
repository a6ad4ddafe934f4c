package state

import (
	"github.com/beamlink/dmgsta/frames"
)

// Traces are observability hooks. Unset hooks are skipped.
type Traces struct {
	Assoc                 func(bssid frames.MacAddress)
	DeAssoc               func(bssid frames.MacAddress)
	ChannelReportReceived func(peer frames.MacAddress)
	SlsCompleted          func(peer frames.MacAddress, period AccessPeriod, sector frames.SectorID, antenna frames.AntennaID)
	RxDrop                func(f *frames.Frame)
	TxDrop                func(to frames.MacAddress)
}

func (t *Traces) FireAssoc(bssid frames.MacAddress) {
	if t != nil && t.Assoc != nil {
		t.Assoc(bssid)
	}
}

func (t *Traces) FireDeAssoc(bssid frames.MacAddress) {
	if t != nil && t.DeAssoc != nil {
		t.DeAssoc(bssid)
	}
}

func (t *Traces) FireChannelReportReceived(peer frames.MacAddress) {
	if t != nil && t.ChannelReportReceived != nil {
		t.ChannelReportReceived(peer)
	}
}

func (t *Traces) FireSlsCompleted(peer frames.MacAddress, period AccessPeriod, sector frames.SectorID, antenna frames.AntennaID) {
	if t != nil && t.SlsCompleted != nil {
		t.SlsCompleted(peer, period, sector, antenna)
	}
}

func (t *Traces) FireRxDrop(f *frames.Frame) {
	if t != nil && t.RxDrop != nil {
		t.RxDrop(f)
	}
}

func (t *Traces) FireTxDrop(to frames.MacAddress) {
	if t != nil && t.TxDrop != nil {
		t.TxDrop(to)
	}
}
