package core

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/beamlink/dmgsta/frames"
	"github.com/beamlink/dmgsta/mock"
	"github.com/beamlink/dmgsta/state"
	"github.com/stretchr/testify/require"
)

var (
	staAddr  = frames.MacAddress{0x00, 0x00, 0x00, 0x00, 0x00, 0x01}
	apAddr   = frames.MacAddress{0x00, 0x00, 0x00, 0x00, 0x00, 0x02}
	peerAddr = frames.MacAddress{0x00, 0x00, 0x00, 0x00, 0x00, 0x03}
)

type slsEvent struct {
	Peer    frames.MacAddress
	Period  state.AccessPeriod
	Sector  frames.SectorID
	Antenna frames.AntennaID
}

// Harness drives a full station over the virtual scheduler against the
// emulated radio.
type Harness struct {
	t *testing.T
	S *state.State

	Antenna    *mock.Antenna
	Low        *mock.Low
	Contention *mock.Queue
	Sp         *mock.Queue
	Ati        *mock.Queue
	Rand       *mock.Rand

	Assocs   []frames.MacAddress
	DeAssocs []frames.MacAddress
	Reports  []frames.MacAddress
	Sls      []slsEvent
	RxDrops  int
}

func defaultCfg() state.StationCfg {
	cfg := state.StationCfg{
		Id:      "sta",
		Address: staAddr,
		Ssid:    "test-bss",
		Sectors: 2,
	}
	cfg.ApplyDefaults()
	return cfg
}

func NewHarness(t *testing.T, cfg state.StationCfg) *Harness {
	h := &Harness{t: t}
	h.Antenna = mock.NewAntenna(cfg.Sectors, cfg.Antennas)
	h.Low = mock.NewLow(h.Antenna)
	h.Contention = mock.NewQueue()
	h.Sp = mock.NewQueue()
	h.Ati = mock.NewQueue()
	h.Rand = &mock.Rand{}

	traces := &state.Traces{
		Assoc:                 func(bssid frames.MacAddress) { h.Assocs = append(h.Assocs, bssid) },
		DeAssoc:               func(bssid frames.MacAddress) { h.DeAssocs = append(h.DeAssocs, bssid) },
		ChannelReportReceived: func(peer frames.MacAddress) { h.Reports = append(h.Reports, peer) },
		SlsCompleted: func(peer frames.MacAddress, period state.AccessPeriod, sector frames.SectorID, antenna frames.AntennaID) {
			h.Sls = append(h.Sls, slsEvent{Peer: peer, Period: period, Sector: sector, Antenna: antenna})
		},
		RxDrop: func(f *frames.Frame) { h.RxDrops++ },
	}

	deps := Deps{
		Antenna:         h.Antenna,
		Low:             h.Low,
		ContentionQueue: h.Contention,
		SpQueue:         h.Sp,
		AtiQueue:        h.Ati,
		Traces:          traces,
		Rand:            h.Rand,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatch := make(chan func(*state.State) error, 16)
	h.S = NewState(cfg, deps, logger, dispatch)
	require.NoError(t, InitModules(h.S))
	t.Cleanup(func() {
		for _, module := range h.S.Modules {
			require.NoError(t, module.Cleanup(h.S))
		}
	})
	return h
}

// Run advances virtual time to the absolute instant t.
func (h *Harness) Run(t time.Duration) {
	require.NoError(h.t, h.S.Sched.RunUntil(h.S, t))
}

// Deliver feeds a frame into the receive dispatcher at the current instant.
func (h *Harness) Deliver(f *frames.Frame, snr float64) {
	require.NoError(h.t, Receive(h.S, f, snr))
}

// Associate shortcuts the association exchange.
func (h *Harness) Associate(bssid frames.MacAddress, aid frames.AID) {
	h.S.Bssid = bssid
	h.S.Aid = aid
	Get[*Assoc](h.S).st = Associated
}

// beaconOpts shapes the beacon synthesized by DeliverBeacon. Zero values of
// fss, nBI and interval take DeliverBeacon's defaults.
type beaconOpts struct {
	slots         uint8
	fss           uint8
	atiDuration   time.Duration
	nBI           uint8
	cbapOnly      bool
	cbapSource    bool
	interval      time.Duration
	schedule      []frames.AllocationField
	sweep         frames.SSWField
	responderTxss bool
}

// DeliverBeacon synthesizes a beacon of a BTI that began at btiStart and
// lasts btiDuration, received at the current instant.
func (h *Harness) DeliverBeacon(btiStart, btiDuration time.Duration, o beaconOpts, snr float64) {
	now := h.S.Sched.Now()
	if o.fss == 0 {
		o.fss = 8
	}
	if o.nBI == 0 {
		o.nBI = 1
	}
	if o.interval == 0 {
		o.interval = 5 * time.Millisecond
	}
	abft := (time.Duration(o.slots) * state.SectorSweepSlotTime(o.fss)).Round(time.Microsecond)
	minBHI := btiDuration + abft + o.atiDuration + 2*state.Mbifs

	// Timestamp is the AP TSF at the start of the frame; with synchronized
	// clocks it equals now. The header duration spans the rest of the BTI.
	hdrDuration := btiStart + btiDuration - now

	var nextAti *frames.NextDmgAti
	if o.atiDuration > 0 {
		nextAti = &frames.NextDmgAti{Duration: o.atiDuration}
	}

	f := &frames.Frame{
		Header: frames.Header{
			Type:     frames.TypeDMGBeacon,
			Addr1:    apAddr,
			Duration: hdrDuration,
		},
		Body: frames.DMGBeacon{
			Timestamp:      now,
			BeaconInterval: o.interval,
			Control: frames.BeaconIntervalControl{
				NextBeacon:    o.nBI,
				ATIPresent:    o.atiDuration > 0,
				ABFTLength:    o.slots,
				FSS:           o.fss,
				ResponderTxss: o.responderTxss,
			},
			Parameters: frames.DmgParameters{
				CbapOnly:   o.cbapOnly,
				CbapSource: o.cbapSource,
			},
			Operation: frames.DmgOperation{MinBHIDuration: minBHI},
			NextAti:   nextAti,
			Schedule:  o.schedule,
			Sweep:     o.sweep,
		},
	}
	h.Deliver(f, snr)
}

func sswFrom(peer frames.MacAddress, direction frames.Direction, countdown uint16, sector frames.SectorID, antenna frames.AntennaID, feedback frames.SSWFeedbackField) *frames.Frame {
	return &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeSSW,
			Addr1: staAddr,
			Addr2: peer,
		},
		Body: frames.SSW{
			Sweep: frames.SSWField{
				Direction: direction,
				CountDown: countdown,
				Sector:    sector,
				Antenna:   antenna,
			},
			Feedback: feedback,
		},
	}
}

func actionFrom(peer frames.MacAddress, body frames.Body) *frames.Frame {
	return &frames.Frame{
		Header: frames.Header{
			Type:  frames.TypeAction,
			Addr1: staAddr,
			Addr2: peer,
			Addr3: apAddr,
		},
		Body: body,
	}
}
