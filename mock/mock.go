// Package mock emulates the radio-side collaborators of the MAC: a
// steerable antenna, a low-level transmitter that records what it sends,
// and access-class queues. Tests and the run command drive the MAC against
// these.
package mock

import (
	"time"

	"github.com/beamlink/dmgsta/frames"
	"github.com/beamlink/dmgsta/state"
)

// Antenna records the current steering of the emulated phased array.
type Antenna struct {
	sectors  uint8
	antennas uint8

	TxSector  frames.SectorID
	TxAntenna frames.AntennaID
	RxSector  frames.SectorID
	RxAntenna frames.AntennaID
	OmniRx    bool
}

func NewAntenna(sectors, antennas uint8) *Antenna {
	return &Antenna{sectors: sectors, antennas: antennas, OmniRx: true}
}

func (a *Antenna) SetTxSector(s frames.SectorID) { a.TxSector = s }

func (a *Antenna) SetTxAntenna(id frames.AntennaID) { a.TxAntenna = id }

func (a *Antenna) SetRxSector(s frames.SectorID) {
	a.RxSector = s
	a.OmniRx = false
}

func (a *Antenna) SetRxAntenna(id frames.AntennaID) { a.RxAntenna = id }

func (a *Antenna) SetOmniRx() {
	a.OmniRx = true
	a.RxSector = 0
	a.RxAntenna = 0
}

func (a *Antenna) Sectors() uint8 { return a.sectors }

func (a *Antenna) Antennas() uint8 { return a.antennas }

// Transmission is one frame the MAC pushed straight to the transmitter.
type Transmission struct {
	Frame  *frames.Frame
	Params state.TxParams
	// steering captured at the moment of transmission
	TxSector  frames.SectorID
	TxAntenna frames.AntennaID
}

// Low records direct transmissions. With AutoComplete set (the default) the
// tx-complete callback fires synchronously, which keeps everything on the
// MAC main goroutine.
type Low struct {
	Antenna      *Antenna
	AutoComplete bool
	Sent         []Transmission
}

func NewLow(antenna *Antenna) *Low {
	return &Low{Antenna: antenna, AutoComplete: true}
}

func (l *Low) StartTransmission(f *frames.Frame, params state.TxParams, onTxOk func(hdr frames.Header)) {
	tx := Transmission{Frame: f, Params: params}
	if l.Antenna != nil {
		tx.TxSector = l.Antenna.TxSector
		tx.TxAntenna = l.Antenna.TxAntenna
	}
	l.Sent = append(l.Sent, tx)
	if l.AutoComplete && onTxOk != nil {
		onTxOk(f.Header)
	}
}

// SentOfType filters the record by frame type.
func (l *Low) SentOfType(t frames.FrameType) []Transmission {
	var out []Transmission
	for _, tx := range l.Sent {
		if tx.Frame.Header.Type == t {
			out = append(out, tx)
		}
	}
	return out
}

// Queue is an access-class queue capturing what the MAC enqueues and the
// channel access windows it is granted.
type Queue struct {
	Queued  []*frames.Frame
	Open    bool
	Granted []time.Duration
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Queue(f *frames.Frame) {
	q.Queued = append(q.Queued, f)
}

func (q *Queue) Grant(allocation time.Duration) {
	q.Open = true
	q.Granted = append(q.Granted, allocation)
}

func (q *Queue) Revoke() {
	q.Open = false
}

// QueuedOfType filters the queue record by frame type.
func (q *Queue) QueuedOfType(t frames.FrameType) []*frames.Frame {
	var out []*frames.Frame
	for _, f := range q.Queued {
		if f.Header.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// Rand replays a scripted sequence of values, then zeroes.
type Rand struct {
	Values []int
	next   int
}

func (r *Rand) Intn(n int) int {
	if r.next >= len(r.Values) {
		return 0
	}
	v := r.Values[r.next] % n
	r.next++
	return v
}
