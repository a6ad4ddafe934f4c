package state

import (
	"time"

	"github.com/beamlink/dmgsta/frames"
)

// TxParams overrides per-frame transmission behavior when a frame bypasses
// the contention engine.
type TxParams struct {
	OverrideDuration time.Duration
	DisableRts       bool
	DisableAck       bool
	DisableNextData  bool
}

// LowTransmitter sends a single frame directly, outside any queue. onTxOk
// runs once the frame has left the air interface; implementations must
// deliver the callback on the MAC main goroutine.
type LowTransmitter interface {
	StartTransmission(f *frames.Frame, params TxParams, onTxOk func(hdr frames.Header))
}

// TxQueue is one access-class queue of the data path. Grant opens a channel
// access window of the given length; Revoke closes it immediately.
type TxQueue interface {
	Queue(f *frames.Frame)
	Grant(allocation time.Duration)
	Revoke()
}
