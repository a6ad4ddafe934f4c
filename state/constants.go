package state

import "time"

var (
	// 802.11ad interframe spacings.
	Sifs  = 3 * time.Microsecond
	Sbifs = 1 * time.Microsecond
	Mbifs = 3 * Sifs

	// Air time of the fixed-size SLS control frames at the control PHY rate.
	SswTxTime     = 15800 * time.Nanosecond
	SswFbckTxTime = 18300 * time.Nanosecond
	SswAckTxTime  = 18300 * time.Nanosecond

	AirPropagationTime = 100 * time.Nanosecond
)

// SectorSweepSlotTime is the length of one A-BFT sector sweep slot carrying
// framesPerSlot SSW frames.
func SectorSweepSlotTime(framesPerSlot uint8) time.Duration {
	return AirPropagationTime + time.Duration(framesPerSlot)*(SswTxTime+Sbifs) + Mbifs
}

// SectorSweepDuration is the remaining air time of a sweep whose last heard
// frame advertised countdown frames still to come.
func SectorSweepDuration(countdown uint16) time.Duration {
	return time.Duration(countdown) * (SswTxTime + Sbifs)
}
