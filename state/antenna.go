package state

import (
	"github.com/beamlink/dmgsta/frames"
)

// DirectionalAntenna steers the phased array. Implementations live with the
// PHY; the MAC only ever drives one of these.
type DirectionalAntenna interface {
	SetTxSector(s frames.SectorID)
	SetTxAntenna(a frames.AntennaID)
	SetRxSector(s frames.SectorID)
	SetRxAntenna(a frames.AntennaID)
	SetOmniRx()
	Sectors() uint8
	Antennas() uint8
}

// AntennaConfig is one steering choice. A zero sector means the receive
// side has not been trained yet.
type AntennaConfig struct {
	Sector  frames.SectorID
	Antenna frames.AntennaID
}

type BestConfig struct {
	Tx AntennaConfig
	Rx AntennaConfig
}

// AntennaStore keeps, per peer, the trained best transmit/receive
// configuration and the raw SNR observed for every (sector, antenna) the
// peer announced while sweeping.
type AntennaStore struct {
	best map[frames.MacAddress]BestConfig
	snr  map[frames.MacAddress]map[AntennaConfig]float64
}

func NewAntennaStore() *AntennaStore {
	return &AntennaStore{
		best: make(map[frames.MacAddress]BestConfig),
		snr:  make(map[frames.MacAddress]map[AntennaConfig]float64),
	}
}

// MapTxSnr records the SNR of a frame the peer transmitted over
// (sector, antenna).
func (st *AntennaStore) MapTxSnr(peer frames.MacAddress, sector frames.SectorID, antenna frames.AntennaID, snr float64) {
	m, ok := st.snr[peer]
	if !ok {
		m = make(map[AntennaConfig]float64)
		st.snr[peer] = m
	}
	m[AntennaConfig{Sector: sector, Antenna: antenna}] = snr
}

// BestTxFor returns the peer's transmit configuration with the highest
// recorded SNR. Ties resolve to the lowest (antenna, sector) pair so the
// result is deterministic.
func (st *AntennaStore) BestTxFor(peer frames.MacAddress) (AntennaConfig, float64, bool) {
	m, ok := st.snr[peer]
	if !ok || len(m) == 0 {
		return AntennaConfig{}, 0, false
	}
	var bestCfg AntennaConfig
	bestSnr := 0.0
	found := false
	for cfg, snr := range m {
		if !found || snr > bestSnr || (snr == bestSnr && less(cfg, bestCfg)) {
			bestCfg, bestSnr, found = cfg, snr, true
		}
	}
	return bestCfg, bestSnr, true
}

func less(a, b AntennaConfig) bool {
	if a.Antenna != b.Antenna {
		return a.Antenna < b.Antenna
	}
	return a.Sector < b.Sector
}

// ForgetSnr drops the sweep history of a peer, taken at the start of a new
// BTI so stale sectors do not win.
func (st *AntennaStore) ForgetSnr(peer frames.MacAddress) {
	delete(st.snr, peer)
}

func (st *AntennaStore) SetBest(peer frames.MacAddress, cfg BestConfig) {
	st.best[peer] = cfg
}

func (st *AntennaStore) Best(peer frames.MacAddress) (BestConfig, bool) {
	cfg, ok := st.best[peer]
	return cfg, ok
}
