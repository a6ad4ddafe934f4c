package state

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/beamlink/dmgsta/frames"
)

// Module is one concern of the MAC, registered on the State and driven from
// the main loop.
type Module interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// AccessPeriod is the phase of the beacon interval the station is currently
// in. Exactly one is active at any time.
type AccessPeriod uint8

const (
	AccessBTI AccessPeriod = iota
	AccessABFT
	AccessATI
	AccessDTI
)

func (p AccessPeriod) String() string {
	switch p {
	case AccessBTI:
		return "BTI"
	case AccessABFT:
		return "A-BFT"
	case AccessATI:
		return "ATI"
	default:
		return "DTI"
	}
}

// Rand abstracts the random source so slot selection is scriptable in tests.
type Rand interface {
	Intn(n int) int
}

type SystemRand struct{}

func (SystemRand) Intn(n int) int {
	return rand.IntN(n)
}

// Env can be read from any goroutine.
type Env struct {
	DispatchChannel chan<- func(s *State) error
	Context         context.Context
	Cancel          context.CancelCauseFunc
	Sched           *Scheduler
	Rand            Rand
	Cfg             StationCfg
	Log             *slog.Logger
	Traces          *Traces
}

// Dispatch dispatches the function to run on the main thread without waiting
// for it to complete.
func (e *Env) Dispatch(fun func(s *State) error) {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	e.DispatchChannel <- fun
}

// State access must be done only on the main goroutine.
type State struct {
	*Env
	Modules map[string]Module

	// collaborators, injected by the host
	Antenna         DirectionalAntenna
	Low             LowTransmitter
	ContentionQueue TxQueue
	SpQueue         TxQueue
	AtiQueue        TxQueue
	ForwardUp       func(payload []byte, from, to frames.MacAddress)
	Deaggregate     func(payload []byte) [][]byte
	LinkUp          func()
	LinkDown        func()

	// shared MAC state
	AccessPeriod   AccessPeriod
	Aid            frames.AID
	Bssid          frames.MacAddress
	Antennas       *AntennaStore
	AidMap         map[frames.AID]frames.MacAddress
	MacMap         map[frames.MacAddress]frames.AID
	SpStations     []frames.MacAddress
	DataForwarding []frames.MacAddress
}

func (s *State) Address() frames.MacAddress {
	return s.Cfg.Address
}

// MapAidToMacAddress records both directions of an AID assignment.
func (s *State) MapAidToMacAddress(aid frames.AID, address frames.MacAddress) {
	s.AidMap[aid] = address
	s.MacMap[address] = aid
}

func (s *State) AddSpStation(address frames.MacAddress) {
	if !slices.Contains(s.SpStations, address) {
		s.SpStations = append(s.SpStations, address)
	}
}

func (s *State) AddDataForwarding(address frames.MacAddress) {
	if !slices.Contains(s.DataForwarding, address) {
		s.DataForwarding = append(s.DataForwarding, address)
	}
}
