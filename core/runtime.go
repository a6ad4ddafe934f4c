package core

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"reflect"
	"syscall"
	"time"

	"github.com/beamlink/dmgsta/frames"
	"github.com/beamlink/dmgsta/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// Deps are the external collaborators of the MAC: the PHY-side adapters and
// the upper-layer callbacks. The MAC holds them without owning them.
type Deps struct {
	Antenna         state.DirectionalAntenna
	Low             state.LowTransmitter
	ContentionQueue state.TxQueue
	SpQueue         state.TxQueue
	AtiQueue        state.TxQueue
	ForwardUp       func(payload []byte, from, to frames.MacAddress)
	Deaggregate     func(payload []byte) [][]byte
	LinkUp          func()
	LinkDown        func()
	Traces          *state.Traces
	Rand            state.Rand
}

// NewLogger builds the station logger: tinted stderr output, fanned out to
// a text file when cfg.LogPath is set.
func NewLogger(cfg state.StationCfg, level slog.Level) (*slog.Logger, error) {
	handlers := []slog.Handler{
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			AddSource:    false,
			TimeFormat:   "15:04:05",
			CustomPrefix: cfg.Id,
		}),
	}
	if cfg.LogPath != "" {
		if err := os.MkdirAll(path.Dir(cfg.LogPath), 0700); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0700)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// NewState assembles an Env/State pair around the given collaborators. The
// caller owns the dispatch channel fed to MainLoop.
func NewState(cfg state.StationCfg, deps Deps, logger *slog.Logger, dispatch chan func(*state.State) error) *state.State {
	ctx, cancel := context.WithCancelCause(context.Background())

	rnd := deps.Rand
	if rnd == nil {
		rnd = state.SystemRand{}
	}
	traces := deps.Traces
	if traces == nil {
		traces = &state.Traces{}
	}

	s := &state.State{
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			Sched:           state.NewScheduler(),
			Rand:            rnd,
			Cfg:             cfg,
			Log:             logger,
			Traces:          traces,
		},
		Modules:         make(map[string]state.Module),
		Antenna:         deps.Antenna,
		Low:             deps.Low,
		ContentionQueue: deps.ContentionQueue,
		SpQueue:         deps.SpQueue,
		AtiQueue:        deps.AtiQueue,
		ForwardUp:       deps.ForwardUp,
		Deaggregate:     deps.Deaggregate,
		LinkUp:          deps.LinkUp,
		LinkDown:        deps.LinkDown,
		Antennas:        state.NewAntennaStore(),
		AidMap:          make(map[frames.AID]frames.MacAddress),
		MacMap:          make(map[frames.MacAddress]frames.AID),
	}
	return s
}

// InitModules registers and initializes every MAC module. Order matters:
// the beacon interval module enters the BTI last, once its dependencies
// exist.
func InitModules(s *state.State) error {
	modules := []state.Module{
		&Assoc{},
		&Sls{},
		&Dti{},
		&Relay{},
		&BeaconInterval{},
	}
	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
	}
	for _, module := range modules {
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

// Start runs the station until the context is cancelled or a fatal error
// surfaces.
func Start(cfg state.StationCfg, deps Deps, logLevel slog.Level) error {
	cfg.ApplyDefaults()
	if err := state.StationConfigValidator(&cfg); err != nil {
		return err
	}

	logger, err := NewLogger(cfg, logLevel)
	if err != nil {
		return err
	}

	dispatch := make(chan func(*state.State) error, 128)
	s := NewState(cfg, deps, logger, dispatch)

	s.Log.Info("init modules")
	if err := InitModules(s); err != nil {
		return err
	}
	s.Log.Info("station initialized, send SIGINT to exit")

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range c {
			s.Cancel(errors.New("received shutdown signal"))
		}
	}()

	return MainLoop(s, dispatch)
}

// MainLoop is the single thread of the MAC. It interleaves dispatched
// closures with due scheduler events; all state mutation happens here.
func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	start := time.Now()
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		var wake <-chan time.Time
		if deadline, ok := s.Sched.NextDeadline(); ok {
			wait := deadline - time.Since(start)
			if wait < 0 {
				wait = 0
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(wait)
			wake = timer.C
		}

		select {
		case fun := <-dispatch:
			if err := fun(s); err != nil {
				s.Log.Error("error occurred during dispatch", "error", err)
				s.Cancel(err)
			}
		case <-wake:
			if err := s.Sched.RunUntil(s, time.Since(start)); err != nil {
				s.Log.Error("error occurred in scheduled event", "error", err)
				s.Cancel(err)
			}
		case <-s.Context.Done():
			s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
			cleanup(s)
			return nil
		}
	}
}

func cleanup(s *state.State) {
	s.Log.Info("cleaning up modules")
	for moduleName, module := range s.Modules {
		if err := module.Cleanup(s); err != nil {
			s.Log.Error("error occurred during cleanup", "module", moduleName, "error", err)
		}
	}
	s.Cancel(context.Canceled)
}
