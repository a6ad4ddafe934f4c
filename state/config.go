package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/beamlink/dmgsta/frames"
)

// StationCfg represents local station-level configuration.
type StationCfg struct {
	Id      string
	Address frames.MacAddress
	Ssid    string

	// sweep geometry of the directional antenna
	Sectors  uint8 `yaml:",omitempty"`
	Antennas uint8 `yaml:",omitempty"`

	ProbeRequestTimeout time.Duration `yaml:"probe_request_timeout,omitempty"`
	AssocRequestTimeout time.Duration `yaml:"assoc_request_timeout,omitempty"`
	MaxMissedBeacons    uint32        `yaml:"max_missed_beacons,omitempty"`
	ActiveProbing       bool          `yaml:"active_probing,omitempty"`

	// RdsActivated marks this station as a Relay DMG Station
	RdsActivated bool `yaml:"rds,omitempty"`

	SupportRdp bool `yaml:"support_rdp,omitempty"`

	LogPath string `yaml:"log_path,omitempty"` // if not empty, logs are also written to this file
}

func (cfg *StationCfg) ApplyDefaults() {
	if cfg.Sectors == 0 {
		cfg.Sectors = 8
	}
	if cfg.Antennas == 0 {
		cfg.Antennas = 1
	}
	if cfg.ProbeRequestTimeout == 0 {
		cfg.ProbeRequestTimeout = 50 * time.Millisecond
	}
	if cfg.AssocRequestTimeout == 0 {
		cfg.AssocRequestTimeout = 500 * time.Millisecond
	}
	if cfg.MaxMissedBeacons == 0 {
		cfg.MaxMissedBeacons = 10
	}
}

func StationConfigValidator(cfg *StationCfg) error {
	if cfg.Id == "" {
		return errors.New("station id must not be empty")
	}
	if cfg.Address == (frames.MacAddress{}) {
		return errors.New("station mac address must be set")
	}
	if cfg.Address.IsGroup() {
		return fmt.Errorf("station mac address %v must be unicast", cfg.Address)
	}
	if cfg.Ssid == "" {
		return errors.New("ssid must not be empty")
	}
	if cfg.Sectors < 1 {
		return errors.New("antenna must have at least one sector")
	}
	if cfg.Antennas < 1 {
		return errors.New("station must have at least one antenna")
	}
	return nil
}
