package cmd

import (
	"log/slog"
	"os"

	"github.com/beamlink/dmgsta/core"
	"github.com/beamlink/dmgsta/mock"
	"github.com/beamlink/dmgsta/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the station MAC over the emulated radio",
	Long: `This runs the station MAC on the current host against the emulated
antenna and transmitter, which is useful for soak testing schedules and for
observing the state machines without radio hardware.`,
	Run: func(cmd *cobra.Command, args []string) {
		var cfg state.StationCfg
		file, err := os.ReadFile(stationConfigPath)
		if err != nil {
			panic(err)
		}
		err = yaml.Unmarshal(file, &cfg)
		if err != nil {
			panic(err)
		}

		cfg.ApplyDefaults()
		err = state.StationConfigValidator(&cfg)
		if err != nil {
			panic(err)
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		antenna := mock.NewAntenna(cfg.Sectors, cfg.Antennas)
		deps := core.Deps{
			Antenna:         antenna,
			Low:             mock.NewLow(antenna),
			ContentionQueue: mock.NewQueue(),
			SpQueue:         mock.NewQueue(),
			AtiQueue:        mock.NewQueue(),
		}

		err = core.Start(cfg, deps, level)
		if err != nil {
			panic(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}
