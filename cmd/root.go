package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var stationConfigPath = "station.yaml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dmgsta",
	Short: "DMG station MAC",
	Long: `dmgsta runs the MAC layer of a non-AP DMG station: beacon interval
tracking, sector-level sweep beamforming, association and relay link setup.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&stationConfigPath, "config", "f", stationConfigPath, "station config file")
}
