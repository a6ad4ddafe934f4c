package main

import "github.com/beamlink/dmgsta/cmd"

func main() {
	cmd.Execute()
}
