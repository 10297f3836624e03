package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the bingo server"`
	Simulate SimulateCmd      `cmd:"" help:"Run headless bot-only rounds"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("bingo"),
		kong.Description("Multiplayer number-bingo server with simulated players"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
