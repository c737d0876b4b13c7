package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the twentyone server"`
	Client  ClientCmd        `cmd:"" help:"Connect as an interactive player"`
	Grant   GrantCmd         `cmd:"" help:"Credit a player's balance"`
	Balance BalanceCmd       `cmd:"" help:"Show a player's balance"`
	Top     TopCmd           `cmd:"" help:"Show the players with the most hands won"`
	Rooms   RoomsCmd         `cmd:"" help:"List rooms waiting for players"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("twentyone"),
		kong.Description("Room-based multiplayer 21 with a persistent ledger"),
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
