package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/colldocs/cmd/colldocs/commands"
	"git.home.luguber.info/inful/colldocs/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("colldocs"),
		kong.Description("Generate documentation pages for a plugin collection."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)
	ctx.FatalIfErrorf(ctx.Run(&commands.Global{}, cli))
}
