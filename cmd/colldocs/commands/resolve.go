package commands

import (
	"context"
	"fmt"
	"os"

	"git.home.luguber.info/inful/colldocs/internal/docgen"
	"git.home.luguber.info/inful/colldocs/internal/resolver"
)

// ResolveCmd implements the 'resolve' command: build the entity index in a
// throwaway output directory and resolve one reference query against it.
type ResolveCmd struct {
	Query string `arg:"" help:"Full or partial dotted identifier to resolve"`
	Role  string `enum:",plugin,options,option,return" default:"" help:"Restrict the match to one reference role"`
}

func (r *ResolveCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Pages are rendered into a scratch directory; only the index matters.
	scratch, err := os.MkdirTemp("", "colldocs-resolve-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)
	cfg.OutputPath = scratch

	result, err := docgen.New(cfg).Run(context.Background())
	if err != nil {
		return err
	}

	res, err := resolver.New(result.Index).Resolve(r.Query, resolver.Role(r.Role))
	if err != nil {
		return err
	}

	fmt.Printf("%s\t%s#%s\n", res.Entry.Identifier, res.Page, res.Anchor)
	return nil
}
