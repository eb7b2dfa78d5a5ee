package entity

import (
	"sort"
	"strings"

	"git.home.luguber.info/inful/colldocs/internal/errors"
	"git.home.luguber.info/inful/colldocs/internal/schema"
)

// DefaultMaxDepth bounds option/return nesting. Real metadata rarely nests
// past five or six levels; the guard exists to reject malformed input.
const DefaultMaxDepth = 20

// Builder turns validated schema trees into entity subtrees with canonical
// paths assigned.
type Builder struct {
	maxDepth int
}

// NewBuilder constructs a Builder. maxDepth <= 0 selects DefaultMaxDepth.
func NewBuilder(maxDepth int) *Builder {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Builder{maxDepth: maxDepth}
}

// BuildPlugin assembles a full Plugin from its validated doc block and
// optional return block. identifier is namespace.collection.name.
func (b *Builder) BuildPlugin(coll *Collection, kind PluginKind, name string, doc *schema.DocBlock, ret map[string]*schema.ReturnSpec, examples string) (*Plugin, error) {
	if err := validName(coll.FQName(), name); err != nil {
		return nil, err
	}
	fq := coll.FQName() + "." + name
	p := &Plugin{
		Kind:             kind,
		Name:             name,
		FQName:           fq,
		ShortDescription: doc.ShortDescription,
		Description:      doc.Description,
		Author:           doc.Author,
		Notes:            doc.Notes,
		Requirements:     doc.Requirements,
		SeeAlso:          doc.SeeAlso,
		VersionAdded:     doc.VersionAdded,
		Deprecated:       deprecation(doc.Deprecated),
		Private:          doc.Private,
		Examples:         examples,
	}

	var err error
	if p.Options, err = b.BuildOptions(fq, doc.Options); err != nil {
		return nil, err
	}
	if p.Returns, err = b.BuildReturns(fq, ret); err != nil {
		return nil, err
	}
	return p, nil
}

// BuildRolePlugin assembles a role Plugin from its argument spec. Each entry
// point becomes the first path segment under the role's identifier, keeping
// the dotted grammar uniform with option paths.
func (b *Builder) BuildRolePlugin(coll *Collection, name string, spec *schema.ArgumentSpec) (*Plugin, error) {
	if err := validName(coll.FQName(), name); err != nil {
		return nil, err
	}
	fq := coll.FQName() + "." + name
	p := &Plugin{Kind: KindRole, Name: name, FQName: fq}

	entryNames := make([]string, 0, len(spec.EntryPoints))
	for n := range spec.EntryPoints {
		entryNames = append(entryNames, n)
	}
	sort.Strings(entryNames)

	for _, entryName := range entryNames {
		if err := validName(fq, entryName); err != nil {
			return nil, err
		}
		ep := spec.EntryPoints[entryName]
		if entryName == "main" {
			p.ShortDescription = ep.ShortDescription
			p.Description = ep.Description
			p.Author = ep.Author
			p.VersionAdded = ep.VersionAdded
			p.Deprecated = deprecation(ep.Deprecated)
		}

		entry := &Option{
			Name:        entryName,
			Path:        fq + "." + entryName,
			Type:        "dict",
			Description: ep.Description,
		}
		if entry.Description == nil && ep.ShortDescription != "" {
			entry.Description = []string{ep.ShortDescription}
		}
		children, err := b.buildOptions(entry.Path, ep.Options, 2)
		if err != nil {
			return nil, err
		}
		entry.Suboptions = children
		p.Options = append(p.Options, entry)
	}
	return p, nil
}

// BuildOptions builds the root option list for the given parent identifier.
func (b *Builder) BuildOptions(parentPath string, specs map[string]*schema.OptionSpec) ([]*Option, error) {
	return b.buildOptions(parentPath, specs, 1)
}

func (b *Builder) buildOptions(parentPath string, specs map[string]*schema.OptionSpec, depth int) ([]*Option, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	if depth > b.maxDepth {
		return nil, errors.Validationf(parentPath, "max depth exceeded (limit %d)", b.maxDepth)
	}

	names := make([]string, 0, len(specs))
	for n := range specs {
		names = append(names, n)
	}
	sort.Strings(names)

	// Aliases share the sibling namespace with option names; a clash is
	// fatal for the subtree.
	seen := make(map[string]string, len(specs))
	for _, name := range names {
		seen[name] = name
	}
	for _, name := range names {
		for _, alias := range specs[name].Aliases {
			if other, dup := seen[alias]; dup {
				return nil, errors.Validationf(parentPath+"."+name,
					"alias %q collides with sibling %q", alias, other)
			}
			seen[alias] = name
		}
	}

	out := make([]*Option, 0, len(names))
	for _, name := range names {
		spec := specs[name]
		if err := validName(parentPath, name); err != nil {
			return nil, err
		}
		o := &Option{
			Name:         name,
			Path:         parentPath + "." + name,
			Type:         spec.Type,
			Elements:     spec.Elements,
			Required:     spec.Required,
			Default:      spec.Default,
			Choices:      spec.Choices,
			Aliases:      append([]string(nil), spec.Aliases...),
			Description:  spec.Description,
			VersionAdded: spec.VersionAdded,
			Deprecated:   deprecation(spec.Deprecated),
			Private:      spec.Private,
		}
		children, err := b.buildOptions(o.Path, spec.Suboptions, depth+1)
		if err != nil {
			return nil, err
		}
		o.Suboptions = children
		out = append(out, o)
	}
	return out, nil
}

// BuildReturns builds the root return value list for the given parent identifier.
func (b *Builder) BuildReturns(parentPath string, specs map[string]*schema.ReturnSpec) ([]*ReturnValue, error) {
	return b.buildReturns(parentPath, specs, 1)
}

func (b *Builder) buildReturns(parentPath string, specs map[string]*schema.ReturnSpec, depth int) ([]*ReturnValue, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	if depth > b.maxDepth {
		return nil, errors.Validationf(parentPath, "max depth exceeded (limit %d)", b.maxDepth)
	}

	names := make([]string, 0, len(specs))
	for n := range specs {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]*ReturnValue, 0, len(names))
	for _, name := range names {
		spec := specs[name]
		if err := validName(parentPath, name); err != nil {
			return nil, err
		}
		rv := &ReturnValue{
			Name:         name,
			Path:         parentPath + "." + name,
			Type:         spec.Type,
			Elements:     spec.Elements,
			Returned:     spec.Returned,
			Description:  spec.Description,
			Sample:       spec.Sample,
			VersionAdded: spec.VersionAdded,
		}
		children, err := b.buildReturns(rv.Path, spec.Contains, depth+1)
		if err != nil {
			return nil, err
		}
		rv.Contains = children
		out = append(out, rv)
	}
	return out, nil
}

func validName(parentPath, name string) error {
	if name == "" {
		return errors.Validationf(parentPath, "empty entity name")
	}
	if strings.Contains(name, ".") {
		return errors.Validationf(parentPath+"."+name,
			"entity name must not contain %q", ".")
	}
	return nil
}

func deprecation(d *schema.DeprecationSpec) *Deprecation {
	if d == nil {
		return nil
	}
	return &Deprecation{Alternative: d.Alternative, RemovedIn: d.RemovedIn, Why: d.Why}
}
