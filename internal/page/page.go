// Package page renders documentation page sources (markdown) for plugins.
// Rendering is pure: the same entity graph always yields byte-identical
// output. Every entity row is anchored at its canonical identifier so the
// anchors are stable for external linking.
package page

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/colldocs/internal/entity"
)

// frontMatter is emitted ahead of every plugin page. Struct marshaling keeps
// the field order fixed across builds.
type frontMatter struct {
	Title        string `yaml:"title"`
	PluginType   string `yaml:"plugin_type"`
	Collection   string `yaml:"collection"`
	VersionAdded string `yaml:"version_added,omitempty"`
	Deprecated   bool   `yaml:"deprecated,omitempty"`
}

// PagePath returns the page source path for a plugin, relative to the output
// root: one subdirectory per plugin type, filename equal to the short name.
func PagePath(p *entity.Plugin) string {
	return path.Join(string(p.Kind), p.Name+".md")
}

// IndexPagePath returns the listing page path for a plugin type.
func IndexPagePath(kind entity.PluginKind) string {
	return path.Join(string(kind), "_index.md")
}

// RenderPlugin renders one plugin's full documentation page.
func RenderPlugin(p *entity.Plugin, collection string) []byte {
	var b strings.Builder

	writeFrontMatter(&b, frontMatter{
		Title:        p.FQName,
		PluginType:   string(p.Kind),
		Collection:   collection,
		VersionAdded: p.VersionAdded,
		Deprecated:   p.Deprecated != nil,
	})

	anchor(&b, p.FQName)
	fmt.Fprintf(&b, "# %s\n\n", p.FQName)
	if p.ShortDescription != "" {
		fmt.Fprintf(&b, "%s\n\n", p.ShortDescription)
	}

	if p.Deprecated != nil {
		writeDeprecation(&b, p.Deprecated)
	}

	for _, para := range p.Description {
		fmt.Fprintf(&b, "%s\n\n", para)
	}

	if len(p.Requirements) > 0 {
		b.WriteString("## Requirements\n\n")
		for _, req := range p.Requirements {
			fmt.Fprintf(&b, "- %s\n", req)
		}
		b.WriteString("\n")
	}

	if len(p.Options) > 0 {
		anchor(&b, p.FQName+"-options")
		b.WriteString("## Options\n\n")
		writeOptionsTable(&b, p)
	}

	if p.Examples != "" {
		b.WriteString("## Examples\n\n")
		b.WriteString("```yaml\n")
		b.WriteString(strings.TrimRight(p.Examples, "\n"))
		b.WriteString("\n```\n\n")
	}

	if len(p.Returns) > 0 {
		anchor(&b, p.FQName+"-returns")
		b.WriteString("## Return Values\n\n")
		writeReturnsTable(&b, p)
	}

	if len(p.Notes) > 0 {
		b.WriteString("## Notes\n\n")
		for _, note := range p.Notes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
		b.WriteString("\n")
	}

	if len(p.SeeAlso) > 0 {
		b.WriteString("## See Also\n\n")
		for _, ref := range p.SeeAlso {
			fmt.Fprintf(&b, "- :plugin:`%s`\n", ref)
		}
		b.WriteString("\n")
	}

	if len(p.Author) > 0 {
		b.WriteString("## Authors\n\n")
		for _, a := range p.Author {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		b.WriteString("\n")
	}

	return []byte(b.String())
}

// RenderTypeIndex renders the listing page for one plugin type. Plugins are
// listed sorted by short name.
func RenderTypeIndex(kind entity.PluginKind, plugins []*entity.Plugin, collection string) []byte {
	sorted := make([]*entity.Plugin, len(plugins))
	copy(sorted, plugins)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	writeFrontMatter(&b, frontMatter{
		Title:      fmt.Sprintf("%s plugins", kind),
		PluginType: string(kind),
		Collection: collection,
	})
	fmt.Fprintf(&b, "# %s plugins\n\n", capitalize(string(kind)))
	for _, p := range sorted {
		desc := p.ShortDescription
		if p.Deprecated != nil {
			desc = "(deprecated) " + desc
		}
		fmt.Fprintf(&b, "- [%s](%s.md) — %s\n", p.Name, p.Name, desc)
	}
	b.WriteString("\n")
	return []byte(b.String())
}

func writeFrontMatter(b *strings.Builder, fm frontMatter) {
	raw, err := yaml.Marshal(fm)
	if err != nil {
		// Marshaling a plain struct cannot fail; keep the page rather than panic.
		raw = []byte("title: " + fm.Title + "\n")
	}
	b.WriteString("---\n")
	b.Write(raw)
	b.WriteString("---\n\n")
}

func writeDeprecation(b *strings.Builder, d *entity.Deprecation) {
	b.WriteString("> **DEPRECATED**")
	if d.RemovedIn != "" {
		fmt.Fprintf(b, " — will be removed in %s", d.RemovedIn)
	}
	b.WriteString("\n")
	if d.Why != "" {
		fmt.Fprintf(b, ">\n> %s\n", d.Why)
	}
	if d.Alternative != "" {
		fmt.Fprintf(b, ">\n> Use :plugin:`%s` instead.\n", d.Alternative)
	}
	b.WriteString("\n")
}

func writeOptionsTable(b *strings.Builder, p *entity.Plugin) {
	b.WriteString("| Option | Type | Required | Default | Choices | Comments |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	p.WalkOptions(func(depth int, o *entity.Option) {
		name := fmt.Sprintf("%s<a id=\"%s\"></a>**%s**", indent(depth), o.Path, o.Name)
		required := "no"
		if o.Required {
			required = "yes"
		}
		var choices []string
		for _, c := range o.Choices {
			choices = append(choices, formatValue(c))
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n",
			name,
			cell(typeLabel(o.Type, o.Elements)),
			required,
			cell(formatValue(o.Default)),
			cell(strings.Join(choices, ", ")),
			cell(optionComments(o)),
		)
	})
	b.WriteString("\n")
}

func writeReturnsTable(b *strings.Builder, p *entity.Plugin) {
	b.WriteString("| Key | Type | Returned | Description |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	p.WalkReturns(func(depth int, rv *entity.ReturnValue) {
		name := fmt.Sprintf("%s<a id=\"%s\"></a>**%s**", indent(depth), rv.Path, rv.Name)
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
			name,
			cell(typeLabel(rv.Type, rv.Elements)),
			cell(rv.Returned),
			cell(returnComments(rv)),
		)
	})
	b.WriteString("\n")
}

func optionComments(o *entity.Option) string {
	var parts []string
	parts = append(parts, o.Description...)
	if len(o.Aliases) > 0 {
		parts = append(parts, "Aliases: "+strings.Join(o.Aliases, ", "))
	}
	if o.VersionAdded != "" {
		parts = append(parts, "Added in "+o.VersionAdded)
	}
	if o.Deprecated != nil {
		dep := "Deprecated"
		if o.Deprecated.RemovedIn != "" {
			dep += ", removed in " + o.Deprecated.RemovedIn
		}
		if o.Deprecated.Alternative != "" {
			dep += ", use " + o.Deprecated.Alternative
		}
		parts = append(parts, dep)
	}
	return strings.Join(parts, " ")
}

func returnComments(rv *entity.ReturnValue) string {
	var parts []string
	parts = append(parts, rv.Description...)
	if rv.Sample != nil {
		parts = append(parts, "Sample: `"+formatValue(rv.Sample)+"`")
	}
	if rv.VersionAdded != "" {
		parts = append(parts, "Added in "+rv.VersionAdded)
	}
	return strings.Join(parts, " ")
}

// indent produces depth-proportional indentation for nested rows. Depth 1 is
// a root entity and gets none.
func indent(depth int) string {
	return strings.Repeat("&nbsp;&nbsp;&nbsp;&nbsp;", depth-1)
}

func typeLabel(typ, elements string) string {
	if typ == "list" && elements != "" {
		return "list of " + elements
	}
	return typ
}

// anchor emits a stable in-page anchor element.
func anchor(b *strings.Builder, id string) {
	fmt.Fprintf(b, "<a id=%q></a>\n", id)
}

// formatValue renders a default/sample/choice value deterministically.
// Mappings round-trip through yaml.v3, which encodes Go maps with sorted
// keys.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool, int, int64, uint64, float64:
		return fmt.Sprintf("%v", val)
	default:
		raw, err := yaml.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return strings.TrimRight(string(raw), "\n")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// cell escapes characters that would break a markdown table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
