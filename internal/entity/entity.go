// Package entity defines the documentable entity graph: a Collection owning
// Plugins, each owning an Option tree and a ReturnValue tree with canonical
// dotted identifiers. Ownership is strictly tree-shaped; nodes carry no
// back-references.
package entity

// PluginKind enumerates documentable plugin types.
type PluginKind string

const (
	KindModule     PluginKind = "module"
	KindRole       PluginKind = "role"
	KindFilter     PluginKind = "filter"
	KindTest       PluginKind = "test"
	KindLookup     PluginKind = "lookup"
	KindInventory  PluginKind = "inventory"
	KindConnection PluginKind = "connection"
	KindCallback   PluginKind = "callback"
)

// KnownKinds lists every plugin kind the discovery layer recognizes, in
// stable order.
var KnownKinds = []PluginKind{
	KindModule, KindRole, KindFilter, KindTest,
	KindLookup, KindInventory, KindConnection, KindCallback,
}

// Deprecation marks an entity as deprecated. Deprecated entities stay in the
// index and remain resolvable; generated output flags them.
type Deprecation struct {
	Alternative string
	RemovedIn   string
	Why         string
}

// Collection is a namespaced bundle of plugins.
type Collection struct {
	Namespace string
	Name      string
	Version   string
	Plugins   []*Plugin
}

// FQName returns the two-part collection namespace.
func (c *Collection) FQName() string {
	return c.Namespace + "." + c.Name
}

// Plugin is one documentable unit within a collection.
type Plugin struct {
	Kind             PluginKind
	Name             string
	FQName           string // namespace.collection.plugin_name
	ShortDescription string
	Description      []string
	Author           []string
	Notes            []string
	Requirements     []string
	SeeAlso          []string
	VersionAdded     string
	Deprecated       *Deprecation
	Private          bool
	Examples         string // pass-through, never parsed
	Options          []*Option
	Returns          []*ReturnValue
}

// Option documents one accepted input parameter. Suboptions are populated
// only when the value type denotes a mapping or list of mappings.
type Option struct {
	Name         string
	Path         string // canonical dotted path
	Type         string
	Elements     string
	Required     bool
	Default      any
	Choices      []any
	Aliases      []string
	Description  []string
	VersionAdded string
	Deprecated   *Deprecation
	Private      bool
	Suboptions   []*Option
}

// ReturnValue documents one output field, mirroring Option's shape.
type ReturnValue struct {
	Name         string
	Path         string
	Type         string
	Elements     string
	Returned     string
	Description  []string
	Sample       any
	VersionAdded string
	Contains     []*ReturnValue
}

// WalkOptions visits every option of the plugin in pre-order (parents before
// children, siblings in their stored order).
func (p *Plugin) WalkOptions(fn func(depth int, o *Option)) {
	var walk func(depth int, opts []*Option)
	walk = func(depth int, opts []*Option) {
		for _, o := range opts {
			fn(depth, o)
			walk(depth+1, o.Suboptions)
		}
	}
	walk(1, p.Options)
}

// WalkReturns visits every return value of the plugin in pre-order.
func (p *Plugin) WalkReturns(fn func(depth int, rv *ReturnValue)) {
	var walk func(depth int, rvs []*ReturnValue)
	walk = func(depth int, rvs []*ReturnValue) {
		for _, rv := range rvs {
			fn(depth, rv)
			walk(depth+1, rv.Contains)
		}
	}
	walk(1, p.Returns)
}
