// Package schema validates raw plugin metadata (arbitrary nested
// mapping/sequence/scalar structures decoded from YAML) into typed
// intermediate trees. Nothing past this boundary operates on untyped data.
package schema

import (
	"fmt"
	"sort"

	"git.home.luguber.info/inful/colldocs/internal/errors"
)

// BlockKind identifies which metadata block a raw mapping purports to describe.
type BlockKind string

const (
	BlockDoc     BlockKind = "doc"
	BlockOption  BlockKind = "option"
	BlockReturn  BlockKind = "return"
	BlockArgSpec BlockKind = "argument_spec"
)

// DocBlock is the validated form of a plugin documentation block.
type DocBlock struct {
	ShortDescription string
	Description      []string
	Author           []string
	Notes            []string
	Requirements     []string
	SeeAlso          []string
	VersionAdded     string
	Deprecated       *DeprecationSpec
	Private          bool
	Options          map[string]*OptionSpec
}

// DeprecationSpec marks an entity as deprecated.
type DeprecationSpec struct {
	Alternative string
	RemovedIn   string
	Why         string
}

// OptionSpec is the validated form of one option block.
type OptionSpec struct {
	Type         string
	Elements     string
	Required     bool
	Default      any
	Choices      []any
	Aliases      []string
	Description  []string
	VersionAdded string
	Deprecated   *DeprecationSpec
	Private      bool
	Suboptions   map[string]*OptionSpec
}

// AllowsNesting reports whether the declared value type permits suboptions.
func (s *OptionSpec) AllowsNesting() bool {
	return s.Type == "dict" || (s.Type == "list" && s.Elements == "dict")
}

// ReturnSpec is the validated form of one return value block.
type ReturnSpec struct {
	Type         string
	Elements     string
	Description  []string
	Returned     string
	Sample       any
	VersionAdded string
	Contains     map[string]*ReturnSpec
}

// AllowsNesting reports whether the declared value type permits nested
// return values. "complex" is the legacy spelling of a nested mapping.
func (s *ReturnSpec) AllowsNesting() bool {
	return s.Type == "dict" || s.Type == "complex" || (s.Type == "list" && s.Elements == "dict")
}

// ArgumentSpec is the validated form of a role argument-spec block.
type ArgumentSpec struct {
	EntryPoints map[string]*EntryPointSpec
}

// EntryPointSpec documents one role entry point.
type EntryPointSpec struct {
	ShortDescription string
	Description      []string
	Author           []string
	VersionAdded     string
	Deprecated       *DeprecationSpec
	Options          map[string]*OptionSpec
}

var docBlockKeys = keySet(
	"short_description", "description", "author", "notes", "version_added",
	"deprecated", "private", "options", "requirements", "seealso",
)

var optionKeys = keySet(
	"type", "elements", "required", "default", "choices", "aliases",
	"description", "version_added", "deprecated", "private", "suboptions",
)

var returnKeys = keySet(
	"type", "elements", "description", "returned", "sample", "version_added", "contains",
)

var deprecatedKeys = keySet("alternative", "removed_in", "why")

var entryPointKeys = keySet(
	"short_description", "description", "author", "version_added", "deprecated", "options",
)

// ValidateDocBlock validates a plugin documentation block rooted at fieldPath
// (usually empty for the block root).
func ValidateDocBlock(raw map[string]any) (*DocBlock, error) {
	if err := checkKeys(raw, docBlockKeys, ""); err != nil {
		return nil, err
	}

	short, err := requireString(raw, "short_description", "")
	if err != nil {
		return nil, err
	}

	block := &DocBlock{ShortDescription: short}
	if block.Description, err = optionalStringList(raw, "description", ""); err != nil {
		return nil, err
	}
	if block.Author, err = optionalStringList(raw, "author", ""); err != nil {
		return nil, err
	}
	if block.Notes, err = optionalStringList(raw, "notes", ""); err != nil {
		return nil, err
	}
	if block.Requirements, err = optionalStringList(raw, "requirements", ""); err != nil {
		return nil, err
	}
	if block.SeeAlso, err = optionalStringList(raw, "seealso", ""); err != nil {
		return nil, err
	}
	if block.VersionAdded, err = optionalString(raw, "version_added", ""); err != nil {
		return nil, err
	}
	if block.Private, err = optionalBool(raw, "private", ""); err != nil {
		return nil, err
	}
	if block.Deprecated, err = optionalDeprecation(raw, ""); err != nil {
		return nil, err
	}

	if rawOpts, ok := raw["options"]; ok {
		block.Options, err = ValidateOptions(rawOpts, "options")
		if err != nil {
			return nil, err
		}
	}
	return block, nil
}

// ValidateOptions validates a mapping of option name to option block.
func ValidateOptions(raw any, fieldPath string) (map[string]*OptionSpec, error) {
	m, err := asMapping(raw, fieldPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*OptionSpec, len(m))
	for _, name := range sortedKeys(m) {
		childPath := joinPath(fieldPath, name)
		childRaw, err := asMapping(m[name], childPath)
		if err != nil {
			return nil, err
		}
		spec, err := ValidateOption(childRaw, childPath)
		if err != nil {
			return nil, err
		}
		out[name] = spec
	}
	return out, nil
}

// ValidateOption validates a single option block.
func ValidateOption(raw map[string]any, fieldPath string) (*OptionSpec, error) {
	if err := checkKeys(raw, optionKeys, fieldPath); err != nil {
		return nil, err
	}

	spec := &OptionSpec{Type: "str"}
	var err error
	if typ, ok := raw["type"]; ok {
		if spec.Type, err = scalarString(typ, joinPath(fieldPath, "type")); err != nil {
			return nil, err
		}
	}
	if spec.Elements, err = optionalString(raw, "elements", fieldPath); err != nil {
		return nil, err
	}
	if spec.Required, err = optionalBool(raw, "required", fieldPath); err != nil {
		return nil, err
	}
	spec.Default = raw["default"]
	if rawChoices, ok := raw["choices"]; ok {
		choices, ok := rawChoices.([]any)
		if !ok {
			return nil, errors.Validationf(joinPath(fieldPath, "choices"), "expected sequence, got %s", typeName(rawChoices))
		}
		spec.Choices = choices
	}
	if rawAliases, ok := raw["aliases"]; ok {
		aliases, aerr := stringList(rawAliases, joinPath(fieldPath, "aliases"))
		if aerr != nil {
			return nil, errors.Validationf(joinPath(fieldPath, "aliases"), "malformed alias list: %v", aerr)
		}
		spec.Aliases = aliases
	}
	if spec.Description, err = optionalStringList(raw, "description", fieldPath); err != nil {
		return nil, err
	}
	if spec.VersionAdded, err = optionalString(raw, "version_added", fieldPath); err != nil {
		return nil, err
	}
	if spec.Private, err = optionalBool(raw, "private", fieldPath); err != nil {
		return nil, err
	}
	if spec.Deprecated, err = optionalDeprecation(raw, fieldPath); err != nil {
		return nil, err
	}

	if rawSub, ok := raw["suboptions"]; ok {
		if !spec.AllowsNesting() {
			return nil, errors.Validationf(joinPath(fieldPath, "suboptions"),
				"suboptions not permitted on type %q", spec.Type)
		}
		if spec.Suboptions, err = ValidateOptions(rawSub, joinPath(fieldPath, "suboptions")); err != nil {
			return nil, err
		}
	}
	return spec, nil
}

// ValidateReturnBlock validates a mapping of return value name to return block.
func ValidateReturnBlock(raw any, fieldPath string) (map[string]*ReturnSpec, error) {
	m, err := asMapping(raw, fieldPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*ReturnSpec, len(m))
	for _, name := range sortedKeys(m) {
		childPath := joinPath(fieldPath, name)
		childRaw, err := asMapping(m[name], childPath)
		if err != nil {
			return nil, err
		}
		spec, err := validateReturn(childRaw, childPath)
		if err != nil {
			return nil, err
		}
		out[name] = spec
	}
	return out, nil
}

func validateReturn(raw map[string]any, fieldPath string) (*ReturnSpec, error) {
	if err := checkKeys(raw, returnKeys, fieldPath); err != nil {
		return nil, err
	}

	spec := &ReturnSpec{Type: "str"}
	var err error
	if typ, ok := raw["type"]; ok {
		if spec.Type, err = scalarString(typ, joinPath(fieldPath, "type")); err != nil {
			return nil, err
		}
	}
	if spec.Elements, err = optionalString(raw, "elements", fieldPath); err != nil {
		return nil, err
	}
	if spec.Description, err = optionalStringList(raw, "description", fieldPath); err != nil {
		return nil, err
	}
	if spec.Returned, err = optionalString(raw, "returned", fieldPath); err != nil {
		return nil, err
	}
	spec.Sample = raw["sample"]
	if spec.VersionAdded, err = optionalString(raw, "version_added", fieldPath); err != nil {
		return nil, err
	}

	if rawContains, ok := raw["contains"]; ok {
		if !spec.AllowsNesting() {
			return nil, errors.Validationf(joinPath(fieldPath, "contains"),
				"contains not permitted on type %q", spec.Type)
		}
		if spec.Contains, err = ValidateReturnBlock(rawContains, joinPath(fieldPath, "contains")); err != nil {
			return nil, err
		}
	}
	return spec, nil
}

// ValidateArgumentSpec validates a role argument-spec block
// (the mapping under the top-level "argument_specs" key).
func ValidateArgumentSpec(raw any) (*ArgumentSpec, error) {
	m, err := asMapping(raw, "argument_specs")
	if err != nil {
		return nil, err
	}
	out := &ArgumentSpec{EntryPoints: make(map[string]*EntryPointSpec, len(m))}
	for _, name := range sortedKeys(m) {
		entryPath := joinPath("argument_specs", name)
		entryRaw, err := asMapping(m[name], entryPath)
		if err != nil {
			return nil, err
		}
		if err := checkKeys(entryRaw, entryPointKeys, entryPath); err != nil {
			return nil, err
		}
		ep := &EntryPointSpec{}
		if ep.ShortDescription, err = optionalString(entryRaw, "short_description", entryPath); err != nil {
			return nil, err
		}
		if ep.Description, err = optionalStringList(entryRaw, "description", entryPath); err != nil {
			return nil, err
		}
		if ep.Author, err = optionalStringList(entryRaw, "author", entryPath); err != nil {
			return nil, err
		}
		if ep.VersionAdded, err = optionalString(entryRaw, "version_added", entryPath); err != nil {
			return nil, err
		}
		if ep.Deprecated, err = optionalDeprecation(entryRaw, entryPath); err != nil {
			return nil, err
		}
		if rawOpts, ok := entryRaw["options"]; ok {
			if ep.Options, err = ValidateOptions(rawOpts, joinPath(entryPath, "options")); err != nil {
				return nil, err
			}
		}
		out.EntryPoints[name] = ep
	}
	return out, nil
}

func optionalDeprecation(raw map[string]any, fieldPath string) (*DeprecationSpec, error) {
	rawDep, ok := raw["deprecated"]
	if !ok || rawDep == nil {
		return nil, nil
	}
	depPath := joinPath(fieldPath, "deprecated")
	m, err := asMapping(rawDep, depPath)
	if err != nil {
		return nil, err
	}
	if err := checkKeys(m, deprecatedKeys, depPath); err != nil {
		return nil, err
	}
	dep := &DeprecationSpec{}
	if dep.Alternative, err = optionalString(m, "alternative", depPath); err != nil {
		return nil, err
	}
	if dep.RemovedIn, err = optionalString(m, "removed_in", depPath); err != nil {
		return nil, err
	}
	if dep.Why, err = optionalString(m, "why", depPath); err != nil {
		return nil, err
	}
	return dep, nil
}

// --- low-level helpers ---

func keySet(keys ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func checkKeys(raw map[string]any, allowed map[string]struct{}, fieldPath string) error {
	for _, k := range sortedKeys(raw) {
		if _, ok := allowed[k]; !ok {
			return errors.Validationf(joinPath(fieldPath, k), "unknown key %q", k)
		}
	}
	return nil
}

func asMapping(v any, fieldPath string) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		// yaml.v2 style decode; normalize keys.
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, errors.Validationf(fieldPath, "non-string mapping key %v", k)
			}
			out[ks] = val
		}
		return out, nil
	default:
		return nil, errors.Validationf(fieldPath, "expected mapping, got %s", typeName(v))
	}
}

func scalarString(v any, fieldPath string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.Validationf(fieldPath, "expected string, got %s", typeName(v))
	}
	return s, nil
}

func requireString(raw map[string]any, key, fieldPath string) (string, error) {
	v, ok := raw[key]
	if !ok {
		return "", errors.Validationf(joinPath(fieldPath, key), "missing required field")
	}
	return scalarString(v, joinPath(fieldPath, key))
}

func optionalString(raw map[string]any, key, fieldPath string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	return scalarString(v, joinPath(fieldPath, key))
}

func optionalBool(raw map[string]any, key, fieldPath string) (bool, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.Validationf(joinPath(fieldPath, key), "expected bool, got %s", typeName(v))
	}
	return b, nil
}

// optionalStringList accepts a scalar or a sequence of scalars and
// normalizes to a list, matching how descriptions are authored.
func optionalStringList(raw map[string]any, key, fieldPath string) ([]string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	return stringList(v, joinPath(fieldPath, key))
}

func stringList(v any, fieldPath string) ([]string, error) {
	switch val := v.(type) {
	case string:
		return []string{val}, nil
	case []any:
		out := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Validationf(fmt.Sprintf("%s[%d]", fieldPath, i),
					"expected string, got %s", typeName(item))
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.Validationf(fieldPath, "expected string or sequence of strings, got %s", typeName(v))
	}
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int64, uint64, float64:
		return "number"
	case []any:
		return "sequence"
	case map[string]any, map[any]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}
