package docgen

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/colldocs/internal/entity"
	"git.home.luguber.info/inful/colldocs/internal/errors"
	"git.home.luguber.info/inful/colldocs/internal/logfields"
)

// RawPlugin is one discovered plugin metadata file, parsed but not yet
// validated. Err captures a read/parse failure so one broken file never
// aborts discovery of the rest.
type RawPlugin struct {
	Kind     entity.PluginKind
	Name     string
	Path     string
	Doc      map[string]any // documentation block (non-role plugins)
	Return   any            // return block, if present
	Examples string         // pass-through examples text
	ArgSpec  any            // argument_specs mapping (roles)
	Err      error
}

// RawCollection is the discovered collection: identity from galaxy.yml plus
// every plugin metadata file found under the root.
type RawCollection struct {
	Namespace string
	Name      string
	Version   string
	Path      string
	Plugins   []RawPlugin
}

// FQName returns the two-part collection namespace.
func (rc *RawCollection) FQName() string { return rc.Namespace + "." + rc.Name }

// pluginDir maps a plugin kind to its directory under the collection root.
func pluginDir(kind entity.PluginKind) string {
	if kind == entity.KindModule {
		return filepath.Join("plugins", "modules")
	}
	return filepath.Join("plugins", string(kind))
}

// Discover walks a collection root and gathers raw plugin metadata.
// Per-file failures are carried in RawPlugin.Err; only a missing or broken
// galaxy.yml is fatal.
func Discover(collectionPath string) (*RawCollection, error) {
	rc, err := readGalaxy(collectionPath)
	if err != nil {
		return nil, err
	}

	for _, kind := range entity.KnownKinds {
		if kind == entity.KindRole {
			rc.Plugins = append(rc.Plugins, discoverRoles(collectionPath)...)
			continue
		}
		rc.Plugins = append(rc.Plugins, discoverPluginFiles(collectionPath, kind)...)
	}

	sort.Slice(rc.Plugins, func(i, j int) bool {
		if rc.Plugins[i].Kind != rc.Plugins[j].Kind {
			return rc.Plugins[i].Kind < rc.Plugins[j].Kind
		}
		return rc.Plugins[i].Name < rc.Plugins[j].Name
	})

	slog.Info("Collection discovered",
		logfields.Collection(rc.FQName()),
		logfields.Count(len(rc.Plugins)))
	return rc, nil
}

func readGalaxy(collectionPath string) (*RawCollection, error) {
	galaxyPath := filepath.Join(collectionPath, "galaxy.yml")
	data, err := os.ReadFile(galaxyPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal, "failed to read galaxy.yml").
			WithContext("path", galaxyPath)
	}

	var galaxy struct {
		Namespace string `yaml:"namespace"`
		Name      string `yaml:"name"`
		Version   string `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &galaxy); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, errors.SeverityFatal, "malformed galaxy.yml")
	}
	if galaxy.Namespace == "" || galaxy.Name == "" {
		return nil, errors.New(errors.CategoryValidation, errors.SeverityFatal,
			"galaxy.yml must declare namespace and name")
	}
	return &RawCollection{
		Namespace: galaxy.Namespace,
		Name:      galaxy.Name,
		Version:   galaxy.Version,
		Path:      collectionPath,
	}, nil
}

func discoverPluginFiles(collectionPath string, kind entity.PluginKind) []RawPlugin {
	dir := filepath.Join(collectionPath, pluginDir(kind))
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Absent plugin directories are normal.
		return nil
	}

	var out []RawPlugin
	for _, e := range entries {
		if e.IsDir() || !isMetadataFile(e.Name()) {
			continue
		}
		name := strings.TrimSuffix(strings.TrimSuffix(e.Name(), ".yml"), ".yaml")
		rp := RawPlugin{Kind: kind, Name: name, Path: filepath.Join(dir, e.Name())}
		rp.Doc, rp.Return, rp.Examples, rp.Err = readPluginFile(rp.Path)
		out = append(out, rp)
	}
	return out
}

func discoverRoles(collectionPath string) []RawPlugin {
	rolesDir := filepath.Join(collectionPath, "roles")
	entries, err := os.ReadDir(rolesDir)
	if err != nil {
		return nil
	}

	var out []RawPlugin
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		specPath := filepath.Join(rolesDir, e.Name(), "meta", "argument_specs.yml")
		if _, statErr := os.Stat(specPath); statErr != nil {
			continue
		}
		rp := RawPlugin{Kind: entity.KindRole, Name: e.Name(), Path: specPath}
		rp.ArgSpec, rp.Err = readArgSpecFile(specPath)
		out = append(out, rp)
	}
	return out
}

// readPluginFile parses a plugin metadata sidecar: a mapping with
// "documentation", optional "examples" (string) and "return" keys.
func readPluginFile(path string) (doc map[string]any, ret any, examples string, err error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, nil, "", errors.Wrap(readErr, errors.CategoryFileSystem, errors.SeverityError, "failed to read plugin metadata")
	}

	var raw map[string]any
	if uerr := yaml.Unmarshal(data, &raw); uerr != nil {
		return nil, nil, "", errors.Wrap(uerr, errors.CategoryValidation, errors.SeverityError, "malformed plugin metadata")
	}

	rawDoc, ok := raw["documentation"]
	if !ok {
		return nil, nil, "", errors.Validationf("documentation", "missing required field")
	}
	doc, ok = rawDoc.(map[string]any)
	if !ok {
		return nil, nil, "", errors.Validationf("documentation", "expected mapping, got %T", rawDoc)
	}

	if rawExamples, ok := raw["examples"]; ok && rawExamples != nil {
		s, ok := rawExamples.(string)
		if !ok {
			return nil, nil, "", errors.Validationf("examples", "expected string, got %T", rawExamples)
		}
		examples = s
	}
	return doc, raw["return"], examples, nil
}

func readArgSpecFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError, "failed to read argument specs")
	}
	var raw map[string]any
	if uerr := yaml.Unmarshal(data, &raw); uerr != nil {
		return nil, errors.Wrap(uerr, errors.CategoryValidation, errors.SeverityError, "malformed argument specs")
	}
	spec, ok := raw["argument_specs"]
	if !ok {
		return nil, errors.Validationf("argument_specs", "missing required field")
	}
	return spec, nil
}

func isMetadataFile(name string) bool {
	return strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")
}

// describe renders a plugin identity for log and report lines before its
// canonical identifier exists.
func describe(rp RawPlugin) string {
	return fmt.Sprintf("%s/%s", rp.Kind, rp.Name)
}
