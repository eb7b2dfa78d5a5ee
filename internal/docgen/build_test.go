package docgen

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/colldocs/internal/config"
	"git.home.luguber.info/inful/colldocs/internal/entity"
	"git.home.luguber.info/inful/colldocs/internal/index"
	"git.home.luguber.info/inful/colldocs/internal/resolver"
)

// writeCollection lays out a minimal collection on disk.
func writeCollection(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return root
}

const galaxyYML = `
namespace: ns
name: coll
version: 1.2.3
`

const exampleModuleYML = `
documentation:
  short_description: Example module
  options:
    name:
      type: str
    new:
      type: str
      description: desc
examples: |
  - name: demo
    ns.coll.example:
      name: widget
return:
  result:
    type: str
    returned: always
`

func testConfig(root, out string) *config.Config {
	cfg := &config.Config{CollectionPath: root, OutputPath: out}
	cfg.ApplyDefaults()
	return cfg
}

func runBuild(t *testing.T, cfg *config.Config) *Result {
	t.Helper()
	result, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	return result
}

func TestRun_EndToEnd(t *testing.T) {
	root := writeCollection(t, map[string]string{
		"galaxy.yml":                  galaxyYML,
		"plugins/modules/example.yml": exampleModuleYML,
	})
	out := t.TempDir()
	result := runBuild(t, testConfig(root, out))

	require.Equal(t, "ns.coll", result.Report.Collection)
	require.Equal(t, 1, result.Report.Plugins)
	require.True(t, result.Index.Frozen())

	// Page exists under the plugin type directory, named after the plugin.
	pagePath := filepath.Join(out, "module", "example.md")
	content, err := os.ReadFile(pagePath)
	require.NoError(t, err)
	page := string(content)
	require.Contains(t, page, `<a id="ns.coll.example.name"></a>`)
	require.Contains(t, page, `<a id="ns.coll.example.new"></a>`)
	require.Contains(t, page, "desc")

	// Resolving the full identifier returns the anchor on that page.
	res, err := resolver.New(result.Index).Resolve("ns.coll.example.new", resolver.RoleOption)
	require.NoError(t, err)
	require.Equal(t, "module/example.md", res.Page)
	require.Equal(t, "ns.coll.example.new", res.Anchor)

	// Missing option fails with an unresolved-reference error naming the query.
	_, err = resolver.New(result.Index).Resolve("ns.coll.example.missing", resolver.RoleOption)
	var unresolved *resolver.UnresolvedReferenceError
	require.ErrorAs(t, err, &unresolved)
	require.Equal(t, "ns.coll.example.missing", unresolved.Query)

	// Build report written.
	_, err = os.Stat(filepath.Join(out, "build-report.json"))
	require.NoError(t, err)
}

func TestRun_Idempotent(t *testing.T) {
	root := writeCollection(t, map[string]string{
		"galaxy.yml":                  galaxyYML,
		"plugins/modules/example.yml": exampleModuleYML,
		"plugins/filter/fmt.yml": `
documentation:
  short_description: Format a value
  options:
    width: {type: int, default: 80}
`,
	})

	render := func() map[string][]byte {
		out := t.TempDir()
		runBuild(t, testConfig(root, out))
		pages := map[string][]byte{}
		require.NoError(t, filepath.Walk(out, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() || filepath.Ext(path) != ".md" {
				return err
			}
			data, rerr := os.ReadFile(path)
			if rerr != nil {
				return rerr
			}
			rel, _ := filepath.Rel(out, path)
			pages[rel] = data
			return nil
		}))
		return pages
	}

	first := render()
	second := render()
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
}

func TestRun_ValidationErrorIsolated(t *testing.T) {
	root := writeCollection(t, map[string]string{
		"galaxy.yml":                galaxyYML,
		"plugins/modules/good.yml":   `{documentation: {short_description: fine}}`,
		"plugins/modules/broken.yml": `{documentation: {description: no short description}}`,
	})
	out := t.TempDir()
	result := runBuild(t, testConfig(root, out))

	require.Equal(t, 1, result.Report.Plugins)
	require.Equal(t, 1, result.Report.Skipped)
	require.Equal(t, "warning", result.Report.Outcome)
	require.Equal(t, 1, result.Report.CountByCategory()["validation"])

	// The good plugin still produced a page.
	_, err := os.Stat(filepath.Join(out, "module", "good.md"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "module", "broken.md"))
	require.True(t, os.IsNotExist(err))
}

func TestRun_StrictAbortsOnFirstError(t *testing.T) {
	root := writeCollection(t, map[string]string{
		"galaxy.yml":                 galaxyYML,
		"plugins/modules/broken.yml": `{documentation: {description: nope}}`,
	})
	cfg := testConfig(root, t.TempDir())
	cfg.Strict = true

	_, err := New(cfg).Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "strict mode")
}

func TestRun_TypeFiltering(t *testing.T) {
	root := writeCollection(t, map[string]string{
		"galaxy.yml":                  galaxyYML,
		"plugins/modules/example.yml": exampleModuleYML,
		"plugins/filter/fmt.yml": `
documentation:
  short_description: Format a value
`,
	})
	cfg := testConfig(root, t.TempDir())
	cfg.IncludeTypes = []string{"filter"}
	result := runBuild(t, cfg)

	require.Equal(t, 1, result.Report.Plugins)
	_, ok := result.Index.LookupExact("ns.coll.fmt")
	require.True(t, ok)
	_, ok = result.Index.LookupExact("ns.coll.example")
	require.False(t, ok)
}

func TestRun_PrivatePluginsAndOptionsHidden(t *testing.T) {
	files := map[string]string{
		"galaxy.yml": galaxyYML,
		"plugins/modules/secret.yml": `
documentation:
  short_description: internal plumbing
  private: true
`,
		"plugins/modules/mixed.yml": `
documentation:
  short_description: partly internal
  options:
    visible: {type: str}
    hidden:
      type: str
      private: true
`,
	}
	root := writeCollection(t, files)
	result := runBuild(t, testConfig(root, t.TempDir()))

	_, ok := result.Index.LookupExact("ns.coll.secret")
	require.False(t, ok)
	_, ok = result.Index.LookupExact("ns.coll.mixed.visible")
	require.True(t, ok)
	_, ok = result.Index.LookupExact("ns.coll.mixed.hidden")
	require.False(t, ok)

	// With include_private the same input documents everything.
	cfg := testConfig(root, t.TempDir())
	cfg.IncludePrivate = true
	result = runBuild(t, cfg)
	_, ok = result.Index.LookupExact("ns.coll.secret")
	require.True(t, ok)
	_, ok = result.Index.LookupExact("ns.coll.mixed.hidden")
	require.True(t, ok)
}

func TestRun_OptionReturnCollisionKeepsPlugin(t *testing.T) {
	// Option and return paths share the plugin-rooted namespace, so a name
	// used by both collides. The collision is fatal for the losing entity
	// only: its subtree stays out of the index while the plugin, its page,
	// and every other entity survive.
	root := writeCollection(t, map[string]string{
		"galaxy.yml": galaxyYML,
		"plugins/modules/p.yml": `
documentation:
  short_description: colliding namespaces
  options:
    path: {type: str}
return:
  path:
    type: complex
    returned: always
    contains:
      sub: {type: str}
  ok:
    type: str
    returned: always
`,
	})
	out := t.TempDir()
	result := runBuild(t, testConfig(root, out))

	require.Equal(t, 1, result.Report.Plugins)
	require.Equal(t, 0, result.Report.Skipped)
	require.Equal(t, 1, result.Report.CountByCategory()["collision"])

	// The page exists and the surviving entries point at it.
	_, err := os.Stat(filepath.Join(out, "module", "p.md"))
	require.NoError(t, err)
	entry, ok := result.Index.LookupExact("ns.coll.p")
	require.True(t, ok)
	require.Equal(t, "module/p.md", entry.Page)

	// Options insert first, so the option wins the shared spelling.
	entry, ok = result.Index.LookupExact("ns.coll.p.path")
	require.True(t, ok)
	require.Equal(t, index.EntryOption, entry.Kind)

	// The losing return value's children stay out with it.
	_, ok = result.Index.LookupExact("ns.coll.p.path.sub")
	require.False(t, ok)
	_, ok = result.Index.LookupExact("ns.coll.p.ok")
	require.True(t, ok)
}

func TestRun_RolePrivateOptionsHidden(t *testing.T) {
	root := writeCollection(t, map[string]string{
		"galaxy.yml": galaxyYML,
		"roles/svc/meta/argument_specs.yml": `
argument_specs:
  main:
    short_description: Configure the service
    options:
      state: {type: str}
      hidden:
        type: str
        private: true
`,
	})
	result := runBuild(t, testConfig(root, t.TempDir()))

	_, ok := result.Index.LookupExact("ns.coll.svc.main.state")
	require.True(t, ok)
	_, ok = result.Index.LookupExact("ns.coll.svc.main.hidden")
	require.False(t, ok)

	cfg := testConfig(root, t.TempDir())
	cfg.IncludePrivate = true
	result = runBuild(t, cfg)
	_, ok = result.Index.LookupExact("ns.coll.svc.main.hidden")
	require.True(t, ok)
}

func TestRun_CrossKindNameCollision(t *testing.T) {
	// Canonical identifiers carry no plugin type, so a module and a filter
	// sharing a short name collide. Discovery order is kind-then-name, so
	// the filter wins deterministically and the module is skipped whole.
	root := writeCollection(t, map[string]string{
		"galaxy.yml":              galaxyYML,
		"plugins/modules/dup.yml": `{documentation: {short_description: the module}}`,
		"plugins/filter/dup.yml":  `{documentation: {short_description: the filter}}`,
	})
	result := runBuild(t, testConfig(root, t.TempDir()))

	require.Equal(t, 1, result.Report.Plugins)
	require.Equal(t, 1, result.Report.Skipped)
	require.Equal(t, 1, result.Report.CountByCategory()["collision"])

	entry, ok := result.Index.LookupExact("ns.coll.dup")
	require.True(t, ok)
	require.Equal(t, entity.KindFilter, entry.Plugin.Kind)
}

func TestRun_RoleArgumentSpecs(t *testing.T) {
	root := writeCollection(t, map[string]string{
		"galaxy.yml": galaxyYML,
		"roles/svc/meta/argument_specs.yml": `
argument_specs:
  main:
    short_description: Configure the service
    options:
      state:
        type: str
        choices: [present, absent]
`,
	})
	out := t.TempDir()
	result := runBuild(t, testConfig(root, out))

	entry, ok := result.Index.LookupExact("ns.coll.svc.main.state")
	require.True(t, ok)
	require.Equal(t, "role/svc.md", entry.Page)

	content, err := os.ReadFile(filepath.Join(out, "role", "svc.md"))
	require.NoError(t, err)
	require.Contains(t, string(content), `<a id="ns.coll.svc.main.state"></a>`)
}

func TestRun_AliasResolvesToCanonicalEntity(t *testing.T) {
	root := writeCollection(t, map[string]string{
		"galaxy.yml": galaxyYML,
		"plugins/modules/m.yml": `
documentation:
  short_description: x
  options:
    name:
      type: str
      aliases: [title]
`,
	})
	result := runBuild(t, testConfig(root, t.TempDir()))

	entry, ok := result.Index.LookupExact("ns.coll.m.title")
	require.True(t, ok)
	require.Equal(t, "ns.coll.m.name", entry.Identifier)
}

func TestRun_DeprecatedPluginStaysResolvable(t *testing.T) {
	root := writeCollection(t, map[string]string{
		"galaxy.yml": galaxyYML,
		"plugins/modules/old.yml": `
documentation:
  short_description: superseded
  deprecated:
    alternative: ns.coll.example
    removed_in: "9.0.0"
`,
		"plugins/modules/example.yml": exampleModuleYML,
	})
	out := t.TempDir()
	result := runBuild(t, testConfig(root, out))

	entry, ok := result.Index.LookupExact("ns.coll.old")
	require.True(t, ok)
	require.True(t, entry.Deprecated)

	content, err := os.ReadFile(filepath.Join(out, "module", "old.md"))
	require.NoError(t, err)
	require.Contains(t, string(content), "**DEPRECATED**")

	// The deprecation notice links :plugin:`ns.coll.example`, which resolves,
	// so no reference errors are recorded.
	require.Zero(t, result.Report.CountByCategory()["reference"])
}

func TestRun_UnresolvedSeeAlsoRecorded(t *testing.T) {
	root := writeCollection(t, map[string]string{
		"galaxy.yml": galaxyYML,
		"plugins/modules/m.yml": `
documentation:
  short_description: x
  seealso:
    - ns.coll.nonexistent
`,
	})
	result := runBuild(t, testConfig(root, t.TempDir()))

	require.Equal(t, "warning", result.Report.Outcome)
	require.Equal(t, 1, result.Report.CountByCategory()["reference"])
	var found bool
	for _, e := range result.Report.Errors {
		if e.Category == "reference" {
			found = true
			require.NotEmpty(t, e.File)
			require.Greater(t, e.Line, 0)
			require.Contains(t, e.Message, "ns.coll.nonexistent")
		}
	}
	require.True(t, found)
}

func TestDiscover_SortedAndIsolated(t *testing.T) {
	root := writeCollection(t, map[string]string{
		"galaxy.yml":                 galaxyYML,
		"plugins/modules/zz.yml":     `{documentation: {short_description: z}}`,
		"plugins/modules/aa.yml":     `{documentation: {short_description: a}}`,
		"plugins/modules/broken.yml": `documentation: [unclosed`,
		"plugins/filter/f.yml":       `{documentation: {short_description: f}}`,
	})
	rc, err := Discover(root)
	require.NoError(t, err)
	require.Equal(t, "ns.coll", rc.FQName())
	require.Len(t, rc.Plugins, 4)

	// Sorted by kind then name; the broken file is carried with its error.
	require.Equal(t, entity.KindFilter, rc.Plugins[0].Kind)
	require.Equal(t, "aa", rc.Plugins[1].Name)
	require.Equal(t, "broken", rc.Plugins[2].Name)
	require.Error(t, rc.Plugins[2].Err)
	require.Equal(t, "zz", rc.Plugins[3].Name)
}

func TestDiscover_MissingGalaxyFatal(t *testing.T) {
	_, err := Discover(t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "galaxy.yml")
}
