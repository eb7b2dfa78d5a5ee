// Package docgen drives one full documentation build: discover the
// collection, validate and build every plugin's entity subtree, freeze the
// index, emit page sources, and verify cross-references. A build either
// completes (possibly with recorded errors) or aborts on a fatal or
// strict-mode error.
package docgen

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/colldocs/internal/config"
	"git.home.luguber.info/inful/colldocs/internal/entity"
	"git.home.luguber.info/inful/colldocs/internal/errors"
	"git.home.luguber.info/inful/colldocs/internal/gitsource"
	"git.home.luguber.info/inful/colldocs/internal/index"
	"git.home.luguber.info/inful/colldocs/internal/logfields"
	"git.home.luguber.info/inful/colldocs/internal/metrics"
	"git.home.luguber.info/inful/colldocs/internal/page"
	"git.home.luguber.info/inful/colldocs/internal/refcheck"
	"git.home.luguber.info/inful/colldocs/internal/resolver"
	"git.home.luguber.info/inful/colldocs/internal/schema"
)

// Builder runs documentation builds for one configuration.
type Builder struct {
	cfg      *config.Config
	recorder metrics.Recorder
}

// New creates a Builder with metrics disabled.
func New(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg, recorder: metrics.NoopRecorder{}}
}

// WithRecorder injects a metrics recorder. Returns the builder for chaining.
func (b *Builder) WithRecorder(r metrics.Recorder) *Builder {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	b.recorder = r
	return b
}

// Result is the outcome of one build invocation. Index and Collection are
// frozen and read-only.
type Result struct {
	Report     *Report
	Index      *index.Index
	Collection *entity.Collection
}

// buildOutcome is one plugin's build-phase result, kept in discovery order
// so the index merge step is deterministic.
type buildOutcome struct {
	raw    RawPlugin
	plugin *entity.Plugin
	err    error
}

// Run executes one full, single-shot build.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	buildID := uuid.NewString()
	report := newReport(buildID)
	start := time.Now()
	b.recorder.SetWorkerCount(b.cfg.Workers)

	slog.Info("Starting documentation build",
		logfields.BuildID(buildID),
		logfields.Path(b.cfg.CollectionPath),
		slog.String("output", b.cfg.OutputPath),
		slog.Bool("strict", b.cfg.Strict))

	// Stage: source (clone when collection_path is a git source).
	sourceStart := time.Now()
	root, cleanup, err := gitsource.Materialize(ctx, b.cfg.CollectionPath)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	b.observeStage(report, "source", sourceStart)

	// Stage: discover.
	discoverStart := time.Now()
	rawColl, err := Discover(root)
	if err != nil {
		return nil, err
	}
	b.observeStage(report, "discover", discoverStart)
	report.Collection = rawColl.FQName()
	report.Version = rawColl.Version

	coll := &entity.Collection{
		Namespace: rawColl.Namespace,
		Name:      rawColl.Name,
		Version:   rawColl.Version,
	}

	// Stage: build. Per-plugin subtrees are independent, so validation and
	// entity construction run in parallel; index inserts happen in a single
	// sequential merge step afterwards for deterministic collision handling.
	buildStart := time.Now()
	outcomes := b.buildPlugins(ctx, coll, rawColl.Plugins)

	ix := index.New()
	for _, oc := range outcomes {
		if oc.err != nil {
			report.Record(oc.err, describe(oc.raw), oc.raw.Path)
			b.recorder.IncErrorCategory(string(errors.GetCategory(oc.err)))
			b.recorder.IncPluginProcessed(string(oc.raw.Kind), false)
			report.Skipped++
			if b.cfg.Strict {
				return nil, errors.Wrap(oc.err, errors.GetCategory(oc.err), errors.SeverityFatal,
					"strict mode: aborting on first error").WithContext("plugin", describe(oc.raw))
			}
			continue
		}
		if oc.plugin == nil {
			continue // filtered (type or private)
		}
		entryErrs, fatal := indexPlugin(ix, oc.plugin)
		if fatal != nil {
			// Plugin identifier collision: the whole plugin loses.
			werr := errors.Wrap(fatal, errors.CategoryCollision, errors.SeverityError, fatal.Error())
			report.Record(werr, oc.plugin.FQName, oc.raw.Path)
			b.recorder.IncErrorCategory(string(errors.CategoryCollision))
			b.recorder.IncPluginProcessed(string(oc.plugin.Kind), false)
			report.Skipped++
			if b.cfg.Strict {
				return nil, errors.Wrap(fatal, errors.CategoryCollision, errors.SeverityFatal,
					"strict mode: aborting on first error").WithContext("plugin", oc.plugin.FQName)
			}
			continue
		}
		for _, ierr := range entryErrs {
			// Entity-level collision: only the colliding subtree was
			// skipped, the plugin and its page survive.
			werr := errors.Wrap(ierr, errors.CategoryCollision, errors.SeverityError, ierr.Error())
			report.Record(werr, oc.plugin.FQName, oc.raw.Path)
			b.recorder.IncErrorCategory(string(errors.CategoryCollision))
			if b.cfg.Strict {
				return nil, errors.Wrap(ierr, errors.CategoryCollision, errors.SeverityFatal,
					"strict mode: aborting on first error").WithContext("plugin", oc.plugin.FQName)
			}
		}
		coll.Plugins = append(coll.Plugins, oc.plugin)
		report.Plugins++
		b.recorder.IncPluginProcessed(string(oc.plugin.Kind), len(entryErrs) == 0)
	}
	b.observeStage(report, "build", buildStart)

	// The write phase strictly precedes the read phase.
	ix.Freeze()
	report.Entities = ix.Len()

	// Stage: generate.
	generateStart := time.Now()
	pages, err := b.generatePages(coll)
	if err != nil {
		return nil, err
	}
	report.Pages = len(pages)
	b.observeStage(report, "generate", generateStart)

	// Stage: refcheck.
	refStart := time.Now()
	b.checkReferences(report, pages, resolver.New(ix))
	b.observeStage(report, "refcheck", refStart)

	report.finish(time.Since(start))
	b.recorder.ObserveBuildDuration(time.Since(start))
	b.recorder.IncBuildOutcome(report.Outcome)

	if err := report.WriteJSON(filepath.Join(b.cfg.OutputPath, "build-report.json")); err != nil {
		slog.Warn("Failed to write build report", logfields.Error(err))
	}
	report.LogSummary()

	return &Result{Report: report, Index: ix, Collection: coll}, nil
}

func (b *Builder) observeStage(report *Report, name string, start time.Time) {
	d := time.Since(start)
	report.stage(name, d)
	b.recorder.ObserveStageDuration(name, d)
	slog.Debug("Stage complete", logfields.Stage(name), logfields.DurationMS(float64(d.Milliseconds())))
}

// buildPlugins validates and builds every raw plugin with a bounded worker
// pool. Results keep discovery order.
func (b *Builder) buildPlugins(ctx context.Context, coll *entity.Collection, raw []RawPlugin) []buildOutcome {
	outcomes := make([]buildOutcome, len(raw))
	eb := entity.NewBuilder(b.cfg.MaxDepth)

	workers := b.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rp := raw[i]
				p, err := b.processPlugin(coll, eb, rp)
				outcomes[i] = buildOutcome{raw: rp, plugin: p, err: err}
			}
		}()
	}
	for i := range raw {
		if ctx.Err() != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

// processPlugin turns one raw plugin into an entity subtree. A nil plugin
// with nil error means the plugin is filtered out of this build.
func (b *Builder) processPlugin(coll *entity.Collection, eb *entity.Builder, rp RawPlugin) (*entity.Plugin, error) {
	if !b.cfg.TypeIncluded(string(rp.Kind)) {
		return nil, nil
	}
	if rp.Err != nil {
		return nil, rp.Err
	}

	if rp.Kind == entity.KindRole {
		spec, err := schema.ValidateArgumentSpec(rp.ArgSpec)
		if err != nil {
			return nil, err
		}
		if !b.cfg.IncludePrivate {
			for _, ep := range spec.EntryPoints {
				dropPrivateOptions(ep.Options)
			}
		}
		return eb.BuildRolePlugin(coll, rp.Name, spec)
	}

	doc, err := schema.ValidateDocBlock(rp.Doc)
	if err != nil {
		return nil, err
	}
	if doc.Private && !b.cfg.IncludePrivate {
		slog.Debug("Skipping private plugin", logfields.Kind(string(rp.Kind)), logfields.Plugin(rp.Name))
		return nil, nil
	}
	if !b.cfg.IncludePrivate {
		dropPrivateOptions(doc.Options)
	}

	var ret map[string]*schema.ReturnSpec
	if rp.Return != nil {
		if ret, err = schema.ValidateReturnBlock(rp.Return, "return"); err != nil {
			return nil, err
		}
	}
	return eb.BuildPlugin(coll, rp.Kind, rp.Name, doc, ret, rp.Examples)
}

func dropPrivateOptions(specs map[string]*schema.OptionSpec) {
	for name, spec := range specs {
		if spec.Private {
			delete(specs, name)
			continue
		}
		dropPrivateOptions(spec.Suboptions)
	}
}

// indexPlugin registers a plugin and its full option/return trees. One
// index entry per plugin, per option at every depth, per return value at
// every depth; aliases become secondary lookup keys.
//
// A collision on the plugin identifier itself is fatal: the whole plugin is
// skipped and fatal is non-nil. A collision below the plugin is fatal for
// that entity only: the losing subtree stays out of the index, everything
// else (including the plugin and its page) survives, and the collision is
// reported in entryErrs.
func indexPlugin(ix *index.Index, p *entity.Plugin) (entryErrs []error, fatal error) {
	pagePath := page.PagePath(p)

	if err := ix.Insert(&index.Entry{
		Identifier: p.FQName,
		Kind:       index.EntryPlugin,
		Plugin:     p,
		Page:       pagePath,
		Anchor:     p.FQName,
		Deprecated: p.Deprecated != nil,
	}); err != nil {
		return nil, err
	}

	type aliasPair struct{ alias, canonical string }
	var aliases []aliasPair

	var insertOptions func(opts []*entity.Option)
	insertOptions = func(opts []*entity.Option) {
		for _, o := range opts {
			if err := ix.Insert(&index.Entry{
				Identifier: o.Path,
				Kind:       index.EntryOption,
				Plugin:     p,
				Option:     o,
				Page:       pagePath,
				Anchor:     o.Path,
				Deprecated: o.Deprecated != nil,
			}); err != nil {
				// The losing entity and its children stay unindexed.
				entryErrs = append(entryErrs, err)
				continue
			}
			parent := o.Path[:len(o.Path)-len(o.Name)]
			for _, alias := range o.Aliases {
				aliases = append(aliases, aliasPair{alias: parent + alias, canonical: o.Path})
			}
			insertOptions(o.Suboptions)
		}
	}
	insertOptions(p.Options)

	var insertReturns func(rvs []*entity.ReturnValue)
	insertReturns = func(rvs []*entity.ReturnValue) {
		for _, rv := range rvs {
			if err := ix.Insert(&index.Entry{
				Identifier: rv.Path,
				Kind:       index.EntryReturn,
				Plugin:     p,
				Return:     rv,
				Page:       pagePath,
				Anchor:     rv.Path,
			}); err != nil {
				entryErrs = append(entryErrs, err)
				continue
			}
			insertReturns(rv.Contains)
		}
	}
	insertReturns(p.Returns)

	for _, a := range aliases {
		if err := ix.InsertAlias(a.alias, a.canonical); err != nil {
			entryErrs = append(entryErrs, err)
		}
	}
	return entryErrs, nil
}

// generatePages writes one page per plugin plus per-type listing pages and
// returns the written page paths (relative to the output root, sorted).
func (b *Builder) generatePages(coll *entity.Collection) ([]string, error) {
	byKind := make(map[entity.PluginKind][]*entity.Plugin)
	for _, p := range coll.Plugins {
		byKind[p.Kind] = append(byKind[p.Kind], p)
	}

	var pages []string
	for _, kind := range entity.KnownKinds {
		plugins := byKind[kind]
		if len(plugins) == 0 {
			continue
		}
		dir := filepath.Join(b.cfg.OutputPath, string(kind))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal, "failed to create output directory").
				WithContext("path", dir)
		}

		sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })
		for _, p := range plugins {
			rel := page.PagePath(p)
			content := page.RenderPlugin(p, coll.FQName())
			if err := os.WriteFile(filepath.Join(b.cfg.OutputPath, rel), content, 0o644); err != nil {
				return nil, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal, "failed to write page").
					WithContext("page", rel)
			}
			pages = append(pages, rel)
		}

		rel := page.IndexPagePath(kind)
		content := page.RenderTypeIndex(kind, plugins, coll.FQName())
		if err := os.WriteFile(filepath.Join(b.cfg.OutputPath, rel), content, 0o644); err != nil {
			return nil, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal, "failed to write index page").
				WithContext("page", rel)
		}
		pages = append(pages, rel)
	}
	sort.Strings(pages)
	return pages, nil
}

// checkReferences resolves every cross-reference role in the generated
// pages against the frozen index and records failures.
func (b *Builder) checkReferences(report *Report, pages []string, res *resolver.Resolver) {
	for _, rel := range pages {
		findings, err := refcheck.CheckFile(filepath.Join(b.cfg.OutputPath, rel), res)
		if err != nil {
			report.Record(errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityWarning,
				"failed to scan page for references"), "", rel)
			continue
		}
		for _, f := range findings {
			if f.Err != nil {
				report.RecordReference(rel, f.Line, f.Query, f.Err)
				b.recorder.IncErrorCategory(string(errors.CategoryReference))
			}
		}
	}
}
