// Package index implements the build-wide registry from canonical
// identifier to documentable entity. The index is insert-only during the
// build phase, explicitly frozen, and read-only afterwards. It is an
// ordinary object passed by reference; there is no ambient singleton.
package index

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"git.home.luguber.info/inful/colldocs/internal/entity"
)

// ErrFrozen is returned by Insert and InsertAlias after Freeze.
var ErrFrozen = errors.New("index is frozen")

// CollisionError reports a duplicate canonical identifier. The colliding
// (losing) entity is skipped; the existing entry stays.
type CollisionError struct {
	Identifier string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("duplicate canonical identifier %q", e.Identifier)
}

// EntryKind classifies index entries.
type EntryKind string

const (
	EntryPlugin EntryKind = "plugin"
	EntryOption EntryKind = "option"
	EntryReturn EntryKind = "return"
)

// Entry maps one canonical identifier to its entity and page anchor.
// Exactly one of Option/Return is set for non-plugin entries.
type Entry struct {
	Identifier string
	Kind       EntryKind
	Plugin     *entity.Plugin // owning plugin (set for all kinds)
	Option     *entity.Option
	Return     *entity.ReturnValue
	Page       string // page source path relative to the output root
	Anchor     string // in-page anchor; equals Identifier
	Deprecated bool
}

// OptionsAnchor returns the anchor of the options table root on the owning
// plugin's page.
func (e *Entry) OptionsAnchor() string {
	return e.Plugin.FQName + "-options"
}

// Index is the registry. Inserts are serialized internally so per-plugin
// builders may run in parallel; reads are only valid once frozen.
type Index struct {
	mu      sync.RWMutex
	frozen  bool
	entries map[string]*Entry
	aliases map[string]string // secondary lookup key -> canonical identifier
	ids     []string          // sorted snapshot, built at freeze
}

// New creates an empty, unfrozen Index.
func New() *Index {
	return &Index{
		entries: make(map[string]*Entry),
		aliases: make(map[string]string),
	}
}

// Insert registers an entry under its canonical identifier. It fails with
// CollisionError if the identifier (or an alias of equal spelling) already
// exists, and with ErrFrozen after Freeze.
func (ix *Index) Insert(e *Entry) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.frozen {
		return ErrFrozen
	}
	if _, exists := ix.entries[e.Identifier]; exists {
		return &CollisionError{Identifier: e.Identifier}
	}
	if _, exists := ix.aliases[e.Identifier]; exists {
		return &CollisionError{Identifier: e.Identifier}
	}
	ix.entries[e.Identifier] = e
	return nil
}

// InsertAlias registers a secondary exact-lookup key for an existing
// canonical identifier. Aliases never receive their own canonical path and
// never participate in suffix matching. Canonical identifiers win spelling
// clashes: an alias colliding with an existing identifier or alias is a
// CollisionError for the alias.
func (ix *Index) InsertAlias(alias, canonical string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.frozen {
		return ErrFrozen
	}
	if _, exists := ix.entries[alias]; exists {
		return &CollisionError{Identifier: alias}
	}
	if _, exists := ix.aliases[alias]; exists {
		return &CollisionError{Identifier: alias}
	}
	if _, exists := ix.entries[canonical]; !exists {
		return fmt.Errorf("alias %q targets unknown identifier %q", alias, canonical)
	}
	ix.aliases[alias] = canonical
	return nil
}

// Freeze transitions the index from build-time (insert-only) to query-time
// (read-only). Idempotent.
func (ix *Index) Freeze() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.frozen {
		return
	}
	ix.frozen = true
	ix.ids = make([]string, 0, len(ix.entries))
	for id := range ix.entries {
		ix.ids = append(ix.ids, id)
	}
	sort.Strings(ix.ids)
}

// Frozen reports whether Freeze has been called.
func (ix *Index) Frozen() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.frozen
}

// LookupExact returns the entry for an identifier or alias.
func (ix *Index) LookupExact(identifier string) (*Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if e, ok := ix.entries[identifier]; ok {
		return e, true
	}
	if canonical, ok := ix.aliases[identifier]; ok {
		e, ok := ix.entries[canonical]
		return e, ok
	}
	return nil, false
}

// LookupSuffix returns all entries whose canonical identifier equals partial
// or ends with "." + partial, sorted lexicographically. Matching is on
// whole dotted segments only; aliases do not participate.
func (ix *Index) LookupSuffix(partial string) []*Entry {
	if partial == "" {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	dotted := "." + partial
	var out []*Entry
	if ix.frozen {
		for _, id := range ix.ids {
			if id == partial || strings.HasSuffix(id, dotted) {
				out = append(out, ix.entries[id])
			}
		}
		return out
	}
	ids := make([]string, 0, len(ix.entries))
	for id := range ix.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if id == partial || strings.HasSuffix(id, dotted) {
			out = append(out, ix.entries[id])
		}
	}
	return out
}

// Identifiers returns the sorted canonical identifiers (excluding aliases).
func (ix *Index) Identifiers() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.frozen {
		return append([]string(nil), ix.ids...)
	}
	ids := make([]string, 0, len(ix.entries))
	for id := range ix.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of canonical entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}
