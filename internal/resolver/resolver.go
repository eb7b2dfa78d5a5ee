// Package resolver resolves cross-reference query strings (full or partial
// dotted paths) against the frozen index. The algorithm is two-stage: exact
// match first, then unique-suffix match; multiple suffix matches always fail
// with an enumerated candidate list rather than silently picking a winner.
package resolver

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/colldocs/internal/index"
)

// Role is the cross-reference role consumed from documentation source.
type Role string

const (
	RolePlugin  Role = "plugin"  // link to a plugin page
	RoleOptions Role = "options" // link to a plugin's options table
	RoleOption  Role = "option"  // link to a single option at any depth
	RoleReturn  Role = "return"  // link to a return value at any depth
	RoleAny     Role = ""        // no kind hint
)

// KnownRoles lists every resolvable role, in stable order.
var KnownRoles = []Role{RolePlugin, RoleOptions, RoleOption, RoleReturn}

// Resolution is a successfully resolved reference.
type Resolution struct {
	Entry  *index.Entry
	Page   string // page source path of the target
	Anchor string // target anchor within the page
}

// UnresolvedReferenceError reports a query that matched nothing.
type UnresolvedReferenceError struct {
	Query string
	Role  Role
}

func (e *UnresolvedReferenceError) Error() string {
	if e.Role == RoleAny {
		return fmt.Sprintf("unresolved reference %q", e.Query)
	}
	return fmt.Sprintf("unresolved %s reference %q", e.Role, e.Query)
}

// AmbiguousReferenceError reports a partial query that matched more than one
// entity. Candidates are full canonical identifiers, sorted, so the author
// can qualify the reference.
type AmbiguousReferenceError struct {
	Query      string
	Role       Role
	Candidates []string
}

func (e *AmbiguousReferenceError) Error() string {
	return fmt.Sprintf("ambiguous reference %q matches %d entities: %s",
		e.Query, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// Resolver resolves references against one frozen index. It never mutates
// the index and is safe for concurrent use.
type Resolver struct {
	ix *index.Index
}

// New creates a Resolver over the given index.
func New(ix *index.Index) *Resolver {
	return &Resolver{ix: ix}
}

// Resolve resolves a query string with an optional role hint.
//
//  1. Exact lookup; a match of the hinted kind wins immediately. An exact
//     match of the wrong kind falls through to suffix matching.
//  2. Suffix lookup filtered by the hinted kind: exactly one match wins,
//     several fail with AmbiguousReferenceError, none with
//     UnresolvedReferenceError.
func (r *Resolver) Resolve(query string, role Role) (Resolution, error) {
	if exact, ok := r.ix.LookupExact(query); ok && roleMatches(role, exact) {
		return resolution(exact, role), nil
	}

	var matched []*index.Entry
	for _, e := range r.ix.LookupSuffix(query) {
		if roleMatches(role, e) {
			matched = append(matched, e)
		}
	}

	switch len(matched) {
	case 1:
		return resolution(matched[0], role), nil
	case 0:
		return Resolution{}, &UnresolvedReferenceError{Query: query, Role: role}
	default:
		candidates := make([]string, len(matched))
		for i, e := range matched {
			candidates[i] = e.Identifier
		}
		return Resolution{}, &AmbiguousReferenceError{Query: query, Role: role, Candidates: candidates}
	}
}

func roleMatches(role Role, e *index.Entry) bool {
	switch role {
	case RoleAny:
		return true
	case RolePlugin:
		return e.Kind == index.EntryPlugin
	case RoleOptions:
		// The options-table anchor only exists on pages of plugins that
		// declare options; an option-less plugin is not a valid target.
		return e.Kind == index.EntryPlugin && len(e.Plugin.Options) > 0
	case RoleOption:
		return e.Kind == index.EntryOption
	case RoleReturn:
		return e.Kind == index.EntryReturn
	default:
		return false
	}
}

func resolution(e *index.Entry, role Role) Resolution {
	anchor := e.Anchor
	if role == RoleOptions {
		anchor = e.OptionsAnchor()
	}
	return Resolution{Entry: e, Page: e.Page, Anchor: anchor}
}
