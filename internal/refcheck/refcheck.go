// Package refcheck scans generated page sources for cross-reference roles
// (:plugin:, :options:, :option:, :return: followed by a backticked target)
// and resolves each against the frozen index. Findings carry the file and
// line of the offending reference so authors can fix the source.
package refcheck

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/colldocs/internal/resolver"
)

// Finding is one reference occurrence together with its resolution result.
// Err is nil for references that resolved cleanly.
type Finding struct {
	File  string
	Line  int
	Role  resolver.Role
	Query string
	Err   error
}

var rolePattern = regexp.MustCompile(`:(plugin|options|option|return):$`)

// CheckFile checks one page source file.
func CheckFile(path string, res *resolver.Resolver) ([]Finding, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	findings := CheckBytes(src, res)
	for i := range findings {
		findings[i].File = filepath.ToSlash(path)
	}
	return findings, nil
}

// CheckBytes extracts and resolves every cross-reference role in a markdown
// document. The walk is deterministic: findings appear in source order.
func CheckBytes(src []byte, res *resolver.Resolver) []Finding {
	md := goldmark.New()
	root := md.Parser().Parse(gmtext.NewReader(src))

	var findings []Finding
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		code, ok := n.(*gmast.CodeSpan)
		if !ok {
			return gmast.WalkContinue, nil
		}

		role, offset, ok := precedingRole(code, src)
		if !ok {
			return gmast.WalkContinue, nil
		}
		query := string(codeSpanText(code, src))
		if query == "" {
			return gmast.WalkContinue, nil
		}

		f := Finding{
			Line:  lineAt(src, offset),
			Role:  role,
			Query: query,
		}
		if _, err := res.Resolve(query, role); err != nil {
			f.Err = err
		}
		findings = append(findings, f)
		return gmast.WalkContinue, nil
	})

	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Line < findings[j].Line })
	return findings
}

// precedingRole inspects the text immediately before a code span for a role
// marker and returns the role plus the byte offset of the span.
func precedingRole(code *gmast.CodeSpan, src []byte) (resolver.Role, int, bool) {
	prev, ok := code.PreviousSibling().(*gmast.Text)
	if !ok {
		return resolver.RoleAny, 0, false
	}
	seg := prev.Segment
	m := rolePattern.FindSubmatch(seg.Value(src))
	if m == nil {
		return resolver.RoleAny, 0, false
	}
	return resolver.Role(m[1]), seg.Stop, true
}

func codeSpanText(code *gmast.CodeSpan, src []byte) []byte {
	var buf bytes.Buffer
	for c := code.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gmast.Text); ok {
			buf.Write(t.Segment.Value(src))
		}
	}
	return buf.Bytes()
}

func lineAt(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return bytes.Count(src[:offset], []byte{'\n'}) + 1
}
