package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"Collection", KeyCollection, "ns.coll", Collection("ns.coll")},
		{"Plugin", KeyPlugin, "ns.coll.example", Plugin("ns.coll.example")},
		{"Kind", KeyKind, "module", Kind("module")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"File", KeyFile, "example.md", File("example.md")},
		{"Query", KeyQuery, "mod.opt", Query("mod.opt")},
		{"Stage", KeyStage, "generate", Stage("generate")},
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.attr.Key != c.attrKey {
				t.Fatalf("key mismatch: got %q want %q", c.attr.Key, c.attrKey)
			}
			if c.attr.Value.String() != c.attrVal {
				t.Fatalf("value mismatch: got %q want %q", c.attr.Value.String(), c.attrVal)
			}
		})
	}
}

func TestErrorHelper(t *testing.T) {
	if got := Error(nil).Value.String(); got != "" {
		t.Fatalf("nil error should render empty, got %q", got)
	}
	if got := Error(errors.New("boom")).Value.String(); got != "boom" {
		t.Fatalf("error value mismatch: %q", got)
	}
}
