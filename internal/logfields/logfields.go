package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCollection = "collection"
	KeyPlugin     = "plugin"
	KeyKind       = "kind"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyQuery      = "query"
	KeyStage      = "stage"
	KeyBuildID    = "build_id"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Collection(c string) slog.Attr   { return slog.String(KeyCollection, c) }
func Plugin(p string) slog.Attr       { return slog.String(KeyPlugin, p) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Query(q string) slog.Attr        { return slog.String(KeyQuery, q) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
