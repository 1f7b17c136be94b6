package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyBuildMode  = "build_mode"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyPermalink  = "permalink"
	KeyArtifact   = "artifact"
	KeyLayout     = "layout"
	KeyCollection = "collection"
	KeyKind       = "kind"
	KeyCount      = "count"
	KeyAddr       = "addr"
	KeyRevision   = "revision"
	KeyMethod     = "method"
	KeyURL        = "url"
	KeyStatus     = "status"
	KeyError      = "error"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func BuildMode(m string) slog.Attr    { return slog.String(KeyBuildMode, m) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Permalink(p string) slog.Attr    { return slog.String(KeyPermalink, p) }
func Artifact(key string) slog.Attr   { return slog.String(KeyArtifact, key) }
func Layout(name string) slog.Attr    { return slog.String(KeyLayout, name) }
func Collection(n string) slog.Attr   { return slog.String(KeyCollection, n) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Revision(r string) slog.Attr     { return slog.String(KeyRevision, r) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
