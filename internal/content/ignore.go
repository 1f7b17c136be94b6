package content

import (
	"path"
	"strings"
)

// Ignored reports whether a file or directory name is editor or OS noise
// that must never be treated as site input.
func Ignored(name string) bool {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	switch {
	case base == "." || base == "":
		return false
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"):
		return true
	case strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"), strings.HasSuffix(base, ".tmp"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
