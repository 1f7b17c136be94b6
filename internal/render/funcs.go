package render

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/graph"
)

// funcMap holds the pure helper functions available to every template.
// Anything that reads site state is a Page method instead, so it can be
// recorded as a dependency.
func funcMap() template.FuncMap {
	return template.FuncMap{
		"slugify":  graph.Slugify,
		"lower":    strings.ToLower,
		"upper":    strings.ToUpper,
		"title":    graph.TitleFromName,
		"join":     strings.Join,
		"safeHTML": func(s string) template.HTML { return template.HTML(s) }, //nolint:gosec // explicit opt-in by the template author
		"dateFormat": func(layout string, t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(layout)
		},
		"default": func(fallback, v any) any {
			if v == nil || v == "" {
				return fallback
			}
			return v
		},
		"dict": func(kv ...any) (map[string]any, error) {
			if len(kv)%2 != 0 {
				return nil, fmt.Errorf("dict needs an even number of arguments, got %d", len(kv))
			}
			m := make(map[string]any, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				k, ok := kv[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict key %v is not a string", kv[i])
				}
				m[k] = kv[i+1]
			}
			return m, nil
		},
	}
}
