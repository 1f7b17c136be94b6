package graph

import (
	"path"
	"strconv"
	"strings"
	"time"
)

// permalinkVars are the values substituted into a permalink pattern.
type permalinkVars struct {
	date       time.Time
	hasDate    bool
	slug       string
	title      string
	collection string
	path       string
	name       string
	categories []string
	term       string
	num        int
}

// expandPermalink substitutes :year :month :day :slug :title :collection
// :path :name :categories :term and :num into pattern and normalizes the
// result to a rooted, slash-cleaned URL path that keeps a trailing slash.
func expandPermalink(pattern string, v permalinkVars) string {
	year, month, day := "", "", ""
	if v.hasDate {
		year = strconv.Itoa(v.date.Year())
		month = pad2(int(v.date.Month()))
		day = pad2(v.date.Day())
	}
	cats := make([]string, 0, len(v.categories))
	for _, c := range v.categories {
		if s := Slugify(c); s != "" {
			cats = append(cats, s)
		}
	}

	r := strings.NewReplacer(
		":year", year,
		":month", month,
		":day", day,
		":slug", v.slug,
		":title", Slugify(v.title),
		":collection", v.collection,
		":path", v.path,
		":name", v.name,
		":categories", strings.Join(cats, "/"),
		":term", v.term,
		":num", strconv.Itoa(v.num),
	)
	return normalizePermalink(r.Replace(pattern))
}

// listPermalink resolves page n of a paginated listing. When pattern has a
// :num segment, page 1 drops that segment and later pages substitute n.
// Without one, pages after the first live under page/<n>/.
func listPermalink(pattern, collection string, n int) string {
	vars := permalinkVars{collection: collection, num: n}
	if !strings.Contains(pattern, ":num") {
		base := expandPermalink(pattern, vars)
		if n == 1 {
			return base
		}
		return base + "page/" + strconv.Itoa(n) + "/"
	}
	if n == 1 {
		segments := strings.Split(pattern, "/")
		kept := make([]string, 0, len(segments))
		for _, s := range segments {
			if !strings.Contains(s, ":num") {
				kept = append(kept, s)
			}
		}
		pattern = strings.Join(kept, "/")
	}
	return expandPermalink(pattern, vars)
}

// normalizePermalink roots p, collapses duplicate slashes and keeps a
// trailing slash for directory-style permalinks.
func normalizePermalink(p string) string {
	trailing := strings.HasSuffix(p, "/") || p == ""
	cleaned := path.Clean("/" + p)
	if trailing && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

// OutputPath maps a permalink to its file in the output tree: directory
// permalinks get index.html, permalinks with an extension are used as-is.
func OutputPath(permalink string) string {
	p := strings.TrimPrefix(permalink, "/")
	switch {
	case p == "":
		return "index.html"
	case strings.HasSuffix(p, "/"):
		return p + "index.html"
	case path.Ext(p) != "":
		return p
	default:
		return p + "/index.html"
	}
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
