package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// CollectionDir binds a collection name to a directory under the content root.
type CollectionDir struct {
	Name string
	Dir  string
}

// Dirs locates the site inputs inside the store's filesystem.
type Dirs struct {
	Content     string
	Layouts     string
	Data        string
	Static      string
	Collections []CollectionDir
	// Exclude lists further site-root relative trees the content walk
	// skips, such as the output and state directories.
	Exclude []string
}

// SourceFile is one discovered input file.
type SourceFile struct {
	Path       string // site-root relative, slash separated
	RelPath    string // relative to the directory it was discovered in
	Collection string
	Data       []byte // nil for static files
	Hash       string
}

// Snapshot is the full set of inputs found by one scan, each list sorted by path.
type Snapshot struct {
	Documents []SourceFile
	Layouts   []SourceFile
	Data      []SourceFile
	Static    []SourceFile
}

// Hashes maps every input path to its content hash.
func (s *Snapshot) Hashes() map[string]string {
	out := make(map[string]string, len(s.Documents)+len(s.Layouts)+len(s.Data)+len(s.Static))
	for _, group := range [][]SourceFile{s.Documents, s.Layouts, s.Data, s.Static} {
		for _, f := range group {
			out[f.Path] = f.Hash
		}
	}
	return out
}

// Store reads site inputs from a filesystem. It never writes.
type Store struct {
	fsys   fs.FS
	dirs   Dirs
	logger *slog.Logger
}

// NewStore returns a Store over fsys, typically os.DirFS(siteRoot).
func NewStore(fsys fs.FS, dirs Dirs, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	dirs.Content = clean(dirs.Content)
	dirs.Layouts = clean(dirs.Layouts)
	dirs.Data = clean(dirs.Data)
	dirs.Static = clean(dirs.Static)
	for i := range dirs.Collections {
		dirs.Collections[i].Dir = clean(dirs.Collections[i].Dir)
	}
	for i := range dirs.Exclude {
		dirs.Exclude[i] = clean(dirs.Exclude[i])
	}
	return &Store{fsys: fsys, dirs: dirs, logger: logger}
}

// Dirs returns the normalized directory layout.
func (s *Store) Dirs() Dirs { return s.dirs }

// Scan discovers every input. An unreadable content root is fatal.
func (s *Store) Scan(ctx context.Context) (*Snapshot, error) {
	if _, err := fs.Stat(s.fsys, s.dirs.Content); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "content root is unreadable").
			WithKind(ferrors.SourceUnreadableKind).
			Fatal().
			WithContext("path", s.dirs.Content).
			Build()
	}

	snap := &Snapshot{}
	err := s.walk(ctx, s.dirs.Content, true, func(p, rel string) error {
		if s.isExcluded(p) {
			return nil
		}
		if IsDocument(p) {
			f, err := s.readFile(p, rel, true)
			if err != nil {
				return err
			}
			f.Collection = s.collectionFor(rel)
			snap.Documents = append(snap.Documents, f)
			return nil
		}
		f, err := s.readFile(p, rel, false)
		if err != nil {
			return err
		}
		snap.Static = append(snap.Static, f)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, group := range []struct {
		dir    string
		target *[]SourceFile
		data   bool
		accept func(string) bool
	}{
		{s.dirs.Layouts, &snap.Layouts, true, isLayoutFile},
		{s.dirs.Data, &snap.Data, true, IsDataFile},
		{s.dirs.Static, &snap.Static, false, func(string) bool { return true }},
	} {
		if group.dir == "" || group.dir == s.dirs.Content {
			continue
		}
		err := s.walk(ctx, group.dir, false, func(p, rel string) error {
			if !group.accept(p) {
				return nil
			}
			f, err := s.readFile(p, rel, group.data)
			if err != nil {
				return err
			}
			*group.target = append(*group.target, f)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	for _, group := range [][]SourceFile{snap.Documents, snap.Layouts, snap.Data, snap.Static} {
		sort.Slice(group, func(i, j int) bool { return group[i].Path < group[j].Path })
	}

	s.logger.Debug("Scanned site inputs",
		logfields.Count(len(snap.Documents)),
		slog.Int("layouts", len(snap.Layouts)),
		slog.Int("data", len(snap.Data)),
		slog.Int("static", len(snap.Static)))
	return snap, nil
}

// Open opens a site-root relative path for streaming.
func (s *Store) Open(p string) (fs.File, error) {
	return s.fsys.Open(p)
}

func (s *Store) walk(ctx context.Context, root string, required bool, fn func(p, rel string) error) error {
	err := fs.WalkDir(s.fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if !required && p == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "site input is unreadable").
				WithKind(ferrors.SourceUnreadableKind).
				Fatal().
				WithContext("path", p).
				Build()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p != root && Ignored(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		return fn(p, relTo(root, p))
	})
	if errors.Is(err, fs.SkipDir) {
		return nil
	}
	return err
}

func (s *Store) readFile(p, rel string, keep bool) (SourceFile, error) {
	f, err := s.fsys.Open(p)
	if err != nil {
		return SourceFile{}, s.unreadable(err, p)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	var data []byte
	if keep {
		data, err = io.ReadAll(f)
		if err == nil {
			_, _ = h.Write(data)
		}
	} else {
		_, err = io.Copy(h, f)
	}
	if err != nil {
		return SourceFile{}, s.unreadable(err, p)
	}
	return SourceFile{Path: p, RelPath: rel, Data: data, Hash: hex.EncodeToString(h.Sum(nil))}, nil
}

func (s *Store) unreadable(err error, p string) error {
	return ferrors.WrapError(err, ferrors.CategoryFileSystem, "source file is unreadable").
		WithKind(ferrors.SourceUnreadableKind).
		Fatal().
		WithContext("path", p).
		Build()
}

// isExcluded keeps the other input trees out of the content walk when they
// are nested inside the content directory.
func (s *Store) isExcluded(p string) bool {
	for _, dir := range append([]string{s.dirs.Layouts, s.dirs.Data, s.dirs.Static}, s.dirs.Exclude...) {
		if dir != "" && dir != s.dirs.Content && within(dir, p) {
			return true
		}
	}
	return false
}

func (s *Store) collectionFor(rel string) string {
	best, bestLen := "", -1
	for _, c := range s.dirs.Collections {
		if (c.Dir == "." || within(c.Dir, rel)) && len(c.Dir) > bestLen {
			best, bestLen = c.Name, len(c.Dir)
		}
	}
	return best
}

// Input names the tree a path belongs to.
type Input string

const (
	InputNone    Input = ""
	InputContent Input = "content"
	InputLayout  Input = "layout"
	InputData    Input = "data"
	InputStatic  Input = "static"
)

// Classify reports which input tree a site-root relative path belongs to.
func (s *Store) Classify(p string) Input {
	p = clean(p)
	for _, dir := range s.dirs.Exclude {
		if within(dir, p) {
			return InputNone
		}
	}
	switch {
	case within(s.dirs.Layouts, p):
		return InputLayout
	case within(s.dirs.Data, p):
		return InputData
	case within(s.dirs.Static, p):
		return InputStatic
	case within(s.dirs.Content, p):
		return InputContent
	}
	return InputNone
}

func isLayoutFile(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".htm", ".tmpl", ".gohtml":
		return true
	}
	return false
}

// IsDataFile reports whether a file name is a structured data file.
func IsDataFile(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func within(dir, p string) bool {
	if dir == "" {
		return false
	}
	if dir == "." {
		return true
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}

func relTo(root, p string) string {
	if root == "." {
		return p
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
}

func clean(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "/"))
}
