package content

import (
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// DataFile is a parsed shared data file, addressed by its name relative to
// the data directory without extension (e.g. "authors" or "nav/main").
type DataFile struct {
	Name  string
	Path  string
	Value Value
	Hash  string
}

// ParseData decodes a YAML or JSON data file. JSON is read as YAML.
func ParseData(src SourceFile) (DataFile, error) {
	var root yaml.Node
	err := yaml.Unmarshal(src.Data, &root)
	var v Value
	if err == nil {
		v, err = ValueFromNode(&root)
	}
	if err != nil {
		return DataFile{}, ferrors.ContentError(ferrors.InvalidMetadataSyntaxKind, "data file cannot be parsed").
			WithCause(err).
			WithContext("path", src.Path).
			Build()
	}
	return DataFile{
		Name:  DataName(src.RelPath),
		Path:  src.Path,
		Value: v,
		Hash:  src.Hash,
	}, nil
}

// DataName derives the lookup name of a data file from its relative path.
func DataName(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel))
}
