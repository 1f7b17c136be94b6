// Package deps tracks, per output artifact, the inputs and graph views its
// render touched, and decides which artifacts an incremental build must
// recompute.
package deps

import (
	"maps"
	"slices"
)

// Record is the dependency entry of one written artifact.
type Record struct {
	Key        string
	OutputPath string
	Hash       string            // hash of the written bytes
	Inputs     []string          // sorted input paths
	Views      map[string]string // view name to fingerprint at render time
	Params     []string          // sorted metadata keys read
}

func (r *Record) clone() *Record {
	c := *r
	c.Inputs = slices.Clone(r.Inputs)
	c.Params = slices.Clone(r.Params)
	c.Views = maps.Clone(r.Views)
	return &c
}

// StaticRecord is one copied passthrough file.
type StaticRecord struct {
	Target string
	Source string
	Hash   string
}

// State is everything a later build needs to decide what is affected.
type State struct {
	ConfigHash string
	LayoutSet  string // layout membership fingerprint
	DataSet    string // data file membership fingerprint
	Revision   string
	Inputs     map[string]string // input path to content hash
	Artifacts  map[string]*Record
	Static     map[string]StaticRecord
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Inputs:    map[string]string{},
		Artifacts: map[string]*Record{},
		Static:    map[string]StaticRecord{},
	}
}

// Clone returns a deep copy, so a build run can mutate its own tracker
// without touching the state another run observes.
func (s *State) Clone() *State {
	if s == nil {
		return NewState()
	}
	c := &State{
		ConfigHash: s.ConfigHash,
		LayoutSet:  s.LayoutSet,
		DataSet:    s.DataSet,
		Revision:   s.Revision,
		Inputs:     maps.Clone(s.Inputs),
		Artifacts:  make(map[string]*Record, len(s.Artifacts)),
		Static:     maps.Clone(s.Static),
	}
	if c.Inputs == nil {
		c.Inputs = map[string]string{}
	}
	if c.Static == nil {
		c.Static = map[string]StaticRecord{}
	}
	for k, r := range s.Artifacts {
		c.Artifacts[k] = r.clone()
	}
	return c
}

// Empty reports whether the state carries no prior build.
func (s *State) Empty() bool {
	return s == nil || (len(s.Artifacts) == 0 && len(s.Inputs) == 0)
}

// ChangedPaths diffs two input hash maps: added, removed and modified paths.
func ChangedPaths(prev, next map[string]string) []string {
	var out []string
	for p, h := range next {
		if old, ok := prev[p]; !ok || old != h {
			out = append(out, p)
		}
	}
	for p := range prev {
		if _, ok := next[p]; !ok {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}
