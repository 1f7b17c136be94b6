// Package build runs the site build pipeline.
//
// A build moves through fixed stages: discovering inputs, parsing documents,
// building the content graph, rendering and writing. Full builds render every
// entity. Incremental builds ask the dependency tracker which artifacts the
// changed inputs affect and render only those; the tracker escalates to a
// full build when it cannot narrow the change safely.
//
// Per-document and per-entity failures are collected into the Report and the
// build continues. Unreadable sources, duplicate permalinks, layout cycles and
// timeouts abort the build before anything is written.
package build
