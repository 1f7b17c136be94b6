// Package devserver serves a site's output directory during development. It
// watches the site inputs, coalesces bursts of changes into single
// incremental builds that never overlap, and tells connected browsers to
// reload once a build finishes.
package devserver
