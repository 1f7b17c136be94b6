// Package errors provides the classified error primitives used across the site builder.
//
// Every failure the build can report carries an ErrorCategory for routing
// (exit codes, HTTP status), an ErrorSeverity that decides whether it aborts
// the build (fatal), isolates one entity (error) or is merely surfaced
// (warning), and an optional ErrorKind naming the exact failure mode.
//
// Example usage:
//
//	err := errors.ContentError(errors.MalformedFrontMatterKind, "front matter not closed").
//		WithContext("path", doc.Path).
//		WithCause(parseErr).
//		Build()
//
//	if errors.KindOf(err) == errors.MalformedFrontMatterKind { ... }
package errors
