package errors

import stderrors "errors"

// ErrorKind identifies a specific, documented failure mode of the site build.
// Categories route errors; kinds let callers and tests assert exact causes.
type ErrorKind string

const (
	KindNone ErrorKind = ""

	// Front matter.
	MalformedFrontMatterKind  ErrorKind = "MalformedFrontMatter"
	InvalidMetadataSyntaxKind ErrorKind = "InvalidMetadataSyntax"

	// Content graph.
	DuplicatePermalinkKind ErrorKind = "DuplicatePermalink"
	UnknownLayoutKind      ErrorKind = "UnknownLayout"

	// Rendering.
	TemplateSyntaxErrorKind ErrorKind = "TemplateSyntaxError"
	TemplateExecutionKind   ErrorKind = "TemplateExecution"
	MissingLayoutKind       ErrorKind = "MissingLayout"
	MissingPartialKind      ErrorKind = "MissingPartial"
	CircularLayoutKind      ErrorKind = "CircularLayout"

	// Orchestration.
	SourceUnreadableKind ErrorKind = "SourceUnreadable"
	BuildTimeoutKind     ErrorKind = "BuildTimeout"
	WriteFailedKind      ErrorKind = "WriteFailed"
	InvalidConfigKind    ErrorKind = "InvalidConfig"

	// Warnings.
	SkippedDocumentKind      ErrorKind = "SkippedDocument"
	UnreferencedMetadataKind ErrorKind = "UnreferencedMetadata"
	BrokenLinkKind           ErrorKind = "BrokenLink"
	StaticConflictKind       ErrorKind = "StaticConflict"
)

// KindOf returns the kind of the first classified error in err's chain that
// carries one, or KindNone.
func KindOf(err error) ErrorKind {
	for err != nil {
		var ce *ClassifiedError
		if !stderrors.As(err, &ce) {
			return KindNone
		}
		if ce.kind != KindNone {
			return ce.kind
		}
		err = ce.cause
	}
	return KindNone
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
