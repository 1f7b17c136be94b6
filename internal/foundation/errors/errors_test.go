package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "sitebuilder.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())
		assert.Equal(t, "[config:fatal] invalid configuration", err.Error())

		file, exists := err.Context().GetString("file")
		require.True(t, exists)
		assert.Equal(t, "sitebuilder.yaml", file)
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		base := ConfigError("test error").Build()
		wrapped := fmt.Errorf("loading: %w", base)

		assert.True(t, IsClassified(wrapped))
		assert.True(t, HasCategory(wrapped, CategoryConfig))
		assert.True(t, IsFatal(wrapped))
		assert.False(t, base.CanRetry())
	})

	t.Run("WithSeverity copies", func(t *testing.T) {
		base := ContentError(MalformedFrontMatterKind, "unterminated").Build()
		promoted := base.WithSeverity(SeverityFatal)

		assert.Equal(t, SeverityError, base.Severity())
		assert.Equal(t, SeverityFatal, promoted.Severity())
		assert.Equal(t, MalformedFrontMatterKind, promoted.Kind())
	})
}

func TestErrorKinds(t *testing.T) {
	t.Run("KindOf walks the chain", func(t *testing.T) {
		inner := TemplateError(CircularLayoutKind, "cycle").Build()
		outer := WrapError(inner, CategoryBuild, "layout validation failed").Fatal().Build()

		assert.Equal(t, CircularLayoutKind, KindOf(outer))
		assert.True(t, IsKind(fmt.Errorf("ctx: %w", outer), CircularLayoutKind))
	})

	t.Run("outer kind wins", func(t *testing.T) {
		inner := ContentError(InvalidMetadataSyntaxKind, "bad yaml").Build()
		outer := WrapError(inner, CategoryBuild, "timed out").WithKind(BuildTimeoutKind).Build()

		assert.Equal(t, BuildTimeoutKind, KindOf(outer))
	})

	t.Run("plain errors have no kind", func(t *testing.T) {
		assert.Equal(t, KindNone, KindOf(errors.New("plain")))
		assert.Equal(t, KindNone, KindOf(nil))
	})

	t.Run("errors.Is matches by kind", func(t *testing.T) {
		err := ContentError(DuplicatePermalinkKind, "/a/ used twice").Build()
		target := &ClassifiedError{kind: DuplicatePermalinkKind}

		assert.ErrorIs(t, fmt.Errorf("wrap: %w", err), target)
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		originalErr := errors.New("connection refused")
		err := WrapError(originalErr, CategoryNetwork, "publish failed").
			Warning().
			Retryable().
			WithContext("subject", "site.builds").
			Build()

		assert.Equal(t, CategoryNetwork, err.Category())
		assert.Equal(t, SeverityWarning, err.Severity())
		assert.Equal(t, RetryBackoff, err.RetryStrategy())
		assert.ErrorIs(t, err, originalErr)
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
		}{
			{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal},
			{"ValidationError", ValidationError("test"), CategoryValidation, SeverityFatal},
			{"ContentError", ContentError(UnknownLayoutKind, "test"), CategoryContent, SeverityError},
			{"TemplateError", TemplateError(MissingPartialKind, "test"), CategoryTemplate, SeverityError},
			{"BuildError", BuildError("test"), CategoryBuild, SeverityFatal},
			{"FileSystemError", FileSystemError("test"), CategoryFileSystem, SeverityError},
			{"RuntimeError", RuntimeError("test"), CategoryRuntime, SeverityFatal},
			{"InternalError", InternalError("test"), CategoryInternal, SeverityFatal},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				assert.Equal(t, tt.category, err.Category())
				assert.Equal(t, tt.severity, err.Severity())
			})
		}
	})
}

func TestErrorContext(t *testing.T) {
	ctx1 := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	ctx2 := ErrorContext{}.Set("key2", "value2").Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)

	v, _ := merged.GetString("key1")
	assert.Equal(t, "value1", v)
	v, _ = merged.GetString("key2")
	assert.Equal(t, "value2", v)
	v, _ = merged.GetString("shared")
	assert.Equal(t, "overridden", v)

	_, exists := merged.Get("missing")
	assert.False(t, exists)
}
