package backend

import (
	"errors"
	"fmt"
	"strings"
)

// --- Error kind enum ---

// ErrorKind classifies a backend failure. The operation layer switches on
// the kind to decide exit codes, MCP error text, and candidate rendering;
// nothing anywhere matches on error strings.
type ErrorKind string

const (
	// KindNotFound: the named project, spec, or document does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindConflict: creation would overwrite something that already exists.
	KindConflict ErrorKind = "conflict"
	// KindInvalidInput: shape, length, or pattern violations. The message
	// names the offending field and the rule it broke.
	KindInvalidInput ErrorKind = "invalid_input"
	// KindSelectorMiss: an edit selector matched nothing. Candidates carry
	// the nearest alternatives.
	KindSelectorMiss ErrorKind = "selector_miss"
	// KindAmbiguousMatch: a selector or patch matched more than once.
	// Candidates carry every match site.
	KindAmbiguousMatch ErrorKind = "ambiguous_match"
	// KindUnsupported: the backend cannot perform this operation at all.
	KindUnsupported ErrorKind = "unsupported"
	// KindUnavailable: the backend exists but cannot be reached or is
	// misconfigured (missing credentials, unreachable endpoint).
	KindUnavailable ErrorKind = "unavailable"
	// KindUpstream: the remote service answered with an error after
	// retries were exhausted or the failure was terminal.
	KindUpstream ErrorKind = "upstream"
	// KindInternal: everything that should not happen.
	KindInternal ErrorKind = "internal"
)

// Error is the tagged failure type every backend returns for anticipated
// failures. Kind drives classification; Candidates are only populated for
// selector and match failures.
type Error struct {
	Kind       ErrorKind
	Op         string   // operation that failed, e.g. "load_spec"
	Path       string   // resource involved, e.g. "demo/specs/20250102_..."
	Msg        string   // human-readable detail, lowercase, no trailing period
	Candidates []string // nearest alternatives for selector/match failures
}

// Error renders "op: msg (path)". Op and Path are omitted when empty.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	return b.String()
}

// WithPath returns a copy of the error with the path set.
func (e *Error) WithPath(path string) *Error {
	dup := *e
	dup.Path = path
	return &dup
}

// newError is the shared constructor behind the per-kind helpers.
func newError(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not_found error.
func NotFoundf(op, format string, args ...any) *Error {
	return newError(KindNotFound, op, format, args...)
}

// Conflictf builds a conflict error.
func Conflictf(op, format string, args ...any) *Error {
	return newError(KindConflict, op, format, args...)
}

// InvalidInputf builds an invalid_input error.
func InvalidInputf(op, format string, args ...any) *Error {
	return newError(KindInvalidInput, op, format, args...)
}

// SelectorMissf builds a selector_miss error carrying candidates.
func SelectorMissf(op string, candidates []string, format string, args ...any) *Error {
	e := newError(KindSelectorMiss, op, format, args...)
	e.Candidates = candidates
	return e
}

// AmbiguousMatchf builds an ambiguous_match error carrying every match site.
func AmbiguousMatchf(op string, candidates []string, format string, args ...any) *Error {
	e := newError(KindAmbiguousMatch, op, format, args...)
	e.Candidates = candidates
	return e
}

// Unsupportedf builds an unsupported error.
func Unsupportedf(op, format string, args ...any) *Error {
	return newError(KindUnsupported, op, format, args...)
}

// Unavailablef builds an unavailable error.
func Unavailablef(op, format string, args ...any) *Error {
	return newError(KindUnavailable, op, format, args...)
}

// Upstreamf builds an upstream error.
func Upstreamf(op, format string, args ...any) *Error {
	return newError(KindUpstream, op, format, args...)
}

// Internalf builds an internal error.
func Internalf(op, format string, args ...any) *Error {
	return newError(KindInternal, op, format, args...)
}

// KindOf extracts the kind from any error. Errors that are not (and do not
// wrap) a *Error classify as internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is (or wraps) a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// CandidatesOf extracts candidates from any error, nil when absent.
func CandidatesOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Candidates
	}
	return nil
}
