package types

import "errors"

// ErrorKind classifies an operation-level failure
type ErrorKind string

const (
	KindNone                 ErrorKind = ""
	KindInvalidArgument      ErrorKind = "invalid_argument"
	KindUnknownKnowledgeBase ErrorKind = "unknown_knowledge_base"
	KindDocumentNotFound     ErrorKind = "document_not_found"
	KindDiscoveryFailure     ErrorKind = "discovery_failure"
	KindInternal             ErrorKind = "internal"
)

// Result is the outcome of a catalog operation: either a text payload or an
// error kind with a human-readable message. Operation failures travel as
// Results so the protocol session stays healthy.
type Result struct {
	Text    string
	Kind    ErrorKind
	Message string
}

// OK returns a successful result
func OK(text string) Result {
	return Result{Text: text}
}

// Fail returns an error result
func Fail(kind ErrorKind, message string) Result {
	if kind == KindNone {
		kind = KindInternal
	}
	return Result{Kind: kind, Message: message}
}

// FailErr maps err onto the error taxonomy
func FailErr(err error) Result {
	return Fail(KindOf(err), err.Error())
}

// IsError reports whether the result carries an error
func (r Result) IsError() bool {
	return r.Kind != KindNone
}

// KindOf maps an error onto an ErrorKind
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnknownKnowledgeBase):
		return KindUnknownKnowledgeBase
	case errors.Is(err, ErrDocumentNotFound):
		return KindDocumentNotFound
	case errors.Is(err, ErrDiscoveryFailure):
		return KindDiscoveryFailure
	default:
		return KindInternal
	}
}
