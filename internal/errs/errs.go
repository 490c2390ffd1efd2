package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so the HTTP boundary can map it to a status code
// without inspecting error text.
type Kind int

const (
	KindInternal Kind = iota
	KindMalformedAudio
	KindUnsupportedLanguage
	KindUnsupportedLanguagePair
	KindTranslationEmpty
	KindSynthesisFailed
	KindSessionNotFound
	KindDuplicateCode
	KindPersistence
	KindProviderInit
	KindInvalidInput
)

// HTTPStatus maps an error kind to a response status at the single boundary
// point.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindMalformedAudio, KindUnsupportedLanguage, KindUnsupportedLanguagePair, KindInvalidInput:
		return http.StatusBadRequest
	case KindSessionNotFound:
		return http.StatusNotFound
	case KindProviderInit:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindMalformedAudio:
		return "malformed_audio"
	case KindUnsupportedLanguage:
		return "unsupported_language"
	case KindUnsupportedLanguagePair:
		return "unsupported_language_pair"
	case KindTranslationEmpty:
		return "translation_empty"
	case KindSynthesisFailed:
		return "synthesis_failed"
	case KindSessionNotFound:
		return "session_not_found"
	case KindDuplicateCode:
		return "duplicate_code"
	case KindPersistence:
		return "persistence_failure"
	case KindProviderInit:
		return "provider_init_failure"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error carries a kind through the call stack alongside a human-readable
// message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a tagged error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and context message.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status for an arbitrary error.
func StatusOf(err error) int {
	return KindOf(err).HTTPStatus()
}
