package llm

import (
	"errors"
	"fmt"
	"net/http"

	"ai-travel-planner/internal/shared"
)

// Kind tags the failure category of an *Error.
type Kind int

const (
	// KindProvider is the base kind for provider failures that fit no narrower category.
	KindProvider Kind = iota
	KindAuthentication
	KindBadRequest
	KindRateLimit
	KindServer
	KindInvalidJSONResponse
	KindSchemaValidation
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindBadRequest:
		return "bad_request"
	case KindRateLimit:
		return "rate_limit"
	case KindServer:
		return "server"
	case KindInvalidJSONResponse:
		return "invalid_json_response"
	case KindSchemaValidation:
		return "schema_validation"
	default:
		return "provider"
	}
}

// Error is the single failure type surfaced by the generation pipeline.
// Message is localized and safe to show to end users; Raw and Violations
// are kept for diagnostics only.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Details    string
	Raw        string
	Violations []shared.Violation
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind. ErrProvider matches every *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == ErrProvider {
		return true
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is checks.
var (
	ErrProvider            = &Error{Kind: KindProvider}
	ErrAuthentication      = &Error{Kind: KindAuthentication}
	ErrBadRequest          = &Error{Kind: KindBadRequest}
	ErrRateLimit           = &Error{Kind: KindRateLimit}
	ErrServer              = &Error{Kind: KindServer}
	ErrInvalidJSONResponse = &Error{Kind: KindInvalidJSONResponse}
	ErrSchemaValidation    = &Error{Kind: KindSchemaValidation}
)

const (
	msgProvider            = "Wystąpił błąd podczas komunikacji z API modelu."
	msgAuthentication      = "Nieprawidłowy lub brakujący klucz API dostawcy modelu."
	msgBadRequest          = "Nieprawidłowe żądanie: %s"
	msgRateLimit           = "Przekroczono limit zapytań API. Spróbuj ponownie później."
	msgServer              = "API modelu jest obecnie niedostępne."
	msgInvalidJSONResponse = "Model zwrócił odpowiedź, która nie jest prawidłowym formatem JSON."
	msgSchemaValidation    = "Model zwrócił JSON, który nie zgadza się z wymaganym schematem."
)

func NewProviderError(status int, details string) *Error {
	return &Error{Kind: KindProvider, Message: msgProvider, StatusCode: status, Details: details}
}

func NewAuthenticationError() *Error {
	return &Error{Kind: KindAuthentication, Message: msgAuthentication, StatusCode: http.StatusUnauthorized}
}

func NewBadRequestError(details string) *Error {
	return &Error{
		Kind:       KindBadRequest,
		Message:    fmt.Sprintf(msgBadRequest, details),
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

func NewRateLimitError() *Error {
	return &Error{Kind: KindRateLimit, Message: msgRateLimit, StatusCode: http.StatusTooManyRequests}
}

func NewServerError(status int) *Error {
	return &Error{Kind: KindServer, Message: msgServer, StatusCode: status}
}

// NewInvalidJSONResponseError keeps the unparseable body in Raw.
func NewInvalidJSONResponseError(raw string, cause error) *Error {
	return &Error{Kind: KindInvalidJSONResponse, Message: msgInvalidJSONResponse, Raw: raw, Err: cause}
}

// NewSchemaValidationError keeps the full violation list and the offending body.
func NewSchemaValidationError(raw string, violations []shared.Violation) *Error {
	return &Error{Kind: KindSchemaValidation, Message: msgSchemaValidation, Raw: raw, Violations: violations}
}

// ErrorForStatus maps a non-2xx provider status to the taxonomy.
func ErrorForStatus(status int, details string) *Error {
	switch {
	case status == http.StatusUnauthorized:
		return NewAuthenticationError()
	case status == http.StatusBadRequest:
		return NewBadRequestError(details)
	case status == http.StatusTooManyRequests:
		return NewRateLimitError()
	case status >= 500:
		return NewServerError(status)
	default:
		return NewProviderError(status, details)
	}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
