package identity

import (
	"errors"
	"strings"
)

type ErrorKind string

const (
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindDuplicateEmail     ErrorKind = "duplicate_email"
	KindWeakPassword       ErrorKind = "weak_password"
	KindEmailNotConfirmed  ErrorKind = "email_not_confirmed"
	KindNetwork            ErrorKind = "network"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindUnknown            ErrorKind = "unknown"
)

const (
	MessageInvalidCredentials = "Invalid email or password. Please try again."
	MessageDuplicateEmail     = "An account with this email already exists."
	MessageWeakPassword       = "Password must be at least 6 characters long."
	MessageEmailNotConfirmed  = "Please verify your email address before signing in."
	MessageNetwork            = "Unable to reach the authentication service. Please check your connection."
	MessageUnauthorized       = "Your session has expired. Please sign in again."
	MessageFallback           = "Something went wrong. Please try again."
)

// Error is a failure reported by, or on the way to, the identity provider.
// Raw keeps the provider's own wording for logs.
type Error struct {
	StatusCode int
	Kind       ErrorKind
	Raw        string
	Err        error
}

func (e *Error) Error() string {
	return MessageFor(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps a provider message to an ErrorKind.
func Classify(statusCode int, raw string) ErrorKind {
	msg := strings.ToLower(raw)
	switch {
	case strings.Contains(msg, "invalid login credentials"), strings.Contains(msg, "invalid_grant"):
		return KindInvalidCredentials
	case strings.Contains(msg, "already registered"), strings.Contains(msg, "already been registered"), strings.Contains(msg, "user_already_exists"):
		return KindDuplicateEmail
	case strings.Contains(msg, "password should be"), strings.Contains(msg, "weak_password"), strings.Contains(msg, "weak password"):
		return KindWeakPassword
	case strings.Contains(msg, "email not confirmed"):
		return KindEmailNotConfirmed
	case strings.Contains(msg, "failed to fetch"), strings.Contains(msg, "network"):
		return KindNetwork
	case statusCode == 401 || strings.Contains(msg, "invalid jwt"), strings.Contains(msg, "token is expired"):
		return KindUnauthorized
	}
	return KindUnknown
}

// MessageFor returns the user-facing message of a kind.
func MessageFor(kind ErrorKind) string {
	switch kind {
	case KindInvalidCredentials:
		return MessageInvalidCredentials
	case KindDuplicateEmail:
		return MessageDuplicateEmail
	case KindWeakPassword:
		return MessageWeakPassword
	case KindEmailNotConfirmed:
		return MessageEmailNotConfirmed
	case KindNetwork:
		return MessageNetwork
	case KindUnauthorized:
		return MessageUnauthorized
	}
	return MessageFallback
}

// HTTPStatus is the status this service answers with for err.
func HTTPStatus(err error) int {
	var ie *Error
	if !errors.As(err, &ie) {
		return 500
	}
	switch ie.Kind {
	case KindInvalidCredentials, KindUnauthorized:
		return 401
	case KindDuplicateEmail:
		return 409
	case KindWeakPassword:
		return 400
	case KindEmailNotConfirmed:
		return 403
	case KindNetwork:
		return 502
	}
	if ie.StatusCode >= 400 && ie.StatusCode < 500 {
		return ie.StatusCode
	}
	return 500
}
