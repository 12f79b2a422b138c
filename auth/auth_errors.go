package auth

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	MsgEmailNotConfirmed = "Please check your email to verify your account before signing in."
	MsgLoginFailed       = "Login failed. Please try again."
	MsgNoUserReturned    = "Login failed. No user data returned. Please try again."
	MsgProfileFetch      = "Could not fetch user profile. Please try again."
	MsgSignUpFailed      = "Sign up failed. Please try again."
	MsgOAuthFailed       = "Could not start sign in. Please try again."
	MsgInvalidForm       = "Please correct the highlighted fields."
)

var ErrOAuthNotSupported = errors.New("oauth completion not supported by identity provider")

// FormError is a failure shown inline on the form that caused it. Fields holds
// per-field validation messages keyed by form field name.
type FormError struct {
	Message string
	Fields  map[string]string
	Err     error
}

func (e *FormError) Error() string {
	return e.Message
}

func (e *FormError) Unwrap() error {
	return e.Err
}

func formError(message string, err error) *FormError {
	return &FormError{Message: message, Err: err}
}

// fieldErrors converts ozzo validation errors into a FormError.
func fieldErrors(err error) *FormError {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return formError(MsgInvalidForm, err)
	}
	fields := make(map[string]string, len(verrs))
	for field, ferr := range verrs {
		fields[field] = sentence(ferr.Error())
	}
	return &FormError{Message: MsgInvalidForm, Fields: fields, Err: err}
}

// sentence capitalises the first letter of a provider message.
func sentence(msg string) string {
	msg = strings.TrimSpace(msg)
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
