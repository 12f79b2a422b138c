package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// LoginParameters is the sign-in form.
type LoginParameters struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate runs before any remote call.
func (p LoginParameters) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

func (p LoginParameters) normalised() LoginParameters {
	p.Email = strings.TrimSpace(p.Email)
	return p
}

// SignUpParameters is the sign-up form.
type SignUpParameters struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p SignUpParameters) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(1, 100)),
	)
}

func (p SignUpParameters) normalised() SignUpParameters {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Email = strings.TrimSpace(p.Email)
	return p
}
