package actapdf

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure conditions of a render call.
var (
	ErrUnknownProfile   = errors.New("actapdf: unknown profile")
	ErrMalformedProfile = errors.New("actapdf: malformed profile")
	ErrUnknownFont      = errors.New("actapdf: unknown font")
	ErrTemplateNotFound = errors.New("actapdf: template not found")
	ErrNoPages          = errors.New("actapdf: template has no pages")
	ErrPageSize         = errors.New("actapdf: template page size does not match profile")
	ErrUnsupportedRune  = errors.New("actapdf: character not supported by font")
	ErrInvalidRecord    = errors.New("actapdf: invalid record")
)

// ConfigurationError reports an unknown or malformed layout profile.
// Field is empty when the problem is not tied to a single field.
type ConfigurationError struct {
	Profile string
	Field   string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("actapdf: profile %q%s: %v", e.Profile, fieldSuffix(e.Field), causeOf(e.Err))
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TemplateError reports a template asset that is missing, unreadable or
// unusable for the profile that references it.
type TemplateError struct {
	Profile  string
	Template string
	Err      error
}

func (e *TemplateError) Error() string {
	if e.Profile == "" {
		return fmt.Sprintf("actapdf: template %q: %v", e.Template, causeOf(e.Err))
	}
	return fmt.Sprintf("actapdf: profile %q: template %q: %v", e.Profile, e.Template, causeOf(e.Err))
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// EncodingError reports a value holding a character the active font cannot
// draw.
type EncodingError struct {
	Profile string
	Field   string
	Rune    rune
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("actapdf: profile %q%s: %U %q: %v", e.Profile, fieldSuffix(e.Field), e.Rune, e.Rune, ErrUnsupportedRune)
}

func (e *EncodingError) Unwrap() error {
	return ErrUnsupportedRune
}

// NewConfigurationError wraps err with the profile and field it concerns.
func NewConfigurationError(profile, field string, err error) *ConfigurationError {
	return &ConfigurationError{Profile: profile, Field: field, Err: err}
}

// NewTemplateError wraps err with the profile and template it concerns.
func NewTemplateError(profile, template string, err error) *TemplateError {
	return &TemplateError{Profile: profile, Template: template, Err: err}
}

func fieldSuffix(field string) string {
	if field == "" {
		return ""
	}
	return fmt.Sprintf(" field %q", field)
}

func causeOf(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
