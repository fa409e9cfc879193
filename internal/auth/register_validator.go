package auth

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// usernameRegex validates username format: letters, numbers, underscores,
// and hyphens only.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validate is the shared validator instance for request structs
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("username_chars", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
}

// RegistrationValidator validates registration requests against the username
// pattern, the password complexity rules, and the email domain allow-list.
// All rules run before any storage mutation.
type RegistrationValidator struct {
	allowedDomains map[string]struct{}
	passwords      *PasswordValidator
}

// NewRegistrationValidator creates a RegistrationValidator with the given
// email domain allow-list.
func NewRegistrationValidator(allowedDomains []string, passwords *PasswordValidator) *RegistrationValidator {
	domains := make(map[string]struct{}, len(allowedDomains))
	for _, d := range allowedDomains {
		domains[strings.ToLower(d)] = struct{}{}
	}
	return &RegistrationValidator{
		allowedDomains: domains,
		passwords:      passwords,
	}
}

// Validate checks a registration request and returns all violated rules as
// field errors. An empty slice means the request is valid.
func (v *RegistrationValidator) Validate(req RegisterRequest) []FieldError {
	var fieldErrors []FieldError

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fieldErrors = append(fieldErrors, describeViolation(fe))
			}
		} else {
			fieldErrors = append(fieldErrors, FieldError{Field: "request", Message: "Invalid request"})
		}
	}

	fieldErrors = append(fieldErrors, v.passwords.ValidatePassword(req.Password)...)

	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
		if domain, ok := emailDomain(email); ok {
			if _, allowed := v.allowedDomains[domain]; !allowed {
				fieldErrors = append(fieldErrors, FieldError{
					Field:   "email",
					Message: "Email domain is not allowed",
				})
			}
		}
	}

	return fieldErrors
}

// describeViolation translates a validator tag failure into a human-readable
// field error.
func describeViolation(fe validator.FieldError) FieldError {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return FieldError{Field: field, Message: field + " is required"}
	case "min", "max":
		if field == "username" {
			return FieldError{Field: field, Message: "Username must be between 3 and 50 characters"}
		}
		return FieldError{Field: field, Message: "Invalid length"}
	case "username_chars":
		return FieldError{Field: field, Message: "Username may only contain letters, numbers, underscores, and hyphens"}
	case "email":
		return FieldError{Field: field, Message: "Invalid email format"}
	}
	return FieldError{Field: field, Message: "Invalid value"}
}

// emailDomain extracts the lowercase domain part of an email address
func emailDomain(email string) (string, bool) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "", false
	}
	return strings.ToLower(email[at+1:]), true
}
