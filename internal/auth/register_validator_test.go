package auth

import (
	"testing"
)

func newTestRegistrationValidator() *RegistrationValidator {
	return NewRegistrationValidator(
		[]string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com"},
		NewPasswordValidator(),
	)
}

func TestRegistrationValidation(t *testing.T) {
	v := newTestRegistrationValidator()

	tests := []struct {
		name      string
		req       RegisterRequest
		wantField string // empty means valid
	}{
		{
			name:      "valid request",
			req:       RegisterRequest{Username: "alice", Email: "alice@gmail.com", Password: "Str0ng!Pw"},
			wantField: "",
		},
		{
			name:      "valid with underscore and hyphen",
			req:       RegisterRequest{Username: "alice_b-2", Email: "alice@yahoo.com", Password: "Str0ng!Pw"},
			wantField: "",
		},
		{
			name:      "username too short",
			req:       RegisterRequest{Username: "al", Email: "alice@gmail.com", Password: "Str0ng!Pw"},
			wantField: "username",
		},
		{
			name:      "username too long",
			req:       RegisterRequest{Username: "a123456789012345678901234567890123456789012345678901", Email: "alice@gmail.com", Password: "Str0ng!Pw"},
			wantField: "username",
		},
		{
			name:      "username with spaces",
			req:       RegisterRequest{Username: "alice smith", Email: "alice@gmail.com", Password: "Str0ng!Pw"},
			wantField: "username",
		},
		{
			name:      "username with symbols",
			req:       RegisterRequest{Username: "alice!", Email: "alice@gmail.com", Password: "Str0ng!Pw"},
			wantField: "username",
		},
		{
			name:      "invalid email format",
			req:       RegisterRequest{Username: "alice", Email: "not-an-email", Password: "Str0ng!Pw"},
			wantField: "email",
		},
		{
			name:      "disallowed email domain",
			req:       RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "Str0ng!Pw"},
			wantField: "email",
		},
		{
			name:      "weak password",
			req:       RegisterRequest{Username: "alice", Email: "alice@gmail.com", Password: "weakpass"},
			wantField: "password",
		},
		{
			name:      "missing username",
			req:       RegisterRequest{Username: "", Email: "alice@gmail.com", Password: "Str0ng!Pw"},
			wantField: "username",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fieldErrors := v.Validate(tt.req)

			if tt.wantField == "" {
				if len(fieldErrors) != 0 {
					t.Errorf("expected valid request, got %v", fieldErrors)
				}
				return
			}

			if len(fieldErrors) == 0 {
				t.Fatalf("expected violation on %s, got none", tt.wantField)
			}
			found := false
			for _, fe := range fieldErrors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected violation on %s, got %v", tt.wantField, fieldErrors)
			}
		})
	}
}

// Every violated rule is reported, not just the first one encountered.
func TestRegistrationValidationReportsAllViolations(t *testing.T) {
	v := newTestRegistrationValidator()

	fieldErrors := v.Validate(RegisterRequest{
		Username: "a!",
		Email:    "bad@example.com",
		Password: "weak",
	})

	fields := map[string]bool{}
	for _, fe := range fieldErrors {
		fields[fe.Field] = true
	}

	for _, want := range []string{"username", "email", "password"} {
		if !fields[want] {
			t.Errorf("expected a violation on %s, got %v", want, fieldErrors)
		}
	}
}

func TestEmailDomainCaseInsensitive(t *testing.T) {
	v := newTestRegistrationValidator()

	fieldErrors := v.Validate(RegisterRequest{
		Username: "alice",
		Email:    "Alice@GMAIL.com",
		Password: "Str0ng!Pw",
	})
	if len(fieldErrors) != 0 {
		t.Errorf("expected mixed-case domain to be accepted, got %v", fieldErrors)
	}
}
