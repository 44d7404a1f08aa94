package validator

import (
	"strings"
	"testing"
)

func TestClockTag(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"00:00", true},
		{"09:30", true},
		{"23:59", true},
		{"24:00", false},
		{"12:60", false},
		{"9:30", false},
		{"0930", false},
		{"ab:cd", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateVar(tt.input, "clock")
			if tt.valid && err != nil {
				t.Errorf("ValidateVar(%q, clock) unexpected error: %v", tt.input, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("ValidateVar(%q, clock) expected error", tt.input)
			}
		})
	}
}

func TestValidateFormatsFieldErrors(t *testing.T) {
	type subject struct {
		Name  string `validate:"required"`
		Level string `validate:"oneof=ok warn crit"`
	}

	err := Validate(&subject{Level: "fatal"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Name is required") {
		t.Errorf("error %q missing required message", msg)
	}
	if !strings.Contains(msg, "must be one of") {
		t.Errorf("error %q missing oneof message", msg)
	}
}
