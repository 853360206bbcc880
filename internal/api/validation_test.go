package api

import (
	"testing"
)

type testValidateStruct struct {
	Number   string `validate:"required,min=1,max=64"`
	Severity string `validate:"omitempty,oneof=low medium high critical"`
	BaseURL  string `validate:"omitempty,url"`
}

func TestValidate_ValidInput(t *testing.T) {
	s := testValidateStruct{
		Number:   "INC-1001",
		Severity: "high",
	}
	errs := Validate(s)
	if errs != nil {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	s := testValidateStruct{Number: ""}
	errs := Validate(s)
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if errs["number"] != "is required" {
		t.Errorf("number error = %q, want %q", errs["number"], "is required")
	}
}

func TestValidate_MaxLength(t *testing.T) {
	long := ""
	for i := 0; i < 65; i++ {
		long += "a"
	}
	s := testValidateStruct{Number: long}
	errs := Validate(s)
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if errs["number"] != "must be at most 64 characters" {
		t.Errorf("number error = %q, want %q", errs["number"], "must be at most 64 characters")
	}
}

func TestValidate_InvalidOneOf(t *testing.T) {
	s := testValidateStruct{Number: "INC-1001", Severity: "urgent"}
	errs := Validate(s)
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if errs["severity"] != "must be one of: low medium high critical" {
		t.Errorf("severity error = %q, want %q", errs["severity"], "must be one of: low medium high critical")
	}
}

func TestValidate_InvalidURL(t *testing.T) {
	s := testValidateStruct{Number: "INC-1001", BaseURL: "not a url"}
	errs := Validate(s)
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if errs["base_u_r_l"] != "must be a valid URL" {
		t.Errorf("base_u_r_l error = %q, want %q", errs["base_u_r_l"], "must be a valid URL")
	}
}

func TestValidate_OmitsEmptyOptional(t *testing.T) {
	s := testValidateStruct{Number: "INC-1001"}
	errs := Validate(s)
	if errs != nil {
		t.Errorf("expected no errors for empty optional fields, got %v", errs)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Name", "name"},
		{"FirstName", "first_name"},
		{"APIKey", "a_p_i_key"},
		{"simple", "simple"},
		{"", ""},
	}

	for _, tt := range tests {
		got := toSnakeCase(tt.input)
		if got != tt.expected {
			t.Errorf("toSnakeCase(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
