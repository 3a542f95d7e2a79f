package validator

import (
	"errors"
	"strings"
	"testing"
)

type createApplicationRequest struct {
	Name        string `validate:"required,min=2,max=100"`
	Description string `validate:"max=500"`
	Color       string `validate:"omitempty,hex_color"`
	URL         string `validate:"required,url"`
	Tier        string `validate:"required,app_tier"`
}

type grantRequest struct {
	UserID        string `validate:"required,uuid"`
	ApplicationID string `validate:"required,uuid"`
	AccessLevel   string `validate:"required,access_level"`
}

func fieldError(t *testing.T, err error, field string) ValidationError {
	t.Helper()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
	}
	for _, ve := range verrs {
		if ve.Field == field {
			return ve
		}
	}
	t.Fatalf("no error for field %q in %v", field, verrs)
	return ValidationError{}
}

func TestValidate_ValidApplication(t *testing.T) {
	v := New()

	err := v.Validate(createApplicationRequest{
		Name:  "Wiki",
		Color: "#3B82F6",
		URL:   "https://wiki.internal.example.com",
		Tier:  "primary",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	v := New()

	err := v.Validate(createApplicationRequest{
		URL:  "https://wiki.internal.example.com",
		Tier: "primary",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}

	ve := fieldError(t, err, "name")
	if ve.Message != "is required" {
		t.Errorf("unexpected message: %s", ve.Message)
	}
}

func TestValidate_AppTier(t *testing.T) {
	v := New()

	tests := []struct {
		tier  string
		valid bool
	}{
		{"primary", true},
		{"secondary", true},
		{"tertiary", false},
		{"PRIMARY", false},
	}

	for _, tt := range tests {
		err := v.Validate(createApplicationRequest{
			Name: "Wiki",
			URL:  "https://wiki.example.com",
			Tier: tt.tier,
		})
		if tt.valid && err != nil {
			t.Errorf("tier %q: expected valid, got %v", tt.tier, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("tier %q: expected invalid", tt.tier)
		}
	}
}

func TestValidate_AccessLevel(t *testing.T) {
	v := New()

	base := grantRequest{
		UserID:        "0d4f7a76-0b0a-4a4b-8a94-5f7d8f2a8f10",
		ApplicationID: "f2b9a0c1-63b2-4f89-8f15-12f40d9f1a22",
	}

	for _, level := range []string{"editor", "viewer", "locked"} {
		req := base
		req.AccessLevel = level
		if err := v.Validate(req); err != nil {
			t.Errorf("level %q: expected valid, got %v", level, err)
		}
	}

	req := base
	req.AccessLevel = "owner"
	err := v.Validate(req)
	if err == nil {
		t.Fatal("expected invalid access level to be rejected")
	}
	ve := fieldError(t, err, "access_level")
	if !strings.Contains(ve.Message, "editor, viewer, locked") {
		t.Errorf("unexpected message: %s", ve.Message)
	}
}

func TestValidate_HexColor(t *testing.T) {
	v := New()

	valid := createApplicationRequest{
		Name: "Wiki",
		URL:  "https://wiki.example.com",
		Tier: "secondary",
	}

	for _, c := range []string{"", "#3B82F6", "#abcdef"} {
		req := valid
		req.Color = c
		if err := v.Validate(req); err != nil {
			t.Errorf("color %q: expected valid, got %v", c, err)
		}
	}

	for _, c := range []string{"3B82F6", "#3B82F", "#GGGGGG", "blue"} {
		req := valid
		req.Color = c
		if err := v.Validate(req); err == nil {
			t.Errorf("color %q: expected invalid", c)
		}
	}
}

func TestValidate_UUID(t *testing.T) {
	v := New()

	err := v.Validate(grantRequest{
		UserID:        "not-a-uuid",
		ApplicationID: "f2b9a0c1-63b2-4f89-8f15-12f40d9f1a22",
		AccessLevel:   "viewer",
	})
	if err == nil {
		t.Fatal("expected invalid uuid to be rejected")
	}
	fieldError(t, err, "user_id")
}

func TestValidationErrors_Error(t *testing.T) {
	verrs := ValidationErrors{
		{Field: "name", Message: "is required"},
		{Field: "tier", Message: "must be primary or secondary"},
	}
	msg := verrs.Error()
	if !strings.Contains(msg, "name: is required") || !strings.Contains(msg, "; ") {
		t.Errorf("unexpected error string: %s", msg)
	}
}
