package models

import "testing"

func TestTemplateValidateAcceptsWellFormed(t *testing.T) {
	tmpl := Template{Name: "welcome_email", Language: "en", TemplateType: TemplateTypeEmail}
	if err := tmpl.Validate(); err != nil {
		t.Errorf("Expected valid template, got %v", err)
	}
}

func TestTemplateValidateRegionalLanguage(t *testing.T) {
	tmpl := Template{Name: "welcome_email", Language: "en-US", TemplateType: TemplateTypePush}
	if err := tmpl.Validate(); err != nil {
		t.Errorf("Expected valid template, got %v", err)
	}
}

func TestTemplateValidateRejectsBadName(t *testing.T) {
	tmpl := Template{Name: "welcome email!", Language: "en", TemplateType: TemplateTypeEmail}
	if err := tmpl.Validate(); err == nil {
		t.Error("Expected validation error for name with spaces")
	}
}

func TestTemplateValidateRejectsBadLanguage(t *testing.T) {
	for _, lang := range []string{"EN", "eng", "en-us", "e", ""} {
		tmpl := Template{Name: "welcome_email", Language: lang, TemplateType: TemplateTypeEmail}
		if err := tmpl.Validate(); err == nil {
			t.Errorf("Expected validation error for language %q", lang)
		}
	}
}

func TestTemplateValidateRejectsUnknownType(t *testing.T) {
	tmpl := Template{Name: "welcome_email", Language: "en", TemplateType: "sms"}
	if err := tmpl.Validate(); err == nil {
		t.Error("Expected validation error for unknown template type")
	}
}
