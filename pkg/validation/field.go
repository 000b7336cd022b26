package validation

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-reportform/pkg/template"
)

// FieldResult collects every rule violation for a single field. Rules are
// checked independently so callers can surface all of them at once.
type FieldResult struct {
	Errors []string
}

// Valid reports whether the field passed every rule.
func (r FieldResult) Valid() bool { return len(r.Errors) == 0 }

// ValidateField checks a single field definition in isolation. It is a pure
// function: no field ordering or cross-field rules are applied here (label
// uniqueness across a template belongs to ValidateTemplate).
func ValidateField(field template.Field) FieldResult {
	var result FieldResult
	fail := func(format string, args ...any) {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(field.Label) == "" {
		fail("label is required")
	}
	if field.Type == "" {
		fail("type is required")
	} else if !field.Type.Known() {
		fail("type %q is not a recognised field type", string(field.Type))
	}
	if field.ColumnSpan != 0 && (field.ColumnSpan < 1 || field.ColumnSpan > 3) {
		fail("columnSpan must be between 1 and 3")
	}
	if !field.AttributesMatchType() {
		fail("attributes do not match field type %q", string(field.Type))
	}

	switch field.Type {
	case template.FieldDropdown:
		validateDropdown(field.Dropdown(), fail)
	case template.FieldFile:
		validateFile(field.File(), fail)
	case template.FieldNumber:
		validateNumber(field.Number(), fail)
	case template.FieldText, template.FieldTextarea:
		validateText(field.Text(), fail)
	}

	return result
}

func validateDropdown(attrs *template.DropdownAttributes, fail func(string, ...any)) {
	if attrs == nil || len(attrs.Options) == 0 {
		fail("dropdown fields require at least one option")
		return
	}
	seen := make(map[string]struct{}, len(attrs.Options))
	var empty, duplicate bool
	for _, option := range attrs.Options {
		trimmed := strings.TrimSpace(option)
		if trimmed == "" {
			empty = true
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			duplicate = true
			continue
		}
		seen[key] = struct{}{}
	}
	if empty {
		fail("dropdown options must not be empty")
	}
	if duplicate {
		fail("dropdown options must be unique")
	}
}

func validateFile(attrs *template.FileAttributes, fail func(string, ...any)) {
	if attrs == nil {
		return
	}
	if attrs.MaxFiles != nil && *attrs.MaxFiles < 1 {
		fail("maxFiles must be at least 1")
	}
	if attrs.MaxFileSize != nil && *attrs.MaxFileSize < 1024 {
		fail("maxFileSize must be at least 1024 bytes")
	}
}

func validateNumber(attrs *template.NumberAttributes, fail func(string, ...any)) {
	if attrs == nil || attrs.Min == nil || attrs.Max == nil {
		return
	}
	if *attrs.Min >= *attrs.Max {
		fail("max must exceed min")
	}
}

func validateText(attrs *template.TextAttributes, fail func(string, ...any)) {
	if attrs == nil || attrs.MinLength == nil || attrs.MaxLength == nil {
		return
	}
	if *attrs.MinLength >= *attrs.MaxLength {
		fail("maxLength must exceed minLength")
	}
}
