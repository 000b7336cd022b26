// Package testsupport holds fixture helpers shared by the package tests:
// canonical template values, definition-file loading, and UPDATE_GOLDENS
// gated golden rewrites.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-reportform/pkg/definition"
	"github.com/goliatone/go-reportform/pkg/lifecycle"
	"github.com/goliatone/go-reportform/pkg/template"
)

// FixedTime is the deterministic clock value fixtures use.
var FixedTime = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

// SampleFields returns a small valid field set covering the common types.
func SampleFields() []template.Field {
	return []template.Field{
		{
			ID:         "field-title",
			Label:      "Title",
			Type:       template.FieldText,
			Required:   true,
			Order:      1,
			ColumnSpan: 2,
			Attributes: template.TextAttributes{MaxLength: IntPtr(120)},
		},
		{
			ID:         "field-severity",
			Label:      "Severity",
			Type:       template.FieldDropdown,
			Required:   true,
			Order:      2,
			ColumnSpan: 1,
			Attributes: template.DropdownAttributes{Options: []string{"Low", "Medium", "High"}},
		},
		{
			ID:         "field-notes",
			Label:      "Notes",
			Type:       template.FieldTextarea,
			Order:      3,
			ColumnSpan: 3,
		},
	}
}

// SampleTemplate returns a persisted-shape template owned by the given
// workspace, at version 1 with no usage.
func SampleTemplate(workspaceID string) template.ReportTemplate {
	return template.ReportTemplate{
		ID:          "tpl-sample",
		WorkspaceID: workspaceID,
		Name:        "Incident Report",
		Description: "Standard incident intake form",
		Category:    "operations",
		Fields:      SampleFields(),
		Visibility:  template.VisibilityPublic,
		Status:      template.StatusActive,
		Version:     1,
		CreatedBy:   "user-1",
		CreatedAt:   FixedTime,
	}
}

// MustParseDefinition loads a definition fixture or fails the test.
func MustParseDefinition(t *testing.T, path string) lifecycle.CreateRequest {
	t.Helper()

	req, err := definition.ParseFile(path)
	if err != nil {
		t.Fatalf("parse definition %s: %v", path, err)
	}
	return req
}

// MustReadFile reads a fixture file or fails the test.
func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return data
}

// WriteGolden rewrites a golden file when UPDATE_GOLDENS is set, creating
// parent directories as needed.
func WriteGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden %s: %v", path, err)
	}
}
