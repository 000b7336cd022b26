package validation_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-reportform/pkg/template"
	"github.com/goliatone/go-reportform/pkg/testsupport"
	"github.com/goliatone/go-reportform/pkg/validation"
)

func TestValidateFieldCollectsEveryViolation(t *testing.T) {
	// A field can break several rules at once; all of them must be reported,
	// not just the first.
	field := template.Field{
		ID:         "f1",
		Label:      "  ",
		Type:       template.FieldDropdown,
		ColumnSpan: 5,
		Attributes: template.DropdownAttributes{},
	}

	result := validation.ValidateField(field)
	want := []string{
		"label is required",
		"columnSpan must be between 1 and 3",
		"dropdown fields require at least one option",
	}
	if diff := cmp.Diff(want, result.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateField(t *testing.T) {
	cases := []struct {
		name  string
		field template.Field
		want  []string
	}{
		{
			name:  "valid text field",
			field: template.Field{ID: "f1", Label: "Title", Type: template.FieldText, ColumnSpan: 2},
		},
		{
			name:  "missing type",
			field: template.Field{ID: "f1", Label: "Title"},
			want:  []string{"type is required"},
		},
		{
			name:  "unknown type",
			field: template.Field{ID: "f1", Label: "Title", Type: "signature"},
			want:  []string{`type "signature" is not a recognised field type`},
		},
		{
			name: "attributes for wrong type",
			field: template.Field{
				ID: "f1", Label: "Title", Type: template.FieldText,
				Attributes: template.DropdownAttributes{Options: []string{"a"}},
			},
			want: []string{`attributes do not match field type "text"`},
		},
		{
			name: "dropdown duplicate options",
			field: template.Field{
				ID: "f1", Label: "Severity", Type: template.FieldDropdown,
				Attributes: template.DropdownAttributes{Options: []string{"Low", " low "}},
			},
			want: []string{"dropdown options must be unique"},
		},
		{
			name: "dropdown empty option",
			field: template.Field{
				ID: "f1", Label: "Severity", Type: template.FieldDropdown,
				Attributes: template.DropdownAttributes{Options: []string{"Low", "  "}},
			},
			want: []string{"dropdown options must not be empty"},
		},
		{
			name: "file limits",
			field: template.Field{
				ID: "f1", Label: "Evidence", Type: template.FieldFile,
				Attributes: template.FileAttributes{
					MaxFiles:    testsupport.IntPtr(0),
					MaxFileSize: testsupport.Int64Ptr(512),
				},
			},
			want: []string{
				"maxFiles must be at least 1",
				"maxFileSize must be at least 1024 bytes",
			},
		},
		{
			name: "number min above max",
			field: template.Field{
				ID: "f1", Label: "Hours", Type: template.FieldNumber,
				Attributes: template.NumberAttributes{
					Min: testsupport.FloatPtr(10),
					Max: testsupport.FloatPtr(2),
				},
			},
			want: []string{"max must exceed min"},
		},
		{
			name: "text min length above max",
			field: template.Field{
				ID: "f1", Label: "Notes", Type: template.FieldTextarea,
				Attributes: template.TextAttributes{
					MinLength: testsupport.IntPtr(50),
					MaxLength: testsupport.IntPtr(10),
				},
			},
			want: []string{"maxLength must exceed minLength"},
		},
		{
			name: "number with only min is fine",
			field: template.Field{
				ID: "f1", Label: "Hours", Type: template.FieldNumber,
				Attributes: template.NumberAttributes{Min: testsupport.FloatPtr(0)},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := validation.ValidateField(tc.field)
			if diff := cmp.Diff(tc.want, result.Errors); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
			if result.Valid() != (len(tc.want) == 0) {
				t.Fatalf("Valid() = %v with %d errors", result.Valid(), len(result.Errors))
			}
		})
	}
}
