package template

import (
	"encoding/json"
	"fmt"
)

// FieldType enumerates the closed set of input kinds a template field can
// declare. Unknown values are rejected by the field validator.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldDropdown FieldType = "dropdown"
	FieldCheckbox FieldType = "checkbox"
	FieldFile     FieldType = "file"
)

// FieldTypes returns the closed set in declaration order, for UI choice lists
// and prompt flows.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldText, FieldTextarea, FieldNumber, FieldDate,
		FieldDropdown, FieldCheckbox, FieldFile,
	}
}

// Known reports whether the type belongs to the closed set.
func (t FieldType) Known() bool {
	switch t {
	case FieldText, FieldTextarea, FieldNumber, FieldDate, FieldDropdown, FieldCheckbox, FieldFile:
		return true
	}
	return false
}

// FieldAttributes is the type-specific portion of a field definition. Each
// variant carries only the settings that apply to its field type, so
// validation logic can switch on the concrete type instead of probing a bag
// of optional properties.
type FieldAttributes interface {
	appliesTo(FieldType) bool
}

// TextAttributes constrains text and textarea fields.
type TextAttributes struct {
	MinLength *int `json:"minLength,omitempty"`
	MaxLength *int `json:"maxLength,omitempty"`
}

func (TextAttributes) appliesTo(t FieldType) bool {
	return t == FieldText || t == FieldTextarea
}

// NumberAttributes constrains number fields.
type NumberAttributes struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (NumberAttributes) appliesTo(t FieldType) bool { return t == FieldNumber }

// DropdownAttributes carries the selectable options for dropdown fields.
type DropdownAttributes struct {
	Options []string `json:"options"`
}

func (DropdownAttributes) appliesTo(t FieldType) bool { return t == FieldDropdown }

// FileAttributes constrains file upload fields. MaxFileSize is in bytes.
type FileAttributes struct {
	AcceptedFileTypes []string `json:"acceptedFileTypes,omitempty"`
	MaxFiles          *int     `json:"maxFiles,omitempty"`
	MaxFileSize       *int64   `json:"maxFileSize,omitempty"`
}

func (FileAttributes) appliesTo(t FieldType) bool { return t == FieldFile }

// Field is one input definition inside a template. Order drives display sort;
// ColumnSpan (1 to 3) controls layout width. Attributes is nil for types without
// type-specific settings (date, checkbox) and holds the matching variant
// otherwise.
type Field struct {
	ID         string
	Label      string
	Type       FieldType
	Required   bool
	Order      int
	ColumnSpan int
	Attributes FieldAttributes
}

// AttributesMatchType reports whether the attached attribute variant belongs
// to the declared field type. A nil Attributes always matches.
func (f Field) AttributesMatchType() bool {
	if f.Attributes == nil {
		return true
	}
	return f.Attributes.appliesTo(f.Type)
}

// Text returns the text/textarea attributes, or nil when absent.
func (f Field) Text() *TextAttributes {
	if attrs, ok := f.Attributes.(TextAttributes); ok {
		return &attrs
	}
	return nil
}

// Number returns the number attributes, or nil when absent.
func (f Field) Number() *NumberAttributes {
	if attrs, ok := f.Attributes.(NumberAttributes); ok {
		return &attrs
	}
	return nil
}

// Dropdown returns the dropdown attributes, or nil when absent.
func (f Field) Dropdown() *DropdownAttributes {
	if attrs, ok := f.Attributes.(DropdownAttributes); ok {
		return &attrs
	}
	return nil
}

// File returns the file attributes, or nil when absent.
func (f Field) File() *FileAttributes {
	if attrs, ok := f.Attributes.(FileAttributes); ok {
		return &attrs
	}
	return nil
}

// fieldDoc is the flat wire shape shared with the original product: the
// type-specific attributes appear as optional top-level keys next to the
// common ones, with numeric and length bounds nested under "validation".
type fieldDoc struct {
	ID                string         `json:"id"`
	Label             string         `json:"label"`
	Type              FieldType      `json:"type"`
	Required          bool           `json:"required"`
	Order             int            `json:"order"`
	ColumnSpan        int            `json:"columnSpan"`
	Options           []string       `json:"options,omitempty"`
	Validation        *validationDoc `json:"validation,omitempty"`
	AcceptedFileTypes []string       `json:"acceptedFileTypes,omitempty"`
	MaxFiles          *int           `json:"maxFiles,omitempty"`
	MaxFileSize       *int64         `json:"maxFileSize,omitempty"`
}

type validationDoc struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
}

// MarshalJSON flattens the attribute variant into the wire shape.
func (f Field) MarshalJSON() ([]byte, error) {
	doc := fieldDoc{
		ID:         f.ID,
		Label:      f.Label,
		Type:       f.Type,
		Required:   f.Required,
		Order:      f.Order,
		ColumnSpan: f.ColumnSpan,
	}
	switch attrs := f.Attributes.(type) {
	case nil:
	case TextAttributes:
		if attrs.MinLength != nil || attrs.MaxLength != nil {
			doc.Validation = &validationDoc{MinLength: attrs.MinLength, MaxLength: attrs.MaxLength}
		}
	case NumberAttributes:
		if attrs.Min != nil || attrs.Max != nil {
			doc.Validation = &validationDoc{Min: attrs.Min, Max: attrs.Max}
		}
	case DropdownAttributes:
		doc.Options = attrs.Options
	case FileAttributes:
		doc.AcceptedFileTypes = attrs.AcceptedFileTypes
		doc.MaxFiles = attrs.MaxFiles
		doc.MaxFileSize = attrs.MaxFileSize
	default:
		return nil, fmt.Errorf("template: unsupported attribute variant %T", f.Attributes)
	}
	return json.Marshal(doc)
}

// UnmarshalJSON rebuilds the attribute variant matching the declared type.
// Attribute keys for other types are ignored, mirroring the permissive wire
// format; the validator flags mismatches when they matter.
func (f *Field) UnmarshalJSON(data []byte) error {
	var doc fieldDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("template: decode field: %w", err)
	}
	*f = Field{
		ID:         doc.ID,
		Label:      doc.Label,
		Type:       doc.Type,
		Required:   doc.Required,
		Order:      doc.Order,
		ColumnSpan: doc.ColumnSpan,
	}
	switch doc.Type {
	case FieldText, FieldTextarea:
		if doc.Validation != nil && (doc.Validation.MinLength != nil || doc.Validation.MaxLength != nil) {
			f.Attributes = TextAttributes{MinLength: doc.Validation.MinLength, MaxLength: doc.Validation.MaxLength}
		}
	case FieldNumber:
		if doc.Validation != nil && (doc.Validation.Min != nil || doc.Validation.Max != nil) {
			f.Attributes = NumberAttributes{Min: doc.Validation.Min, Max: doc.Validation.Max}
		}
	case FieldDropdown:
		f.Attributes = DropdownAttributes{Options: doc.Options}
	case FieldFile:
		if len(doc.AcceptedFileTypes) > 0 || doc.MaxFiles != nil || doc.MaxFileSize != nil {
			f.Attributes = FileAttributes{
				AcceptedFileTypes: doc.AcceptedFileTypes,
				MaxFiles:          doc.MaxFiles,
				MaxFileSize:       doc.MaxFileSize,
			}
		}
	}
	return nil
}

// CloneField returns a deep copy of the field, duplicating any slices or
// pointers held by the attribute variant.
func CloneField(f Field) Field {
	out := f
	switch attrs := f.Attributes.(type) {
	case TextAttributes:
		out.Attributes = TextAttributes{
			MinLength: cloneIntPtr(attrs.MinLength),
			MaxLength: cloneIntPtr(attrs.MaxLength),
		}
	case NumberAttributes:
		out.Attributes = NumberAttributes{
			Min: cloneFloatPtr(attrs.Min),
			Max: cloneFloatPtr(attrs.Max),
		}
	case DropdownAttributes:
		out.Attributes = DropdownAttributes{Options: append([]string(nil), attrs.Options...)}
	case FileAttributes:
		out.Attributes = FileAttributes{
			AcceptedFileTypes: append([]string(nil), attrs.AcceptedFileTypes...),
			MaxFiles:          cloneIntPtr(attrs.MaxFiles),
			MaxFileSize:       cloneInt64Ptr(attrs.MaxFileSize),
		}
	}
	return out
}

func cloneIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneInt64Ptr(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneFloatPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
