// Package importer derives template field drafts from an OpenAPI document,
// so a workspace can bootstrap a report template from an existing API
// payload instead of authoring every field by hand. The mapping is lossy by
// design: only constraints the template model understands survive.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-reportform/pkg/template"
)

var (
	errEmptyDocument     = errors.New("importer: document payload is empty")
	errOperationNotFound = errors.New("importer: operation not found")
	errNoRequestSchema   = errors.New("importer: operation has no object request schema")
)

// textareaThreshold is the max length above which a string property becomes
// a textarea instead of a single-line text input.
const textareaThreshold = 255

// Option configures the importer.
type Option func(*Importer)

// WithLabeler overrides how property names become field labels.
func WithLabeler(labeler func(string) string) Option {
	return func(i *Importer) {
		if labeler != nil {
			i.labeler = labeler
		}
	}
}

// Importer converts OpenAPI request schemas into template field drafts.
type Importer struct {
	labeler func(string) string
}

// New constructs an Importer with the default labeler.
func New(options ...Option) *Importer {
	imp := &Importer{labeler: Label}
	for _, opt := range options {
		if opt != nil {
			opt(imp)
		}
	}
	return imp
}

// FieldsFromOperation loads the OpenAPI payload, locates the operation by
// id, and maps its request body schema into field drafts ordered by property
// name. The returned fields carry no ids; the lifecycle manager assigns them
// on create.
func (i *Importer) FieldsFromOperation(ctx context.Context, payload []byte, operationID string) ([]template.Field, error) {
	if len(payload) == 0 {
		return nil, errEmptyDocument
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(payload)
	if err != nil {
		return nil, fmt.Errorf("importer: load document: %w", err)
	}

	operation := findOperation(spec, operationID)
	if operation == nil {
		return nil, fmt.Errorf("%w: %q", errOperationNotFound, operationID)
	}

	schema := requestSchema(operation)
	if schema == nil || len(schema.Properties) == 0 {
		return nil, fmt.Errorf("%w: %q", errNoRequestSchema, operationID)
	}

	return i.fieldsFromSchema(schema), nil
}

func (i *Importer) fieldsFromSchema(schema *openapi3.Schema) []template.Field {
	required := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = struct{}{}
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var fields []template.Field
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		field, ok := i.fieldFromProperty(name, ref.Value)
		if !ok {
			continue
		}
		if _, isRequired := required[name]; isRequired {
			field.Required = true
		}
		field.Order = len(fields) + 1
		field.ColumnSpan = 1
		fields = append(fields, field)
	}
	return fields
}

// fieldFromProperty maps one schema property. Object and array properties
// are skipped: the flat field model has no place for them.
func (i *Importer) fieldFromProperty(name string, prop *openapi3.Schema) (template.Field, bool) {
	field := template.Field{Label: i.labeler(name)}

	if len(prop.Enum) > 0 {
		options := make([]string, 0, len(prop.Enum))
		for _, value := range prop.Enum {
			options = append(options, fmt.Sprintf("%v", value))
		}
		field.Type = template.FieldDropdown
		field.Attributes = template.DropdownAttributes{Options: options}
		return field, true
	}

	switch schemaType(prop) {
	case "boolean":
		field.Type = template.FieldCheckbox
	case "number", "integer":
		field.Type = template.FieldNumber
		if prop.Min != nil || prop.Max != nil {
			attrs := template.NumberAttributes{}
			if prop.Min != nil {
				min := *prop.Min
				attrs.Min = &min
			}
			if prop.Max != nil {
				max := *prop.Max
				attrs.Max = &max
			}
			field.Attributes = attrs
		}
	case "string":
		switch prop.Format {
		case "date", "date-time":
			field.Type = template.FieldDate
		case "binary", "byte":
			field.Type = template.FieldFile
		default:
			field.Type = template.FieldText
			if prop.MaxLength != nil && *prop.MaxLength > textareaThreshold {
				field.Type = template.FieldTextarea
			}
			attrs := template.TextAttributes{}
			if prop.MinLength != 0 {
				minLength := int(prop.MinLength)
				attrs.MinLength = &minLength
			}
			if prop.MaxLength != nil {
				maxLength := int(*prop.MaxLength)
				attrs.MaxLength = &maxLength
			}
			if attrs.MinLength != nil || attrs.MaxLength != nil {
				field.Attributes = attrs
			}
		}
	default:
		return template.Field{}, false
	}
	return field, true
}

func findOperation(spec *openapi3.T, operationID string) *openapi3.Operation {
	if spec.Paths == nil {
		return nil
	}
	for _, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for _, operation := range item.Operations() {
			if operation != nil && operation.OperationID == operationID {
				return operation
			}
		}
	}
	return nil
}

func requestSchema(operation *openapi3.Operation) *openapi3.Schema {
	if operation.RequestBody == nil || operation.RequestBody.Value == nil {
		return nil
	}
	content := operation.RequestBody.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func schemaType(schema *openapi3.Schema) string {
	if schema.Type == nil {
		return ""
	}
	values := schema.Type.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Label converts a property name into a display label, splitting snake and
// camel case and title-casing each word.
func Label(name string) string {
	if name == "" {
		return ""
	}
	var words []string
	for _, chunk := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	}) {
		words = append(words, splitCamel(chunk)...)
	}
	for i, word := range words {
		lower := strings.ToLower(word)
		words[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(words, " ")
}

func splitCamel(input string) []string {
	var words []string
	start := 0
	runes := []rune(input)
	for i := 1; i < len(runes); i++ {
		prev, curr := runes[i-1], runes[i]
		boundary := (isLower(prev) && isUpper(curr)) ||
			(isLetter(prev) && isDigit(curr)) ||
			(isDigit(prev) && isLetter(curr))
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		words = append(words, string(runes[start:]))
	}
	return words
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }
