package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-reportform/pkg/template"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
)

// Result is the outcome of validating a whole template. Template holds
// template-level violations keyed by the offending attribute ("name",
// "description", "fields"); Fields holds per-field violations keyed by field
// id. Both maps are nil when empty.
type Result struct {
	Template map[string]string
	Fields   map[string][]string
}

// Valid reports whether both error maps are empty.
func (r Result) Valid() bool {
	return len(r.Template) == 0 && len(r.Fields) == 0
}

// Err returns a *Error carrying the maps, or nil when the result is valid.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &Error{Template: r.Template, Fields: r.Fields}
}

// Option adjusts template validation for specific lifecycle contexts.
type Option func(*options)

type options struct {
	allowEmptyFields bool
}

// AllowEmptyFields skips the at-least-one-field rule. Draft templates may be
// empty while they are being authored; everything else still applies.
func AllowEmptyFields() Option {
	return func(o *options) { o.allowEmptyFields = true }
}

// ValidateTemplate checks template-level rules and runs ValidateField over
// every field. All violations are reported, not just the first.
func ValidateTemplate(tpl template.ReportTemplate, opts ...Option) Result {
	var cfg options
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	result := Result{}
	setTemplateErr := func(key, message string) {
		if result.Template == nil {
			result.Template = make(map[string]string)
		}
		if _, exists := result.Template[key]; !exists {
			result.Template[key] = message
		}
	}

	name := strings.TrimSpace(tpl.Name)
	switch {
	case name == "":
		setTemplateErr("name", "name is required")
	case len([]rune(name)) > maxNameLength:
		setTemplateErr("name", fmt.Sprintf("name must be %d characters or fewer", maxNameLength))
	}

	if len([]rune(tpl.Description)) > maxDescriptionLength {
		setTemplateErr("description", fmt.Sprintf("description must be %d characters or fewer", maxDescriptionLength))
	}

	if len(tpl.Fields) == 0 {
		if !cfg.allowEmptyFields {
			setTemplateErr("fields", "at least one field required")
		}
	} else if hasDuplicateLabels(tpl.Fields) {
		setTemplateErr("fields", "field labels must be unique")
	}

	for index, field := range tpl.Fields {
		fieldResult := ValidateField(field)
		if fieldResult.Valid() {
			continue
		}
		if result.Fields == nil {
			result.Fields = make(map[string][]string)
		}
		key := field.ID
		if key == "" {
			// Drafts may not have ids yet; fall back to a positional key so
			// no violation is silently dropped.
			key = fmt.Sprintf("field[%d]", index)
		}
		result.Fields[key] = append(result.Fields[key], fieldResult.Errors...)
	}

	return result
}

func hasDuplicateLabels(fields []template.Field) bool {
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		label := strings.ToLower(strings.TrimSpace(field.Label))
		if label == "" {
			continue
		}
		if _, exists := seen[label]; exists {
			return true
		}
		seen[label] = struct{}{}
	}
	return false
}

// Error is returned by lifecycle operations when a template fails
// validation. It carries both error maps so callers can render every
// violation at once.
type Error struct {
	Template map[string]string
	Fields   map[string][]string
}

// Error summarises the violations deterministically, template-level messages
// first then per-field messages sorted by field id.
func (e *Error) Error() string {
	var parts []string
	for _, key := range sortedKeys(e.Template) {
		parts = append(parts, fmt.Sprintf("%s: %s", key, e.Template[key]))
	}
	fieldIDs := make([]string, 0, len(e.Fields))
	for id := range e.Fields {
		fieldIDs = append(fieldIDs, id)
	}
	sort.Strings(fieldIDs)
	for _, id := range fieldIDs {
		parts = append(parts, fmt.Sprintf("field %s: %s", id, strings.Join(e.Fields[id], "; ")))
	}
	if len(parts) == 0 {
		return "validation: template is invalid"
	}
	return "validation: " + strings.Join(parts, "; ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
