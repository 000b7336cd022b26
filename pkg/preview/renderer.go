// Package preview renders a report template into a static HTML form for
// review screens: fields ordered and spanned the way the authoring UI lays
// them out, required markers, dropdown options, and type-specific input
// constraints expressed as native HTML attributes. Descriptions pass through
// an HTML sanitiser; theme manifests contribute CSS custom properties.
package preview

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-reportform/pkg/template"
)

const defaultTemplateName = "form"

// Option customises the renderer.
type Option func(*Renderer)

// WithRenderer injects a template engine. Defaults to the built-in
// pongo2-backed engine over the embedded templates.
func WithRenderer(engine TemplateRenderer) Option {
	return func(r *Renderer) {
		if engine != nil {
			r.engine = engine
		}
	}
}

// WithTemplateName overrides which template renders the form.
func WithTemplateName(name string) Option {
	return func(r *Renderer) {
		trimmed := strings.TrimSpace(name)
		if trimmed != "" {
			r.templateName = trimmed
		}
	}
}

// WithTheme applies a go-theme manifest (and optional variant) to the
// preview: tokens become CSS custom properties on the form element.
func WithTheme(manifest *theme.Manifest, variant string) Option {
	return func(r *Renderer) {
		r.manifest = manifest
		r.variant = variant
	}
}

// Renderer produces HTML previews. Construct with New.
type Renderer struct {
	engine       TemplateRenderer
	templateName string
	manifest     *theme.Manifest
	variant      string
}

// New builds a Renderer, wiring the built-in engine unless one is injected.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{templateName: defaultTemplateName}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.engine == nil {
		engine, err := NewEngine()
		if err != nil {
			return nil, err
		}
		r.engine = engine
	}
	return r, nil
}

// Render produces the HTML preview for the template. Fields render in Order
// sort; the template itself is not re-validated here.
func (r *Renderer) Render(tpl template.ReportTemplate) ([]byte, error) {
	if r == nil || r.engine == nil {
		return nil, errors.New("preview: renderer not initialised")
	}

	fields := make([]template.Field, len(tpl.Fields))
	copy(fields, tpl.Fields)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Order < fields[j].Order })

	views := make([]map[string]any, 0, len(fields))
	for _, field := range fields {
		views = append(views, fieldView(field))
	}

	data := map[string]any{
		"id":          tpl.ID,
		"name":        tpl.Name,
		"description": sanitizeDescription(tpl.Description),
		"status":      string(tpl.Status),
		"version":     tpl.Version,
		"fields":      views,
		"css_vars":    r.cssVars(),
	}

	out, err := r.engine.RenderTemplate(r.templateName, data)
	if err != nil {
		return nil, fmt.Errorf("preview: render template %q: %w", tpl.ID, err)
	}
	return []byte(out), nil
}

func fieldView(field template.Field) map[string]any {
	view := map[string]any{
		"id":       field.ID,
		"label":    field.Label,
		"type":     string(field.Type),
		"required": field.Required,
		"span":     columnSpan(field),
		"control":  "input",
	}

	switch field.Type {
	case template.FieldTextarea:
		view["control"] = "textarea"
		view["attrs"] = textAttrs(field.Text())
	case template.FieldText:
		view["input_type"] = "text"
		view["attrs"] = textAttrs(field.Text())
	case template.FieldNumber:
		view["input_type"] = "number"
		view["attrs"] = numberAttrs(field.Number())
	case template.FieldDate:
		view["input_type"] = "date"
		view["attrs"] = ""
	case template.FieldCheckbox:
		view["input_type"] = "checkbox"
		view["attrs"] = ""
	case template.FieldFile:
		view["input_type"] = "file"
		view["attrs"] = fileAttrs(field.File())
	case template.FieldDropdown:
		view["control"] = "select"
		if attrs := field.Dropdown(); attrs != nil {
			view["options"] = attrs.Options
		}
	default:
		view["input_type"] = "text"
		view["attrs"] = ""
	}
	return view
}

func columnSpan(field template.Field) int {
	if field.ColumnSpan >= 1 && field.ColumnSpan <= 3 {
		return field.ColumnSpan
	}
	return 1
}

func textAttrs(attrs *template.TextAttributes) string {
	if attrs == nil {
		return ""
	}
	var out strings.Builder
	if attrs.MinLength != nil {
		fmt.Fprintf(&out, ` minlength="%d"`, *attrs.MinLength)
	}
	if attrs.MaxLength != nil {
		fmt.Fprintf(&out, ` maxlength="%d"`, *attrs.MaxLength)
	}
	return out.String()
}

func numberAttrs(attrs *template.NumberAttributes) string {
	if attrs == nil {
		return ""
	}
	var out strings.Builder
	if attrs.Min != nil {
		fmt.Fprintf(&out, ` min="%s"`, strconv.FormatFloat(*attrs.Min, 'f', -1, 64))
	}
	if attrs.Max != nil {
		fmt.Fprintf(&out, ` max="%s"`, strconv.FormatFloat(*attrs.Max, 'f', -1, 64))
	}
	return out.String()
}

func fileAttrs(attrs *template.FileAttributes) string {
	if attrs == nil {
		return ""
	}
	var out strings.Builder
	if len(attrs.AcceptedFileTypes) > 0 {
		out.WriteString(` accept="` + html.EscapeString(strings.Join(attrs.AcceptedFileTypes, ",")) + `"`)
	}
	if attrs.MaxFiles != nil && *attrs.MaxFiles > 1 {
		out.WriteString(" multiple")
	}
	if attrs.MaxFileSize != nil {
		fmt.Fprintf(&out, ` data-max-file-size="%d"`, *attrs.MaxFileSize)
	}
	return out.String()
}

// cssVars turns the theme tokens (variant tokens overriding base ones) into
// an inline custom-property list.
func (r *Renderer) cssVars() string {
	if r.manifest == nil {
		return ""
	}
	tokens := make(map[string]string, len(r.manifest.Tokens))
	for name, value := range r.manifest.Tokens {
		tokens[name] = value
	}
	if r.variant != "" {
		if variant, ok := r.manifest.Variants[r.variant]; ok {
			for name, value := range variant.Tokens {
				tokens[name] = value
			}
		}
	}
	if len(tokens) == 0 {
		return ""
	}

	names := make([]string, 0, len(tokens))
	for name := range tokens {
		names = append(names, name)
	}
	sort.Strings(names)

	var out strings.Builder
	for _, name := range names {
		out.WriteString("--" + name + ":" + tokens[name] + ";")
	}
	return out.String()
}
