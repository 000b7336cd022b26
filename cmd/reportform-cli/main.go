// Command reportform-cli validates, previews, and bootstraps report template
// definition files.
//
//	reportform-cli -action validate -definition incident.yaml
//	reportform-cli -action preview -definition incident.yaml -output preview.html
//	reportform-cli -action import -source openapi.json -operation createIncident
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-reportform/pkg/definition"
	"github.com/goliatone/go-reportform/pkg/importer"
	"github.com/goliatone/go-reportform/pkg/lifecycle"
	"github.com/goliatone/go-reportform/pkg/preview"
	"github.com/goliatone/go-reportform/pkg/template"
	"github.com/goliatone/go-reportform/pkg/validation"
)

func main() {
	action := flag.String("action", "validate", "validate | preview | import")
	definitionPath := flag.String("definition", "", "template definition file (YAML or JSON)")
	source := flag.String("source", "", "OpenAPI document path (import action)")
	operation := flag.String("operation", "", "OpenAPI operation id (import action)")
	output := flag.String("output", "", "output file (stdout if empty)")
	flag.Parse()

	switch *action {
	case "validate":
		runValidate(*definitionPath)
	case "preview":
		runPreview(*definitionPath, *output)
	case "import":
		runImport(*source, *operation, *output)
	default:
		log.Fatalf("unknown action %q", *action)
	}
}

func runValidate(path string) {
	tpl := loadTemplate(path)
	result := validate(tpl)
	if result.Valid() {
		fmt.Printf("%s: ok (%d fields)\n", path, len(tpl.Fields))
		return
	}
	printViolations(result)
	os.Exit(1)
}

func runPreview(path, output string) {
	tpl := loadTemplate(path)
	if result := validate(tpl); !result.Valid() {
		printViolations(result)
		os.Exit(1)
	}

	renderer, err := preview.New()
	if err != nil {
		log.Fatalf("initialise renderer: %v", err)
	}
	html, err := renderer.Render(tpl)
	if err != nil {
		log.Fatalf("render preview: %v", err)
	}
	writeOutput(output, html)
}

func runImport(source, operation, output string) {
	if source == "" || operation == "" {
		log.Fatalf("import requires -source and -operation")
	}
	payload, err := os.ReadFile(source)
	if err != nil {
		log.Fatalf("read %s: %v", source, err)
	}

	fields, err := importer.New().FieldsFromOperation(context.Background(), payload, operation)
	if err != nil {
		log.Fatalf("import fields: %v", err)
	}

	doc := definitionDoc(operation, fields)
	data, err := yaml.Marshal(doc)
	if err != nil {
		log.Fatalf("encode definition: %v", err)
	}
	writeOutput(output, data)
}

func loadTemplate(path string) template.ReportTemplate {
	if path == "" {
		log.Fatalf("-definition is required")
	}
	req, err := definition.ParseFile(path)
	if err != nil {
		log.Fatalf("parse definition: %v", err)
	}
	return templateFromRequest(req)
}

// templateFromRequest shapes a parsed definition for validation and preview
// without going through a store: synthetic ids, defaulted spans.
func templateFromRequest(req lifecycle.CreateRequest) template.ReportTemplate {
	tpl := template.ReportTemplate{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Fields:      req.Fields,
		Status:      req.Status,
		Version:     1,
	}
	if tpl.Status == "" {
		tpl.Status = template.StatusActive
	}
	for i := range tpl.Fields {
		if tpl.Fields[i].ID == "" {
			tpl.Fields[i].ID = fmt.Sprintf("field-%d", i+1)
		}
		if tpl.Fields[i].ColumnSpan == 0 {
			tpl.Fields[i].ColumnSpan = 1
		}
	}
	tpl.SortFieldsByOrder()
	return tpl
}

func validate(tpl template.ReportTemplate) validation.Result {
	var opts []validation.Option
	if tpl.Status == template.StatusDraft {
		opts = append(opts, validation.AllowEmptyFields())
	}
	return validation.ValidateTemplate(tpl, opts...)
}

func printViolations(result validation.Result) {
	keys := make([]string, 0, len(result.Template))
	for key := range result.Template {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(os.Stderr, "template %s: %s\n", key, result.Template[key])
	}

	fieldIDs := make([]string, 0, len(result.Fields))
	for id := range result.Fields {
		fieldIDs = append(fieldIDs, id)
	}
	sort.Strings(fieldIDs)
	for _, id := range fieldIDs {
		fmt.Fprintf(os.Stderr, "field %s: %s\n", id, strings.Join(result.Fields[id], "; "))
	}
}

func writeOutput(output string, data []byte) {
	if output == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		log.Fatalf("write output: %v", err)
	}
	fmt.Printf("written to %s\n", output)
}

// definitionDoc builds a YAML-ready definition skeleton from imported
// fields.
func definitionDoc(operation string, fields []template.Field) map[string]any {
	fieldDocs := make([]map[string]any, 0, len(fields))
	for _, field := range fields {
		doc := map[string]any{
			"label":    field.Label,
			"type":     string(field.Type),
			"required": field.Required,
			"order":    field.Order,
		}
		if attrs := field.Dropdown(); attrs != nil {
			doc["options"] = attrs.Options
		}
		if attrs := field.Number(); attrs != nil {
			validationDoc := map[string]any{}
			if attrs.Min != nil {
				validationDoc["min"] = *attrs.Min
			}
			if attrs.Max != nil {
				validationDoc["max"] = *attrs.Max
			}
			doc["validation"] = validationDoc
		}
		if attrs := field.Text(); attrs != nil {
			validationDoc := map[string]any{}
			if attrs.MinLength != nil {
				validationDoc["minLength"] = *attrs.MinLength
			}
			if attrs.MaxLength != nil {
				validationDoc["maxLength"] = *attrs.MaxLength
			}
			doc["validation"] = validationDoc
		}
		fieldDocs = append(fieldDocs, doc)
	}
	return map[string]any{
		"name":   importer.Label(operation),
		"status": string(template.StatusDraft),
		"fields": fieldDocs,
	}
}
