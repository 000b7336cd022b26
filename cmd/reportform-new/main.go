// Command reportform-new walks through authoring a report template
// definition interactively and writes the result as YAML.
//
//	reportform-new -output incident.yaml -departments "Finance,HR,Operations"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-reportform/pkg/directory"
	"github.com/goliatone/go-reportform/pkg/template"
)

func main() {
	output := flag.String("output", "template.yaml", "definition file to write")
	workspace := flag.String("workspace", "default", "workspace id used for department lookup")
	departments := flag.String("departments", "", "comma-separated department list offered in prompts")
	flag.Parse()

	dir := directory.Static{}
	if *departments != "" {
		dir[*workspace] = splitList(*departments)
	}

	doc, err := buildDefinition(context.Background(), dir, *workspace)
	if err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			fmt.Fprintln(os.Stderr, "aborted")
			os.Exit(1)
		}
		log.Fatalf("authoring failed: %v", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		log.Fatalf("encode definition: %v", err)
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		log.Fatalf("write %s: %v", *output, err)
	}
	fmt.Printf("definition written to %s\n", *output)
}

func buildDefinition(ctx context.Context, dir directory.Directory, workspace string) (map[string]any, error) {
	doc := map[string]any{}

	name, err := askInput("Template name:", survey.WithValidator(survey.Required))
	if err != nil {
		return nil, err
	}
	doc["name"] = name

	description, err := askMultiline("Description (optional):")
	if err != nil {
		return nil, err
	}
	if description != "" {
		doc["description"] = description
	}

	category, err := askInput("Category (optional):")
	if err != nil {
		return nil, err
	}
	if category != "" {
		doc["category"] = category
	}

	status, err := askSelect("Initial status:", []string{
		string(template.StatusDraft), string(template.StatusActive),
	})
	if err != nil {
		return nil, err
	}
	doc["status"] = status

	access, err := buildAccess(ctx, dir, workspace)
	if err != nil {
		return nil, err
	}
	if access != nil {
		doc["departmentAccess"] = access
	}

	fields, err := buildFields()
	if err != nil {
		return nil, err
	}
	doc["fields"] = fields
	return doc, nil
}

func buildAccess(ctx context.Context, dir directory.Directory, workspace string) (map[string]any, error) {
	known, err := dir.ListDepartments(ctx, workspace)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}

	accessType, err := askSelect("Department access:", []string{
		string(template.AccessGlobal),
		string(template.AccessDepartmentSpecific),
		string(template.AccessMultiDepartment),
		string(template.AccessCustom),
	})
	if err != nil {
		return nil, err
	}

	access := map[string]any{"type": accessType}
	switch template.AccessType(accessType) {
	case template.AccessGlobal:
	case template.AccessDepartmentSpecific:
		owner, err := askDepartment("Owning department:", known)
		if err != nil {
			return nil, err
		}
		access["ownerDepartment"] = owner
	case template.AccessMultiDepartment:
		allowed, err := askDepartments("Allowed departments:", known)
		if err != nil {
			return nil, err
		}
		access["allowedDepartments"] = allowed
	case template.AccessCustom:
		allowed, err := askDepartments("Allowed departments (empty allows everyone):", known)
		if err != nil {
			return nil, err
		}
		if len(allowed) > 0 {
			access["allowedDepartments"] = allowed
		}
		restricted, err := askDepartments("Restricted departments (deny wins):", known)
		if err != nil {
			return nil, err
		}
		if len(restricted) > 0 {
			access["restrictedDepartments"] = restricted
		}
	}
	return access, nil
}

func buildFields() ([]map[string]any, error) {
	var fields []map[string]any
	typeOptions := make([]string, 0, len(template.FieldTypes()))
	for _, fieldType := range template.FieldTypes() {
		typeOptions = append(typeOptions, string(fieldType))
	}

	for {
		label, err := askInput(fmt.Sprintf("Field %d label:", len(fields)+1), survey.WithValidator(survey.Required))
		if err != nil {
			return nil, err
		}
		fieldType, err := askSelect("Field type:", typeOptions)
		if err != nil {
			return nil, err
		}
		required, err := askConfirm("Required?", false)
		if err != nil {
			return nil, err
		}

		field := map[string]any{
			"label":    label,
			"type":     fieldType,
			"required": required,
			"order":    len(fields) + 1,
		}
		if err := askTypeSpecific(field, template.FieldType(fieldType)); err != nil {
			return nil, err
		}
		fields = append(fields, field)

		more, err := askConfirm("Add another field?", true)
		if err != nil {
			return nil, err
		}
		if !more {
			return fields, nil
		}
	}
}

func askTypeSpecific(field map[string]any, fieldType template.FieldType) error {
	switch fieldType {
	case template.FieldDropdown:
		raw, err := askInput("Options (comma separated):", survey.WithValidator(survey.Required))
		if err != nil {
			return err
		}
		field["options"] = splitList(raw)
	case template.FieldNumber:
		min, err := askOptionalFloat("Minimum value (empty for none):")
		if err != nil {
			return err
		}
		max, err := askOptionalFloat("Maximum value (empty for none):")
		if err != nil {
			return err
		}
		validation := map[string]any{}
		if min != nil {
			validation["min"] = *min
		}
		if max != nil {
			validation["max"] = *max
		}
		if len(validation) > 0 {
			field["validation"] = validation
		}
	case template.FieldText, template.FieldTextarea:
		minLength, err := askOptionalInt("Minimum length (empty for none):")
		if err != nil {
			return err
		}
		maxLength, err := askOptionalInt("Maximum length (empty for none):")
		if err != nil {
			return err
		}
		validation := map[string]any{}
		if minLength != nil {
			validation["minLength"] = *minLength
		}
		if maxLength != nil {
			validation["maxLength"] = *maxLength
		}
		if len(validation) > 0 {
			field["validation"] = validation
		}
	case template.FieldFile:
		raw, err := askInput("Accepted file types (comma separated, empty for any):")
		if err != nil {
			return err
		}
		if raw != "" {
			field["acceptedFileTypes"] = splitList(raw)
		}
		maxFiles, err := askOptionalInt("Max files (empty for default):")
		if err != nil {
			return err
		}
		if maxFiles != nil {
			field["maxFiles"] = *maxFiles
		}
	}
	return nil
}

func askInput(message string, opts ...survey.AskOpt) (string, error) {
	var out string
	if err := survey.AskOne(&survey.Input{Message: message}, &out, opts...); err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func askMultiline(message string) (string, error) {
	var out string
	if err := survey.AskOne(&survey.Multiline{Message: message}, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func askConfirm(message string, defaultValue bool) (bool, error) {
	out := defaultValue
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: defaultValue}, &out); err != nil {
		return false, err
	}
	return out, nil
}

func askSelect(message string, options []string) (string, error) {
	var out string
	if err := survey.AskOne(&survey.Select{Message: message, Options: options}, &out); err != nil {
		return "", err
	}
	return out, nil
}

// askDepartment falls back to free text when the directory has no
// departments configured.
func askDepartment(message string, known []string) (string, error) {
	if len(known) == 0 {
		return askInput(message, survey.WithValidator(survey.Required))
	}
	return askSelect(message, known)
}

func askDepartments(message string, known []string) ([]string, error) {
	if len(known) == 0 {
		raw, err := askInput(message + " (comma separated)")
		if err != nil {
			return nil, err
		}
		if raw == "" {
			return nil, nil
		}
		return splitList(raw), nil
	}
	var out []string
	if err := survey.AskOne(&survey.MultiSelect{Message: message, Options: known}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func askOptionalInt(message string) (*int, error) {
	raw, err := askInput(message)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%q is not a whole number", raw)
	}
	return &value, nil
}

func askOptionalFloat(message string) (*float64, error) {
	raw, err := askInput(message)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", raw)
	}
	return &value, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
