// Package definition parses the YAML/JSON authoring format for report
// templates. A definition file holds one template: name, metadata, access
// configuration, and the field list with type-specific blocks. Parsing is
// strict about which blocks a field type may carry; semantic rules (label
// uniqueness, bound ordering) stay with pkg/validation so both loaders and
// API callers share the same grammar.
package definition

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-reportform/pkg/lifecycle"
	"github.com/goliatone/go-reportform/pkg/template"
)

// Definition pairs a parsed create request with the file it came from.
type Definition struct {
	Path    string
	Request lifecycle.CreateRequest
}

type documentFile struct {
	Name               string         `json:"name" yaml:"name"`
	Description        string         `json:"description" yaml:"description"`
	Category           string         `json:"category" yaml:"category"`
	Department         string         `json:"department" yaml:"department"`
	Tags               []string       `json:"tags" yaml:"tags"`
	Status             string         `json:"status" yaml:"status"`
	Visibility         string         `json:"visibility" yaml:"visibility"`
	AllowedRoles       []string       `json:"allowedRoles" yaml:"allowedRoles"`
	AllowedDepartments []string       `json:"allowedDepartments" yaml:"allowedDepartments"`
	Access             *accessFile    `json:"departmentAccess" yaml:"departmentAccess"`
	Settings           map[string]any `json:"settings" yaml:"settings"`
	Fields             []fieldFile    `json:"fields" yaml:"fields"`
}

type accessFile struct {
	Type                  string   `json:"type" yaml:"type"`
	OwnerDepartment       string   `json:"ownerDepartment" yaml:"ownerDepartment"`
	AllowedDepartments    []string `json:"allowedDepartments" yaml:"allowedDepartments"`
	RestrictedDepartments []string `json:"restrictedDepartments" yaml:"restrictedDepartments"`
}

type fieldFile struct {
	ID                string          `json:"id" yaml:"id"`
	Label             string          `json:"label" yaml:"label"`
	Type              string          `json:"type" yaml:"type"`
	Required          bool            `json:"required" yaml:"required"`
	Order             int             `json:"order" yaml:"order"`
	ColumnSpan        int             `json:"columnSpan" yaml:"columnSpan"`
	Options           []string        `json:"options" yaml:"options"`
	Validation        *validationFile `json:"validation" yaml:"validation"`
	AcceptedFileTypes []string        `json:"acceptedFileTypes" yaml:"acceptedFileTypes"`
	MaxFiles          *int            `json:"maxFiles" yaml:"maxFiles"`
	MaxFileSize       *int64          `json:"maxFileSize" yaml:"maxFileSize"`
}

type validationFile struct {
	Min       *float64 `json:"min" yaml:"min"`
	Max       *float64 `json:"max" yaml:"max"`
	MinLength *int     `json:"minLength" yaml:"minLength"`
	MaxLength *int     `json:"maxLength" yaml:"maxLength"`
}

// Parse decodes one definition payload. The source path is used in error
// messages and to pick the decoder (JSON for .json, YAML otherwise).
func Parse(data []byte, source string) (lifecycle.CreateRequest, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return lifecycle.CreateRequest{}, fmt.Errorf("definition: file %s is empty", source)
	}

	var doc documentFile
	if strings.ToLower(filepath.Ext(source)) == ".json" {
		if err := json.Unmarshal(data, &doc); err != nil {
			return lifecycle.CreateRequest{}, fmt.Errorf("definition: parse %s: %w", source, err)
		}
	} else if err := yaml.Unmarshal(data, &doc); err != nil {
		return lifecycle.CreateRequest{}, fmt.Errorf("definition: parse %s: %w", source, err)
	}

	return doc.toRequest(source)
}

// ParseFile reads and parses a definition from disk.
func ParseFile(path string) (lifecycle.CreateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return lifecycle.CreateRequest{}, fmt.Errorf("definition: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadFS walks the filesystem and parses every .json/.yaml/.yml file into a
// definition, in walk order.
func LoadFS(fsys fs.FS) ([]Definition, error) {
	if fsys == nil {
		return nil, nil
	}
	var out []Definition
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("definition: read %s: %w", path, err)
		}
		req, err := Parse(data, path)
		if err != nil {
			return err
		}
		out = append(out, Definition{Path: path, Request: req})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func (doc documentFile) toRequest(source string) (lifecycle.CreateRequest, error) {
	req := lifecycle.CreateRequest{
		Name:               doc.Name,
		Description:        doc.Description,
		Category:           doc.Category,
		Department:         doc.Department,
		Tags:               doc.Tags,
		Visibility:         template.Visibility(doc.Visibility),
		AllowedDepartments: doc.AllowedDepartments,
		Settings:           doc.Settings,
		Status:             template.Status(doc.Status),
	}
	for _, role := range doc.AllowedRoles {
		req.AllowedRoles = append(req.AllowedRoles, template.Role(role))
	}
	if doc.Access != nil {
		req.DepartmentAccess = &template.DepartmentAccess{
			Type:                  template.AccessType(doc.Access.Type),
			OwnerDepartment:       doc.Access.OwnerDepartment,
			AllowedDepartments:    doc.Access.AllowedDepartments,
			RestrictedDepartments: doc.Access.RestrictedDepartments,
		}
	}

	explicitOrder := false
	for _, field := range doc.Fields {
		if field.Order != 0 {
			explicitOrder = true
			break
		}
	}

	for index, field := range doc.Fields {
		converted, err := field.toField(source)
		if err != nil {
			return lifecycle.CreateRequest{}, err
		}
		if !explicitOrder {
			converted.Order = index + 1
		}
		req.Fields = append(req.Fields, converted)
	}
	return req, nil
}

func (f fieldFile) toField(source string) (template.Field, error) {
	out := template.Field{
		ID:         f.ID,
		Label:      f.Label,
		Type:       template.FieldType(f.Type),
		Required:   f.Required,
		Order:      f.Order,
		ColumnSpan: f.ColumnSpan,
	}

	reject := func(block string) error {
		return fmt.Errorf("definition: file %s field %q: %s does not apply to type %q", source, f.Label, block, f.Type)
	}

	switch out.Type {
	case template.FieldDropdown:
		if f.Validation != nil {
			return template.Field{}, reject("validation")
		}
		if len(f.AcceptedFileTypes) > 0 || f.MaxFiles != nil || f.MaxFileSize != nil {
			return template.Field{}, reject("file limits")
		}
		out.Attributes = template.DropdownAttributes{Options: f.Options}
	case template.FieldNumber:
		if len(f.Options) > 0 {
			return template.Field{}, reject("options")
		}
		if f.Validation != nil {
			if f.Validation.MinLength != nil || f.Validation.MaxLength != nil {
				return template.Field{}, reject("length validation")
			}
			if f.Validation.Min != nil || f.Validation.Max != nil {
				out.Attributes = template.NumberAttributes{Min: f.Validation.Min, Max: f.Validation.Max}
			}
		}
	case template.FieldText, template.FieldTextarea:
		if len(f.Options) > 0 {
			return template.Field{}, reject("options")
		}
		if f.Validation != nil {
			if f.Validation.Min != nil || f.Validation.Max != nil {
				return template.Field{}, reject("numeric validation")
			}
			if f.Validation.MinLength != nil || f.Validation.MaxLength != nil {
				out.Attributes = template.TextAttributes{MinLength: f.Validation.MinLength, MaxLength: f.Validation.MaxLength}
			}
		}
	case template.FieldFile:
		if len(f.Options) > 0 {
			return template.Field{}, reject("options")
		}
		if f.Validation != nil {
			return template.Field{}, reject("validation")
		}
		if len(f.AcceptedFileTypes) > 0 || f.MaxFiles != nil || f.MaxFileSize != nil {
			out.Attributes = template.FileAttributes{
				AcceptedFileTypes: f.AcceptedFileTypes,
				MaxFiles:          f.MaxFiles,
				MaxFileSize:       f.MaxFileSize,
			}
		}
	default:
		// Unknown types flow through so the validator can report them with
		// everything else.
		if len(f.Options) > 0 || f.Validation != nil || len(f.AcceptedFileTypes) > 0 {
			return template.Field{}, reject("type-specific attributes")
		}
	}
	return out, nil
}
