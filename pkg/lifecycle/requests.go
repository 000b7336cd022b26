package lifecycle

import (
	"fmt"

	"github.com/goliatone/go-reportform/pkg/template"
)

// CreateRequest carries the caller-supplied portion of a new template. The
// manager owns id assignment, versioning, and timestamps.
type CreateRequest struct {
	Name               string
	Description        string
	Category           string
	Department         string
	Tags               []string
	Fields             []template.Field
	Visibility         template.Visibility
	AllowedRoles       []template.Role
	AllowedDepartments []string
	DepartmentAccess   *template.DepartmentAccess
	Settings           template.Settings
	// Status defaults to active when empty.
	Status template.Status
}

func (r CreateRequest) toTemplate() template.ReportTemplate {
	return template.ReportTemplate{
		Name:               r.Name,
		Description:        r.Description,
		Category:           r.Category,
		Department:         r.Department,
		Tags:               r.Tags,
		Fields:             r.Fields,
		Visibility:         r.Visibility,
		AllowedRoles:       r.AllowedRoles,
		AllowedDepartments: r.AllowedDepartments,
		DepartmentAccess:   r.DepartmentAccess,
		Settings:           r.Settings,
	}
}

// UpdateRequest is a partial update: nil means "leave unchanged". Slices and
// maps replace the previous value wholesale; there is no per-element merge.
type UpdateRequest struct {
	Name               *string
	Description        *string
	Category           *string
	Department         *string
	Tags               *[]string
	Fields             *[]template.Field
	Visibility         *template.Visibility
	AllowedRoles       *[]template.Role
	AllowedDepartments *[]string
	DepartmentAccess   *template.DepartmentAccess
	Settings           *template.Settings
	Status             *template.Status
}

func (r UpdateRequest) applyTo(tpl *template.ReportTemplate) error {
	if r.Name != nil {
		tpl.Name = *r.Name
	}
	if r.Description != nil {
		tpl.Description = *r.Description
	}
	if r.Category != nil {
		tpl.Category = *r.Category
	}
	if r.Department != nil {
		tpl.Department = *r.Department
	}
	if r.Tags != nil {
		tpl.Tags = append([]string(nil), (*r.Tags)...)
	}
	if r.Fields != nil {
		fields := make([]template.Field, len(*r.Fields))
		for i, field := range *r.Fields {
			fields[i] = template.CloneField(field)
		}
		tpl.Fields = fields
	}
	if r.Visibility != nil {
		tpl.Visibility = *r.Visibility
	}
	if r.AllowedRoles != nil {
		tpl.AllowedRoles = append([]template.Role(nil), (*r.AllowedRoles)...)
	}
	if r.AllowedDepartments != nil {
		tpl.AllowedDepartments = append([]string(nil), (*r.AllowedDepartments)...)
	}
	if r.DepartmentAccess != nil {
		access := *r.DepartmentAccess
		access.AllowedDepartments = append([]string(nil), r.DepartmentAccess.AllowedDepartments...)
		access.RestrictedDepartments = append([]string(nil), r.DepartmentAccess.RestrictedDepartments...)
		tpl.DepartmentAccess = &access
	}
	if r.Settings != nil {
		tpl.Settings = *r.Settings
	}
	if r.Status != nil {
		if !r.Status.Known() {
			return fmt.Errorf("lifecycle: unknown status %q", string(*r.Status))
		}
		tpl.Status = *r.Status
	}
	return nil
}
