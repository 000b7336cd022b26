package template

import (
	"sort"
	"time"
)

// Status is the template lifecycle state. Draft and active templates move
// freely between each other, active templates can be archived, and deprecated
// is a terminal administrative state reachable from anywhere. Nothing in this
// module transitions out of archived or deprecated.
type Status string

const (
	StatusActive     Status = "active"
	StatusDraft      Status = "draft"
	StatusArchived   Status = "archived"
	StatusDeprecated Status = "deprecated"
)

// Known reports whether the status belongs to the closed set.
func (s Status) Known() bool {
	switch s {
	case StatusActive, StatusDraft, StatusArchived, StatusDeprecated:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle state machine permits moving
// from s to next.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	if next == StatusDeprecated {
		return true
	}
	switch s {
	case StatusDraft:
		return next == StatusActive
	case StatusActive:
		return next == StatusDraft || next == StatusArchived
	}
	// archived and deprecated have no outbound transitions here
	return false
}

// Role is the caller's role within a workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Visibility is the legacy coarse access switch, superseded by
// DepartmentAccess when that is configured.
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityRestricted Visibility = "restricted"
)

// AccessType selects the department-access strategy for a template.
type AccessType string

const (
	AccessGlobal             AccessType = "global"
	AccessDepartmentSpecific AccessType = "department_specific"
	AccessMultiDepartment    AccessType = "multi_department"
	AccessCustom             AccessType = "custom"
)

// DepartmentAccess configures which departments may use a template. The
// fields that matter depend on Type: department_specific reads
// OwnerDepartment, multi_department reads AllowedDepartments, and custom
// reads both AllowedDepartments and RestrictedDepartments (deny wins).
type DepartmentAccess struct {
	Type                  AccessType `json:"type"`
	OwnerDepartment       string     `json:"ownerDepartment,omitempty"`
	AllowedDepartments    []string   `json:"allowedDepartments,omitempty"`
	RestrictedDepartments []string   `json:"restrictedDepartments,omitempty"`
}

// Settings carries attachment limits, autosave interval, approval and
// notification configuration. This module treats it as opaque beyond deep
// comparison for version tracking.
type Settings map[string]any

// ChangeEntry is one immutable change-log record, appended when a structural
// edit bumps the template version.
type ChangeEntry struct {
	Version   int       `json:"version"`
	Changes   string    `json:"changes"`
	ChangedBy string    `json:"changedBy"`
	ChangedAt time.Time `json:"changedAt"`
}

// ReportStatus is the lifecycle state of a report filed against a template,
// used to bucket usage counters.
type ReportStatus string

const (
	ReportDraft     ReportStatus = "draft"
	ReportSubmitted ReportStatus = "submitted"
	ReportApproved  ReportStatus = "approved"
	ReportRejected  ReportStatus = "rejected"
)

// Known reports whether the report status belongs to the closed set.
func (s ReportStatus) Known() bool {
	switch s {
	case ReportDraft, ReportSubmitted, ReportApproved, ReportRejected:
		return true
	}
	return false
}

// DepartmentUsage is the per-department usage breakdown entry.
type DepartmentUsage struct {
	Department   string    `json:"department"`
	TotalReports int       `json:"totalReports"`
	LastUsed     time.Time `json:"lastUsed"`
}

// Usage aggregates report activity against a template. TotalReports counts
// lifecycle transitions, not distinct reports: a report moving from draft
// through submitted to approved bumps it three times. The status buckets are
// cumulative transition counts as well, so they are not a partition of
// TotalReports.
type Usage struct {
	TotalReports    int               `json:"totalReports"`
	Drafts          int               `json:"drafts"`
	Submitted       int               `json:"submitted"`
	Approved        int               `json:"approved"`
	Rejected        int               `json:"rejected"`
	DepartmentUsage []DepartmentUsage `json:"departmentUsage,omitempty"`
	LastUsed        *time.Time        `json:"lastUsed,omitempty"`
}

// ReportTemplate is the aggregate root: a reusable report-form schema owned
// by exactly one workspace. Version starts at 1 and increments only on
// structural change; ChangeLog holds one entry per bump and is append-only.
type ReportTemplate struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`

	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Department  string   `json:"department,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	Fields []Field `json:"fields"`

	Visibility Visibility `json:"visibility,omitempty"`
	// AllowedRoles and AllowedDepartments are the legacy access controls,
	// superseded by DepartmentAccess when present.
	AllowedRoles       []Role            `json:"allowedRoles,omitempty"`
	AllowedDepartments []string          `json:"allowedDepartments,omitempty"`
	DepartmentAccess   *DepartmentAccess `json:"departmentAccess,omitempty"`

	Settings Settings `json:"settings,omitempty"`

	Status    Status        `json:"status"`
	Version   int           `json:"version"`
	ChangeLog []ChangeEntry `json:"changeLog,omitempty"`
	Usage     Usage         `json:"usage"`

	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// SortFieldsByOrder sorts the field list by Order, keeping the incoming
// relative order for ties. Ties can exist transiently during concurrent
// edits; persisted templates are expected to be dense.
func (t *ReportTemplate) SortFieldsByOrder() {
	sort.SliceStable(t.Fields, func(i, j int) bool {
		return t.Fields[i].Order < t.Fields[j].Order
	})
}

// FieldByID returns the field with the given id, if present.
func (t ReportTemplate) FieldByID(id string) (Field, bool) {
	for _, field := range t.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return Field{}, false
}

// Clone returns a deep copy of the template. Stores hand out clones so
// callers can mutate results without aliasing stored state.
func (t ReportTemplate) Clone() ReportTemplate {
	out := t
	out.Tags = append([]string(nil), t.Tags...)
	out.AllowedRoles = append([]Role(nil), t.AllowedRoles...)
	out.AllowedDepartments = append([]string(nil), t.AllowedDepartments...)
	if t.DepartmentAccess != nil {
		access := *t.DepartmentAccess
		access.AllowedDepartments = append([]string(nil), t.DepartmentAccess.AllowedDepartments...)
		access.RestrictedDepartments = append([]string(nil), t.DepartmentAccess.RestrictedDepartments...)
		out.DepartmentAccess = &access
	}
	if t.Fields != nil {
		out.Fields = make([]Field, len(t.Fields))
		for i, field := range t.Fields {
			out.Fields[i] = CloneField(field)
		}
	}
	if t.Settings != nil {
		out.Settings = cloneSettings(t.Settings)
	}
	out.ChangeLog = append([]ChangeEntry(nil), t.ChangeLog...)
	out.Usage.DepartmentUsage = append([]DepartmentUsage(nil), t.Usage.DepartmentUsage...)
	if t.Usage.LastUsed != nil {
		lastUsed := *t.Usage.LastUsed
		out.Usage.LastUsed = &lastUsed
	}
	if t.UpdatedAt != nil {
		updatedAt := *t.UpdatedAt
		out.UpdatedAt = &updatedAt
	}
	return out
}

func cloneSettings(in Settings) Settings {
	out := make(Settings, len(in))
	for key, value := range in {
		out[key] = cloneSettingValue(value)
	}
	return out
}

func cloneSettingValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, nested := range v {
			out[key] = cloneSettingValue(nested)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, nested := range v {
			out[i] = cloneSettingValue(nested)
		}
		return out
	default:
		return v
	}
}
