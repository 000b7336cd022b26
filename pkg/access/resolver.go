// Package access decides whether a workspace member may use a report
// template. Resolution is an ordered list of rules tried in sequence; each
// rule either decides the outcome or defers to the next one. The order is
// load-bearing: the role override runs before any department logic, and
// within custom access the deny list is consulted before the allow list, so a
// department present in both is denied.
package access

import (
	"github.com/goliatone/go-reportform/pkg/template"
)

// Rule inspects a template and the caller's department/role and either
// decides the outcome (decided=true) or defers to the next rule.
type Rule func(tpl template.ReportTemplate, department string, role template.Role) (allow, decided bool)

// Resolver evaluates rules in registration order. The zero value is unusable;
// construct with NewResolver.
type Resolver struct {
	rules []Rule
}

// NewResolver returns a resolver with the standard rule chain: administrative
// role override, legacy fallbacks for templates without a department access
// configuration, then the typed department access dispatch.
func NewResolver() *Resolver {
	return &Resolver{rules: []Rule{
		roleOverride,
		legacyFallback,
		departmentAccess,
	}}
}

// CanAccess runs the rule chain. An empty department means the caller has no
// department assignment. Unmatched templates fail closed.
func (r *Resolver) CanAccess(tpl template.ReportTemplate, department string, role template.Role) bool {
	for _, rule := range r.rules {
		if allow, decided := rule(tpl, department, role); decided {
			return allow
		}
	}
	return false
}

var defaultResolver = NewResolver()

// CanAccess evaluates the standard rule chain. See Resolver.CanAccess.
func CanAccess(tpl template.ReportTemplate, department string, role template.Role) bool {
	return defaultResolver.CanAccess(tpl, department, role)
}

// roleOverride grants owners and admins unconditional access.
func roleOverride(_ template.ReportTemplate, _ string, role template.Role) (bool, bool) {
	if role == template.RoleOwner || role == template.RoleAdmin {
		return true, true
	}
	return false, false
}

// legacyFallback handles templates created before department access existed:
// a populated allowed-departments list acts as a membership test, otherwise
// visibility alone decides.
func legacyFallback(tpl template.ReportTemplate, department string, _ template.Role) (bool, bool) {
	if tpl.DepartmentAccess != nil {
		return false, false
	}
	if len(tpl.AllowedDepartments) > 0 {
		return contains(tpl.AllowedDepartments, department), true
	}
	return tpl.Visibility == template.VisibilityPublic, true
}

// departmentAccess dispatches on the configured access type. Unknown types
// deny.
func departmentAccess(tpl template.ReportTemplate, department string, _ template.Role) (bool, bool) {
	access := tpl.DepartmentAccess
	if access == nil {
		return false, false
	}
	switch access.Type {
	case template.AccessGlobal:
		return true, true
	case template.AccessDepartmentSpecific:
		return department != "" && department == access.OwnerDepartment, true
	case template.AccessMultiDepartment:
		if department == "" || len(access.AllowedDepartments) == 0 {
			return false, true
		}
		return contains(access.AllowedDepartments, department), true
	case template.AccessCustom:
		// Deny list wins over any allow list.
		if department != "" && contains(access.RestrictedDepartments, department) {
			return false, true
		}
		if len(access.AllowedDepartments) > 0 {
			return contains(access.AllowedDepartments, department), true
		}
		// No restriction configured means open.
		return true, true
	default:
		return false, true
	}
}

func contains(list []string, value string) bool {
	if value == "" {
		return false
	}
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
