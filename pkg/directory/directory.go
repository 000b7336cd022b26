// Package directory exposes workspace department enumeration. It only feeds
// UI choice lists (authoring prompts, admin screens); access resolution never
// consults it and relies solely on the caller-supplied department.
package directory

import (
	"context"
	"sort"
)

// Directory lists the departments configured for a workspace.
type Directory interface {
	ListDepartments(ctx context.Context, workspaceID string) ([]string, error)
}

// Func adapts a function into a Directory.
type Func func(ctx context.Context, workspaceID string) ([]string, error)

// ListDepartments calls the underlying function.
func (fn Func) ListDepartments(ctx context.Context, workspaceID string) ([]string, error) {
	return fn(ctx, workspaceID)
}

// Static serves a fixed department list per workspace, sorted for stable UI
// ordering. Useful for tests and single-tenant deployments.
type Static map[string][]string

// ListDepartments returns the configured list for the workspace, or nil when
// none is configured.
func (s Static) ListDepartments(_ context.Context, workspaceID string) ([]string, error) {
	departments := append([]string(nil), s[workspaceID]...)
	sort.Strings(departments)
	return departments, nil
}
