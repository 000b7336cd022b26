package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-reportform/pkg/template"
	"github.com/goliatone/go-reportform/pkg/usage"
)

// Memory is an in-process Store keyed by workspace then template id. All
// operations are guarded by a single mutex, which also makes usage
// increments atomic. Safe for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	workspaces map[string]map[string]template.ReportTemplate
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{workspaces: make(map[string]map[string]template.ReportTemplate)}
}

// Get returns a deep copy of the stored template.
func (m *Memory) Get(ctx context.Context, workspaceID, templateID string) (template.ReportTemplate, error) {
	if err := ctx.Err(); err != nil {
		return template.ReportTemplate{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	tpl, ok := m.workspaces[workspaceID][templateID]
	if !ok {
		return template.ReportTemplate{}, fmt.Errorf("memory store: get %s/%s: %w", workspaceID, templateID, ErrNotFound)
	}
	return tpl.Clone(), nil
}

// List returns deep copies of the workspace's templates matching the
// filters, ordered and truncated as requested.
func (m *Memory) List(ctx context.Context, workspaceID string, filters Filters) ([]template.ReportTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []template.ReportTemplate
	for _, tpl := range m.workspaces[workspaceID] {
		if filters.Status != "" && tpl.Status != filters.Status {
			continue
		}
		if filters.Category != "" && tpl.Category != filters.Category {
			continue
		}
		out = append(out, tpl.Clone())
	}

	sortTemplates(out, filters.OrderBy, filters.Descending)
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

// Create stores a deep copy of the template. Creating an id that already
// exists in the workspace is an error.
func (m *Memory) Create(ctx context.Context, workspaceID string, tpl template.ReportTemplate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	workspace, ok := m.workspaces[workspaceID]
	if !ok {
		workspace = make(map[string]template.ReportTemplate)
		m.workspaces[workspaceID] = workspace
	}
	if _, exists := workspace[tpl.ID]; exists {
		return fmt.Errorf("memory store: create %s/%s: template already exists", workspaceID, tpl.ID)
	}
	workspace[tpl.ID] = tpl.Clone()
	return nil
}

// Update replaces the stored template, keeping the stored usage counters.
// Counters only move through IncrementUsage, so a caller updating from an
// earlier read cannot roll back increments that landed in between.
func (m *Memory) Update(ctx context.Context, workspaceID string, tpl template.ReportTemplate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	workspace := m.workspaces[workspaceID]
	stored, exists := workspace[tpl.ID]
	if !exists {
		return fmt.Errorf("memory store: update %s/%s: %w", workspaceID, tpl.ID, ErrNotFound)
	}
	next := tpl.Clone()
	next.Usage = stored.Clone().Usage
	workspace[tpl.ID] = next
	return nil
}

// Delete removes the template from the workspace.
func (m *Memory) Delete(ctx context.Context, workspaceID, templateID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	workspace := m.workspaces[workspaceID]
	if _, exists := workspace[templateID]; !exists {
		return fmt.Errorf("memory store: delete %s/%s: %w", workspaceID, templateID, ErrNotFound)
	}
	delete(workspace, templateID)
	return nil
}

// IncrementUsage applies the transition under the store lock, so concurrent
// report submissions never lose counts.
func (m *Memory) IncrementUsage(ctx context.Context, workspaceID, templateID string, inc UsageIncrement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	workspace := m.workspaces[workspaceID]
	tpl, ok := workspace[templateID]
	if !ok {
		return fmt.Errorf("memory store: increment usage %s/%s: %w", workspaceID, templateID, ErrNotFound)
	}
	at := inc.At
	if at.IsZero() {
		at = time.Now()
	}
	if err := usage.Apply(&tpl.Usage, inc.Status, inc.Department, at); err != nil {
		return fmt.Errorf("memory store: increment usage %s/%s: %w", workspaceID, templateID, err)
	}
	workspace[templateID] = tpl
	return nil
}

func sortTemplates(templates []template.ReportTemplate, orderBy OrderField, descending bool) {
	less := func(i, j int) bool {
		a, b := templates[i], templates[j]
		switch orderBy {
		case OrderByName, "":
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		case OrderByCreatedAt:
			return a.CreatedAt.Before(b.CreatedAt)
		case OrderByUpdatedAt:
			return timeOrZero(a.UpdatedAt).Before(timeOrZero(b.UpdatedAt))
		case OrderByLastUsed:
			return timeOrZero(a.Usage.LastUsed).Before(timeOrZero(b.Usage.LastUsed))
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
	if descending {
		sort.SliceStable(templates, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.SliceStable(templates, less)
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
