// Package lifecycle orchestrates template create/update/delete/clone over
// the persistence collaborator, composing validation, version tracking,
// access resolution, and usage accounting. Validation runs before any write;
// an invalid template is never persisted, not even partially.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-reportform/pkg/access"
	"github.com/goliatone/go-reportform/pkg/activity"
	"github.com/goliatone/go-reportform/pkg/store"
	"github.com/goliatone/go-reportform/pkg/template"
	"github.com/goliatone/go-reportform/pkg/validation"
	"github.com/goliatone/go-reportform/pkg/version"
)

const entityType = "report_template"

var (
	// ErrInvalidTransition is returned when an update requests a status
	// change the lifecycle state machine does not permit.
	ErrInvalidTransition = errors.New("lifecycle: invalid status transition")

	errWorkspaceRequired = errors.New("lifecycle: workspace id is required")
	errTemplateRequired  = errors.New("lifecycle: template id is required")
	errActorRequired     = errors.New("lifecycle: actor id is required")
)

// Option customises the manager configuration.
type Option func(*Manager)

// WithActivityLogger injects the audit side channel. Defaults to a no-op
// logger.
func WithActivityLogger(logger activity.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.activity = logger
		}
	}
}

// WithAccessResolver overrides the access rule chain.
func WithAccessResolver(resolver *access.Resolver) Option {
	return func(m *Manager) {
		if resolver != nil {
			m.resolver = resolver
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides how fresh template and field ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// WithLogf overrides where activity delivery failures are reported. They are
// never propagated to callers.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(m *Manager) {
		if logf != nil {
			m.logf = logf
		}
	}
}

// Manager is the template lifecycle orchestrator. Construct with New; the
// zero value is not usable.
type Manager struct {
	store    store.Store
	activity activity.Logger
	resolver *access.Resolver
	now      func() time.Time
	newID    func() string
	logf     func(format string, args ...any)
}

// New builds a Manager over the given store, applying any options. Missing
// collaborators default to no-op or built-in implementations.
func New(st store.Store, options ...Option) (*Manager, error) {
	if st == nil {
		return nil, errors.New("lifecycle: store is required")
	}
	m := &Manager{
		store:    st,
		activity: activity.Nop{},
		resolver: access.NewResolver(),
		now:      time.Now,
		newID:    uuid.NewString,
		logf:     log.Printf,
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Create validates the request and persists a fresh template at version 1
// with an empty change log and zeroed usage. Status defaults to active;
// drafts may be created without fields.
func (m *Manager) Create(ctx context.Context, workspaceID string, req CreateRequest, createdBy string) (template.ReportTemplate, error) {
	if workspaceID == "" {
		return template.ReportTemplate{}, errWorkspaceRequired
	}
	if createdBy == "" {
		return template.ReportTemplate{}, errActorRequired
	}

	status := req.Status
	if status == "" {
		status = template.StatusActive
	}
	if !status.Known() {
		return template.ReportTemplate{}, fmt.Errorf("lifecycle: create template: unknown status %q", string(status))
	}

	tpl := req.toTemplate()
	tpl.ID = m.newID()
	tpl.WorkspaceID = workspaceID
	tpl.Status = status
	tpl.Version = 1
	tpl.CreatedBy = createdBy
	tpl.CreatedAt = m.now()
	m.normalizeFields(tpl.Fields)
	tpl.SortFieldsByOrder()

	if err := m.validate(tpl); err != nil {
		return template.ReportTemplate{}, err
	}

	if err := m.store.Create(ctx, workspaceID, tpl); err != nil {
		return template.ReportTemplate{}, fmt.Errorf("lifecycle: create template %q: %w", tpl.Name, err)
	}

	m.record(ctx, activity.Entry{
		Action:      "template.created",
		EntityType:  entityType,
		EntityID:    tpl.ID,
		WorkspaceID: workspaceID,
		ActorID:     createdBy,
		Details:     map[string]any{"name": tpl.Name, "status": string(tpl.Status)},
	})
	return tpl, nil
}

// Update merges the requested changes into the stored template, re-runs
// validation when the name, description, or field set is touched or when a
// status change takes the template out of draft, applies version tracking,
// and persists the result. Prior change-log entries are never mutated.
func (m *Manager) Update(ctx context.Context, workspaceID, templateID string, req UpdateRequest, updatedBy string) (template.ReportTemplate, error) {
	if workspaceID == "" {
		return template.ReportTemplate{}, errWorkspaceRequired
	}
	if templateID == "" {
		return template.ReportTemplate{}, errTemplateRequired
	}
	if updatedBy == "" {
		return template.ReportTemplate{}, errActorRequired
	}

	before, err := m.store.Get(ctx, workspaceID, templateID)
	if err != nil {
		return template.ReportTemplate{}, fmt.Errorf("lifecycle: update template %s: %w", templateID, err)
	}

	merged := before.Clone()
	if err := req.applyTo(&merged); err != nil {
		return template.ReportTemplate{}, err
	}
	if req.Status != nil && !before.Status.CanTransition(*req.Status) {
		return template.ReportTemplate{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, before.Status, *req.Status)
	}
	if req.Fields != nil {
		m.normalizeFields(merged.Fields)
		merged.SortFieldsByOrder()
	}

	// A status-only update that takes a draft live still has to produce a
	// template that is valid for use, so it revalidates under the merged
	// status. Fieldless drafts cannot be activated this way.
	leavesDraft := req.Status != nil &&
		before.Status == template.StatusDraft &&
		merged.Status != template.StatusDraft
	if req.Fields != nil || req.Name != nil || req.Description != nil || leavesDraft {
		if err := m.validate(merged); err != nil {
			return template.ReportTemplate{}, err
		}
	}

	now := m.now()
	summary := version.Track(before, merged, updatedBy, now)
	if summary.Structural {
		merged.Version = summary.NextVersion
		merged.ChangeLog = version.Append(merged.ChangeLog, summary.Entry)
	}
	merged.UpdatedBy = updatedBy
	merged.UpdatedAt = &now

	if err := m.store.Update(ctx, workspaceID, merged); err != nil {
		return template.ReportTemplate{}, fmt.Errorf("lifecycle: update template %s: %w", templateID, err)
	}

	m.record(ctx, activity.Entry{
		Action:      "template.updated",
		EntityType:  entityType,
		EntityID:    templateID,
		WorkspaceID: workspaceID,
		ActorID:     updatedBy,
		Details:     map[string]any{"version": merged.Version, "structural": summary.Structural},
	})
	return merged, nil
}

// Delete removes a template that has never been used. Templates with
// recorded usage are archived instead, preserving referential integrity for
// the reports already filed against them; they stay retrievable with
// status=archived and an unchanged version.
func (m *Manager) Delete(ctx context.Context, workspaceID, templateID, deletedBy string) error {
	if workspaceID == "" {
		return errWorkspaceRequired
	}
	if templateID == "" {
		return errTemplateRequired
	}
	if deletedBy == "" {
		return errActorRequired
	}

	tpl, err := m.store.Get(ctx, workspaceID, templateID)
	if err != nil {
		return fmt.Errorf("lifecycle: delete template %s: %w", templateID, err)
	}

	if tpl.Usage.TotalReports > 0 {
		now := m.now()
		tpl.Status = template.StatusArchived
		tpl.UpdatedBy = deletedBy
		tpl.UpdatedAt = &now
		if err := m.store.Update(ctx, workspaceID, tpl); err != nil {
			return fmt.Errorf("lifecycle: archive template %s: %w", templateID, err)
		}
		m.record(ctx, activity.Entry{
			Action:      "template.archived",
			EntityType:  entityType,
			EntityID:    templateID,
			WorkspaceID: workspaceID,
			ActorID:     deletedBy,
			Details:     map[string]any{"totalReports": tpl.Usage.TotalReports},
		})
		return nil
	}

	if err := m.store.Delete(ctx, workspaceID, templateID); err != nil {
		return fmt.Errorf("lifecycle: delete template %s: %w", templateID, err)
	}
	m.record(ctx, activity.Entry{
		Action:      "template.deleted",
		EntityType:  entityType,
		EntityID:    templateID,
		WorkspaceID: workspaceID,
		ActorID:     deletedBy,
	})
	return nil
}

// Clone copies an existing template into a fresh draft: new id, the given
// name, version 1, empty change log, zeroed usage. The copy routes through
// Create, so it is validated like any other new template.
func (m *Manager) Clone(ctx context.Context, workspaceID, templateID, newName, clonedBy string) (template.ReportTemplate, error) {
	source, err := m.store.Get(ctx, workspaceID, templateID)
	if err != nil {
		return template.ReportTemplate{}, fmt.Errorf("lifecycle: clone template %s: %w", templateID, err)
	}

	req := CreateRequest{
		Name:               newName,
		Description:        source.Description,
		Category:           source.Category,
		Department:         source.Department,
		Tags:               append([]string(nil), source.Tags...),
		Fields:             source.Clone().Fields,
		Visibility:         source.Visibility,
		AllowedRoles:       append([]template.Role(nil), source.AllowedRoles...),
		AllowedDepartments: append([]string(nil), source.AllowedDepartments...),
		DepartmentAccess:   source.Clone().DepartmentAccess,
		Settings:           source.Clone().Settings,
		Status:             template.StatusDraft,
	}

	clone, err := m.Create(ctx, workspaceID, req, clonedBy)
	if err != nil {
		return template.ReportTemplate{}, err
	}

	m.record(ctx, activity.Entry{
		Action:      "template.cloned",
		EntityType:  entityType,
		EntityID:    clone.ID,
		WorkspaceID: workspaceID,
		ActorID:     clonedBy,
		Details:     map[string]any{"sourceTemplateId": templateID},
	})
	return clone, nil
}

// Get fetches one template.
func (m *Manager) Get(ctx context.Context, workspaceID, templateID string) (template.ReportTemplate, error) {
	tpl, err := m.store.Get(ctx, workspaceID, templateID)
	if err != nil {
		return template.ReportTemplate{}, fmt.Errorf("lifecycle: get template %s: %w", templateID, err)
	}
	return tpl, nil
}

// List returns the workspace's templates matching the filters.
func (m *Manager) List(ctx context.Context, workspaceID string, filters store.Filters) ([]template.ReportTemplate, error) {
	templates, err := m.store.List(ctx, workspaceID, filters)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: list templates: %w", err)
	}
	return templates, nil
}

// RecordUsage registers one report lifecycle transition against the
// template's counters via the store's atomic increment primitive.
func (m *Manager) RecordUsage(ctx context.Context, workspaceID, templateID string, status template.ReportStatus, department string) error {
	if !status.Known() {
		return fmt.Errorf("lifecycle: record usage %s: unknown report status %q", templateID, string(status))
	}
	inc := store.UsageIncrement{Status: status, Department: department, At: m.now()}
	if err := m.store.IncrementUsage(ctx, workspaceID, templateID, inc); err != nil {
		return fmt.Errorf("lifecycle: record usage %s: %w", templateID, err)
	}
	return nil
}

// CanAccess reports whether the caller may use the template, delegating to
// the configured access rule chain.
func (m *Manager) CanAccess(tpl template.ReportTemplate, department string, role template.Role) bool {
	return m.resolver.CanAccess(tpl, department, role)
}

func (m *Manager) validate(tpl template.ReportTemplate) error {
	var opts []validation.Option
	if tpl.Status == template.StatusDraft {
		opts = append(opts, validation.AllowEmptyFields())
	}
	return validation.ValidateTemplate(tpl, opts...).Err()
}

// normalizeFields assigns ids to freshly drafted fields and defaults the
// column span. Existing ids are preserved so field identity survives edits.
func (m *Manager) normalizeFields(fields []template.Field) {
	for i := range fields {
		if fields[i].ID == "" {
			fields[i].ID = m.newID()
		}
		if fields[i].ColumnSpan == 0 {
			fields[i].ColumnSpan = 1
		}
	}
}

// record delivers an activity entry best-effort. Delivery failures are
// reported through logf and swallowed.
func (m *Manager) record(ctx context.Context, entry activity.Entry) {
	if err := m.activity.LogActivity(ctx, entry); err != nil {
		m.logf("lifecycle: activity log %s %s: %v", entry.Action, entry.EntityID, err)
	}
}
