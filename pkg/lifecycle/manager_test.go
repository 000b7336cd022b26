package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-reportform/pkg/activity"
	"github.com/goliatone/go-reportform/pkg/lifecycle"
	"github.com/goliatone/go-reportform/pkg/store"
	"github.com/goliatone/go-reportform/pkg/template"
	"github.com/goliatone/go-reportform/pkg/testsupport"
	"github.com/goliatone/go-reportform/pkg/validation"
)

type recordedActivity struct {
	entries []activity.Entry
	err     error
}

func (r *recordedActivity) LogActivity(_ context.Context, entry activity.Entry) error {
	r.entries = append(r.entries, entry)
	return r.err
}

func (r *recordedActivity) last(t *testing.T) activity.Entry {
	t.Helper()
	if len(r.entries) == 0 {
		t.Fatalf("no activity recorded")
	}
	return r.entries[len(r.entries)-1]
}

type harness struct {
	manager  *lifecycle.Manager
	store    *store.Memory
	activity *recordedActivity
	clock    *time.Time
}

func newHarness(t *testing.T, options ...lifecycle.Option) *harness {
	t.Helper()
	mem := store.NewMemory()
	recorder := &recordedActivity{}
	clock := testsupport.FixedTime
	seq := 0

	base := []lifecycle.Option{
		lifecycle.WithActivityLogger(recorder),
		lifecycle.WithClock(func() time.Time { return clock }),
		lifecycle.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	}
	manager, err := lifecycle.New(mem, append(base, options...)...)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return &harness{manager: manager, store: mem, activity: recorder, clock: &clock}
}

func createRequest() lifecycle.CreateRequest {
	return lifecycle.CreateRequest{
		Name:        "Incident Report",
		Description: "Track production incidents",
		Category:    "operations",
		Fields:      testsupport.SampleFields(),
	}
}

func TestCreateDefaults(t *testing.T) {
	h := newHarness(t)

	tpl, err := h.manager.Create(context.Background(), "ws-1", createRequest(), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if tpl.ID == "" {
		t.Fatalf("id not assigned")
	}
	if tpl.WorkspaceID != "ws-1" {
		t.Fatalf("WorkspaceID = %q", tpl.WorkspaceID)
	}
	if tpl.Status != template.StatusActive {
		t.Fatalf("Status = %q, want active", tpl.Status)
	}
	if tpl.Version != 1 {
		t.Fatalf("Version = %d, want 1", tpl.Version)
	}
	if len(tpl.ChangeLog) != 0 {
		t.Fatalf("new template must have an empty change log, got %d entries", len(tpl.ChangeLog))
	}
	if tpl.Usage.TotalReports != 0 {
		t.Fatalf("new template must have zero usage")
	}
	if tpl.CreatedBy != "user-1" || !tpl.CreatedAt.Equal(testsupport.FixedTime) {
		t.Fatalf("attribution: by=%q at=%v", tpl.CreatedBy, tpl.CreatedAt)
	}

	stored, err := h.store.Get(context.Background(), "ws-1", tpl.ID)
	if err != nil {
		t.Fatalf("stored copy: %v", err)
	}
	if stored.Name != "Incident Report" {
		t.Fatalf("stored name = %q", stored.Name)
	}

	entry := h.activity.last(t)
	if entry.Action != "template.created" || entry.EntityID != tpl.ID || entry.ActorID != "user-1" {
		t.Fatalf("activity entry = %+v", entry)
	}
}

func TestCreateNormalizesFields(t *testing.T) {
	h := newHarness(t)

	req := lifecycle.CreateRequest{
		Name: "Ordering",
		Fields: []template.Field{
			{Label: "Second", Type: template.FieldText, Order: 2},
			{Label: "First", Type: template.FieldText, Order: 1},
		},
	}
	tpl, err := h.manager.Create(context.Background(), "ws-1", req, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if tpl.Fields[0].Label != "First" || tpl.Fields[1].Label != "Second" {
		t.Fatalf("fields not sorted by order: %q, %q", tpl.Fields[0].Label, tpl.Fields[1].Label)
	}
	for _, field := range tpl.Fields {
		if field.ID == "" {
			t.Fatalf("field %q missing id", field.Label)
		}
		if field.ColumnSpan != 1 {
			t.Fatalf("field %q span = %d, want default 1", field.Label, field.ColumnSpan)
		}
	}
}

func TestCreateInvalidTemplateNotPersisted(t *testing.T) {
	h := newHarness(t)

	req := createRequest()
	req.Fields = nil

	_, err := h.manager.Create(context.Background(), "ws-1", req, "user-1")
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validation.Error, got %v", err)
	}
	if verr.Template["fields"] != "at least one field required" {
		t.Fatalf("template errors = %#v", verr.Template)
	}

	templates, err := h.store.List(context.Background(), "ws-1", store.Filters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(templates) != 0 {
		t.Fatalf("invalid template was persisted")
	}
	if len(h.activity.entries) != 0 {
		t.Fatalf("activity recorded for failed create")
	}
}

func TestCreateDraftMayHaveNoFields(t *testing.T) {
	h := newHarness(t)

	req := lifecycle.CreateRequest{Name: "Scratch", Status: template.StatusDraft}
	tpl, err := h.manager.Create(context.Background(), "ws-1", req, "user-1")
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if tpl.Status != template.StatusDraft {
		t.Fatalf("Status = %q", tpl.Status)
	}
}

func TestUpdateActivatingFieldlessDraftFails(t *testing.T) {
	h := newHarness(t)

	tpl, err := h.manager.Create(context.Background(), "ws-1", lifecycle.CreateRequest{
		Name:   "Scratch",
		Status: template.StatusDraft,
	}, "user-1")
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	active := template.StatusActive
	_, err = h.manager.Update(context.Background(), "ws-1", tpl.ID, lifecycle.UpdateRequest{
		Status: &active,
	}, "user-1")

	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Template["fields"] != "at least one field required" {
		t.Fatalf("template violations = %v", verr.Template)
	}

	stored, err := h.store.Get(context.Background(), "ws-1", tpl.ID)
	if err != nil {
		t.Fatalf("stored copy: %v", err)
	}
	if stored.Status != template.StatusDraft {
		t.Fatalf("Status = %q, want draft", stored.Status)
	}
}

func TestUpdateActivatesDraftWithFields(t *testing.T) {
	h := newHarness(t)

	req := createRequest()
	req.Status = template.StatusDraft
	tpl, err := h.manager.Create(context.Background(), "ws-1", req, "user-1")
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	active := template.StatusActive
	updated, err := h.manager.Update(context.Background(), "ws-1", tpl.ID, lifecycle.UpdateRequest{
		Status: &active,
	}, "user-1")
	if err != nil {
		t.Fatalf("activate draft: %v", err)
	}
	if updated.Status != template.StatusActive {
		t.Fatalf("Status = %q, want active", updated.Status)
	}
	if updated.Version != 1 {
		t.Fatalf("status change must not bump the version, got %d", updated.Version)
	}
}

func TestUpdateNonStructuralKeepsVersion(t *testing.T) {
	h := newHarness(t)
	tpl, err := h.manager.Create(context.Background(), "ws-1", createRequest(), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	description := "Refined wording"
	tags := []string{"ops", "quarterly"}
	updated, err := h.manager.Update(context.Background(), "ws-1", tpl.ID, lifecycle.UpdateRequest{
		Description: &description,
		Tags:        &tags,
	}, "user-2")
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Version != 1 {
		t.Fatalf("Version = %d, non-structural edits must not bump", updated.Version)
	}
	if len(updated.ChangeLog) != 0 {
		t.Fatalf("change log grew on non-structural edit")
	}
	if updated.Description != description {
		t.Fatalf("Description = %q", updated.Description)
	}
	if updated.UpdatedBy != "user-2" || updated.UpdatedAt == nil {
		t.Fatalf("update attribution missing")
	}
}

func TestUpdateStructuralBumpsVersionAndAppendsLog(t *testing.T) {
	h := newHarness(t)
	tpl, err := h.manager.Create(context.Background(), "ws-1", createRequest(), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	*h.clock = testsupport.FixedTime.Add(time.Hour)
	fields := append(tpl.Clone().Fields, template.Field{
		Label: "Root Cause", Type: template.FieldTextarea, Order: 9,
	})
	updated, err := h.manager.Update(context.Background(), "ws-1", tpl.ID, lifecycle.UpdateRequest{
		Fields: &fields,
	}, "user-2")
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Version != 2 {
		t.Fatalf("Version = %d, want 2", updated.Version)
	}
	if len(updated.ChangeLog) != 1 {
		t.Fatalf("change log entries = %d, want 1", len(updated.ChangeLog))
	}
	entry := updated.ChangeLog[0]
	if entry.Version != 2 || entry.ChangedBy != "user-2" {
		t.Fatalf("entry = %+v", entry)
	}
	if !strings.Contains(entry.Changes, "fields updated") {
		t.Fatalf("Changes = %q", entry.Changes)
	}

	// The added field gets an id minted during normalization.
	for _, field := range updated.Fields {
		if field.ID == "" {
			t.Fatalf("field %q missing id after update", field.Label)
		}
	}

	// A second structural edit appends without touching the first entry.
	*h.clock = testsupport.FixedTime.Add(2 * time.Hour)
	newName := "Incident Report v2"
	again, err := h.manager.Update(context.Background(), "ws-1", tpl.ID, lifecycle.UpdateRequest{
		Name: &newName,
	}, "user-3")
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if again.Version != 3 || len(again.ChangeLog) != 2 {
		t.Fatalf("Version = %d, log = %d", again.Version, len(again.ChangeLog))
	}
	if again.ChangeLog[0] != entry {
		t.Fatalf("prior change-log entry mutated: %+v", again.ChangeLog[0])
	}
}

func TestUpdateRejectsInvalidTransition(t *testing.T) {
	h := newHarness(t)
	tpl, err := h.manager.Create(context.Background(), "ws-1", createRequest(), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	archived := template.StatusArchived
	if _, err := h.manager.Update(context.Background(), "ws-1", tpl.ID, lifecycle.UpdateRequest{
		Status: &archived,
	}, "user-1"); err != nil {
		t.Fatalf("archive active template: %v", err)
	}

	active := template.StatusActive
	_, err = h.manager.Update(context.Background(), "ws-1", tpl.ID, lifecycle.UpdateRequest{
		Status: &active,
	}, "user-1")
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateInvalidFieldsNotPersisted(t *testing.T) {
	h := newHarness(t)
	tpl, err := h.manager.Create(context.Background(), "ws-1", createRequest(), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	fields := []template.Field{
		{ID: "f1", Label: "Name", Type: template.FieldText},
		{ID: "f2", Label: "name", Type: template.FieldText},
	}
	_, err = h.manager.Update(context.Background(), "ws-1", tpl.ID, lifecycle.UpdateRequest{
		Fields: &fields,
	}, "user-1")
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validation.Error, got %v", err)
	}

	stored, err := h.store.Get(context.Background(), "ws-1", tpl.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.Fields) != len(tpl.Fields) {
		t.Fatalf("invalid field set was persisted")
	}
}

func TestUpdateMissingTemplate(t *testing.T) {
	h := newHarness(t)
	name := "x"
	_, err := h.manager.Update(context.Background(), "ws-1", "missing", lifecycle.UpdateRequest{Name: &name}, "user-1")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUnusedTemplateIsRemoved(t *testing.T) {
	h := newHarness(t)
	tpl, err := h.manager.Create(context.Background(), "ws-1", createRequest(), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := h.manager.Delete(context.Background(), "ws-1", tpl.ID, "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := h.store.Get(context.Background(), "ws-1", tpl.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("template still present: %v", err)
	}
	if h.activity.last(t).Action != "template.deleted" {
		t.Fatalf("activity = %+v", h.activity.last(t))
	}
}

func TestDeleteUsedTemplateArchivesInstead(t *testing.T) {
	h := newHarness(t)
	tpl, err := h.manager.Create(context.Background(), "ws-1", createRequest(), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.manager.RecordUsage(context.Background(), "ws-1", tpl.ID, template.ReportSubmitted, "Finance"); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	if err := h.manager.Delete(context.Background(), "ws-1", tpl.ID, "user-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := h.store.Get(context.Background(), "ws-1", tpl.ID)
	if err != nil {
		t.Fatalf("archived template must remain retrievable: %v", err)
	}
	if got.Status != template.StatusArchived {
		t.Fatalf("Status = %q, want archived", got.Status)
	}
	if got.Version != tpl.Version {
		t.Fatalf("archive must not bump version: %d", got.Version)
	}
	if h.activity.last(t).Action != "template.archived" {
		t.Fatalf("activity = %+v", h.activity.last(t))
	}
}

func TestDeleteArchivesDraftWithUsage(t *testing.T) {
	// Archiving on delete is a safety rule, so it applies even where the
	// status state machine has no draft -> archived edge.
	h := newHarness(t)
	req := createRequest()
	req.Status = template.StatusDraft
	tpl, err := h.manager.Create(context.Background(), "ws-1", req, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.manager.RecordUsage(context.Background(), "ws-1", tpl.ID, template.ReportDraft, ""); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	if err := h.manager.Delete(context.Background(), "ws-1", tpl.ID, "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := h.store.Get(context.Background(), "ws-1", tpl.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != template.StatusArchived {
		t.Fatalf("Status = %q, want archived", got.Status)
	}
}

func TestCloneProducesFreshDraft(t *testing.T) {
	h := newHarness(t)
	source, err := h.manager.Create(context.Background(), "ws-1", createRequest(), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.manager.RecordUsage(context.Background(), "ws-1", source.ID, template.ReportApproved, "Finance"); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	clone, err := h.manager.Clone(context.Background(), "ws-1", source.ID, "Incident Report (copy)", "user-2")
	if err != nil {
		t.Fatalf("clone: %v", err)
	}

	if clone.ID == source.ID {
		t.Fatalf("clone reused source id")
	}
	if clone.Name != "Incident Report (copy)" {
		t.Fatalf("Name = %q", clone.Name)
	}
	if clone.Status != template.StatusDraft {
		t.Fatalf("Status = %q, want draft", clone.Status)
	}
	if clone.Version != 1 || len(clone.ChangeLog) != 0 {
		t.Fatalf("clone must restart versioning: v%d, log %d", clone.Version, len(clone.ChangeLog))
	}
	if clone.Usage.TotalReports != 0 {
		t.Fatalf("clone inherited usage counters")
	}
	if len(clone.Fields) != len(source.Fields) {
		t.Fatalf("clone fields = %d, want %d", len(clone.Fields), len(source.Fields))
	}

	entry := h.activity.last(t)
	if entry.Action != "template.cloned" || entry.Details["sourceTemplateId"] != source.ID {
		t.Fatalf("activity = %+v", entry)
	}

	// Editing the clone leaves the source untouched.
	newName := "Diverged"
	if _, err := h.manager.Update(context.Background(), "ws-1", clone.ID, lifecycle.UpdateRequest{Name: &newName}, "user-2"); err != nil {
		t.Fatalf("update clone: %v", err)
	}
	original, err := h.store.Get(context.Background(), "ws-1", source.ID)
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if original.Name != "Incident Report" {
		t.Fatalf("source mutated: %q", original.Name)
	}
}

func TestRecordUsageRejectsUnknownStatus(t *testing.T) {
	h := newHarness(t)
	tpl, err := h.manager.Create(context.Background(), "ws-1", createRequest(), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.manager.RecordUsage(context.Background(), "ws-1", tpl.ID, "published", ""); err == nil {
		t.Fatalf("expected error for unknown report status")
	}
}

func TestActivityFailuresDoNotFailOperations(t *testing.T) {
	var logged []string
	h := newHarness(t, lifecycle.WithLogf(func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}))
	h.activity.err = errors.New("audit sink down")

	tpl, err := h.manager.Create(context.Background(), "ws-1", createRequest(), "user-1")
	if err != nil {
		t.Fatalf("create must succeed despite activity failure: %v", err)
	}
	if tpl.ID == "" {
		t.Fatalf("template not created")
	}
	if len(logged) == 0 {
		t.Fatalf("activity failure was not reported to logf")
	}
	if !strings.Contains(logged[0], "audit sink down") {
		t.Fatalf("logged = %q", logged[0])
	}
}

func TestManagerRequiresActorAndWorkspace(t *testing.T) {
	h := newHarness(t)

	if _, err := h.manager.Create(context.Background(), "", createRequest(), "user-1"); err == nil {
		t.Fatalf("expected workspace error")
	}
	if _, err := h.manager.Create(context.Background(), "ws-1", createRequest(), ""); err == nil {
		t.Fatalf("expected actor error")
	}
	if err := h.manager.Delete(context.Background(), "ws-1", "", "user-1"); err == nil {
		t.Fatalf("expected template id error")
	}
}

func TestManagerCanAccess(t *testing.T) {
	h := newHarness(t)
	tpl := template.ReportTemplate{DepartmentAccess: &template.DepartmentAccess{
		Type:            template.AccessDepartmentSpecific,
		OwnerDepartment: "Finance",
	}}

	if !h.manager.CanAccess(tpl, "Finance", template.RoleMember) {
		t.Fatalf("owner department denied")
	}
	if h.manager.CanAccess(tpl, "HR", template.RoleMember) {
		t.Fatalf("other department allowed")
	}
	if !h.manager.CanAccess(tpl, "HR", template.RoleAdmin) {
		t.Fatalf("admin override not applied")
	}
}
