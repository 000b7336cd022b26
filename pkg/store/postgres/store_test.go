package postgres

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-reportform/pkg/store"
	"github.com/goliatone/go-reportform/pkg/template"
	"github.com/goliatone/go-reportform/pkg/testsupport"
)

func TestBucketColumn(t *testing.T) {
	cases := []struct {
		status template.ReportStatus
		column string
		ok     bool
	}{
		{template.ReportDraft, "draft_reports", true},
		{template.ReportSubmitted, "submitted_reports", true},
		{template.ReportApproved, "approved_reports", true},
		{template.ReportRejected, "rejected_reports", true},
		{"published", "", false},
	}
	for _, tc := range cases {
		column, ok := bucketColumn(tc.status)
		if column != tc.column || ok != tc.ok {
			t.Errorf("bucketColumn(%q) = %q, %v", tc.status, column, ok)
		}
	}
}

func TestOrderClause(t *testing.T) {
	cases := []struct {
		orderBy    store.OrderField
		descending bool
		want       string
	}{
		{"", false, "name ASC"},
		{store.OrderByName, true, "name DESC"},
		{store.OrderByCreatedAt, false, "created_at ASC"},
		{store.OrderByUpdatedAt, true, "updated_at DESC"},
		{store.OrderByLastUsed, false, "last_used_at ASC"},
		{"bogus", false, "name ASC"},
	}
	for _, tc := range cases {
		if got := orderClause(tc.orderBy, tc.descending); got != tc.want {
			t.Errorf("orderClause(%q, %v) = %q, want %q", tc.orderBy, tc.descending, got, tc.want)
		}
	}
}

func TestEncodeTemplateEmptyCollections(t *testing.T) {
	cols, err := encodeTemplate(template.ReportTemplate{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Nil slices land as empty JSON arrays so the JSONB columns stay NOT NULL.
	for name, got := range map[string][]byte{
		"tags":               cols.tags,
		"fields":             cols.fields,
		"allowedRoles":       cols.allowedRoles,
		"allowedDepartments": cols.allowedDepartments,
	} {
		if string(got) != "[]" {
			t.Errorf("%s = %q, want []", name, got)
		}
	}
	if cols.departmentAccess != nil || cols.settings != nil {
		t.Fatalf("optional columns must stay nil when unset")
	}
}

func TestEncodeTemplateRoundTripsFields(t *testing.T) {
	tpl := testsupport.SampleTemplate("ws-1")
	tpl.DepartmentAccess = &template.DepartmentAccess{
		Type:               template.AccessMultiDepartment,
		AllowedDepartments: []string{"Engineering"},
	}

	cols, err := encodeTemplate(tpl)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var fields []template.Field
	if err := json.Unmarshal(cols.fields, &fields); err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if diff := cmp.Diff(tpl.Fields, fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	var access template.DepartmentAccess
	if err := json.Unmarshal(cols.departmentAccess, &access); err != nil {
		t.Fatalf("decode access: %v", err)
	}
	if access.Type != template.AccessMultiDepartment {
		t.Fatalf("access = %+v", access)
	}
}
