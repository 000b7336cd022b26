package version_test

import (
	"testing"

	"github.com/goliatone/go-reportform/pkg/template"
	"github.com/goliatone/go-reportform/pkg/testsupport"
	"github.com/goliatone/go-reportform/pkg/version"
)

func TestTrackNonStructuralEdit(t *testing.T) {
	before := testsupport.SampleTemplate("ws-1")
	after := before.Clone()
	after.Description = "Updated wording"
	after.Tags = append(after.Tags, "quarterly")
	after.Category = "operations"

	summary := version.Track(before, after, "user-1", testsupport.FixedTime)
	if summary.Structural {
		t.Fatalf("description/tag edits must not be structural")
	}
	if summary.NextVersion != before.Version {
		t.Fatalf("NextVersion = %d, want %d", summary.NextVersion, before.Version)
	}
}

func TestTrackFieldEdits(t *testing.T) {
	base := testsupport.SampleTemplate("ws-1")

	t.Run("added field", func(t *testing.T) {
		after := base.Clone()
		after.Fields = append(after.Fields, template.Field{
			ID: "field-extra", Label: "Extra", Type: template.FieldText,
		})

		summary := version.Track(base, after, "user-1", testsupport.FixedTime)
		if !summary.Structural {
			t.Fatalf("adding a field must be structural")
		}
		if summary.NextVersion != base.Version+1 {
			t.Fatalf("NextVersion = %d, want %d", summary.NextVersion, base.Version+1)
		}
		want := "fields updated (1 added, now 4)"
		if summary.Entry.Changes != want {
			t.Fatalf("Changes = %q, want %q", summary.Entry.Changes, want)
		}
		if summary.Entry.ChangedBy != "user-1" || !summary.Entry.ChangedAt.Equal(testsupport.FixedTime) {
			t.Fatalf("attribution not recorded: %+v", summary.Entry)
		}
	})

	t.Run("removed field", func(t *testing.T) {
		after := base.Clone()
		after.Fields = after.Fields[:len(after.Fields)-1]

		summary := version.Track(base, after, "user-1", testsupport.FixedTime)
		want := "fields updated (1 removed, now 2)"
		if summary.Entry.Changes != want {
			t.Fatalf("Changes = %q, want %q", summary.Entry.Changes, want)
		}
	})

	t.Run("attribute edit", func(t *testing.T) {
		after := base.Clone()
		after.Fields[0].Required = !after.Fields[0].Required

		summary := version.Track(base, after, "user-1", testsupport.FixedTime)
		if !summary.Structural {
			t.Fatalf("editing a field attribute must be structural")
		}
		want := "fields updated (3 fields)"
		if summary.Entry.Changes != want {
			t.Fatalf("Changes = %q, want %q", summary.Entry.Changes, want)
		}
	})
}

func TestTrackRenameAndSettings(t *testing.T) {
	before := testsupport.SampleTemplate("ws-1")
	after := before.Clone()
	after.Name = "Incident Report v2"
	after.Settings = template.Settings{"requireApproval": true}

	summary := version.Track(before, after, "user-1", testsupport.FixedTime)
	if !summary.Structural {
		t.Fatalf("rename plus settings change must be structural")
	}
	want := `renamed "Incident Report" to "Incident Report v2"; settings changed`
	if summary.Entry.Changes != want {
		t.Fatalf("Changes = %q, want %q", summary.Entry.Changes, want)
	}
}

func TestAppendDoesNotMutateInput(t *testing.T) {
	log := make([]template.ChangeEntry, 1, 4)
	log[0] = template.ChangeEntry{Version: 1, Changes: "created"}

	out := version.Append(log, template.ChangeEntry{Version: 2, Changes: "fields updated"})
	if len(out) != 2 {
		t.Fatalf("len(out) = %d", len(out))
	}
	// Appending again to the original slice must not collide with out.
	_ = version.Append(log, template.ChangeEntry{Version: 3, Changes: "renamed"})
	if out[1].Version != 2 {
		t.Fatalf("prior append result was overwritten: %+v", out[1])
	}
}
