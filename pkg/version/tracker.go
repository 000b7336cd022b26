// Package version decides whether a template update is structural and, when
// it is, produces the next version number plus the immutable change-log entry
// describing the edit. Non-structural edits (description, tags, category)
// never bump the version or touch the log.
package version

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-reportform/pkg/template"
)

// Summary is the tracker's verdict for one update.
type Summary struct {
	// Structural is true when fields, name, or settings changed.
	Structural bool
	// NextVersion is the version the template should carry after the update.
	// Equal to the current version for non-structural edits.
	NextVersion int
	// Entry is the change-log record to append. Only meaningful when
	// Structural is true.
	Entry template.ChangeEntry
}

// Track compares the template before and after an update. Field lists and
// settings are compared by deep equality, so reordering or editing a single
// attribute counts as a structural change.
func Track(before, after template.ReportTemplate, changedBy string, at time.Time) Summary {
	var changes []string

	if before.Name != after.Name {
		changes = append(changes, fmt.Sprintf("renamed %q to %q", before.Name, after.Name))
	}
	if !cmp.Equal(before.Fields, after.Fields) {
		changes = append(changes, describeFieldChange(before.Fields, after.Fields))
	}
	if !cmp.Equal(before.Settings, after.Settings) {
		changes = append(changes, "settings changed")
	}

	if len(changes) == 0 {
		return Summary{NextVersion: before.Version}
	}

	next := before.Version + 1
	return Summary{
		Structural:  true,
		NextVersion: next,
		Entry: template.ChangeEntry{
			Version:   next,
			Changes:   strings.Join(changes, "; "),
			ChangedBy: changedBy,
			ChangedAt: at,
		},
	}
}

// Append returns the change log with the entry added. The input slice is
// never mutated; prior entries are write-once.
func Append(log []template.ChangeEntry, entry template.ChangeEntry) []template.ChangeEntry {
	out := make([]template.ChangeEntry, 0, len(log)+1)
	out = append(out, log...)
	return append(out, entry)
}

func describeFieldChange(before, after []template.Field) string {
	switch {
	case len(after) > len(before):
		return fmt.Sprintf("fields updated (%d added, now %d)", len(after)-len(before), len(after))
	case len(after) < len(before):
		return fmt.Sprintf("fields updated (%d removed, now %d)", len(before)-len(after), len(after))
	default:
		return fmt.Sprintf("fields updated (%d fields)", len(after))
	}
}
