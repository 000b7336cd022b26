// Package usage maintains the running report counters attached to a
// template. Apply implements the value-level transition used by in-memory
// stores; storage backends that support it should translate the same
// transition into atomic increments instead of read-modify-write (the
// postgres store does exactly that).
package usage

import (
	"fmt"
	"time"

	"github.com/goliatone/go-reportform/pkg/template"
)

// Apply records one report lifecycle transition against the counters:
// TotalReports and the bucket matching status both increment, LastUsed moves
// forward, and when a department is supplied its breakdown entry is found or
// created and bumped. Counters only ever grow; TotalReports therefore counts
// transitions, not distinct reports.
func Apply(u *template.Usage, status template.ReportStatus, department string, at time.Time) error {
	if u == nil {
		return fmt.Errorf("usage: nil usage")
	}
	if !status.Known() {
		return fmt.Errorf("usage: unknown report status %q", string(status))
	}

	u.TotalReports++
	switch status {
	case template.ReportDraft:
		u.Drafts++
	case template.ReportSubmitted:
		u.Submitted++
	case template.ReportApproved:
		u.Approved++
	case template.ReportRejected:
		u.Rejected++
	}

	lastUsed := at
	u.LastUsed = &lastUsed

	if department != "" {
		applyDepartment(u, department, at)
	}
	return nil
}

func applyDepartment(u *template.Usage, department string, at time.Time) {
	for i := range u.DepartmentUsage {
		if u.DepartmentUsage[i].Department == department {
			u.DepartmentUsage[i].TotalReports++
			u.DepartmentUsage[i].LastUsed = at
			return
		}
	}
	u.DepartmentUsage = append(u.DepartmentUsage, template.DepartmentUsage{
		Department:   department,
		TotalReports: 1,
		LastUsed:     at,
	})
}
