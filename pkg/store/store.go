// Package store defines the persistence collaborator the lifecycle manager
// writes through, plus an in-memory implementation suitable for tests and
// single-process callers. A postgres-backed implementation lives in the
// nested postgres package.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-reportform/pkg/template"
)

// ErrNotFound is returned when a template id does not exist in the
// workspace. Callers should test with errors.Is; implementations may wrap it
// with additional context.
var ErrNotFound = errors.New("store: template not found")

// OrderField names the sortable columns supported by List.
type OrderField string

const (
	OrderByName      OrderField = "name"
	OrderByCreatedAt OrderField = "createdAt"
	OrderByUpdatedAt OrderField = "updatedAt"
	OrderByLastUsed  OrderField = "lastUsedAt"
)

// Filters narrows and orders List results. Zero values mean "no filter";
// Limit <= 0 means unbounded.
type Filters struct {
	Status     template.Status
	Category   string
	OrderBy    OrderField
	Descending bool
	Limit      int
}

// UsageIncrement describes one report lifecycle transition to record against
// a template's counters. Implementations must apply it atomically with
// respect to concurrent increments; the lifecycle manager never does
// read-modify-write on counters in application code.
type UsageIncrement struct {
	Status     template.ReportStatus
	Department string
	At         time.Time
}

// Store is the persistence collaborator contract. Get and List return deep
// copies; mutating a returned template never changes stored state.
type Store interface {
	Get(ctx context.Context, workspaceID, templateID string) (template.ReportTemplate, error)
	List(ctx context.Context, workspaceID string, filters Filters) ([]template.ReportTemplate, error)
	Create(ctx context.Context, workspaceID string, tpl template.ReportTemplate) error
	Update(ctx context.Context, workspaceID string, tpl template.ReportTemplate) error
	Delete(ctx context.Context, workspaceID, templateID string) error
	IncrementUsage(ctx context.Context, workspaceID, templateID string, inc UsageIncrement) error
}
