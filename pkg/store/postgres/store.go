// Package postgres implements the store.Store contract on PostgreSQL via
// pgx. The change log and the per-department usage breakdown live in their
// own tables so version bumps append a row instead of rewriting the template
// document, and usage counters are incremented in SQL so concurrent report
// submissions never lose counts.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goliatone/go-reportform/pkg/store"
	"github.com/goliatone/go-reportform/pkg/template"
)

//go:embed schema.sql
var schemaSQL string

// Store is a postgres-backed template store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool for the given DSN and returns a store over it.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	return New(pool), nil
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres store: ensure schema: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

const templateColumns = `workspace_id, id, name, description, category, department,
	tags, fields, visibility, allowed_roles, allowed_departments, department_access,
	settings, status, version, total_reports, draft_reports, submitted_reports,
	approved_reports, rejected_reports, last_used_at, created_by, created_at,
	updated_by, updated_at`

// Get loads the template row plus its change log and department usage.
func (s *Store) Get(ctx context.Context, workspaceID, templateID string) (template.ReportTemplate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM report_templates WHERE workspace_id = $1 AND id = $2`,
		workspaceID, templateID)

	tpl, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return template.ReportTemplate{}, fmt.Errorf("postgres store: get %s/%s: %w", workspaceID, templateID, store.ErrNotFound)
		}
		return template.ReportTemplate{}, fmt.Errorf("postgres store: get %s/%s: %w", workspaceID, templateID, err)
	}

	if tpl.ChangeLog, err = s.loadChangeLog(ctx, workspaceID, templateID); err != nil {
		return template.ReportTemplate{}, err
	}
	if tpl.Usage.DepartmentUsage, err = s.loadDepartmentUsage(ctx, workspaceID, templateID); err != nil {
		return template.ReportTemplate{}, err
	}
	return tpl, nil
}

// List returns the workspace's templates matching the filters. Change logs
// and department breakdowns are not hydrated for listings; callers needing
// them should Get individual templates.
func (s *Store) List(ctx context.Context, workspaceID string, filters store.Filters) ([]template.ReportTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM report_templates WHERE workspace_id = $1`
	args := []any{workspaceID}

	if filters.Status != "" {
		args = append(args, string(filters.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.Category != "" {
		args = append(args, filters.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += " ORDER BY " + orderClause(filters.OrderBy, filters.Descending)
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list %s: %w", workspaceID, err)
	}
	defer rows.Close()

	var out []template.ReportTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres store: list %s: %w", workspaceID, err)
		}
		out = append(out, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: list %s: %w", workspaceID, err)
	}
	return out, nil
}

// Create inserts the template row and any seed change-log entries.
func (s *Store) Create(ctx context.Context, workspaceID string, tpl template.ReportTemplate) error {
	return s.withTx(ctx, "create", tpl.ID, func(tx pgx.Tx) error {
		cols, err := encodeTemplate(tpl)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO report_templates (`+templateColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`,
			cols.args(workspaceID, tpl)...)
		if err != nil {
			return err
		}
		return insertChangeEntries(ctx, tx, workspaceID, tpl.ID, tpl.ChangeLog)
	})
}

// Update rewrites the template row and appends any new change-log entries.
// Existing entries are never touched: inserts conflict-ignore on the
// (workspace, template, version) key.
func (s *Store) Update(ctx context.Context, workspaceID string, tpl template.ReportTemplate) error {
	return s.withTx(ctx, "update", tpl.ID, func(tx pgx.Tx) error {
		cols, err := encodeTemplate(tpl)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE report_templates SET
				name = $3, description = $4, category = $5, department = $6,
				tags = $7, fields = $8, visibility = $9, allowed_roles = $10,
				allowed_departments = $11, department_access = $12, settings = $13,
				status = $14, version = $15, updated_by = $16, updated_at = $17
			 WHERE workspace_id = $1 AND id = $2`,
			workspaceID, tpl.ID, tpl.Name, tpl.Description, tpl.Category, tpl.Department,
			cols.tags, cols.fields, string(tpl.Visibility), cols.allowedRoles,
			cols.allowedDepartments, cols.departmentAccess, cols.settings,
			string(tpl.Status), tpl.Version, tpl.UpdatedBy, tpl.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		return insertChangeEntries(ctx, tx, workspaceID, tpl.ID, tpl.ChangeLog)
	})
}

// Delete removes the template and its satellite rows.
func (s *Store) Delete(ctx context.Context, workspaceID, templateID string) error {
	return s.withTx(ctx, "delete", templateID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM report_templates WHERE workspace_id = $1 AND id = $2`,
			workspaceID, templateID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM report_template_changes WHERE workspace_id = $1 AND template_id = $2`,
			workspaceID, templateID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`DELETE FROM report_template_department_usage WHERE workspace_id = $1 AND template_id = $2`,
			workspaceID, templateID)
		return err
	})
}

// IncrementUsage bumps the counters with SQL increments so concurrent
// transitions serialise at the row level instead of racing in application
// code.
func (s *Store) IncrementUsage(ctx context.Context, workspaceID, templateID string, inc store.UsageIncrement) error {
	bucket, ok := bucketColumn(inc.Status)
	if !ok {
		return fmt.Errorf("postgres store: increment usage %s/%s: unknown report status %q", workspaceID, templateID, string(inc.Status))
	}
	at := inc.At
	if at.IsZero() {
		at = time.Now()
	}

	return s.withTx(ctx, "increment usage", templateID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE report_templates SET
				total_reports = total_reports + 1,
				`+bucket+` = `+bucket+` + 1,
				last_used_at = $3
			 WHERE workspace_id = $1 AND id = $2`,
			workspaceID, templateID, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		if inc.Department == "" {
			return nil
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO report_template_department_usage
				(workspace_id, template_id, department, total_reports, last_used_at)
			 VALUES ($1, $2, $3, 1, $4)
			 ON CONFLICT (workspace_id, template_id, department) DO UPDATE SET
				total_reports = report_template_department_usage.total_reports + 1,
				last_used_at = EXCLUDED.last_used_at`,
			workspaceID, templateID, inc.Department, at)
		return err
	})
}

func (s *Store) withTx(ctx context.Context, op, templateID string, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: %s %s: begin: %w", op, templateID, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return fmt.Errorf("postgres store: %s %s: %w", op, templateID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: %s %s: commit: %w", op, templateID, err)
	}
	return nil
}

func (s *Store) loadChangeLog(ctx context.Context, workspaceID, templateID string) ([]template.ChangeEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT version, changes, changed_by, changed_at FROM report_template_changes
		 WHERE workspace_id = $1 AND template_id = $2 ORDER BY version ASC`,
		workspaceID, templateID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: load change log %s/%s: %w", workspaceID, templateID, err)
	}
	defer rows.Close()

	var out []template.ChangeEntry
	for rows.Next() {
		var entry template.ChangeEntry
		if err := rows.Scan(&entry.Version, &entry.Changes, &entry.ChangedBy, &entry.ChangedAt); err != nil {
			return nil, fmt.Errorf("postgres store: load change log %s/%s: %w", workspaceID, templateID, err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) loadDepartmentUsage(ctx context.Context, workspaceID, templateID string) ([]template.DepartmentUsage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT department, total_reports, last_used_at FROM report_template_department_usage
		 WHERE workspace_id = $1 AND template_id = $2 ORDER BY department ASC`,
		workspaceID, templateID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: load department usage %s/%s: %w", workspaceID, templateID, err)
	}
	defer rows.Close()

	var out []template.DepartmentUsage
	for rows.Next() {
		var entry template.DepartmentUsage
		if err := rows.Scan(&entry.Department, &entry.TotalReports, &entry.LastUsed); err != nil {
			return nil, fmt.Errorf("postgres store: load department usage %s/%s: %w", workspaceID, templateID, err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func insertChangeEntries(ctx context.Context, tx pgx.Tx, workspaceID, templateID string, entries []template.ChangeEntry) error {
	for _, entry := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO report_template_changes
				(workspace_id, template_id, version, changes, changed_by, changed_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (workspace_id, template_id, version) DO NOTHING`,
			workspaceID, templateID, entry.Version, entry.Changes, entry.ChangedBy, entry.ChangedAt); err != nil {
			return err
		}
	}
	return nil
}

func bucketColumn(status template.ReportStatus) (string, bool) {
	switch status {
	case template.ReportDraft:
		return "draft_reports", true
	case template.ReportSubmitted:
		return "submitted_reports", true
	case template.ReportApproved:
		return "approved_reports", true
	case template.ReportRejected:
		return "rejected_reports", true
	}
	return "", false
}

func orderClause(orderBy store.OrderField, descending bool) string {
	column := "name"
	switch orderBy {
	case store.OrderByCreatedAt:
		column = "created_at"
	case store.OrderByUpdatedAt:
		column = "updated_at"
	case store.OrderByLastUsed:
		column = "last_used_at"
	case store.OrderByName, "":
		column = "name"
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}
	return column + " " + direction
}

// encodedColumns holds the JSONB payloads for a template row.
type encodedColumns struct {
	tags               []byte
	fields             []byte
	allowedRoles       []byte
	allowedDepartments []byte
	departmentAccess   []byte
	settings           []byte
}

func encodeTemplate(tpl template.ReportTemplate) (encodedColumns, error) {
	var cols encodedColumns
	var err error

	if cols.tags, err = marshalOrEmptyList(tpl.Tags); err != nil {
		return cols, fmt.Errorf("encode tags: %w", err)
	}
	if cols.fields, err = marshalOrEmptyList(tpl.Fields); err != nil {
		return cols, fmt.Errorf("encode fields: %w", err)
	}
	if cols.allowedRoles, err = marshalOrEmptyList(tpl.AllowedRoles); err != nil {
		return cols, fmt.Errorf("encode allowed roles: %w", err)
	}
	if cols.allowedDepartments, err = marshalOrEmptyList(tpl.AllowedDepartments); err != nil {
		return cols, fmt.Errorf("encode allowed departments: %w", err)
	}
	if tpl.DepartmentAccess != nil {
		if cols.departmentAccess, err = json.Marshal(tpl.DepartmentAccess); err != nil {
			return cols, fmt.Errorf("encode department access: %w", err)
		}
	}
	if tpl.Settings != nil {
		if cols.settings, err = json.Marshal(tpl.Settings); err != nil {
			return cols, fmt.Errorf("encode settings: %w", err)
		}
	}
	return cols, nil
}

func marshalOrEmptyList(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "null" {
		return []byte("[]"), nil
	}
	return data, nil
}

func (c encodedColumns) args(workspaceID string, tpl template.ReportTemplate) []any {
	return []any{
		workspaceID, tpl.ID, tpl.Name, tpl.Description, tpl.Category, tpl.Department,
		c.tags, c.fields, string(tpl.Visibility), c.allowedRoles, c.allowedDepartments,
		c.departmentAccess, c.settings, string(tpl.Status), tpl.Version,
		tpl.Usage.TotalReports, tpl.Usage.Drafts, tpl.Usage.Submitted,
		tpl.Usage.Approved, tpl.Usage.Rejected, tpl.Usage.LastUsed,
		tpl.CreatedBy, tpl.CreatedAt, tpl.UpdatedBy, tpl.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (template.ReportTemplate, error) {
	var (
		tpl                template.ReportTemplate
		tags               []byte
		fields             []byte
		visibility         string
		allowedRoles       []byte
		allowedDepartments []byte
		departmentAccess   []byte
		settings           []byte
		status             string
	)

	err := row.Scan(
		&tpl.WorkspaceID, &tpl.ID, &tpl.Name, &tpl.Description, &tpl.Category, &tpl.Department,
		&tags, &fields, &visibility, &allowedRoles, &allowedDepartments, &departmentAccess,
		&settings, &status, &tpl.Version, &tpl.Usage.TotalReports, &tpl.Usage.Drafts,
		&tpl.Usage.Submitted, &tpl.Usage.Approved, &tpl.Usage.Rejected, &tpl.Usage.LastUsed,
		&tpl.CreatedBy, &tpl.CreatedAt, &tpl.UpdatedBy, &tpl.UpdatedAt,
	)
	if err != nil {
		return template.ReportTemplate{}, err
	}

	tpl.Visibility = template.Visibility(visibility)
	tpl.Status = template.Status(status)

	if err := json.Unmarshal(tags, &tpl.Tags); err != nil {
		return template.ReportTemplate{}, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal(fields, &tpl.Fields); err != nil {
		return template.ReportTemplate{}, fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal(allowedRoles, &tpl.AllowedRoles); err != nil {
		return template.ReportTemplate{}, fmt.Errorf("decode allowed roles: %w", err)
	}
	if err := json.Unmarshal(allowedDepartments, &tpl.AllowedDepartments); err != nil {
		return template.ReportTemplate{}, fmt.Errorf("decode allowed departments: %w", err)
	}
	if len(departmentAccess) > 0 {
		access := template.DepartmentAccess{}
		if err := json.Unmarshal(departmentAccess, &access); err != nil {
			return template.ReportTemplate{}, fmt.Errorf("decode department access: %w", err)
		}
		tpl.DepartmentAccess = &access
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &tpl.Settings); err != nil {
			return template.ReportTemplate{}, fmt.Errorf("decode settings: %w", err)
		}
	}
	return tpl, nil
}
