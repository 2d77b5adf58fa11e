package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// SchemaProbe discovers the columns a table actually has before a write is
// attempted. Migrations are applied manually and best-effort in some
// deployments, so the stored schema can drift from the code; every insert
// through the probe degrades to the intersection of what the code wants to
// write and what the table can hold, instead of failing outright.
type SchemaProbe struct {
	db *sqlx.DB
}

// NewSchemaProbe creates a SchemaProbe.
func NewSchemaProbe(db *sqlx.DB) *SchemaProbe {
	return &SchemaProbe{db: db}
}

// StoredColumns returns the column names the table currently has. The probe
// issues a one-row select and reads the result-set metadata, which works even
// when the table is empty.
func (p *SchemaProbe) StoredColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := p.db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 1", table))
	if err != nil {
		return nil, fmt.Errorf("schema_probe.StoredColumns %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("schema_probe.StoredColumns %s: %w", table, err)
	}
	return cols, nil
}

// FilterPayload intersects the candidate payload with the discovered column
// set and returns only the fields the table can store. Probe failures fall
// back to the caller-supplied core column list so a write still goes out with
// the minimal safe shape.
func (p *SchemaProbe) FilterPayload(ctx context.Context, table string, candidate map[string]interface{}, coreColumns []string) map[string]interface{} {
	cols, err := p.StoredColumns(ctx, table)
	if err != nil {
		return filterToColumns(candidate, coreColumns)
	}
	return filterToColumns(candidate, cols)
}

// InsertFiltered builds and executes a dynamic INSERT for the payload.
// If the insert is rejected because of a timestamp column mismatch it is
// retried once with created_at/updated_at stripped, matching the one
// documented retry; any other failure propagates.
func (p *SchemaProbe) InsertFiltered(ctx context.Context, table string, payload map[string]interface{}) error {
	if len(payload) == 0 {
		return fmt.Errorf("schema_probe.InsertFiltered %s: empty payload", table)
	}

	query, args := buildInsert(table, payload)
	_, err := p.db.ExecContext(ctx, query, args...)
	if err == nil {
		return nil
	}
	if !isTimestampColumnErr(err) {
		return fmt.Errorf("schema_probe.InsertFiltered %s: %w", table, err)
	}

	stripped := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if k == "created_at" || k == "updated_at" {
			continue
		}
		stripped[k] = v
	}
	query, args = buildInsert(table, stripped)
	if _, retryErr := p.db.ExecContext(ctx, query, args...); retryErr != nil {
		return fmt.Errorf("schema_probe.InsertFiltered %s retry: %w", table, retryErr)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Pure helpers (unit-tested without a database)
// ──────────────────────────────────────────────────────────────────────────────

// filterToColumns returns the candidate fields whose keys appear in cols.
// Timestamps survive only when both the candidate and the table carry them.
func filterToColumns(candidate map[string]interface{}, cols []string) map[string]interface{} {
	allowed := make(map[string]bool, len(cols))
	for _, c := range cols {
		allowed[c] = true
	}
	out := make(map[string]interface{}, len(candidate))
	for k, v := range candidate {
		if allowed[k] {
			out[k] = v
		}
	}
	return out
}

// buildInsert renders `INSERT INTO table (a, b) VALUES ($1, $2)` with a
// deterministic column order so tests and logs are stable.
func buildInsert(table string, payload map[string]interface{}) (string, []interface{}) {
	cols := make([]string, 0, len(payload))
	for k := range payload {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = payload[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return query, args
}

// isTimestampColumnErr reports whether a driver error names one of the
// timestamp columns, the drift case covered by the single insert retry.
func isTimestampColumnErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "created_at") || strings.Contains(msg, "updated_at")
}
