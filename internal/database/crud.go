package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Upsert creates or updates an entity inside its own transaction. Identifier
// uniqueness is the sole update-vs-insert criterion: an existing row gets
// every column overwritten and a fresh update timestamp while keeping its
// creation timestamp and row identity; a missing one is inserted. When
// returnJSON is true the payload is the entity's JSON map, otherwise the
// live entity.
func Upsert[T any, PT recordOf[T]](ctx context.Context, m *Manager, entity PT, returnJSON bool) Response {
	db := m.handle()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return m.fail(entity.Kind(), "starting transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	existing, err := lookupByID[T, PT](ctx, tx, m.backend, entity.RecordID())
	if err != nil {
		return m.fail(entity.Kind(), "looking up existing record", err)
	}

	now := time.Now()
	updated := existing != nil
	if updated {
		// Field-level overwrite onto the persisted row: every column takes
		// the incoming value, the creation timestamp survives, and the row
		// identity is preserved for dependent rows.
		entity.SetCreatedTime(existing.CreatedTime())
		entity.SetUpdatedTime(now)
		if err := updateRecord(ctx, tx, m.backend, Record(entity)); err != nil {
			return m.fail(entity.Kind(), "updating record", err)
		}
	} else {
		if entity.CreatedTime().IsZero() {
			entity.SetCreatedTime(now)
		}
		entity.SetUpdatedTime(now)
		if err := insertRecord(ctx, tx, m.backend, Record(entity)); err != nil {
			return m.fail(entity.Kind(), "inserting record", err)
		}
	}

	// Serialize before committing so a failure here rolls the write back
	// instead of reporting failure for a persisted row.
	var payload any = entity
	if returnJSON {
		data, err := toJSONMap(entity)
		if err != nil {
			return m.fail(entity.Kind(), "serializing record", err)
		}
		payload = data
	}

	if err := tx.Commit(); err != nil {
		return m.fail(entity.Kind(), "committing transaction", err)
	}

	message := fmt.Sprintf("%s created successfully", entity.Kind())
	if updated {
		message = fmt.Sprintf("%s updated successfully", entity.Kind())
	}
	return okResponse(message, payload)
}

// Get retrieves entities matching an equality-conjunction filter, ordered by
// creation timestamp. An empty filter set means no restriction. Zero rows is
// success with an empty slice; only a query-execution failure (for example a
// filter on an unknown column) reports failure.
func Get[T any, PT recordOf[T]](ctx context.Context, m *Manager, filters map[string]any, order Order) Response {
	var probe T
	rec := PT(&probe)

	where, args, err := buildWhere(m.backend, rec, filters)
	if err != nil {
		return m.fail(rec.Kind(), "building query", err)
	}
	orderBy, err := orderClause(rec, order)
	if err != nil {
		return m.fail(rec.Kind(), "building query", err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s%s", selectColumns(rec), rec.Table(), where, orderBy)
	rows, err := m.handle().QueryContext(ctx, query, args...)
	if err != nil {
		return m.fail(rec.Kind(), "fetching records", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cleanup

	items := make([]PT, 0)
	for rows.Next() {
		item := PT(new(T))
		if err := item.ScanRow(rows); err != nil {
			return m.fail(rec.Kind(), "scanning record", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return m.fail(rec.Kind(), "fetching records", err)
	}
	return okResponse(fmt.Sprintf("%s retrieved successfully", rec.Kind()), items)
}

// Delete removes all entities matching the filter in one transaction. A
// referential-integrity violation is reported distinctly from a generic
// execution failure; matching zero rows is success with an informational
// message.
func Delete[T any, PT recordOf[T]](ctx context.Context, m *Manager, filters map[string]any) Response {
	var probe T
	rec := PT(&probe)

	where, args, err := buildWhere(m.backend, rec, filters)
	if err != nil {
		return m.fail(rec.Kind(), "building query", err)
	}

	db := m.handle()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return m.fail(rec.Kind(), "starting transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	result, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s%s", rec.Table(), where), args...)
	if err != nil {
		if isIntegrityError(err) {
			message := fmt.Sprintf("integrity error: the %s is linked to another entity and cannot be deleted", rec.Kind())
			m.logger.Error(message, "error", err)
			return failResponse(message)
		}
		return m.fail(rec.Kind(), "deleting records", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return m.fail(rec.Kind(), "deleting records", err)
	}
	if err := tx.Commit(); err != nil {
		return m.fail(rec.Kind(), "committing transaction", err)
	}

	if affected == 0 {
		m.logger.Info("no rows matched delete filters", "kind", rec.Kind(), "filters", fmt.Sprint(filters))
		return okResponse("no matching rows found", nil)
	}
	return okResponse(fmt.Sprintf("%s deleted successfully", rec.Kind()), nil)
}

// lookupByID fetches the persisted row for an identifier, or nil when the
// identifier is unset or absent.
func lookupByID[T any, PT recordOf[T]](ctx context.Context, tx *sql.Tx, backend Backend, id int64) (PT, error) {
	if id == 0 {
		return nil, nil
	}
	var probe T
	rec := PT(&probe)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s",
		selectColumns(rec), rec.Table(), placeholder(backend, 1))

	existing := PT(new(T))
	err := existing.ScanRow(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, backend Backend, rec Record) error {
	columns := rec.Columns()
	values, err := rec.Values()
	if err != nil {
		return err
	}

	// An entity arriving with a fresh but non-zero identifier keeps it.
	if id := rec.RecordID(); id != 0 {
		columns = append([]string{"id"}, columns...)
		values = append([]any{id}, values...)
	}

	binds := make([]string, len(values))
	for i := range values {
		binds[i] = placeholder(backend, i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		rec.Table(), strings.Join(columns, ", "), strings.Join(binds, ", "))

	if rec.RecordID() != 0 {
		_, err := tx.ExecContext(ctx, query, values...)
		return err
	}

	// lib/pq has no LastInsertId support; the generated key comes back via
	// RETURNING instead.
	if backend == BackendPostgres {
		var id int64
		if err := tx.QueryRowContext(ctx, query+" RETURNING id", values...).Scan(&id); err != nil {
			return err
		}
		rec.SetRecordID(id)
		return nil
	}

	result, err := tx.ExecContext(ctx, query, values...)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rec.SetRecordID(id)
	return nil
}

func updateRecord(ctx context.Context, tx *sql.Tx, backend Backend, rec Record) error {
	columns := rec.Columns()
	values, err := rec.Values()
	if err != nil {
		return err
	}

	sets := make([]string, len(columns))
	for i, col := range columns {
		sets[i] = fmt.Sprintf("%s = %s", col, placeholder(backend, i+1))
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
		rec.Table(), strings.Join(sets, ", "), placeholder(backend, len(columns)+1))

	_, err = tx.ExecContext(ctx, query, append(values, rec.RecordID())...)
	return err
}

// toJSONMap reduces an entity to its serializable JSON form.
func toJSONMap(rec Record) (map[string]any, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// fail logs a transactional failure and folds it into a Response. Backend
// errors never escape a façade operation.
func (m *Manager) fail(kind, action string, err error) Response {
	m.logger.Error("error while "+action, "kind", kind, "error", err)
	return failResponse(fmt.Sprintf("%s: error while %s: %v", kind, action, err))
}
