package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"contas/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// obligationColumns is the canonical column list every obligation scan uses.
const obligationColumns = `id, kind, amount_cents, category, due_date, description,
	observation, attachment_ref, status, settlement_date, is_recurring, series_id`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateSchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func formatDate(d core.Date) string {
	return d.Format(dateLayout)
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.DateOf(t), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObligation(row rowScanner, extra ...any) (core.Obligation, error) {
	var (
		o          core.Obligation
		kind       string
		status     string
		due        string
		settlement sql.NullString
	)
	dest := []any{
		&o.ID, &kind, &o.Amount.Cents, &o.Category, &due, &o.Description,
		&o.Observation, &o.AttachmentRef, &status, &settlement, &o.IsRecurring, &o.SeriesID,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return core.Obligation{}, err
	}

	o.Kind = core.Kind(kind)
	o.StoredStatus = core.Status(status)
	d, err := parseDate(due)
	if err != nil {
		return core.Obligation{}, err
	}
	o.DueDate = d
	if settlement.Valid && settlement.String != "" {
		sd, err := parseDate(settlement.String)
		if err != nil {
			return core.Obligation{}, err
		}
		o.SettlementDate = sd
	}
	return o, nil
}

func nullableDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return formatDate(d)
}

func insertObligation(ctx context.Context, tx *sql.Tx, ownerID string, o core.Obligation) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO obligations (
			owner_id, kind, amount_cents, category, due_date, description,
			observation, attachment_ref, status, settlement_date, is_recurring, series_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ownerID, string(o.Kind), o.Amount.Cents, o.Category, formatDate(o.DueDate),
		o.Description, o.Observation, o.AttachmentRef, string(o.StoredStatus),
		nullableDate(o.SettlementDate), o.IsRecurring, o.SeriesID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) CreateObligation(ctx context.Context, ownerID string, o core.Obligation) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id, err := insertObligation(ctx, tx, ownerID, o)
	if err != nil {
		return 0, fmt.Errorf("insert obligation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Obligation saved",
		"id", id,
		"kind", string(o.Kind),
		"amount_cents", o.Amount.Cents,
		"due_date", formatDate(o.DueDate))
	return id, nil
}

// CreateSeries writes one expansion batch plus its series metadata row in a
// single transaction, so a half-written series never becomes visible.
func (r *SQLiteRepository) CreateSeries(ctx context.Context, ownerID string, batch []core.Obligation, rule core.RecurrenceRule) ([]int64, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO series (id, owner_id, frequency, termination, occurrence_count, until_date, lookahead)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batch[0].SeriesID, ownerID, string(rule.Frequency), string(rule.Termination),
		rule.Count, nullableDate(rule.Until), rule.EffectiveLookahead(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert series: %w", err)
	}

	ids := make([]int64, 0, len(batch))
	for _, o := range batch {
		id, err := insertObligation(ctx, tx, ownerID, o)
		if err != nil {
			return nil, fmt.Errorf("insert series obligation: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Series saved",
		"series_id", batch[0].SeriesID,
		"size", len(batch),
		"frequency", string(rule.Frequency))
	return ids, nil
}

func (r *SQLiteRepository) GetObligation(ctx context.Context, ownerID string, id int64) (core.Obligation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+obligationColumns+` FROM obligations WHERE id = ? AND owner_id = ?`,
		id, ownerID)
	o, err := scanObligation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Obligation{}, core.ErrNotFound
	}
	if err != nil {
		return core.Obligation{}, fmt.Errorf("get obligation: %w", err)
	}
	return o, nil
}

// ListObligations returns the owner's obligations narrowed by date range,
// category and kind, each with its confirmation total pre-summed. Status
// narrowing happens in the service after resolution.
func (r *SQLiteRepository) ListObligations(ctx context.Context, ownerID string, f core.Filter) ([]core.ObligationWithTotal, error) {
	query := `
		SELECT o.id, o.kind, o.amount_cents, o.category, o.due_date, o.description,
			o.observation, o.attachment_ref, o.status, o.settlement_date, o.is_recurring, o.series_id,
			COALESCE(SUM(c.amount_cents), 0)
		FROM obligations o
		LEFT JOIN confirmations c ON c.obligation_id = o.id
		WHERE o.owner_id = ?`
	args := []any{ownerID}

	if !f.From.IsEmpty() {
		query += ` AND o.due_date >= ?`
		args = append(args, formatDate(f.From))
	}
	if !f.To.IsEmpty() {
		query += ` AND o.due_date <= ?`
		args = append(args, formatDate(f.To))
	}
	if f.Category != "" {
		query += ` AND o.category = ?`
		args = append(args, f.Category)
	}
	if f.Kind != "" {
		query += ` AND o.kind = ?`
		args = append(args, string(f.Kind))
	}
	query += ` GROUP BY o.id ORDER BY o.due_date, o.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var out []core.ObligationWithTotal
	for rows.Next() {
		var confirmed int64
		o, err := scanObligation(rows, &confirmed)
		if err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		out = append(out, core.ObligationWithTotal{
			Obligation: o,
			Confirmed:  core.Money{Cents: confirmed},
		})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateObligation(ctx context.Context, ownerID string, o core.Obligation) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE obligations
		SET kind = ?, amount_cents = ?, category = ?, due_date = ?, description = ?,
			observation = ?, attachment_ref = ?, status = ?, settlement_date = ?
		WHERE id = ? AND owner_id = ?`,
		string(o.Kind), o.Amount.Cents, o.Category, formatDate(o.DueDate), o.Description,
		o.Observation, o.AttachmentRef, string(o.StoredStatus), nullableDate(o.SettlementDate),
		o.ID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("update obligation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ConfirmObligation appends one ledger entry and, when the fresh total
// covers the obligation's amount, promotes the record to settled. Insert,
// sum and promotion run in one transaction so concurrent confirmations
// never settle twice or read a stale total.
func (r *SQLiteRepository) ConfirmObligation(ctx context.Context, ownerID string, obligationID int64, amount core.Money, at time.Time) (core.Money, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Money{}, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		amountCents int64
		status      string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT amount_cents, status FROM obligations WHERE id = ? AND owner_id = ?`,
		obligationID, ownerID).Scan(&amountCents, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, false, core.ErrNotFound
	}
	if err != nil {
		return core.Money{}, false, fmt.Errorf("get obligation: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO confirmations (obligation_id, amount_cents, confirmed_at) VALUES (?, ?, ?)`,
		obligationID, amount.Cents, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return core.Money{}, false, fmt.Errorf("insert confirmation: %w", err)
	}

	var totalCents int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM confirmations WHERE obligation_id = ?`,
		obligationID).Scan(&totalCents)
	if err != nil {
		return core.Money{}, false, fmt.Errorf("sum confirmations: %w", err)
	}

	total := core.Money{Cents: totalCents}
	promoted := false
	if core.IsFullySettled(core.Money{Cents: amountCents}, total) && core.Status(status) != core.StatusSettled {
		_, err = tx.ExecContext(ctx,
			`UPDATE obligations SET status = ?, settlement_date = ? WHERE id = ?`,
			string(core.StatusSettled), formatDate(core.DateOf(at)), obligationID)
		if err != nil {
			return core.Money{}, false, fmt.Errorf("promote obligation: %w", err)
		}
		promoted = true
	}

	if err := tx.Commit(); err != nil {
		return core.Money{}, false, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Confirmation recorded",
		"obligation_id", obligationID,
		"amount_cents", amount.Cents,
		"total_cents", totalCents,
		"promoted", promoted)
	return total, promoted, nil
}

func (r *SQLiteRepository) ListConfirmations(ctx context.Context, ownerID string, obligationID int64) ([]core.Confirmation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.obligation_id, c.amount_cents, c.confirmed_at
		FROM confirmations c
		JOIN obligations o ON o.id = c.obligation_id
		WHERE c.obligation_id = ? AND o.owner_id = ?
		ORDER BY c.confirmed_at, c.id`,
		obligationID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list confirmations: %w", err)
	}
	defer rows.Close()

	var out []core.Confirmation
	for rows.Next() {
		var (
			c  core.Confirmation
			at string
		)
		if err := rows.Scan(&c.ID, &c.ObligationID, &c.Amount.Cents, &at); err != nil {
			return nil, fmt.Errorf("scan confirmation: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse confirmed_at %q: %w", at, err)
		}
		c.ConfirmedAt = t
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SumConfirmations(ctx context.Context, ownerID string, obligationID int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(c.amount_cents), 0)
		FROM obligations o
		LEFT JOIN confirmations c ON c.obligation_id = o.id
		WHERE o.id = ? AND o.owner_id = ?`,
		obligationID, ownerID).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, core.ErrNotFound
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("sum confirmations: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (r *SQLiteRepository) CountSeries(ctx context.Context, ownerID, seriesID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM obligations WHERE owner_id = ? AND series_id = ?`,
		ownerID, seriesID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count series: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteObligation(ctx context.Context, ownerID string, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM confirmations WHERE obligation_id IN (
			SELECT id FROM obligations WHERE id = ? AND owner_id = ?
		)`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete confirmations: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM obligations WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete obligation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Obligation deleted", "id", id)
	return nil
}

// DeleteSeries removes every sibling, their confirmations and the series
// metadata row in one transaction, returning the number of obligation rows
// removed so the caller can verify the cascade was complete.
func (r *SQLiteRepository) DeleteSeries(ctx context.Context, ownerID, seriesID string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM confirmations WHERE obligation_id IN (
			SELECT id FROM obligations WHERE owner_id = ? AND series_id = ?
		)`, ownerID, seriesID)
	if err != nil {
		return 0, fmt.Errorf("delete series confirmations: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM obligations WHERE owner_id = ? AND series_id = ?`,
		ownerID, seriesID)
	if err != nil {
		return 0, fmt.Errorf("delete series obligations: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM series WHERE id = ? AND owner_id = ?`, seriesID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete series metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Series deleted", "series_id", seriesID, "rows", deleted)
	return deleted, nil
}

// ListOpenEndedSeries returns the state of every forever series: occurrence
// counts, the anchor date and a template record for generating extensions.
func (r *SQLiteRepository) ListOpenEndedSeries(ctx context.Context, today core.Date) ([]core.SeriesState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, frequency, lookahead FROM series WHERE termination = ?`,
		string(core.Forever))
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var states []core.SeriesState
	for rows.Next() {
		var (
			st   core.SeriesState
			freq string
		)
		if err := rows.Scan(&st.SeriesID, &st.OwnerID, &freq, &st.Lookahead); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		st.Frequency = core.Frequency(freq)
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]core.SeriesState, 0, len(states))
	for _, st := range states {
		var anchor sql.NullString
		err := r.db.QueryRowContext(ctx, `
			SELECT COUNT(*),
				COALESCE(SUM(CASE WHEN due_date > ? THEN 1 ELSE 0 END), 0),
				MIN(due_date)
			FROM obligations WHERE owner_id = ? AND series_id = ?`,
			formatDate(today), st.OwnerID, st.SeriesID).
			Scan(&st.Total, &st.FutureCount, &anchor)
		if err != nil {
			return nil, fmt.Errorf("aggregate series %s: %w", st.SeriesID, err)
		}
		if st.Total == 0 || !anchor.Valid {
			continue
		}
		if st.Anchor, err = parseDate(anchor.String); err != nil {
			return nil, err
		}

		row := r.db.QueryRowContext(ctx,
			`SELECT `+obligationColumns+` FROM obligations
			WHERE owner_id = ? AND series_id = ? ORDER BY due_date DESC, id DESC LIMIT 1`,
			st.OwnerID, st.SeriesID)
		template, err := scanObligation(row)
		if err != nil {
			return nil, fmt.Errorf("series template %s: %w", st.SeriesID, err)
		}
		st.Template = template
		out = append(out, st)
	}
	return out, nil
}

func (r *SQLiteRepository) AppendToSeries(ctx context.Context, ownerID string, batch []core.Obligation) ([]int64, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(batch))
	for _, o := range batch {
		id, err := insertObligation(ctx, tx, ownerID, o)
		if err != nil {
			return nil, fmt.Errorf("append obligation: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}
