package extraitem

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-laundry/internal/db"
)

var (
	// ErrNotFound is returned when the item does not exist.
	ErrNotFound = errors.New("extra item not found")
	// ErrDuplicateName is returned when another item already uses the name.
	ErrDuplicateName = errors.New("extra item name already exists")
)

// Store persists catalog entries.
type Store interface {
	List(ctx context.Context, includeInactive bool) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Insert(ctx context.Context, r Record) (Record, error)
	Update(ctx context.Context, r Record) (Record, error)
}

// PgStore implements Store with pgx.
type PgStore struct {
	DB db.DBTX
}

const itemColumns = `id::text, name, price, per_weight_unit, is_active, sort_order, updated_at`

func scanItem(row pgx.Row) (Record, error) {
	var (
		r    Record
		unit decimal.NullDecimal
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Price, &unit, &r.IsActive, &r.SortOrder, &r.UpdatedAt); err != nil {
		return Record{}, err
	}
	if unit.Valid {
		r.PerWeightUnit = &unit.Decimal
	}
	return r, nil
}

// List returns items ordered for display.
func (s PgStore) List(ctx context.Context, includeInactive bool) ([]Record, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+itemColumns+` FROM extra_items
WHERE $1 OR is_active
ORDER BY sort_order, name`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("extraitem: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("extraitem: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get loads one item.
func (s PgStore) Get(ctx context.Context, id string) (Record, error) {
	r, err := scanItem(s.DB.QueryRow(ctx, `SELECT `+itemColumns+` FROM extra_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("extraitem: get: %w", err)
	}
	return r, nil
}

// Insert stores a new item.
func (s PgStore) Insert(ctx context.Context, r Record) (Record, error) {
	out, err := scanItem(s.DB.QueryRow(ctx, `INSERT INTO extra_items (id, name, price, per_weight_unit, is_active, sort_order)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+itemColumns, r.ID, r.Name, r.Price, nullDecimal(r.PerWeightUnit), r.IsActive, r.SortOrder))
	if err != nil {
		return Record{}, mapWriteError("insert", err)
	}
	return out, nil
}

// Update replaces an existing item.
func (s PgStore) Update(ctx context.Context, r Record) (Record, error) {
	out, err := scanItem(s.DB.QueryRow(ctx, `UPDATE extra_items
SET name = $2, price = $3, per_weight_unit = $4, is_active = $5, sort_order = $6, updated_at = now()
WHERE id = $1
RETURNING `+itemColumns, r.ID, r.Name, r.Price, nullDecimal(r.PerWeightUnit), r.IsActive, r.SortOrder))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, mapWriteError("update", err)
	}
	return out, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateName
	}
	return fmt.Errorf("extraitem: %s: %w", op, err)
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
