package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-laundry/internal/customer"
	"github.com/noah-isme/backend-laundry/internal/db"
	"github.com/noah-isme/backend-laundry/internal/pricing"
)

// ErrNotFound is returned when the order does not exist.
var ErrNotFound = errors.New("order not found")

// Filter narrows order listings.
type Filter struct {
	Status     Status
	CustomerID string
	Limit      int
	Offset     int
}

// Repository reads orders and opens write transactions.
type Repository interface {
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, f Filter) ([]Order, int64, error)
	// UpdatedSince returns ids of orders changed at or after since, oldest first.
	UpdatedSince(ctx context.Context, since time.Time, limit int) ([]string, error)
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the set of writes performed atomically with a credit movement.
type Tx interface {
	// Lock loads the order and holds its row lock until the transaction ends.
	Lock(ctx context.Context, id string) (Order, error)
	Insert(ctx context.Context, o Order) (Order, error)
	Update(ctx context.Context, o Order) (Order, error)
	SetStatus(ctx context.Context, id string, status Status) (time.Time, error)
	LockCredit(ctx context.Context, customerID string) (decimal.Decimal, error)
	AdjustCredit(ctx context.Context, customerID string, delta decimal.Decimal) (decimal.Decimal, error)
}

// PgRepository implements Repository with pgx.
type PgRepository struct {
	Pool interface {
		db.DBTX
		db.TxBeginner
	}
}

// InTx implements Repository.
func (r PgRepository) InTx(ctx context.Context, fn func(Tx) error) error {
	return db.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		return fn(pgTx{q: queries{DB: tx}, credit: customer.PgStore{DB: tx}})
	})
}

// Get implements Repository.
func (r PgRepository) Get(ctx context.Context, id string) (Order, error) {
	return queries{DB: r.Pool}.load(ctx, id, false)
}

// List implements Repository. Bags and extra items are not loaded.
func (r PgRepository) List(ctx context.Context, f Filter) ([]Order, int64, error) {
	q := queries{DB: r.Pool}
	where := `WHERE ($1 = '' OR status = $1) AND ($2 = '' OR customer_id::text = $2)`
	var total int64
	if err := q.DB.QueryRow(ctx, `SELECT count(*) FROM orders `+where, string(f.Status), f.CustomerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("order: count: %w", err)
	}
	rows, err := q.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders `+where+`
ORDER BY created_at DESC, order_number DESC
LIMIT $3 OFFSET $4`, string(f.Status), f.CustomerID, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("order: list: %w", err)
	}
	defer rows.Close()
	out := make([]Order, 0, f.Limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("order: scan: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("order: list: %w", err)
	}
	return out, total, nil
}

// UpdatedSince implements Repository.
func (r PgRepository) UpdatedSince(ctx context.Context, since time.Time, limit int) ([]string, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id::text FROM orders
WHERE updated_at >= $1 AND status <> 'cancelled'
ORDER BY updated_at
LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("order: updated since: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("order: updated since: %w", err)
	}
	return ids, nil
}

type pgTx struct {
	q      queries
	credit customer.PgStore
}

func (t pgTx) Lock(ctx context.Context, id string) (Order, error) { return t.q.load(ctx, id, true) }

func (t pgTx) Insert(ctx context.Context, o Order) (Order, error) { return t.q.insert(ctx, o) }

func (t pgTx) Update(ctx context.Context, o Order) (Order, error) { return t.q.update(ctx, o) }

func (t pgTx) SetStatus(ctx context.Context, id string, status Status) (time.Time, error) {
	var updated time.Time
	err := t.q.DB.QueryRow(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 RETURNING updated_at`, id, string(status)).Scan(&updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("order: set status: %w", err)
	}
	return updated, nil
}

func (t pgTx) LockCredit(ctx context.Context, customerID string) (decimal.Decimal, error) {
	return t.credit.LockCredit(ctx, customerID)
}

func (t pgTx) AdjustCredit(ctx context.Context, customerID string, delta decimal.Decimal) (decimal.Decimal, error) {
	return t.credit.AdjustCredit(ctx, customerID, delta)
}

type queries struct {
	DB db.DBTX
}

const orderColumns = `id::text, order_number, coalesce(customer_id::text, ''), status, order_type, delivery_type,
delivery_price, is_same_day, apply_credit, total_weight, subtotal, same_day_fee, extra_items_total,
delivery_fee, calculated_total, price_override, price_change_note, credit_applied, total_amount,
is_paid, payment_method, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                       Order
		deliveryPrice, override decimal.NullDecimal
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.OrderType, &o.DeliveryType,
		&deliveryPrice, &o.IsSameDay, &o.ApplyCredit, &o.TotalWeight, &o.Subtotal, &o.SameDayFee, &o.ExtraItemsTotal,
		&o.DeliveryFee, &o.CalculatedTotal, &override, &o.PriceChangeNote, &o.CreditApplied, &o.TotalAmount,
		&o.IsPaid, &o.PaymentMethod, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.DeliveryPrice = nullable(deliveryPrice)
	o.PriceOverride = nullable(override)
	return o, nil
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullUUID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func (q queries) load(ctx context.Context, id string, forUpdate bool) (Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.DB.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("order: get: %w", err)
	}
	if o.Bags, err = q.bags(ctx, id); err != nil {
		return Order{}, err
	}
	if o.ExtraItems, err = q.extraLines(ctx, id); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (q queries) bags(ctx context.Context, id string) ([]pricing.Bag, error) {
	rows, err := q.DB.Query(ctx, `SELECT identifier, weight, color, description FROM order_bags WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("order: bags: %w", err)
	}
	bags, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pricing.Bag, error) {
		var b pricing.Bag
		err := row.Scan(&b.Identifier, &b.Weight, &b.Color, &b.Description)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("order: bags: %w", err)
	}
	return bags, nil
}

func (q queries) extraLines(ctx context.Context, id string) ([]ExtraLine, error) {
	rows, err := q.DB.Query(ctx, `SELECT extra_item_id::text, name, quantity, price, override_total, weight_based, amount
FROM order_extra_items WHERE order_id = $1 ORDER BY name`, id)
	if err != nil {
		return nil, fmt.Errorf("order: extra items: %w", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ExtraLine, error) {
		var (
			l        ExtraLine
			override decimal.NullDecimal
		)
		err := row.Scan(&l.ExtraItemID, &l.Name, &l.Quantity, &l.Price, &override, &l.WeightBased, &l.Amount)
		l.OverrideTotal = nullable(override)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("order: extra items: %w", err)
	}
	return lines, nil
}

func (q queries) insert(ctx context.Context, o Order) (Order, error) {
	err := q.DB.QueryRow(ctx, `INSERT INTO orders (id, customer_id, status, order_type, delivery_type, delivery_price,
is_same_day, apply_credit, total_weight, subtotal, same_day_fee, extra_items_total, delivery_fee,
calculated_total, price_override, price_change_note, credit_applied, total_amount, is_paid, payment_method, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
RETURNING order_number, created_at, updated_at`,
		o.ID, nullUUID(o.CustomerID), string(o.Status), string(o.OrderType), string(o.DeliveryType), nullDecimal(o.DeliveryPrice),
		o.IsSameDay, o.ApplyCredit, o.TotalWeight, o.Subtotal, o.SameDayFee, o.ExtraItemsTotal, o.DeliveryFee,
		o.CalculatedTotal, nullDecimal(o.PriceOverride), o.PriceChangeNote, o.CreditApplied, o.TotalAmount, o.IsPaid, o.PaymentMethod, o.Notes,
	).Scan(&o.OrderNumber, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("order: insert: %w", err)
	}
	if err := q.replaceChildren(ctx, o); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (q queries) update(ctx context.Context, o Order) (Order, error) {
	err := q.DB.QueryRow(ctx, `UPDATE orders SET customer_id = $2, order_type = $3, delivery_type = $4, delivery_price = $5,
is_same_day = $6, apply_credit = $7, total_weight = $8, subtotal = $9, same_day_fee = $10, extra_items_total = $11,
delivery_fee = $12, calculated_total = $13, price_override = $14, price_change_note = $15, credit_applied = $16,
total_amount = $17, is_paid = $18, payment_method = $19, notes = $20, updated_at = now()
WHERE id = $1
RETURNING updated_at`,
		o.ID, nullUUID(o.CustomerID), string(o.OrderType), string(o.DeliveryType), nullDecimal(o.DeliveryPrice),
		o.IsSameDay, o.ApplyCredit, o.TotalWeight, o.Subtotal, o.SameDayFee, o.ExtraItemsTotal,
		o.DeliveryFee, o.CalculatedTotal, nullDecimal(o.PriceOverride), o.PriceChangeNote, o.CreditApplied,
		o.TotalAmount, o.IsPaid, o.PaymentMethod, o.Notes,
	).Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("order: update: %w", err)
	}
	if err := q.replaceChildren(ctx, o); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (q queries) replaceChildren(ctx context.Context, o Order) error {
	if _, err := q.DB.Exec(ctx, `DELETE FROM order_bags WHERE order_id = $1`, o.ID); err != nil {
		return fmt.Errorf("order: clear bags: %w", err)
	}
	for i, b := range o.Bags {
		if _, err := q.DB.Exec(ctx, `INSERT INTO order_bags (order_id, position, identifier, weight, color, description)
VALUES ($1, $2, $3, $4, $5, $6)`, o.ID, i, b.Identifier, b.Weight, b.Color, b.Description); err != nil {
			return fmt.Errorf("order: insert bag: %w", err)
		}
	}
	if _, err := q.DB.Exec(ctx, `DELETE FROM order_extra_items WHERE order_id = $1`, o.ID); err != nil {
		return fmt.Errorf("order: clear extra items: %w", err)
	}
	for _, l := range o.ExtraItems {
		if _, err := q.DB.Exec(ctx, `INSERT INTO order_extra_items (order_id, extra_item_id, name, quantity, price, override_total, weight_based, amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, o.ID, l.ExtraItemID, l.Name, l.Quantity, l.Price, nullDecimal(l.OverrideTotal), l.WeightBased, l.Amount); err != nil {
			return fmt.Errorf("order: insert extra item: %w", err)
		}
	}
	return nil
}
