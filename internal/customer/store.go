package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-laundry/internal/db"
)

var (
	// ErrNotFound is returned when the customer does not exist.
	ErrNotFound = errors.New("customer not found")
	// ErrInsufficientCredit is returned when a debit exceeds the balance.
	ErrInsufficientCredit = errors.New("insufficient customer credit")
)

// Store persists customers. Implementations bound to a transaction see the
// transaction's writes.
type Store interface {
	Insert(ctx context.Context, c Customer) (Customer, error)
	Get(ctx context.Context, id string) (Customer, error)
	// LockCredit reads the balance and holds a row lock until the transaction ends.
	LockCredit(ctx context.Context, id string) (decimal.Decimal, error)
	AdjustCredit(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)
}

// PgStore implements Store with pgx.
type PgStore struct {
	DB db.DBTX
}

const customerColumns = `id::text, name, phone, email, credit, delivery_price, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		c     Customer
		price decimal.NullDecimal
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Credit, &price, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Customer{}, err
	}
	if price.Valid {
		c.DeliveryPrice = &price.Decimal
	}
	return c, nil
}

// Insert stores a new customer.
func (s PgStore) Insert(ctx context.Context, c Customer) (Customer, error) {
	var price decimal.NullDecimal
	if c.DeliveryPrice != nil {
		price = decimal.NullDecimal{Decimal: *c.DeliveryPrice, Valid: true}
	}
	out, err := scanCustomer(s.DB.QueryRow(ctx, `INSERT INTO customers (id, name, phone, email, credit, delivery_price)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+customerColumns, c.ID, c.Name, c.Phone, c.Email, c.Credit, price))
	if err != nil {
		return Customer{}, fmt.Errorf("customer: insert: %w", err)
	}
	return out, nil
}

// Get loads a customer.
func (s PgStore) Get(ctx context.Context, id string) (Customer, error) {
	c, err := scanCustomer(s.DB.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("customer: get: %w", err)
	}
	return c, nil
}

// LockCredit implements Store.
func (s PgStore) LockCredit(ctx context.Context, id string) (decimal.Decimal, error) {
	var credit decimal.Decimal
	err := s.DB.QueryRow(ctx, `SELECT credit FROM customers WHERE id = $1 FOR UPDATE`, id).Scan(&credit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("customer: lock credit: %w", err)
	}
	return credit, nil
}

// AdjustCredit adds delta to the balance and returns the new balance. The
// balance never goes below zero.
func (s PgStore) AdjustCredit(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	var credit decimal.Decimal
	err := s.DB.QueryRow(ctx, `UPDATE customers SET credit = credit + $2, updated_at = now()
WHERE id = $1 AND credit + $2 >= 0
RETURNING credit`, id, delta).Scan(&credit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.Get(ctx, id); errors.Is(getErr, ErrNotFound) {
				return decimal.Zero, ErrNotFound
			}
			return decimal.Zero, ErrInsufficientCredit
		}
		return decimal.Zero, fmt.Errorf("customer: adjust credit: %w", err)
	}
	return credit, nil
}
