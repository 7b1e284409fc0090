package customer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-laundry/internal/customer"
	"github.com/noah-isme/backend-laundry/internal/lock"
)

type memStore struct {
	mu        sync.Mutex
	customers map[string]customer.Customer
}

func (m *memStore) Insert(_ context.Context, c customer.Customer) (customer.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.CreatedAt = time.Now().UTC()
	m.customers[c.ID] = c
	return c, nil
}

func (m *memStore) Get(_ context.Context, id string) (customer.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return customer.Customer{}, customer.ErrNotFound
	}
	return c, nil
}

func (m *memStore) LockCredit(ctx context.Context, id string) (decimal.Decimal, error) {
	c, err := m.Get(ctx, id)
	return c.Credit, err
}

func (m *memStore) AdjustCredit(_ context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return decimal.Zero, customer.ErrNotFound
	}
	next := c.Credit.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, customer.ErrInsufficientCredit
	}
	c.Credit = next
	m.customers[id] = c
	return next, nil
}

func newHandler(t *testing.T) *customer.Handler {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, err := customer.NewService(customer.ServiceConfig{
		Store:   &memStore{customers: map[string]customer.Customer{}},
		Locker:  lock.Locker{R: client, RetryBackoff: time.Millisecond},
		LockTTL: time.Second,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return &customer.Handler{Service: svc}
}

func router(h *customer.Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/customers", h.Create)
	r.Get("/api/v1/customers/{id}", h.Get)
	r.Post("/api/v1/customers/{id}/credit", h.AddCredit)
	return r
}

func TestCustomerLifecycle(t *testing.T) {
	h := newHandler(t)
	srv := router(h)

	c, err := h.Service.Create(context.Background(), customer.CreateRequest{Name: " Ada "})
	require.NoError(t, err)
	require.Equal(t, "Ada", c.Name)
	require.True(t, c.Credit.IsZero())

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/customers/"+c.ID+"/credit", strings.NewReader(`{"amount":"25.5","note":"prepaid"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"credit":25.50`)

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/customers/"+c.ID+"/credit", strings.NewReader(`{"amount":-30}`)))
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+c.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"credit":25.50`)
}

func TestCreateValidation(t *testing.T) {
	srv := router(newHandler(t))

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(`{"name":"","email":"nope"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "VALIDATION_ERROR")

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(`{"name":"Bo","deliveryPrice":"7.5"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), `"deliveryPrice":7.50`)
}

func TestGetUnknownCustomer(t *testing.T) {
	srv := router(newHandler(t))
	for _, id := range []string{"not-a-uuid", "2b1c4a52-6c43-4c55-9d4c-7f3f8d4b9a10"} {
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+id, nil))
		require.Equal(t, http.StatusNotFound, rr.Code, id)
	}
}
