package order_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
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

	"github.com/noah-isme/backend-laundry/internal/common"
	"github.com/noah-isme/backend-laundry/internal/customer"
	"github.com/noah-isme/backend-laundry/internal/events"
	"github.com/noah-isme/backend-laundry/internal/lock"
	"github.com/noah-isme/backend-laundry/internal/order"
	"github.com/noah-isme/backend-laundry/internal/pricing"
	"github.com/noah-isme/backend-laundry/internal/quote"
)

const (
	customerID = "5a0f4c3e-2b1d-4e6f-8a7b-9c0d1e2f3a4b"
	softenerID = "3f1c2a4e-0000-4000-8000-000000000001"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type staticSettings struct{}

func (staticSettings) Pricing(context.Context) (pricing.Settings, error) {
	return pricing.Settings{
		MinimumWeight:             dec("10"),
		MinimumPrice:              dec("15"),
		PricePerPound:             dec("1.25"),
		SameDayExtraCentsPerPound: dec("0.33"),
		SameDayMinimumCharge:      dec("5"),
		DeliveryPrice:             dec("10"),
	}, nil
}

type staticCatalog struct{}

func (staticCatalog) Active(context.Context) ([]pricing.ExtraItem, error) {
	return []pricing.ExtraItem{{ID: softenerID, Name: "Fabric Softener", Price: dec("2"), IsActive: true}}, nil
}

// memRepo keeps orders and customer balances in memory. Transactions work on
// a copy that is kept only when fn succeeds.
type memRepo struct {
	mu     sync.Mutex
	orders map[string]order.Order
	credit map[string]decimal.Decimal
	seq    int64
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]order.Order{}, credit: map[string]decimal.Decimal{customerID: dec("50")}}
}

func (m *memRepo) balance(id string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credit[id]
}

func (m *memRepo) Get(_ context.Context, id string) (order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

func (m *memRepo) List(_ context.Context, f order.Filter) ([]order.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber > out[j].OrderNumber })
	total := int64(len(out))
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memRepo) UpdatedSince(_ context.Context, since time.Time, _ int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, o := range m.orders {
		if !o.UpdatedAt.Before(since) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memRepo) InTx(_ context.Context, fn func(order.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{orders: map[string]order.Order{}, credit: map[string]decimal.Decimal{}, seq: m.seq}
	for k, v := range m.orders {
		tx.orders[k] = v
	}
	for k, v := range m.credit {
		tx.credit[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.orders, m.credit, m.seq = tx.orders, tx.credit, tx.seq
	return nil
}

// Customer implements quote.CustomerSource.
func (m *memRepo) Customer(_ context.Context, id string) (customer.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	credit, ok := m.credit[id]
	if !ok {
		return customer.Customer{}, customer.ErrNotFound
	}
	return customer.Customer{ID: id, Name: "Dana", Credit: credit}, nil
}

type customerSource struct{ repo *memRepo }

func (c customerSource) Get(ctx context.Context, id string) (customer.Customer, error) {
	return c.repo.Customer(ctx, id)
}

// stored mirrors the NUMERIC(_, 2) columns the order tables use.
func stored(o order.Order) order.Order {
	cents := func(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
	centsPtr := func(d *decimal.Decimal) *decimal.Decimal {
		if d == nil {
			return nil
		}
		v := cents(*d)
		return &v
	}
	bags := make([]pricing.Bag, len(o.Bags))
	for i, b := range o.Bags {
		b.Weight = cents(b.Weight)
		bags[i] = b
	}
	lines := make([]order.ExtraLine, len(o.ExtraItems))
	for i, l := range o.ExtraItems {
		l.Price, l.Amount, l.OverrideTotal = cents(l.Price), cents(l.Amount), centsPtr(l.OverrideTotal)
		lines[i] = l
	}
	o.Bags, o.ExtraItems = bags, lines
	o.DeliveryPrice, o.PriceOverride = centsPtr(o.DeliveryPrice), centsPtr(o.PriceOverride)
	for _, d := range []*decimal.Decimal{
		&o.TotalWeight, &o.Subtotal, &o.SameDayFee, &o.ExtraItemsTotal, &o.DeliveryFee,
		&o.CalculatedTotal, &o.CreditApplied, &o.TotalAmount,
	} {
		*d = cents(*d)
	}
	return o
}

type memTx struct {
	orders map[string]order.Order
	credit map[string]decimal.Decimal
	seq    int64
}

func (t *memTx) Lock(_ context.Context, id string) (order.Order, error) {
	o, ok := t.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

func (t *memTx) Insert(_ context.Context, o order.Order) (order.Order, error) {
	t.seq++
	o.OrderNumber = t.seq
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	o = stored(o)
	t.orders[o.ID] = o
	return o, nil
}

func (t *memTx) Update(_ context.Context, o order.Order) (order.Order, error) {
	if _, ok := t.orders[o.ID]; !ok {
		return order.Order{}, order.ErrNotFound
	}
	o.UpdatedAt = time.Now().UTC()
	o = stored(o)
	t.orders[o.ID] = o
	return o, nil
}

func (t *memTx) SetStatus(_ context.Context, id string, status order.Status) (time.Time, error) {
	o, ok := t.orders[id]
	if !ok {
		return time.Time{}, order.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	t.orders[id] = o
	return o.UpdatedAt, nil
}

func (t *memTx) LockCredit(_ context.Context, id string) (decimal.Decimal, error) {
	credit, ok := t.credit[id]
	if !ok {
		return decimal.Zero, customer.ErrNotFound
	}
	return credit, nil
}

func (t *memTx) AdjustCredit(_ context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	credit, ok := t.credit[id]
	if !ok {
		return decimal.Zero, customer.ErrNotFound
	}
	next := credit.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, customer.ErrInsufficientCredit
	}
	t.credit[id] = next
	return next, nil
}

type captureEvents struct {
	mu     sync.Mutex
	topics []string
}

func (c *captureEvents) Emit(_ context.Context, topic, aggregateID string, _ any) (events.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	return events.Event{Topic: topic, AggregateID: aggregateID}, nil
}

type fixture struct {
	repo    *memRepo
	events  *captureEvents
	service *order.Service
	router  chi.Router
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemRepo()
	quotes, err := quote.NewService(quote.ServiceConfig{
		Settings:  staticSettings{},
		Catalog:   staticCatalog{},
		Customers: customerSource{repo: repo},
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	captured := &captureEvents{}
	svc, err := order.NewService(order.ServiceConfig{
		Repo:    repo,
		Quotes:  quotes,
		Locker:  lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond, MaxWait: time.Second},
		LockTTL: time.Second,
		Events:  captured,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	h := &order.Handler{Service: svc}
	r := chi.NewRouter()
	r.Get("/api/v1/orders", h.List)
	r.Post("/api/v1/orders", h.Create)
	r.Get("/api/v1/orders/{id}", h.Get)
	r.Put("/api/v1/orders/{id}", h.Update)
	r.Patch("/api/v1/orders/{id}/status", h.PatchStatus)
	r.Get("/api/v1/orders/{id}/quote", h.Quote)
	return fixture{repo: repo, events: captured, service: svc, router: r}
}

func pickup(weight int64, applyCredit bool) quote.Request {
	return quote.Request{
		CustomerID:  customerID,
		OrderType:   string(pricing.OrderTypeStorePickup),
		Bags:        []quote.BagInput{{Identifier: "A", Weight: common.NewFlexNumber(decimal.NewFromInt(weight))}},
		ApplyCredit: applyCredit,
	}
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got.String())
}

func TestCreatePaidWithCredit(t *testing.T) {
	f := newFixture(t)
	o, err := f.service.Create(context.Background(), pickup(14, true))
	require.NoError(t, err)

	requireMoney(t, "20", o.CalculatedTotal)
	requireMoney(t, "20", o.CreditApplied)
	requireMoney(t, "0", o.TotalAmount)
	require.True(t, o.IsPaid)
	require.Equal(t, order.PaymentCredit, o.PaymentMethod)
	require.Equal(t, int64(1), o.OrderNumber)
	requireMoney(t, "30", f.repo.balance(customerID))
	require.Equal(t, []string{events.TopicOrderCreated, events.TopicOrderPaid}, f.events.topics)
}

func TestCreatePartialCredit(t *testing.T) {
	f := newFixture(t)
	f.repo.credit[customerID] = dec("5")
	o, err := f.service.Create(context.Background(), pickup(14, true))
	require.NoError(t, err)
	requireMoney(t, "5", o.CreditApplied)
	requireMoney(t, "15", o.TotalAmount)
	require.False(t, o.IsPaid)
	requireMoney(t, "0", f.repo.balance(customerID))
	require.Equal(t, []string{events.TopicOrderCreated}, f.events.topics)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	req := pickup(14, false)
	override := common.NewFlexNumber(dec("12"))
	req.PriceOverride = &override
	_, err := f.service.Create(context.Background(), req)

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.Contains(t, appErr.Details, "priceChangeNote")

	req.PriceChangeNote = "loyal customer"
	o, err := f.service.Create(context.Background(), req)
	require.NoError(t, err)
	requireMoney(t, "12", o.TotalAmount)
	requireMoney(t, "20", o.CalculatedTotal)

	req = pickup(14, true)
	req.CustomerID = "00000000-0000-4000-8000-000000000000"
	_, err = f.service.Create(context.Background(), req)
	require.ErrorIs(t, err, customer.ErrNotFound)
}

func TestUpdateRefundsAndReapplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.service.Create(ctx, pickup(14, true))
	require.NoError(t, err)

	updated, err := f.service.Update(ctx, o.ID, pickup(20, true))
	require.NoError(t, err)
	requireMoney(t, "27.5", updated.CreditApplied)
	require.True(t, updated.IsPaid)
	require.Equal(t, o.OrderNumber, updated.OrderNumber)
	requireMoney(t, "22.5", f.repo.balance(customerID))

	updated, err = f.service.Update(ctx, o.ID, pickup(20, false))
	require.NoError(t, err)
	require.False(t, updated.IsPaid)
	requireMoney(t, "27.5", updated.TotalAmount)
	requireMoney(t, "50", f.repo.balance(customerID))
}

func TestStatusPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.service.Create(ctx, pickup(14, true))
	require.NoError(t, err)

	_, err = f.service.UpdateStatus(ctx, o.ID, order.StatusFolding)
	require.NoError(t, err)
	_, err = f.service.UpdateStatus(ctx, o.ID, order.StatusWashing)
	require.ErrorIs(t, err, order.ErrInvalidTransition)
	_, err = f.service.Update(ctx, o.ID, pickup(20, true))
	require.ErrorIs(t, err, order.ErrInvalidTransition)

	cancelled, err := f.service.UpdateStatus(ctx, o.ID, order.StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, order.StatusCancelled, cancelled.Status)
	requireMoney(t, "50", f.repo.balance(customerID))

	_, err = f.service.UpdateStatus(ctx, o.ID, order.StatusCompleted)
	require.ErrorIs(t, err, order.ErrInvalidTransition)
	require.Contains(t, f.events.topics, events.TopicOrderStatusChanged)
}

func TestRequoteMatchesSavedOrder(t *testing.T) {
	f := newFixture(t)
	req := pickup(17, true)
	req.IsSameDay = true
	req.ExtraItems = map[string]quote.SelectionInput{softenerID: {Quantity: common.NewFlexNumber(dec("3"))}}
	o, err := f.service.Create(context.Background(), req)
	require.NoError(t, err)

	res, saved, err := f.service.Requote(context.Background(), o.ID)
	require.NoError(t, err)
	require.False(t, saved.Drifted(res.Quote))
	requireMoney(t, o.CalculatedTotal.String(), res.Quote.CalculatedTotal)
}

func TestRequoteMatchesSavedOrderWithSubCentInputs(t *testing.T) {
	f := newFixture(t)
	price := common.NewFlexNumber(dec("1.755"))
	req := pickup(0, false)
	req.Bags[0].Weight = common.NewFlexNumber(dec("10.134"))
	req.ExtraItems = map[string]quote.SelectionInput{softenerID: {Quantity: common.NewFlexNumber(dec("3")), Price: &price}}
	o, err := f.service.Create(context.Background(), req)
	require.NoError(t, err)
	requireMoney(t, "10.13", o.Bags[0].Weight)
	requireMoney(t, "20.44", o.CalculatedTotal)

	res, saved, err := f.service.Requote(context.Background(), o.ID)
	require.NoError(t, err)
	require.False(t, saved.Drifted(res.Quote), "saved %s, requoted %s", saved.CalculatedTotal, res.Quote.CalculatedTotal)
}

func serve(f fixture, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestOrderHandlers(t *testing.T) {
	f := newFixture(t)
	body := `{"customerId":"` + customerID + `","orderType":"storePickup","bags":[{"identifier":"A","weight":"12"}]}`
	rr := serve(f, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		Data order.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, json.Number("17.50"), created.Data.TotalAmount)

	rr = serve(f, httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=pending", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "1", rr.Header().Get("X-Total-Count"))
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)

	poll := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=pending", nil)
	poll.Header.Set("If-None-Match", etag)
	require.Equal(t, http.StatusNotModified, serve(f, poll).Code)

	patch := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/"+created.Data.ID+"/status", strings.NewReader(`{"status":"washing"}`))
	require.Equal(t, http.StatusOK, serve(f, patch).Code)

	poll = httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=pending", nil)
	poll.Header.Set("If-None-Match", etag)
	rr = serve(f, poll)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "0", rr.Header().Get("X-Total-Count"))

	patch = httptest.NewRequest(http.MethodPatch, "/api/v1/orders/"+created.Data.ID+"/status", strings.NewReader(`{"status":"pending"}`))
	rr = serve(f, patch)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "INVALID_STATE")

	rr = serve(f, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+created.Data.ID+"/quote", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"drifted":false`)

	rr = serve(f, httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-an-id", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(f, httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=lost", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
