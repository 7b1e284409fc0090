package extraitem_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-laundry/internal/cache"
	"github.com/noah-isme/backend-laundry/internal/common"
	"github.com/noah-isme/backend-laundry/internal/extraitem"
	"github.com/noah-isme/backend-laundry/internal/pricing"
)

type memStore struct {
	items map[string]extraitem.Record
	lists int
}

func newMemStore(items ...extraitem.Record) *memStore {
	s := &memStore{items: map[string]extraitem.Record{}}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

func (m *memStore) List(_ context.Context, includeInactive bool) ([]extraitem.Record, error) {
	m.lists++
	var out []extraitem.Record
	for _, it := range m.items {
		if includeInactive || it.IsActive {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (extraitem.Record, error) {
	it, ok := m.items[id]
	if !ok {
		return extraitem.Record{}, extraitem.ErrNotFound
	}
	return it, nil
}

func (m *memStore) Insert(_ context.Context, r extraitem.Record) (extraitem.Record, error) {
	for _, it := range m.items {
		if strings.EqualFold(it.Name, r.Name) {
			return extraitem.Record{}, extraitem.ErrDuplicateName
		}
	}
	r.UpdatedAt = time.Now().UTC()
	m.items[r.ID] = r
	return r, nil
}

func (m *memStore) Update(_ context.Context, r extraitem.Record) (extraitem.Record, error) {
	if _, ok := m.items[r.ID]; !ok {
		return extraitem.Record{}, extraitem.ErrNotFound
	}
	m.items[r.ID] = r
	return r, nil
}

func item(name string, price string, unit string, active bool, order int) extraitem.Record {
	r := extraitem.Record{
		ExtraItem: pricing.ExtraItem{
			ID:       uuid.NewString(),
			Name:     name,
			Price:    decimal.RequireFromString(price),
			IsActive: active,
		},
		SortOrder: order,
	}
	if unit != "" {
		u := decimal.RequireFromString(unit)
		r.PerWeightUnit = &u
	}
	return r
}

func newService(t *testing.T, store extraitem.Store) *extraitem.Service {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc, err := extraitem.NewService(extraitem.ServiceConfig{Store: store, Cache: cache.NewJSON(client, time.Minute), Logger: zerolog.Nop()})
	require.NoError(t, err)
	return svc
}

func TestActiveFiltersAndCaches(t *testing.T) {
	store := newMemStore(
		item("Softener", "2", "", true, 1),
		item("Hypoallergenic", "3", "15", true, 2),
		item("Starch", "1", "", false, 3),
	)
	svc := newService(t, store)
	ctx := context.Background()

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.True(t, active[1].IsWeightBased())

	_, err = svc.Active(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, store.lists)

	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestCreateInvalidatesCatalogCache(t *testing.T) {
	store := newMemStore(item("Softener", "2", "", true, 1))
	svc := newService(t, store)
	ctx := context.Background()

	_, err := svc.Active(ctx)
	require.NoError(t, err)

	created, err := svc.Create(ctx, extraitem.WriteRequest{Name: " Hangers ", Price: flex("0.5")})
	require.NoError(t, err)
	require.Equal(t, "Hangers", created.Name)
	require.True(t, created.IsActive)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, 2, store.lists)
}

func TestCreateValidation(t *testing.T) {
	svc := newService(t, newMemStore())
	_, err := svc.Create(context.Background(), extraitem.WriteRequest{Name: "Bleach", Price: flex("-1")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid extra item")
}

func TestHandlersCreateUpdateList(t *testing.T) {
	store := newMemStore(item("Softener", "2", "", true, 1))
	h := &extraitem.Handler{Service: newService(t, store)}
	router := chi.NewRouter()
	router.Get("/api/v1/extra-items", h.List)
	router.Post("/api/v1/extra-items", h.Create)
	router.Put("/api/v1/extra-items/{id}", h.Update)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/extra-items",
		strings.NewReader(`{"name":"Hypoallergenic","price":"3","perWeightUnit":15,"sortOrder":2}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	var created struct {
		Data extraitem.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.True(t, created.Data.WeightBased)
	require.Equal(t, "3.00", created.Data.Price.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/extra-items",
		strings.NewReader(`{"name":"softener","price":1}`)))
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/extra-items/"+created.Data.ID,
		strings.NewReader(`{"name":"Hypoallergenic","price":3,"perWeightUnit":15,"isActive":false}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/extra-items", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotContains(t, rr.Body.String(), "Hypoallergenic")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/extra-items?all=true", nil))
	require.Contains(t, rr.Body.String(), "Hypoallergenic")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/extra-items/not-a-uuid",
		strings.NewReader(`{"name":"x","price":1}`)))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func flex(v string) common.FlexNumber {
	return common.NewFlexNumber(decimal.RequireFromString(v))
}
