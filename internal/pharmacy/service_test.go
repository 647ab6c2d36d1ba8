package pharmacy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	svc := NewService(repo, nil)

	_, err := svc.Checkout(ctx, "u1")
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.AddItem(ctx, "u1", Item{ID: "para", Name: "Paracetamol", Price: 2.5, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u2", Item{ID: "ors", Name: "ORS Sachet", Price: 1})
	require.NoError(t, err)

	order, err := svc.Checkout(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StatusPlaced, order.Status)
	assert.Equal(t, "u1", order.UserID)
	assert.InDelta(t, 5.0, order.Total, 1e-9)
	assert.NotEmpty(t, order.ID)

	assert.Zero(t, svc.GetCart(ctx, "u1").Count)
	assert.Equal(t, 1, svc.GetCart(ctx, "u2").Count)

	orders, err := svc.Orders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

// blockingRepo holds Save until release is closed.
type blockingRepo struct {
	OrderRepository
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRepo) Save(ctx context.Context, o Order) error {
	close(r.entered)
	<-r.release
	return r.OrderRepository.Save(ctx, o)
}

func TestCheckoutLocksOnlyOneCart(t *testing.T) {
	ctx := context.Background()
	repo := &blockingRepo{OrderRepository: NewMemoryRepository(), entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(repo, nil)

	_, err := svc.AddItem(ctx, "u1", Item{ID: "para", Name: "Paracetamol", Price: 2.5})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Checkout(ctx, "u1")
		done <- err
	}()
	<-repo.entered

	added := make(chan struct{})
	go func() {
		defer close(added)
		_, err := svc.AddItem(ctx, "u2", Item{ID: "ors", Name: "ORS Sachet", Price: 1})
		assert.NoError(t, err)
	}()
	select {
	case <-added:
	case <-time.After(time.Second):
		t.Fatal("another user's cart waited on checkout")
	}

	close(repo.release)
	require.NoError(t, <-done)
	assert.Zero(t, svc.GetCart(ctx, "u1").Count)
	assert.Equal(t, 1, svc.GetCart(ctx, "u2").Count)
}

func TestAddItemRejectsInvalid(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	_, err := svc.AddItem(context.Background(), "u1", Item{Name: "No ID", Price: 1})
	assert.ErrorIs(t, err, ErrInvalidItem)
	_, err = svc.RemoveItem(context.Background(), "u1", "ghost")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestHandlerCartFlow(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		RegisterRoutes(r, NewHandler(NewService(NewMemoryRepository(), nil), nil))
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/cart/u1/checkout", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPost, "/api/cart/u1", `{"id":"para","name":"Paracetamol","price":2.5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodPatch, "/api/cart/u1/para", `{"delta":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var v CartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, 3, v.Count)

	rec = do(http.MethodPatch, "/api/cart/u1/ghost", `{"delta":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(http.MethodPost, "/api/cart/u1/checkout", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var order Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.InDelta(t, 7.5, order.Total, 1e-9)

	rec = do(http.MethodGet, "/api/orders/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)

	rec = do(http.MethodGet, "/api/cart/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Zero(t, v.Count)
}
