package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrItemNotFound = errors.New("item not in cart")
	ErrInvalidItem  = errors.New("item needs an id, a name and a non-negative price")
)

// CartView is the client-facing snapshot of a cart.
type CartView struct {
	Items []Item  `json:"items"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

type Service interface {
	GetCart(ctx context.Context, userID string) CartView
	AddItem(ctx context.Context, userID string, item Item) (CartView, error)
	RemoveItem(ctx context.Context, userID, itemID string) (CartView, error)
	UpdateItem(ctx context.Context, userID, itemID string, delta int) (CartView, error)
	ClearCart(ctx context.Context, userID string)
	Checkout(ctx context.Context, userID string) (Order, error)
	Orders(ctx context.Context, userID string) ([]Order, error)
}

type service struct {
	carts  *Carts
	repo   OrderRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo OrderRepository, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{carts: NewCarts(), repo: repo, logger: logger, now: time.Now}
}

func view(c *Cart) CartView {
	return CartView{Items: c.Items(), Count: c.Count(), Total: c.Total()}
}

func (s *service) GetCart(ctx context.Context, userID string) CartView {
	var v CartView
	s.carts.With(userID, func(c *Cart) { v = view(c) })
	return v
}

func (s *service) AddItem(ctx context.Context, userID string, item Item) (CartView, error) {
	if item.ID == "" || item.Name == "" || item.Price < 0 {
		return CartView{}, ErrInvalidItem
	}
	var v CartView
	s.carts.With(userID, func(c *Cart) {
		c.Add(item)
		v = view(c)
	})
	return v, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID string) (CartView, error) {
	var v CartView
	var ok bool
	s.carts.With(userID, func(c *Cart) {
		ok = c.Remove(itemID)
		v = view(c)
	})
	if !ok {
		return v, ErrItemNotFound
	}
	return v, nil
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID string, delta int) (CartView, error) {
	var v CartView
	var ok bool
	s.carts.With(userID, func(c *Cart) {
		ok = c.Update(itemID, delta)
		v = view(c)
	})
	if !ok {
		return v, ErrItemNotFound
	}
	return v, nil
}

func (s *service) ClearCart(ctx context.Context, userID string) {
	s.carts.With(userID, func(c *Cart) { c.Clear() })
}

// Checkout turns the cart into a placed order. The cart is emptied only
// after the order is stored; only this user's cart is locked meanwhile.
func (s *service) Checkout(ctx context.Context, userID string) (Order, error) {
	var (
		order Order
		err   error
	)
	s.carts.With(userID, func(c *Cart) {
		if c.Count() == 0 {
			err = ErrEmptyCart
			return
		}
		order = Order{
			ID:        uuid.NewString(),
			UserID:    userID,
			Items:     c.Items(),
			Total:     c.Total(),
			Status:    StatusPlaced,
			CreatedAt: s.now(),
		}
		if err = s.repo.Save(ctx, order); err != nil {
			err = fmt.Errorf("save order: %w", err)
			return
		}
		c.Clear()
	})
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.Float64("total", order.Total),
	)
	return order, nil
}

func (s *service) Orders(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}
