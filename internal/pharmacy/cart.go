// Package pharmacy holds per-user medicine carts and the orders placed from them.
package pharmacy

import (
	"sort"
	"sync"
)

type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Cart keeps one line per item id in the order items were first added.
type Cart struct {
	lines map[string]*line
	next  int
}

type line struct {
	item  Item
	order int
}

func NewCart() *Cart {
	return &Cart{lines: make(map[string]*line)}
}

// Add merges into an existing line by id. A zero or negative quantity counts as one.
func (c *Cart) Add(item Item) {
	qty := item.Quantity
	if qty <= 0 {
		qty = 1
	}
	if l, ok := c.lines[item.ID]; ok {
		l.item.Quantity += qty
		return
	}
	item.Quantity = qty
	c.lines[item.ID] = &line{item: item, order: c.next}
	c.next++
}

func (c *Cart) Remove(id string) bool {
	if _, ok := c.lines[id]; !ok {
		return false
	}
	delete(c.lines, id)
	return true
}

// Update shifts the quantity of a line by delta. A line that reaches zero is dropped.
func (c *Cart) Update(id string, delta int) bool {
	l, ok := c.lines[id]
	if !ok {
		return false
	}
	l.item.Quantity += delta
	if l.item.Quantity <= 0 {
		delete(c.lines, id)
	}
	return true
}

func (c *Cart) Items() []Item {
	ls := make([]*line, 0, len(c.lines))
	for _, l := range c.lines {
		ls = append(ls, l)
	}
	sort.Slice(ls, func(i, j int) bool { return ls[i].order < ls[j].order })

	items := make([]Item, len(ls))
	for i, l := range ls {
		items[i] = l.item
	}
	return items
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.item.Quantity
	}
	return n
}

func (c *Cart) Total() float64 {
	var total float64
	for _, l := range c.lines {
		total += l.item.Price * float64(l.item.Quantity)
	}
	return total
}

func (c *Cart) Clear() {
	c.lines = make(map[string]*line)
	c.next = 0
}

// Carts is the set of live carts keyed by user id. The map and each cart are
// locked separately, so work on one user's cart never waits on another's.
type Carts struct {
	mu    sync.Mutex
	carts map[string]*userCart
}

type userCart struct {
	mu   sync.Mutex
	cart *Cart
}

func NewCarts() *Carts {
	return &Carts{carts: make(map[string]*userCart)}
}

// With runs fn against the user's cart while holding that cart's lock,
// creating the cart on first use.
func (cs *Carts) With(userID string, fn func(c *Cart)) {
	cs.mu.Lock()
	uc, ok := cs.carts[userID]
	if !ok {
		uc = &userCart{cart: NewCart()}
		cs.carts[userID] = uc
	}
	cs.mu.Unlock()

	uc.mu.Lock()
	defer uc.mu.Unlock()
	fn(uc.cart)
}
