package pharmacy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const StatusPlaced = "Placed"

type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Items     []Item    `json:"items"`
	Total     float64   `json:"total"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type OrderRepository interface {
	Save(ctx context.Context, o Order) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) OrderRepository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Save(ctx context.Context, o Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO orders (id, user_id, items, total, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query, o.ID, o.UserID, itemsJSON, o.Total, o.Status, o.CreatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	query := `SELECT id, user_id, items, total, status, created_at FROM orders WHERE user_id = $1 ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var o Order
		var itemsJSON []byte
		if err := rows.Scan(&o.ID, &o.UserID, &itemsJSON, &o.Total, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type memoryRepo struct {
	mu     sync.RWMutex
	orders []Order
}

func NewMemoryRepository() OrderRepository {
	return &memoryRepo{}
}

func (r *memoryRepo) Save(ctx context.Context, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, o)
	return nil
}

func (r *memoryRepo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Order{}
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}
