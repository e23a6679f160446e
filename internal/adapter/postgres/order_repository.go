package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `
	id, customer_name, customer_phone, address, pickup, discount, total, status,
	payment_method, COALESCE(courier_id, ''), verification_code, tags, version, created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.Version == 0 {
		order.Version = 1
	}

	return r.db.InTx(ctx, func(tx Querier) error {
		query := `
			INSERT INTO orders (id, customer_name, customer_phone, address, pickup, discount, total,
			                    status, payment_method, courier_id, verification_code, tags, version,
			                    created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13, $14, $15)
		`
		_, err := tx.Exec(ctx, query,
			order.ID, order.CustomerName, order.CustomerPhone, order.Address, order.Pickup,
			order.Discount, order.Total, order.Status, order.PaymentMethod, order.CourierID,
			order.VerificationCode, tagsOrEmpty(order.Tags), order.Version, order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("order %s: %w", order.ID, domain.ErrAlreadyExists)
			}
			return fmt.Errorf("failed to insert order: %w", err)
		}

		if err := insertItems(ctx, tx, order.ID, order.Items); err != nil {
			return err
		}
		if err := insertHistory(ctx, tx, order.ID, order.History, 0); err != nil {
			return err
		}
		return insertNotes(ctx, tx, order.ID, order.ManagerNotes, 0)
	})
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return loadOrder(ctx, r.db, id, false)
}

func (r *orderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	byID := make(map[string]*domain.Order)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
		byID[order.ID] = order
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	rows.Close()

	if err := loadChildren(ctx, r.db, byID, "", nil); err != nil {
		return nil, err
	}
	return orders, nil
}

// Update locks the order row for the length of one transaction, so
// concurrent writers of the same order run one after another.
func (r *orderRepository) Update(ctx context.Context, id string, mutate interfaces.MutateFunc) (*domain.Order, error) {
	var result *domain.Order

	err := r.db.InTx(ctx, func(tx Querier) error {
		current, err := loadOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			if errors.Is(err, domain.ErrUnchanged) {
				result = current
				return nil
			}
			return err
		}
		next.ID = current.ID
		next.Version = current.Version + 1

		query := `
			UPDATE orders
			SET customer_name = $1, customer_phone = $2, address = $3, discount = $4, total = $5,
			    status = $6, payment_method = $7, courier_id = NULLIF($8, ''), tags = $9,
			    version = $10, updated_at = $11
			WHERE id = $12 AND version = $13
		`
		tag, err := tx.Exec(ctx, query,
			next.CustomerName, next.CustomerPhone, next.Address, next.Discount, next.Total,
			next.Status, next.PaymentMethod, next.CourierID, tagsOrEmpty(next.Tags),
			next.Version, next.UpdatedAt, next.ID, current.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("order %s changed during update", id)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return fmt.Errorf("failed to replace order items: %w", err)
		}
		if err := insertItems(ctx, tx, id, next.Items); err != nil {
			return err
		}
		// history and notes are append-only: only the new tail is written
		if err := insertHistory(ctx, tx, id, next.History, len(current.History)); err != nil {
			return err
		}
		if err := insertNotes(ctx, tx, id, next.ManagerNotes, len(current.ManagerNotes)); err != nil {
			return err
		}

		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) NextID(ctx context.Context) (string, error) {
	for {
		var n int64
		if err := r.db.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n); err != nil {
			return "", fmt.Errorf("failed to generate order id: %w", err)
		}
		id := fmt.Sprintf("ORD-%d", n)

		var taken bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&taken); err != nil {
			return "", fmt.Errorf("failed to check order id: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
}

func loadOrder(ctx context.Context, q Querier, id string, forUpdate bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	order, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.OrderNotFound(id)
		}
		return nil, err
	}

	if err := loadChildren(ctx, q, map[string]*domain.Order{id: order}, ` WHERE order_id = $1`, []any{id}); err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrder(row Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.CustomerName, &o.CustomerPhone, &o.Address, &o.Pickup, &o.Discount, &o.Total,
		&o.Status, &o.PaymentMethod, &o.CourierID, &o.VerificationCode, &o.Tags, &o.Version,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	o.Items = []domain.LineItem{}
	o.History = []domain.HistoryEntry{}
	o.ManagerNotes = []domain.ManagerNote{}
	if o.Tags == nil {
		o.Tags = []string{}
	}
	return &o, nil
}

// loadChildren fills items, history and notes for the given orders.
// where and args narrow the child queries; empty loads every row.
func loadChildren(ctx context.Context, q Querier, orders map[string]*domain.Order, where string, args []any) error {
	rows, err := q.Query(ctx, `
		SELECT order_id, product_ref, name, unit_price, buy_price, quantity, selected_size, selected_color, images
		FROM order_items`+where+` ORDER BY order_id, position`, args...)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	for rows.Next() {
		var (
			orderID string
			item    domain.LineItem
			buy     decimal.NullDecimal
		)
		if err := rows.Scan(&orderID, &item.ProductRef, &item.Name, &item.UnitPrice, &buy, &item.Quantity,
			&item.SelectedSize, &item.SelectedColor, &item.Images); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if buy.Valid {
			item.BuyPrice = &buy.Decimal
		}
		if o, ok := orders[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT order_id, changed_at, description, actor, from_status, to_status
		FROM order_history`+where+` ORDER BY order_id, position`, args...)
	if err != nil {
		return fmt.Errorf("failed to load order history: %w", err)
	}
	for rows.Next() {
		var (
			orderID string
			entry   domain.HistoryEntry
		)
		if err := rows.Scan(&orderID, &entry.Timestamp, &entry.Description, &entry.Actor, &entry.FromStatus, &entry.ToStatus); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan history entry: %w", err)
		}
		if o, ok := orders[orderID]; ok {
			o.History = append(o.History, entry)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load order history: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT order_id, id, author, body, created_at
		FROM order_notes`+where+` ORDER BY order_id, position`, args...)
	if err != nil {
		return fmt.Errorf("failed to load manager notes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID string
			note    domain.ManagerNote
		)
		if err := rows.Scan(&orderID, &note.ID, &note.Author, &note.Text, &note.Timestamp); err != nil {
			return fmt.Errorf("failed to scan manager note: %w", err)
		}
		if o, ok := orders[orderID]; ok {
			o.ManagerNotes = append(o.ManagerNotes, note)
		}
	}
	return rows.Err()
}

func insertItems(ctx context.Context, q Querier, orderID string, items []domain.LineItem) error {
	query := `
		INSERT INTO order_items (order_id, position, product_ref, name, unit_price, buy_price,
		                         quantity, selected_size, selected_color, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for i, item := range items {
		buy := decimal.NullDecimal{}
		if item.BuyPrice != nil {
			buy = decimal.NullDecimal{Decimal: *item.BuyPrice, Valid: true}
		}
		images := item.Images
		if images == nil {
			images = []string{}
		}
		if _, err := q.Exec(ctx, query, orderID, i, item.ProductRef, item.Name, item.UnitPrice, buy,
			item.Quantity, item.SelectedSize, item.SelectedColor, images); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

func insertHistory(ctx context.Context, q Querier, orderID string, history []domain.HistoryEntry, from int) error {
	query := `
		INSERT INTO order_history (order_id, position, changed_at, description, actor, from_status, to_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i := from; i < len(history); i++ {
		h := history[i]
		if _, err := q.Exec(ctx, query, orderID, i, h.Timestamp, h.Description, h.Actor, h.FromStatus, h.ToStatus); err != nil {
			return fmt.Errorf("failed to log history: %w", err)
		}
	}
	return nil
}

func insertNotes(ctx context.Context, q Querier, orderID string, notes []domain.ManagerNote, from int) error {
	query := `
		INSERT INTO order_notes (id, order_id, position, author, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i := from; i < len(notes); i++ {
		n := notes[i]
		if _, err := q.Exec(ctx, query, n.ID, orderID, i, n.Author, n.Text, n.Timestamp); err != nil {
			return fmt.Errorf("failed to insert manager note: %w", err)
		}
	}
	return nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
