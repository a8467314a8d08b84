package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stock-assistant/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetSellerByTelegramID resolves a chat identity to a seller row.
func (s *Store) GetSellerByTelegramID(ctx context.Context, telegramID int64) (*models.Seller, error) {
	var seller models.Seller
	err := s.db.GetContext(ctx, &seller, "SELECT * FROM sellers WHERE telegram_id = $1", telegramID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("seller with telegram id %d: %w", telegramID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

// GetSellerByID retrieves a seller by internal id.
func (s *Store) GetSellerByID(ctx context.Context, id int64) (*models.Seller, error) {
	var seller models.Seller
	err := s.db.GetContext(ctx, &seller, "SELECT * FROM sellers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("seller %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

// GetSellers retrieves all sellers.
func (s *Store) GetSellers(ctx context.Context) ([]models.Seller, error) {
	var sellers []models.Seller
	err := s.db.SelectContext(ctx, &sellers, "SELECT * FROM sellers ORDER BY name")
	return sellers, err
}

// GetProducts retrieves the whole catalog ordered by name.
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT id, name, price, price_seller, purchase_price FROM products ORDER BY name")
	return products, err
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT id, name, price, price_seller, purchase_price FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// AdjustStock applies one signed stock delta: it upserts the seller_stock row
// and appends the matching stock_movements record in a single transaction, so
// a reader can never observe one without the other. The resulting quantity is
// returned; negative results are permitted.
func (s *Store) AdjustStock(ctx context.Context, adj models.StockAdjustment) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	quantity, err := applyAdjustmentTx(ctx, tx, adj)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit stock adjustment: %w", err)
	}
	return quantity, nil
}

// applyAdjustmentTx performs the paired stock upsert + movement append inside
// an existing transaction. All batch operations (finalize, transfer, purchase)
// funnel through here.
func applyAdjustmentTx(ctx context.Context, tx *sqlx.Tx, adj models.StockAdjustment) (int64, error) {
	var quantity int64
	err := tx.GetContext(ctx, &quantity, `
		INSERT INTO seller_stock (seller_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (seller_id, product_id)
		DO UPDATE SET quantity = seller_stock.quantity + EXCLUDED.quantity
		RETURNING quantity`,
		adj.SellerID, adj.ProductID, adj.Delta)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert seller stock: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_movements (product_id, seller_id, quantity_change, reason, order_id)
		VALUES ($1, $2, $3, $4, $5)`,
		adj.ProductID, adj.SellerID, adj.Delta, adj.Reason, adj.OrderID)
	if err != nil {
		return 0, fmt.Errorf("failed to append stock movement: %w", err)
	}

	return quantity, nil
}

// GetSellerStock retrieves one (seller, product) balance; a missing row reads
// as zero.
func (s *Store) GetSellerStock(ctx context.Context, sellerID, productID int64) (int64, error) {
	var quantity int64
	err := s.db.GetContext(ctx, &quantity,
		"SELECT quantity FROM seller_stock WHERE seller_id = $1 AND product_id = $2",
		sellerID, productID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return quantity, err
}

// GetStockBySeller lists a seller's balances joined with product names.
func (s *Store) GetStockBySeller(ctx context.Context, sellerID int64) ([]models.StockLine, error) {
	var lines []models.StockLine
	err := s.db.SelectContext(ctx, &lines, `
		SELECT ss.product_id, p.name AS product_name, ss.quantity
		FROM seller_stock ss
		JOIN products p ON ss.product_id = p.id
		WHERE ss.seller_id = $1
		ORDER BY p.name`, sellerID)
	return lines, err
}

// GetNegativeStock lists a seller's oversold balances.
func (s *Store) GetNegativeStock(ctx context.Context, sellerID int64) ([]models.StockLine, error) {
	var lines []models.StockLine
	err := s.db.SelectContext(ctx, &lines, `
		SELECT ss.product_id, p.name AS product_name, ss.quantity
		FROM seller_stock ss
		JOIN products p ON ss.product_id = p.id
		WHERE ss.seller_id = $1 AND ss.quantity < 0
		ORDER BY p.name`, sellerID)
	return lines, err
}

// SumMovements returns the algebraic sum of all movement deltas for one
// (seller, product) pair. It must always equal the seller_stock balance.
func (s *Store) SumMovements(ctx context.Context, sellerID, productID int64) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(quantity_change), 0)
		FROM stock_movements
		WHERE seller_id = $1 AND product_id = $2`,
		sellerID, productID)
	return sum, err
}
