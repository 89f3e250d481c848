package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rfp-service/internal/models"

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

// GetCatalog retrieves the full catalog in insertion order. Callers treat
// the result as a read-only snapshot for the duration of a matching run.
func (s *Store) GetCatalog(ctx context.Context) ([]models.CatalogProduct, error) {
	var products []models.CatalogProduct
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM catalog_products ORDER BY created_at, sku")
	return products, err
}

// GetProductBySKU retrieves a product by SKU
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.CatalogProduct, error) {
	var product models.CatalogProduct
	err := s.db.GetContext(ctx, &product, "SELECT * FROM catalog_products WHERE sku = $1", sku)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", sku)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpsertProduct inserts or updates a catalog product
func (s *Store) UpsertProduct(ctx context.Context, product *models.CatalogProduct) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_products (sku, name, specs, unit_price, stock)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sku) DO UPDATE
		SET name = EXCLUDED.name, specs = EXCLUDED.specs,
		    unit_price = EXCLUDED.unit_price, stock = EXCLUDED.stock`,
		product.SKU, product.Name, product.Specs, product.UnitPrice, product.Stock)
	return err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
