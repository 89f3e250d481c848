package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rfp-service/internal/models"
	"rfp-service/internal/redisclient"
	"rfp-service/internal/store"
	"rfp-service/internal/util"
)

// CatalogService serves read-only catalog snapshots to pipeline runs and
// keeps the Redis snapshot cache coherent with catalog writes.
type CatalogService struct {
	store  *store.Store
	redis  *redisclient.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store *store.Store, redis *redisclient.Client) *CatalogService {
	return &CatalogService{
		store:  store,
		redis:  redis,
		ttl:    snapshotTTL,
		logger: util.GetLogger(),
	}
}

// Snapshot returns the catalog as a point-in-time copy. The cached copy is
// preferred; on a miss the database is read and the cache refilled. A run
// that got its snapshot never observes later catalog writes.
func (cs *CatalogService) Snapshot(ctx context.Context) ([]models.CatalogProduct, error) {
	products, err := cs.redis.GetCatalogSnapshot(ctx)
	if err == nil {
		return products, nil
	}
	if !errors.Is(err, redisclient.ErrSnapshotMiss) {
		cs.logger.Warn("Catalog snapshot cache unavailable", zap.Error(err))
	}
	util.CatalogSnapshotMisses.Inc()

	products, err = cs.store.GetCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	if err := cs.redis.SetCatalogSnapshot(ctx, products, cs.ttl); err != nil {
		cs.logger.Warn("Failed to cache catalog snapshot", zap.Error(err))
	}
	return products, nil
}

// UpsertProduct writes a product and invalidates the cached snapshot so the
// next run sees the change.
func (cs *CatalogService) UpsertProduct(ctx context.Context, product *models.CatalogProduct) error {
	if err := cs.store.UpsertProduct(ctx, product); err != nil {
		return err
	}
	if err := cs.redis.InvalidateCatalogSnapshot(ctx); err != nil {
		cs.logger.Warn("Failed to invalidate catalog snapshot", zap.Error(err))
	}
	return nil
}

// SeedDemo loads the demo paint catalog. Existing SKUs are updated in place,
// so seeding is safe to repeat on every startup.
func (cs *CatalogService) SeedDemo(ctx context.Context) error {
	for _, p := range demoCatalog() {
		p := p
		if err := cs.store.UpsertProduct(ctx, &p); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.SKU, err)
		}
	}
	if err := cs.redis.InvalidateCatalogSnapshot(ctx); err != nil {
		cs.logger.Warn("Failed to invalidate catalog snapshot after seed", zap.Error(err))
	}
	cs.logger.Info("Demo catalog seeded", zap.Int("products", len(demoCatalog())))
	return nil
}

func demoCatalog() []models.CatalogProduct {
	price := decimal.RequireFromString
	return []models.CatalogProduct{
		{SKU: "MP-4400", Name: "Marine Shield Pro", Specs: "saltwater resistant hull coating, waterproof, anti-corrosion", UnitPrice: price("48.50"), Stock: 2500},
		{SKU: "MP-4410", Name: "Marine Shield Standard", Specs: "waterproof exterior coating for ship decks", UnitPrice: price("36.00"), Stock: 1800},
		{SKU: "IP-2100", Name: "Industrial Gloss White", Specs: "heavy-duty industrial interior paint, chemical resistant", UnitPrice: price("22.75"), Stock: 4000},
		{SKU: "IP-2150", Name: "Industrial Matte Grey", Specs: "matte industrial warehouse floor coating", UnitPrice: price("19.90"), Stock: 3200},
		{SKU: "EX-3300", Name: "Exterior Weather Guard", Specs: "uv resistant exterior paint for coastal weather", UnitPrice: price("31.25"), Stock: 2200},
		{SKU: "EP-5500", Name: "Epoxy Floor Armor", Specs: "two-part epoxy floor coating, heavy-duty, chemical resistant", UnitPrice: price("54.00"), Stock: 900},
		{SKU: "AU-6200", Name: "AutoCoat Finish", Specs: "automotive fast-dry gloss finish", UnitPrice: price("42.10"), Stock: 600},
		{SKU: "FR-7100", Name: "FlameStop Barrier", Specs: "fire retardant flame resistant industrial coating", UnitPrice: price("67.80"), Stock: 450},
		{SKU: "IN-8000", Name: "Interior Soft Matte", Specs: "low-odor interior matte paint, quick-dry", UnitPrice: price("16.40"), Stock: 5000},
		{SKU: "HT-9300", Name: "ThermoCoat 600", Specs: "high-temperature resistant coating for industrial equipment", UnitPrice: price("73.50"), Stock: 300},
	}
}
