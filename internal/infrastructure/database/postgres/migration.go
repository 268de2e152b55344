// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/your-org/shopping-agent/internal/domain/cart"
	"github.com/your-org/shopping-agent/internal/domain/checkout"
	"github.com/your-org/shopping-agent/internal/domain/discovery"
	"github.com/your-org/shopping-agent/internal/domain/product"
	"github.com/your-org/shopping-agent/internal/domain/session"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Dependency order: catalog first, then sessions, then carts and checkouts
	models := []interface{}{
		&product.Retailer{},
		&product.Product{},
		&product.Variant{},

		&session.Session{},
		&session.Event{},

		&cart.Cart{},
		&cart.Item{},

		&checkout.Checkout{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_in_stock ON products(in_stock)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product ON product_variants(product_id)",

		// Session indexes
		"CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, id)",

		// Cart indexes
		"CREATE INDEX IF NOT EXISTS idx_carts_session_score ON carts(session_id, score DESC)",
		"CREATE INDEX IF NOT EXISTS idx_carts_session_selected ON carts(session_id, is_selected)",
		"CREATE INDEX IF NOT EXISTS idx_cart_items_cart ON cart_items(cart_id)",

		// Checkout indexes
		"CREATE INDEX IF NOT EXISTS idx_checkouts_session ON checkouts(session_id)",
		"CREATE INDEX IF NOT EXISTS idx_checkouts_status ON checkouts(status)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData loads the mock retailer catalogs into the store so the
// discovery and cart paths work without live retailer credentials.
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	adapters := []discovery.Adapter{
		discovery.NewMockRetailerA(),
		discovery.NewMockRetailerB(),
		discovery.NewMockRetailerC(),
	}

	seeded := 0
	for _, adapter := range adapters {
		// An empty query matches the adapter's entire catalog.
		products, err := adapter.Search(context.Background(), "", discovery.Filters{})
		if err != nil {
			return fmt.Errorf("failed to read catalog for %s: %w", adapter.RetailerName(), err)
		}

		for i := range products {
			p := products[i]

			retailer := p.Retailer
			if err := m.db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(&retailer).Error; err != nil {
				return fmt.Errorf("failed to seed retailer %s: %w", retailer.ID, err)
			}

			variants := p.Variants
			p.Variants = nil
			p.Retailer = product.Retailer{}
			if err := m.db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "retailer_id"}, {Name: "external_id"}},
				DoNothing: true,
			}).Create(&p).Error; err != nil {
				return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
			}

			for j := range variants {
				v := variants[j]
				if err := m.db.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "id"}},
					DoNothing: true,
				}).Create(&v).Error; err != nil {
					return fmt.Errorf("failed to seed variant %s: %w", v.ID, err)
				}
			}
			seeded++
		}
		log.Printf("✅ Seeded catalog for %s (%d products)", adapter.RetailerName(), len(products))
	}

	log.Printf("✅ Initial data seeded successfully (%d products)", seeded)
	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	log.Println("⚠️ WARNING: Dropping all database tables...")

	// Reverse dependency order
	tables := []string{
		"checkouts",
		"cart_items",
		"carts",
		"session_events",
		"sessions",
		"product_variants",
		"products",
		"retailers",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			log.Printf("⚠️ Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("🗑️ Dropped table: %s", table)
		}
	}

	log.Println("✅ All tables dropped successfully")
	return nil
}

// GetTableInfo returns information about database tables
func (m *Migration) GetTableInfo() error {
	var tables []string

	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}
