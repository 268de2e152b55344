// internal/domain/cart/service_test.go
package cart_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/shopping-agent/internal/domain/cart"
	"github.com/your-org/shopping-agent/internal/domain/product"
	"github.com/your-org/shopping-agent/internal/domain/session"
)

// dbProductSource reads the catalog straight from the test database.
type dbProductSource struct {
	db *gorm.DB
}

func (s dbProductSource) GetProduct(ctx context.Context, productID string) (*product.Product, error) {
	var p product.Product
	err := s.db.WithContext(ctx).Preload("Retailer").Preload("Variants").
		Where("id = ?", productID).First(&p).Error
	if err == gorm.ErrRecordNotFound {
		return nil, product.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s dbProductSource) GetProductsByCategory(ctx context.Context, category string, limit int) ([]product.Product, error) {
	var products []product.Product
	err := s.db.WithContext(ctx).
		Where("LOWER(category) LIKE ? AND in_stock = ?", "%"+strings.ToLower(category)+"%", true).
		Order("price asc").Limit(limit).Find(&products).Error
	return products, err
}

type cartFixture struct {
	db       *gorm.DB
	svc      *cart.Service
	sessions *session.Service
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&product.Retailer{}, &product.Product{}, &product.Variant{},
		&session.Session{}, &session.Event{},
		&cart.Cart{}, &cart.Item{},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)

	sessions := session.NewService(db, nil, nil, log)
	svc := cart.NewService(db, dbProductSource{db: db}, sessions, log)

	return &cartFixture{db: db, svc: svc, sessions: sessions}
}

func (f *cartFixture) seedProduct(t *testing.T, id, category string, price float64, deliveryDays int) product.Product {
	t.Helper()

	retailer := product.Retailer{ID: "retailer-a", Name: "Mountain Gear Pro", IsActive: true}
	require.NoError(t, f.db.Where("id = ?", retailer.ID).FirstOrCreate(&retailer).Error)

	p := product.Product{
		ID:           id,
		ExternalID:   "ext-" + id,
		RetailerID:   retailer.ID,
		Name:         "Product " + id,
		Category:     category,
		Price:        price,
		Currency:     "USD",
		InStock:      true,
		DeliveryDays: deliveryDays,
	}
	require.NoError(t, f.db.Create(&p).Error)

	variant := product.Variant{
		ID:        id + "-m",
		ProductID: id,
		Size:      "M",
		Price:     price + 10,
		InStock:   true,
	}
	require.NoError(t, f.db.Create(&variant).Error)
	return p
}

func (f *cartFixture) newCart(t *testing.T, sessionID string) *cart.Cart {
	t.Helper()

	c := &cart.Cart{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Strategy:  cart.StrategyBestValue,
	}
	require.NoError(t, f.db.Create(c).Error)
	return c
}

func TestCartTotalInvariant(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p1", "ski jacket", 100, 3)
	f.seedProduct(t, "p2", "ski pants", 50, 2)
	c := f.newCart(t, "sess-1")

	updated, err := f.svc.AddItem(ctx, c.ID, "p1", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 200.0, updated.TotalCost)

	updated, err = f.svc.AddItem(ctx, c.ID, "p2", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 250.0, updated.TotalCost)

	// Every line holds unit price times quantity.
	for _, item := range updated.Items {
		assert.Equal(t, item.UnitPrice*float64(item.Quantity), item.TotalPrice)
	}

	itemID := updated.Items[0].ID
	three := 3
	updated, err = f.svc.UpdateItem(ctx, c.ID, itemID, &three, nil)
	require.NoError(t, err)

	sum := 0.0
	for _, item := range updated.Items {
		sum += item.TotalPrice
	}
	assert.Equal(t, sum, updated.TotalCost)

	updated, err = f.svc.RemoveItem(ctx, c.ID, itemID)
	require.NoError(t, err)
	sum = 0.0
	for _, item := range updated.Items {
		sum += item.TotalPrice
	}
	assert.Equal(t, sum, updated.TotalCost)
}

func TestAddItemVariantPriceOverride(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p1", "ski jacket", 100, 3)
	c := f.newCart(t, "sess-1")

	variantID := "p1-m"
	updated, err := f.svc.AddItem(ctx, c.ID, "p1", &variantID, 1)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, 110.0, updated.Items[0].UnitPrice)
	assert.Equal(t, 110.0, updated.TotalCost)
}

func TestAddItemUnknownProduct(t *testing.T) {
	f := newCartFixture(t)
	c := f.newCart(t, "sess-1")

	_, err := f.svc.AddItem(context.Background(), c.ID, "missing", nil, 1)
	assert.ErrorIs(t, err, cart.ErrProductNotFound)
}

func TestRemoveItemScopedToCart(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p1", "ski jacket", 100, 3)
	cartA := f.newCart(t, "sess-1")
	cartB := f.newCart(t, "sess-1")

	withItem, err := f.svc.AddItem(ctx, cartA.ID, "p1", nil, 1)
	require.NoError(t, err)

	// Deleting through the wrong cart must not touch the item.
	_, err = f.svc.RemoveItem(ctx, cartB.ID, withItem.Items[0].ID)
	assert.ErrorIs(t, err, cart.ErrItemNotFound)

	still, err := f.svc.GetCart(ctx, cartA.ID)
	require.NoError(t, err)
	assert.Len(t, still.Items, 1)
}

func TestSelectCartSingleSelection(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	sess, err := f.sessions.Create(ctx)
	require.NoError(t, err)

	cartA := f.newCart(t, sess.ID)
	cartB := f.newCart(t, sess.ID)

	_, err = f.svc.SelectCart(ctx, sess.ID, cartA.ID)
	require.NoError(t, err)

	selected, err := f.svc.SelectCart(ctx, sess.ID, cartB.ID)
	require.NoError(t, err)
	assert.True(t, selected.IsSelected)

	var count int64
	require.NoError(t, f.db.Model(&cart.Cart{}).
		Where("session_id = ? AND is_selected = ?", sess.ID, true).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	refreshed, err := f.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCart, refreshed.Status)
}

func TestSelectCartUnknownCart(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	sess, err := f.sessions.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.SelectCart(ctx, sess.ID, uuid.New().String())
	assert.ErrorIs(t, err, cart.ErrNotFound)
}

func TestOptimizeCartCheaper(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p1", "ski jacket", 189.99, 3)
	f.seedProduct(t, "p2", "ski jacket", 119.99, 2)
	c := f.newCart(t, "sess-1")

	_, err := f.svc.AddItem(ctx, c.ID, "p1", nil, 1)
	require.NoError(t, err)

	result, err := f.svc.OptimizeCart(ctx, c.ID, cart.GoalCheaper)
	require.NoError(t, err)
	require.Len(t, result.Swaps, 1)
	assert.Equal(t, 119.99, result.Swaps[0].ToPrice)
	assert.Equal(t, 119.99, result.Cart.TotalCost)
	require.Len(t, result.Cart.Items, 1)
	assert.Equal(t, "p2", result.Cart.Items[0].ProductID)
}

func TestOptimizeCartFaster(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p1", "ski jacket", 119.99, 3)
	f.seedProduct(t, "p2", "ski jacket", 189.99, 1)
	c := f.newCart(t, "sess-1")

	_, err := f.svc.AddItem(ctx, c.ID, "p1", nil, 1)
	require.NoError(t, err)

	result, err := f.svc.OptimizeCart(ctx, c.ID, cart.GoalFaster)
	require.NoError(t, err)
	require.Len(t, result.Cart.Items, 1)
	assert.Equal(t, "p2", result.Cart.Items[0].ProductID)
}

func TestOptimizeCartNoAlternativesLeavesItem(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p1", "ski jacket", 189.99, 3)
	c := f.newCart(t, "sess-1")

	_, err := f.svc.AddItem(ctx, c.ID, "p1", nil, 1)
	require.NoError(t, err)

	result, err := f.svc.OptimizeCart(ctx, c.ID, cart.GoalCheaper)
	require.NoError(t, err)
	assert.Empty(t, result.Swaps)
	assert.Equal(t, "p1", result.Cart.Items[0].ProductID)
}

func TestOptimizeCartInvalidGoal(t *testing.T) {
	f := newCartFixture(t)
	c := f.newCart(t, "sess-1")

	_, err := f.svc.OptimizeCart(context.Background(), c.ID, "fancier")
	assert.ErrorIs(t, err, cart.ErrInvalidGoal)
}
