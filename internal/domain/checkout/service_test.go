// internal/domain/checkout/service_test.go
package checkout

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/shopping-agent/internal/config"
	"github.com/your-org/shopping-agent/internal/domain/cart"
	"github.com/your-org/shopping-agent/internal/domain/product"
	"github.com/your-org/shopping-agent/internal/domain/session"
)

type checkoutFixture struct {
	db       *gorm.DB
	svc      *Service
	sessions *session.Service
	clock    time.Time
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
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
		&Checkout{},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		Checkout: config.CheckoutConfig{
			SimulationDuration: 10 * time.Second,
			RetailerShipping:   9.99,
		},
	}

	f := &checkoutFixture{
		db:       db,
		sessions: session.NewService(db, nil, nil, log),
		clock:    time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(db, f.sessions, cfg, log)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *checkoutFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

// seedCart creates a session and a selected cart with one item per retailer.
func (f *checkoutFixture) seedCart(t *testing.T, retailerCount int) (sessionID, cartID string) {
	t.Helper()

	sess, err := f.sessions.Create(context.Background())
	require.NoError(t, err)

	c := cart.Cart{
		ID:         "cart-1",
		SessionID:  sess.ID,
		Strategy:   cart.StrategyBestValue,
		IsSelected: true,
	}
	require.NoError(t, f.db.Create(&c).Error)

	retailers := []struct{ id, name string }{
		{"retailer-a", "Mountain Gear Pro"},
		{"retailer-b", "Summit Sports Outlet"},
		{"retailer-c", "Apex Alpine Boutique"},
	}
	for i := 0; i < retailerCount; i++ {
		r := product.Retailer{ID: retailers[i].id, Name: retailers[i].name, Slug: retailers[i].id, IsActive: true}
		require.NoError(t, f.db.Create(&r).Error)

		p := product.Product{
			ID:           retailers[i].id + "-p",
			ExternalID:   "ext-" + retailers[i].id,
			RetailerID:   r.ID,
			Name:         "Product " + r.ID,
			Category:     "ski jacket",
			Price:        100,
			Currency:     "USD",
			InStock:      true,
			DeliveryDays: 3,
		}
		require.NoError(t, f.db.Create(&p).Error)

		item := cart.Item{
			ID:         p.ID + "-item",
			CartID:     c.ID,
			ProductID:  p.ID,
			Quantity:   1,
			UnitPrice:  100,
			TotalPrice: 100,
		}
		require.NoError(t, f.db.Create(&item).Error)
	}

	require.NoError(t, f.db.Model(&cart.Cart{}).
		Where("id = ?", c.ID).
		Update("total_cost", float64(retailerCount)*100).Error)

	return sess.ID, c.ID
}

func testAddress() ShippingAddress {
	return ShippingAddress{
		Name:       "Jordan Blake",
		Line1:      "42 Powder Lane",
		City:       "Denver",
		State:      "CO",
		PostalCode: "80202",
		Country:    "US",
	}
}

func testPayment() PaymentMethod {
	return PaymentMethod{Type: "card", LastFour: "4242"}
}

func TestStartCheckoutSplitsOrdersPerRetailer(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	sessionID, cartID := f.seedCart(t, 3)

	checkout, err := f.svc.StartCheckout(ctx, sessionID, cartID, testAddress(), testPayment())
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, checkout.Status)
	require.Len(t, checkout.RetailerOrders, 3)

	total := 0.0
	for _, order := range checkout.RetailerOrders {
		assert.Equal(t, OrderPending, order.Status)
		assert.Empty(t, order.ConfirmationCode)
		assert.Equal(t, 100.0, order.Subtotal)
		assert.Equal(t, 9.99, order.ShippingFee)
		assert.Equal(t, 109.99, order.Total)
		total += order.Total
	}
	assert.Equal(t, total, checkout.TotalCost)

	sess, err := f.sessions.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCheckout, sess.Status)
}

func TestStartCheckoutUnknownCart(t *testing.T) {
	f := newCheckoutFixture(t)

	sessionID, _ := f.seedCart(t, 1)
	_, err := f.svc.StartCheckout(context.Background(), sessionID, "missing", testAddress(), testPayment())
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestStartCheckoutEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	sess, err := f.sessions.Create(ctx)
	require.NoError(t, err)
	c := cart.Cart{ID: "empty-cart", SessionID: sess.ID, Strategy: cart.StrategyBestValue}
	require.NoError(t, f.db.Create(&c).Error)

	_, err = f.svc.StartCheckout(ctx, sess.ID, c.ID, testAddress(), testPayment())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestStatusProgressAndStepsMonotonic(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	sessionID, cartID := f.seedCart(t, 1)
	checkout, err := f.svc.StartCheckout(ctx, sessionID, cartID, testAddress(), testPayment())
	require.NoError(t, err)

	lastProgress := -1.0
	lastStep := -1
	for i := 0; i < 12; i++ {
		snapshot, err := f.svc.Status(ctx, checkout.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, snapshot.Progress, lastProgress)
		assert.GreaterOrEqual(t, snapshot.CurrentStep, lastStep)
		lastProgress = snapshot.Progress
		lastStep = snapshot.CurrentStep
		f.advance(time.Second)
	}

	assert.Equal(t, 1.0, lastProgress)
	assert.Equal(t, len(StepNames), lastStep)
}

func TestStatusStepBoundaries(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	sessionID, cartID := f.seedCart(t, 1)
	checkout, err := f.svc.StartCheckout(ctx, sessionID, cartID, testAddress(), testPayment())
	require.NoError(t, err)

	snapshot, err := f.svc.Status(ctx, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.CurrentStep)
	assert.Equal(t, "in_progress", snapshot.Steps[0].Status)
	assert.Equal(t, "pending", snapshot.Steps[1].Status)

	// Halfway through a 10s window with 5 steps puts us in step 2.
	f.advance(5 * time.Second)
	snapshot, err = f.svc.Status(ctx, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.CurrentStep)
	assert.Equal(t, "complete", snapshot.Steps[0].Status)
	assert.Equal(t, "complete", snapshot.Steps[1].Status)
	assert.Equal(t, "in_progress", snapshot.Steps[2].Status)
}

func TestOrdersConfirmInSequenceWithStableCodes(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	sessionID, cartID := f.seedCart(t, 3)
	checkout, err := f.svc.StartCheckout(ctx, sessionID, cartID, testAddress(), testPayment())
	require.NoError(t, err)

	// Past the first order's slot at progress 1/3, inside the second's,
	// before the third's.
	f.advance(4 * time.Second)
	snapshot, err := f.svc.Status(ctx, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderConfirmed, snapshot.RetailerOrders[0].Status)
	assert.Equal(t, OrderProcessing, snapshot.RetailerOrders[1].Status)
	assert.Equal(t, OrderPending, snapshot.RetailerOrders[2].Status)

	firstCode := snapshot.RetailerOrders[0].ConfirmationCode
	assert.Regexp(t, `^CONF-[0-9A-F]{8}$`, firstCode)

	// The code must survive later polls unchanged.
	f.advance(3 * time.Second)
	snapshot, err = f.svc.Status(ctx, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, firstCode, snapshot.RetailerOrders[0].ConfirmationCode)
	assert.Equal(t, OrderConfirmed, snapshot.RetailerOrders[1].Status)
	assert.Equal(t, OrderProcessing, snapshot.RetailerOrders[2].Status)

	f.advance(5 * time.Second)
	snapshot, err = f.svc.Status(ctx, checkout.ID)
	require.NoError(t, err)
	for _, order := range snapshot.RetailerOrders {
		assert.Equal(t, OrderConfirmed, order.Status)
		assert.Regexp(t, `^CONF-[0-9A-F]{8}$`, order.ConfirmationCode)
	}
	assert.Equal(t, firstCode, snapshot.RetailerOrders[0].ConfirmationCode)
}

func TestCompletionCascadesSession(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	sessionID, cartID := f.seedCart(t, 2)
	checkout, err := f.svc.StartCheckout(ctx, sessionID, cartID, testAddress(), testPayment())
	require.NoError(t, err)

	f.advance(11 * time.Second)
	snapshot, err := f.svc.Status(ctx, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, snapshot.Status)
	assert.NotNil(t, snapshot.CompletedAt)

	sess, err := f.sessions.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusComplete, sess.Status)
}

func TestStatusNeverRegressesAfterCompletion(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	sessionID, cartID := f.seedCart(t, 2)
	checkout, err := f.svc.StartCheckout(ctx, sessionID, cartID, testAddress(), testPayment())
	require.NoError(t, err)

	f.advance(15 * time.Second)
	first, err := f.svc.Status(ctx, checkout.ID)
	require.NoError(t, err)
	require.Equal(t, StatusComplete, first.Status)
	completedAt := *first.CompletedAt

	codes := make([]string, len(first.RetailerOrders))
	for i, order := range first.RetailerOrders {
		codes[i] = order.ConfirmationCode
	}

	// Even with the clock wound back, a completed checkout stays completed.
	f.clock = f.clock.Add(-10 * time.Second)
	second, err := f.svc.Status(ctx, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, second.Status)
	assert.Equal(t, 1.0, second.Progress)
	assert.True(t, completedAt.Equal(*second.CompletedAt))
	for i, order := range second.RetailerOrders {
		assert.Equal(t, codes[i], order.ConfirmationCode)
	}
}

func TestSummaryAfterCompletion(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	sessionID, cartID := f.seedCart(t, 2)
	checkout, err := f.svc.StartCheckout(ctx, sessionID, cartID, testAddress(), testPayment())
	require.NoError(t, err)

	f.advance(12 * time.Second)
	summary, err := f.svc.Summary(ctx, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, summary.Status)
	assert.Equal(t, checkout.TotalCost, summary.TotalCost)
	assert.Equal(t, "Denver", summary.ShippingAddress.City)
	assert.Equal(t, "4242", summary.PaymentMethod.LastFour)
	require.Len(t, summary.RetailerOrders, 2)
	for _, order := range summary.RetailerOrders {
		assert.Equal(t, OrderConfirmed, order.Status)
	}
	assert.NotNil(t, summary.CompletedAt)
}

func TestStatusUnknownCheckout(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
