// internal/domain/ranking/service_test.go
package ranking

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/shopping-agent/internal/domain/cart"
	"github.com/your-org/shopping-agent/internal/domain/intent"
	"github.com/your-org/shopping-agent/internal/domain/product"
)

var testNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
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
		&cart.Cart{}, &cart.Item{},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := NewService(db, nil, log)
	svc.now = func() time.Time { return testNow }
	return svc, db
}

func testProduct(id, retailerID, category string, price float64, deliveryDays int) product.Product {
	return product.Product{
		ID:           id,
		ExternalID:   "ext-" + id,
		RetailerID:   retailerID,
		Name:         "Product " + id,
		Category:     category,
		Price:        price,
		Currency:     "USD",
		InStock:      true,
		DeliveryDays: deliveryDays,
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestGenerateRankedCartsBudgetFilter(t *testing.T) {
	svc, _ := newTestService(t)

	// The cheap pick lands at $100, the fast pick at $150. With a $100
	// budget only Best Value survives among over-budget candidates.
	pool := []product.Product{
		testProduct("p1", "retailer-a", "ski jacket", 100, 5),
		testProduct("p2", "retailer-b", "ski jacket", 150, 1),
	}
	spec := &intent.ShoppingSpec{
		Scenario:    "ski trip",
		MustHaves:   []string{"ski jacket"},
		Constraints: intent.Constraints{Budget: floatPtr(100)},
	}

	ranked, err := svc.GenerateRankedCarts(context.Background(), "sess-1", pool, spec)
	require.NoError(t, err)

	strategiesSeen := make(map[cart.Strategy]cart.Cart)
	for _, c := range ranked {
		strategiesSeen[c.Strategy] = c
	}

	best, ok := strategiesSeen[cart.StrategyBestValue]
	require.True(t, ok)
	assert.Equal(t, 100.0, best.TotalCost)

	_, ok = strategiesSeen[cart.StrategyFastestDelivery]
	assert.False(t, ok, "over-budget fastest delivery cart must be omitted")

	// Premium picks the $150 jacket too and is likewise over budget.
	_, ok = strategiesSeen[cart.StrategyPremiumChoice]
	assert.False(t, ok)
}

func TestGenerateRankedCartsStrategyPicks(t *testing.T) {
	svc, _ := newTestService(t)

	pool := []product.Product{
		testProduct("p1", "retailer-a", "ski jacket", 189.99, 3),
		testProduct("p2", "retailer-b", "ski jacket", 119.99, 2),
		testProduct("p3", "retailer-c", "ski jacket", 349.99, 5),
	}
	spec := &intent.ShoppingSpec{Scenario: "ski trip"}

	ranked, err := svc.GenerateRankedCarts(context.Background(), "sess-1", pool, spec)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	byStrategy := make(map[cart.Strategy]cart.Cart)
	for _, c := range ranked {
		byStrategy[c.Strategy] = c
	}
	assert.Equal(t, "p2", byStrategy[cart.StrategyBestValue].Items[0].ProductID)
	assert.Equal(t, "p2", byStrategy[cart.StrategyFastestDelivery].Items[0].ProductID)
	assert.Equal(t, "p3", byStrategy[cart.StrategyPremiumChoice].Items[0].ProductID)
}

func TestGenerateRankedCartsTieKeepsFirstPoolElement(t *testing.T) {
	svc, _ := newTestService(t)

	pool := []product.Product{
		testProduct("p1", "retailer-a", "ski gloves", 45, 3),
		testProduct("p2", "retailer-b", "ski gloves", 45, 3),
	}
	spec := &intent.ShoppingSpec{Scenario: "ski trip"}

	ranked, err := svc.GenerateRankedCarts(context.Background(), "sess-1", pool, spec)
	require.NoError(t, err)
	require.NotEmpty(t, ranked)
	for _, c := range ranked {
		assert.Equal(t, "p1", c.Items[0].ProductID)
	}
}

func TestGenerateRankedCartsSortedAndPersisted(t *testing.T) {
	svc, db := newTestService(t)

	pool := []product.Product{
		testProduct("p1", "retailer-a", "ski jacket", 189.99, 3),
		testProduct("p2", "retailer-b", "ski jacket", 119.99, 2),
		testProduct("p3", "retailer-c", "ski jacket", 349.99, 5),
	}
	spec := &intent.ShoppingSpec{
		Scenario:    "ski trip",
		Constraints: intent.Constraints{Budget: floatPtr(500)},
	}

	ranked, err := svc.GenerateRankedCarts(context.Background(), "sess-1", pool, spec)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}

	var count int64
	require.NoError(t, db.Model(&cart.Cart{}).Where("session_id = ?", "sess-1").Count(&count).Error)
	assert.Equal(t, int64(3), count)

	var items int64
	require.NoError(t, db.Model(&cart.Item{}).Count(&items).Error)
	assert.Equal(t, int64(3), items)
}

func TestCalculateScoreKnownInputs(t *testing.T) {
	svc, _ := newTestService(t)

	picks := []product.Product{
		testProduct("p1", "retailer-a", "ski jacket", 100, 3),
		testProduct("p2", "retailer-a", "ski pants", 80, 2),
	}
	spec := &intent.ShoppingSpec{
		Constraints: intent.Constraints{Budget: floatPtr(300)},
	}

	// price: 1 - 180/300 = 0.4; delivery: 1 - 3/10 = 0.7; preference 0.7;
	// coherence: single retailer = 1.
	want := math.Round((0.35*0.4+0.25*0.7+0.25*0.7+0.15*1.0)*100) / 100
	got := svc.calculateScore(180, 3, picks, spec)
	assert.Equal(t, want, got)
}

func TestCalculateScoreDeadline(t *testing.T) {
	svc, _ := newTestService(t)

	picks := []product.Product{testProduct("p1", "retailer-a", "ski jacket", 100, 3)}

	met := testNow.AddDate(0, 0, 10)
	missed := testNow.AddDate(0, 0, 1)

	// Arriving 7 days early saturates the delivery sub-score.
	specMet := &intent.ShoppingSpec{Constraints: intent.Constraints{Deadline: &met}}
	want := math.Round((0.35*0.5+0.25*1.0+0.25*0.7+0.15*1.0)*100) / 100
	assert.Equal(t, want, svc.calculateScore(100, 3, picks, specMet))

	// Missing the deadline zeroes the delivery sub-score.
	specMissed := &intent.ShoppingSpec{Constraints: intent.Constraints{Deadline: &missed}}
	want = math.Round((0.35*0.5+0.25*0+0.25*0.7+0.15*1.0)*100) / 100
	assert.Equal(t, want, svc.calculateScore(100, 3, picks, specMissed))
}

func TestCalculateScoreBounds(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		name   string
		total  float64
		days   int
		picks  []product.Product
		budget *float64
	}{
		{"way over budget", 5000, 30, []product.Product{
			testProduct("p1", "r1", "a", 1000, 30),
			testProduct("p2", "r2", "b", 1000, 30),
			testProduct("p3", "r3", "c", 1000, 30),
			testProduct("p4", "r4", "d", 1000, 30),
			testProduct("p5", "r5", "e", 1000, 30),
		}, floatPtr(100)},
		{"no budget", 50, 0, []product.Product{
			testProduct("p1", "r1", "a", 50, 0),
		}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := &intent.ShoppingSpec{Constraints: intent.Constraints{Budget: tc.budget}}
			score := svc.calculateScore(tc.total, tc.days, tc.picks, spec)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
			assert.Equal(t, math.Round(score*100)/100, score)
		})
	}
}

func TestRetailerBreakdown(t *testing.T) {
	svc, db := newTestService(t)

	retailerA := product.Retailer{ID: "retailer-a", Name: "Mountain Gear Pro", Slug: "mountain-gear-pro", IsActive: true}
	retailerB := product.Retailer{ID: "retailer-b", Name: "Summit Sports Outlet", Slug: "summit-sports-outlet", IsActive: true}
	require.NoError(t, db.Create(&retailerA).Error)
	require.NoError(t, db.Create(&retailerB).Error)

	p1 := testProduct("p1", "retailer-a", "ski jacket", 100, 3)
	p2 := testProduct("p2", "retailer-b", "ski pants", 60, 2)
	require.NoError(t, db.Create(&p1).Error)
	require.NoError(t, db.Create(&p2).Error)

	c := cart.Cart{
		ID:        "cart-1",
		SessionID: "sess-1",
		Strategy:  cart.StrategyBestValue,
		TotalCost: 160,
		Items: []cart.Item{
			{ID: "item-1", CartID: "cart-1", ProductID: "p1", Quantity: 1, UnitPrice: 100, TotalPrice: 100},
			{ID: "item-2", CartID: "cart-1", ProductID: "p2", Quantity: 1, UnitPrice: 60, TotalPrice: 60},
		},
	}
	require.NoError(t, db.Create(&c).Error)

	breakdown, err := svc.RetailerBreakdown(context.Background(), "cart-1")
	require.NoError(t, err)
	require.Len(t, breakdown.Retailers, 2)
	assert.Equal(t, 160.0, breakdown.TotalCost)
	assert.Equal(t, "Mountain Gear Pro", breakdown.Retailers[0].RetailerName)
	assert.Equal(t, 100.0, breakdown.Retailers[0].Subtotal)
	assert.Equal(t, 60.0, breakdown.Retailers[1].Subtotal)
}

func TestCompareRecommendsHigherScore(t *testing.T) {
	svc, db := newTestService(t)

	a := cart.Cart{ID: "cart-a", SessionID: "sess-1", Strategy: cart.StrategyBestValue, TotalCost: 100, Score: 0.8}
	b := cart.Cart{ID: "cart-b", SessionID: "sess-1", Strategy: cart.StrategyPremiumChoice, TotalCost: 250, Score: 0.6}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	comparison, err := svc.Compare(context.Background(), "cart-a", "cart-b")
	require.NoError(t, err)
	assert.Equal(t, "cart-a", comparison.Recommendation)
	assert.Equal(t, -150.0, comparison.CostDifference)
}

func TestExplainFallbackWithoutProvider(t *testing.T) {
	svc, db := newTestService(t)

	c := cart.Cart{ID: "cart-1", SessionID: "sess-1", Strategy: cart.StrategyBestValue, TotalCost: 160, Score: 0.75}
	require.NoError(t, db.Create(&c).Error)

	explanation, err := svc.Explain(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.Contains(t, explanation, "Best Value")
	assert.Contains(t, explanation, "75%")
}

func TestExplainUnknownCart(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Explain(context.Background(), "missing")
	assert.ErrorIs(t, err, cart.ErrNotFound)
}
