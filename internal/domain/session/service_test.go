// internal/domain/session/service_test.go
package session

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
	"github.com/your-org/shopping-agent/internal/domain/discovery"
	"github.com/your-org/shopping-agent/internal/domain/intent"
	"github.com/your-org/shopping-agent/internal/domain/product"
	"github.com/your-org/shopping-agent/internal/domain/ranking"
)

func newTestDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models...))
	return db
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := newTestDB(t, &Session{}, &Event{})
	return NewService(db, nil, nil, newTestLogger())
}

// newPipelineService wires the session service to real discovery and ranking
// services over the mock retailer catalogs.
func newPipelineService(t *testing.T) *Service {
	t.Helper()

	db := newTestDB(t,
		&product.Retailer{}, &product.Product{}, &product.Variant{},
		&Session{}, &Event{},
		&cart.Cart{}, &cart.Item{},
	)
	log := newTestLogger()

	cfg := &config.Config{
		Discovery: config.DiscoveryConfig{
			AdapterTimeout: time.Second,
			DefaultLimit:   20,
			CacheTTL:       time.Minute,
		},
	}
	adapters := []discovery.Adapter{
		discovery.NewMockRetailerA(),
		discovery.NewMockRetailerB(),
		discovery.NewMockRetailerC(),
	}
	discoveryService := discovery.NewService(adapters, db, nil, cfg, log)
	rankingService := ranking.NewService(db, nil, log)

	return NewService(db, discoveryService, rankingService, log)
}

func floatPtr(v float64) *float64 { return &v }

func TestCreateStartsInBriefing(t *testing.T) {
	svc := newTestService(t)

	sess, err := svc.Create(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, StatusBriefing, sess.Status)
	assert.Nil(t, sess.ShoppingSpec)

	loaded, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, StatusBriefing, loaded.Status)
}

func TestGetUnknownSession(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetSpecReplacesWholesale(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	require.NoError(t, err)

	first := intent.ShoppingSpec{
		Scenario:  "ski trip",
		MustHaves: []string{"ski jacket", "ski gloves"},
		Constraints: intent.Constraints{
			Budget:   floatPtr(500),
			Colors:   []string{"blue"},
			Currency: "USD",
		},
	}
	_, err = svc.SetSpec(ctx, sess.ID, first)
	require.NoError(t, err)

	second := intent.ShoppingSpec{
		Scenario:  "hiking trip",
		MustHaves: []string{"hiking boots"},
	}
	updated, err := svc.SetSpec(ctx, sess.ID, second)
	require.NoError(t, err)

	require.NotNil(t, updated.ShoppingSpec)
	assert.Equal(t, "hiking trip", updated.ShoppingSpec.Scenario)
	assert.Equal(t, []string{"hiking boots"}, updated.ShoppingSpec.MustHaves)
	// Wholesale replacement drops the previous constraints.
	assert.Nil(t, updated.ShoppingSpec.Constraints.Budget)
	assert.Empty(t, updated.ShoppingSpec.Constraints.Colors)

	loaded, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ShoppingSpec)
	assert.Equal(t, "hiking trip", loaded.ShoppingSpec.Scenario)
}

func TestMergeSpecOneLevelDeep(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	require.NoError(t, err)

	base := intent.ShoppingSpec{
		Scenario:  "ski trip",
		MustHaves: []string{"ski jacket"},
		Constraints: intent.Constraints{
			Budget:   floatPtr(500),
			Currency: "USD",
		},
	}
	_, err = svc.SetSpec(ctx, sess.ID, base)
	require.NoError(t, err)

	partial := intent.ShoppingSpec{
		Constraints: intent.Constraints{
			Colors: []string{"black"},
			Sizes:  map[string]string{"jacket": "L"},
		},
	}
	merged, err := svc.MergeSpec(ctx, sess.ID, partial)
	require.NoError(t, err)
	require.NotNil(t, merged.ShoppingSpec)

	assert.Equal(t, "ski trip", merged.ShoppingSpec.Scenario)
	assert.Equal(t, []string{"ski jacket"}, merged.ShoppingSpec.MustHaves)
	require.NotNil(t, merged.ShoppingSpec.Constraints.Budget)
	assert.Equal(t, 500.0, *merged.ShoppingSpec.Constraints.Budget)
	assert.Equal(t, []string{"black"}, merged.ShoppingSpec.Constraints.Colors)
	assert.Equal(t, "L", merged.ShoppingSpec.Constraints.Sizes["jacket"])
}

func TestMergeSpecWithoutExistingSpec(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	require.NoError(t, err)

	partial := intent.ShoppingSpec{Scenario: "ski trip"}
	merged, err := svc.MergeSpec(ctx, sess.ID, partial)
	require.NoError(t, err)
	require.NotNil(t, merged.ShoppingSpec)
	assert.Equal(t, "ski trip", merged.ShoppingSpec.Scenario)
}

func TestSetStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(ctx, sess.ID, StatusDiscovering))
	loaded, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDiscovering, loaded.Status)

	assert.ErrorIs(t, svc.SetStatus(ctx, "missing", StatusRanking), ErrNotFound)
}

func TestStartDiscoveryLifecycle(t *testing.T) {
	svc := newPipelineService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	require.NoError(t, err)

	// Parsed from a free-text briefing the way the HTTP flow would do it.
	intents := intent.NewService(nil, newTestLogger())
	parsed, err := intents.ParseIntent(ctx, "need to buy jacket and gloves for skiing under $500")
	require.NoError(t, err)
	_, err = svc.SetSpec(ctx, sess.ID, parsed.Spec())
	require.NoError(t, err)

	outcome, err := svc.StartDiscovery(ctx, sess.ID)
	require.NoError(t, err)
	assert.Greater(t, outcome.ProductsFound, 0)
	require.NotEmpty(t, outcome.Carts)
	for _, c := range outcome.Carts {
		assert.Equal(t, sess.ID, c.SessionID)
		assert.NotEmpty(t, c.Items)
	}

	loaded, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCart, loaded.Status)

	events, err := svc.Events(ctx, sess.ID)
	require.NoError(t, err)
	var completed bool
	for _, event := range events {
		if event.EventType == EventDiscoveryCompleted {
			completed = true
		}
	}
	assert.True(t, completed)
}

func TestStartDiscoveryDeduplicatesAcrossQueries(t *testing.T) {
	svc := newPipelineService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	require.NoError(t, err)

	// Both queries hit the same jacket catalog entries.
	spec := intent.ShoppingSpec{
		Scenario:  "skiing outfit",
		MustHaves: []string{"ski jacket", "jacket"},
	}
	_, err = svc.SetSpec(ctx, sess.ID, spec)
	require.NoError(t, err)

	outcome, err := svc.StartDiscovery(ctx, sess.ID)
	require.NoError(t, err)

	// One per retailer catalog, counted once despite both queries matching.
	assert.Equal(t, 3, outcome.ProductsFound)

	for _, c := range outcome.Carts {
		seen := make(map[string]bool)
		for _, item := range c.Items {
			assert.False(t, seen[item.ProductID])
			seen[item.ProductID] = true
		}
	}
}

func TestStartDiscoveryWithoutSpec(t *testing.T) {
	svc := newPipelineService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.StartDiscovery(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSpecMissing)

	loaded, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBriefing, loaded.Status)
}

func TestStartDiscoveryUnknownSession(t *testing.T) {
	svc := newPipelineService(t)

	_, err := svc.StartDiscovery(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkCartSelected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.MarkCartSelected(ctx, sess.ID, "cart-1"))

	loaded, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCart, loaded.Status)

	events, err := svc.Events(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventCartSelected, events[0].EventType)
}

func TestEventsInsertionOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	require.NoError(t, err)

	svc.RecordEvent(ctx, sess.ID, EventIntentParsed, map[string]interface{}{"confidence": 0.9})
	svc.RecordEvent(ctx, sess.ID, EventDiscoveryCompleted, map[string]interface{}{"products_found": 12})
	svc.RecordEvent(ctx, sess.ID, EventCartSelected, map[string]interface{}{"cart_id": "cart-1"})

	events, err := svc.Events(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, EventIntentParsed, events[0].EventType)
	assert.Equal(t, EventDiscoveryCompleted, events[1].EventType)
	assert.Equal(t, EventCartSelected, events[2].EventType)

	// Another session's log stays empty.
	other, err := svc.Create(ctx)
	require.NoError(t, err)
	events, err = svc.Events(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}
