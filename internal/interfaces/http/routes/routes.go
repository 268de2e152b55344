// internal/interfaces/http/routes/routes.go
package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/shopping-agent/internal/config"
	"github.com/your-org/shopping-agent/internal/domain/cart"
	"github.com/your-org/shopping-agent/internal/domain/checkout"
	"github.com/your-org/shopping-agent/internal/domain/discovery"
	"github.com/your-org/shopping-agent/internal/domain/intent"
	"github.com/your-org/shopping-agent/internal/domain/ranking"
	"github.com/your-org/shopping-agent/internal/domain/session"
	"github.com/your-org/shopping-agent/internal/interfaces/http/handlers"
	"github.com/your-org/shopping-agent/internal/pkg/ai"
)

// SetupRoutes wires every service and handler once and registers all API
// routes. Services are plain injected objects; nothing here is a package
// singleton.
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	logger := newLogger(cfg)

	provider := newCompletionProvider(cfg, logger)
	adapters := newRetailerAdapters(cfg, logger)

	intentService := intent.NewService(provider, logger)
	discoveryService := discovery.NewService(adapters, db, redisClient, cfg, logger)
	rankingService := ranking.NewService(db, provider, logger)
	sessionService := session.NewService(db, discoveryService, rankingService, logger)
	cartService := cart.NewService(db, discoveryService, sessionService, logger)
	checkoutService := checkout.NewService(db, sessionService, cfg, logger)

	sessionHandler := handlers.NewSessionHandler(sessionService, intentService, cartService, logger)
	intentHandler := handlers.NewIntentHandler(intentService, sessionService, logger)
	discoveryHandler := handlers.NewDiscoveryHandler(discoveryService, logger)
	cartHandler := handlers.NewCartHandler(cartService, logger)
	rankingHandler := handlers.NewRankingHandler(rankingService, logger)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, logger)

	sessions := rg.Group("/sessions")
	{
		sessions.POST("", sessionHandler.CreateSession)
		sessions.GET("/:id", sessionHandler.GetSession)
		sessions.PATCH("/:id", sessionHandler.UpdateSession)
		sessions.POST("/:id/discover", sessionHandler.StartDiscovery)
		sessions.GET("/:id/carts", cartHandler.GetSessionCarts)
		sessions.POST("/:id/carts/:cartId/select", cartHandler.SelectCart)
	}

	aiGroup := rg.Group("/ai")
	{
		aiGroup.POST("/parse-intent", intentHandler.ParseIntent)
		aiGroup.POST("/clarify", intentHandler.Clarify)
		aiGroup.GET("/questions/:sessionId", intentHandler.Questions)
	}

	discoveryGroup := rg.Group("/discovery")
	{
		discoveryGroup.GET("/search", discoveryHandler.Search)
		discoveryGroup.GET("/products/:id", discoveryHandler.GetProduct)
		discoveryGroup.GET("/categories/:category", discoveryHandler.GetByCategory)
	}

	carts := rg.Group("/carts")
	{
		carts.GET("/:id", cartHandler.GetCart)
		carts.POST("/:id/items", cartHandler.AddItem)
		carts.PUT("/:id/items/:itemId", cartHandler.UpdateItem)
		carts.DELETE("/:id/items/:itemId", cartHandler.RemoveItem)
		carts.POST("/:id/optimize", cartHandler.Optimize)
	}

	rankingGroup := rg.Group("/ranking")
	{
		rankingGroup.GET("/compare", rankingHandler.Compare)
		rankingGroup.GET("/:cartId/explanation", rankingHandler.Explain)
		rankingGroup.GET("/:cartId/breakdown", rankingHandler.Breakdown)
	}

	checkoutGroup := rg.Group("/checkout")
	{
		checkoutGroup.POST("", checkoutHandler.StartCheckout)
		checkoutGroup.GET("/:id/status", checkoutHandler.Status)
		checkoutGroup.GET("/:id/summary", checkoutHandler.Summary)
	}
}

// newCompletionProvider builds the Gemini provider when an API key is
// configured. A nil provider is valid; intent parsing then uses the fallback
// heuristic and explanations the deterministic formatter.
func newCompletionProvider(cfg *config.Config, logger *logrus.Logger) ai.CompletionProvider {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	provider, err := ai.NewGeminiProvider(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warn("completion provider unavailable, running with fallback behavior")
		return nil
	}
	return provider
}

// newRetailerAdapters assembles the adapter registry: three mock catalogs,
// plus live web search when configured.
func newRetailerAdapters(cfg *config.Config, logger *logrus.Logger) []discovery.Adapter {
	adapters := []discovery.Adapter{
		discovery.NewMockRetailerA(),
		discovery.NewMockRetailerB(),
		discovery.NewMockRetailerC(),
	}
	if cfg.Search.GoogleAPIKey != "" && cfg.Search.GoogleSearchCX != "" {
		adapters = append(adapters, discovery.NewWebSearchAdapter(cfg, logger))
	}
	return adapters
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
