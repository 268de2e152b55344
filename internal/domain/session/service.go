// internal/domain/session/service.go
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/shopping-agent/internal/domain/cart"
	"github.com/your-org/shopping-agent/internal/domain/discovery"
	"github.com/your-org/shopping-agent/internal/domain/intent"
	"github.com/your-org/shopping-agent/internal/domain/product"
)

// discoveryQueryLimit caps each per-query search during the pipeline run.
const discoveryQueryLimit = 15

// ProductFinder runs one multi-retailer search. The discovery service
// satisfies it.
type ProductFinder interface {
	SearchProducts(ctx context.Context, input discovery.SearchInput) (*discovery.Result, error)
}

// CartBuilder turns a product pool into persisted candidate carts. The
// ranking service satisfies it.
type CartBuilder interface {
	GenerateRankedCarts(ctx context.Context, sessionID string, pool []product.Product, spec *intent.ShoppingSpec) ([]cart.Cart, error)
}

// DiscoveryOutcome is the result of one discover-and-rank pipeline run.
type DiscoveryOutcome struct {
	ProductsFound int         `json:"products_found"`
	Carts         []cart.Cart `json:"carts"`
}

// Service handles session lifecycle and state transitions
type Service struct {
	db       *gorm.DB
	products ProductFinder
	carts    CartBuilder
	logger   *logrus.Logger
}

// NewService creates a new session service
func NewService(db *gorm.DB, products ProductFinder, carts CartBuilder, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		products: products,
		carts:    carts,
		logger:   logger,
	}
}

// Create starts a new session in the BRIEFING phase.
func (s *Service) Create(ctx context.Context) (*Session, error) {
	sess := &Session{
		ID:     uuid.NewString(),
		Status: StatusBriefing,
	}
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Get retrieves a session by ID.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &sess, nil
}

// SetSpec replaces the session's shopping spec wholesale.
func (s *Service) SetSpec(ctx context.Context, id string, spec intent.ShoppingSpec) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.ShoppingSpec = &spec
	if err := s.db.WithContext(ctx).Model(sess).Update("shopping_spec", sess.ShoppingSpec).Error; err != nil {
		return nil, fmt.Errorf("failed to update shopping spec: %w", err)
	}
	return sess, nil
}

// MergeSpec overlays a partial spec onto the session's current spec, with
// constraints merged one level deep. A session without a spec adopts the
// partial as-is.
func (s *Service) MergeSpec(ctx context.Context, id string, partial intent.ShoppingSpec) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := partial
	if sess.ShoppingSpec != nil {
		merged = sess.ShoppingSpec.Merge(partial)
	}

	return s.SetSpec(ctx, id, merged)
}

// SetStatus advances the session to the given phase.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) error {
	result := s.db.WithContext(ctx).Model(&Session{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update session status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": id,
		"status":     status,
	}).Info("session status changed")
	return nil
}

// StartDiscovery runs the discover-and-rank pipeline for a session: one
// search per must-have item plus one for the scenario, merged and
// deduplicated by (retailer, external id), then ranked into candidate carts.
// The session advances DISCOVERING, RANKING, CART along the way. A session
// without a shopping spec returns ErrSpecMissing.
func (s *Service) StartDiscovery(ctx context.Context, id string) (*DiscoveryOutcome, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.ShoppingSpec == nil {
		return nil, ErrSpecMissing
	}
	spec := sess.ShoppingSpec

	if err := s.SetStatus(ctx, id, StatusDiscovering); err != nil {
		return nil, err
	}

	queries := append([]string{}, spec.MustHaves...)
	if spec.Scenario != "" {
		queries = append(queries, spec.Scenario)
	}

	var maxPrice float64
	if spec.Constraints.Budget != nil {
		maxPrice = *spec.Constraints.Budget
	}

	seen := make(map[string]bool)
	var pool []product.Product
	for _, query := range queries {
		result, err := s.products.SearchProducts(ctx, discovery.SearchInput{
			Query:    query,
			MaxPrice: maxPrice,
			Limit:    discoveryQueryLimit,
		})
		if err != nil {
			s.logger.WithError(err).WithField("query", query).Warn("discovery query failed")
			continue
		}
		for _, p := range result.Products {
			key := p.RetailerID + "/" + p.ExternalID
			if seen[key] {
				continue
			}
			seen[key] = true
			pool = append(pool, p)
		}
	}

	s.RecordEvent(ctx, id, EventDiscoveryCompleted, map[string]interface{}{
		"queries":  len(queries),
		"products": len(pool),
	})

	if err := s.SetStatus(ctx, id, StatusRanking); err != nil {
		return nil, err
	}

	rankedCarts, err := s.carts.GenerateRankedCarts(ctx, id, pool, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to rank discovered products: %w", err)
	}

	if err := s.SetStatus(ctx, id, StatusCart); err != nil {
		return nil, err
	}

	return &DiscoveryOutcome{
		ProductsFound: len(pool),
		Carts:         rankedCarts,
	}, nil
}

// MarkCartSelected moves the session into the CART phase and records the
// selection event. The cart service calls it after flipping the selection.
func (s *Service) MarkCartSelected(ctx context.Context, sessionID, cartID string) error {
	if err := s.SetStatus(ctx, sessionID, StatusCart); err != nil {
		return err
	}
	s.RecordEvent(ctx, sessionID, EventCartSelected, map[string]interface{}{
		"cart_id": cartID,
	})
	return nil
}

// RecordEvent appends a lifecycle event to the session's event log. Event
// logging is best-effort and never fails the surrounding operation.
func (s *Service) RecordEvent(ctx context.Context, sessionID string, eventType EventType, data interface{}) {
	event := &Event{
		SessionID: sessionID,
		EventType: eventType,
		EventData: data,
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("failed to record session event")
	}
}

// Events returns the session's event log in insertion order.
func (s *Service) Events(ctx context.Context, sessionID string) ([]Event, error) {
	var events []Event
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id asc").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load session events: %w", err)
	}
	return events, nil
}
