// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/shopping-agent/internal/config"
	"github.com/your-org/shopping-agent/internal/domain/cart"
	"github.com/your-org/shopping-agent/internal/domain/session"
)

// Service drives the simulated checkout flow
type Service struct {
	db       *gorm.DB
	sessions *session.Service
	config   *config.Config
	logger   *logrus.Logger
	now      func() time.Time
}

// NewService creates a new checkout service.
func NewService(db *gorm.DB, sessions *session.Service, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		sessions: sessions,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// StartCheckout splits the cart into per-retailer orders and begins the
// simulation clock. The owning session moves to the checkout stage.
func (s *Service) StartCheckout(ctx context.Context, sessionID, cartID string, address ShippingAddress, payment PaymentMethod) (*Checkout, error) {
	var c cart.Cart
	err := s.db.WithContext(ctx).
		Preload("Items.Product.Retailer").
		Where("id = ? AND session_id = ?", cartID, sessionID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	orders := s.buildRetailerOrders(c.Items)
	total := 0.0
	for _, order := range orders {
		total += order.Total
	}

	checkout := Checkout{
		ID:              uuid.New().String(),
		SessionID:       sessionID,
		CartID:          cartID,
		Status:          StatusProcessing,
		ShippingAddress: address,
		PaymentMethod:   payment,
		RetailerOrders:  orders,
		TotalCost:       total,
		StartedAt:       s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&checkout).Error; err != nil {
		return nil, fmt.Errorf("failed to create checkout: %w", err)
	}

	if err := s.sessions.SetStatus(ctx, sessionID, session.StatusCheckout); err != nil {
		return nil, err
	}
	s.sessions.RecordEvent(ctx, sessionID, session.EventCheckoutStarted, map[string]interface{}{
		"checkout_id": checkout.ID,
		"cart_id":     cartID,
		"total_cost":  total,
	})

	s.logger.WithFields(logrus.Fields{
		"checkout_id": checkout.ID,
		"session_id":  sessionID,
		"orders":      len(orders),
	}).Info("checkout started")

	return &checkout, nil
}

// Status derives the checkout's progress from elapsed wall-clock time.
// Reads before the simulation window closes are side-effect-free except for
// newly crossed retailer confirmations; the first read at or past 100%
// performs the terminal write and cascades the session to its final state.
func (s *Service) Status(ctx context.Context, checkoutID string) (*StatusSnapshot, error) {
	checkout, err := s.load(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	if checkout.Status == StatusComplete {
		return s.snapshot(checkout, 1), nil
	}

	elapsed := s.now().Sub(checkout.StartedAt)
	progress := math.Min(1, float64(elapsed)/float64(s.config.Checkout.SimulationDuration))

	if s.advanceOrders(checkout, progress) {
		if err := s.db.WithContext(ctx).Model(&Checkout{}).
			Where("id = ?", checkout.ID).
			Update("retailer_orders", checkout.RetailerOrders).Error; err != nil {
			return nil, fmt.Errorf("failed to persist order confirmations: %w", err)
		}
	}

	if progress >= 1 {
		if err := s.finalize(ctx, checkout); err != nil {
			return nil, err
		}
	}

	return s.snapshot(checkout, progress), nil
}

// Summary returns the full checkout record, finalizing it first if the
// simulation window has already elapsed.
func (s *Service) Summary(ctx context.Context, checkoutID string) (*Summary, error) {
	if _, err := s.Status(ctx, checkoutID); err != nil {
		return nil, err
	}

	checkout, err := s.load(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	return &Summary{
		CheckoutID:      checkout.ID,
		SessionID:       checkout.SessionID,
		Status:          checkout.Status,
		TotalCost:       checkout.TotalCost,
		ShippingAddress: checkout.ShippingAddress,
		PaymentMethod:   checkout.PaymentMethod,
		RetailerOrders:  checkout.RetailerOrders,
		StartedAt:       checkout.StartedAt,
		CompletedAt:     checkout.CompletedAt,
	}, nil
}

func (s *Service) load(ctx context.Context, checkoutID string) (*Checkout, error) {
	var checkout Checkout
	err := s.db.WithContext(ctx).Where("id = ?", checkoutID).First(&checkout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout: %w", err)
	}
	return &checkout, nil
}

// buildRetailerOrders groups cart items by retailer, preserving the order
// retailers first appear in the cart. Each group carries a flat shipping fee.
func (s *Service) buildRetailerOrders(items []cart.Item) []RetailerOrder {
	var order []string
	grouped := make(map[string]*RetailerOrder)
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		id := item.Product.RetailerID
		g, ok := grouped[id]
		if !ok {
			g = &RetailerOrder{
				RetailerID:   id,
				RetailerName: item.Product.Retailer.Name,
				Status:       OrderPending,
				ShippingFee:  s.config.Checkout.RetailerShipping,
			}
			grouped[id] = g
			order = append(order, id)
		}
		g.Items = append(g.Items, OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
		g.Subtotal += item.TotalPrice
	}

	orders := make([]RetailerOrder, 0, len(order))
	for _, id := range order {
		g := grouped[id]
		g.Total = g.Subtotal + g.ShippingFee
		orders = append(orders, *g)
	}
	return orders
}

// advanceOrders walks retailer orders through their slots of the simulation
// window. Order i is pending until progress passes i/count, processing until
// it passes (i+1)/count, then confirmed; each gets its confirmation code on
// the read that first observes the crossing. Returns whether anything
// changed.
func (s *Service) advanceOrders(checkout *Checkout, progress float64) bool {
	changed := false
	count := len(checkout.RetailerOrders)
	for i := range checkout.RetailerOrders {
		order := &checkout.RetailerOrders[i]
		if order.Status == OrderConfirmed {
			continue
		}
		if progress > float64(i+1)/float64(count) {
			order.Status = OrderConfirmed
			order.ConfirmationCode = newConfirmationCode()
			changed = true
		} else if order.Status == OrderPending && progress > float64(i)/float64(count) {
			order.Status = OrderProcessing
			changed = true
		}
	}
	return changed
}

// finalize performs the terminal write. Conditional on the stored status so
// concurrent readers crossing 100% together apply it once effectively.
func (s *Service) finalize(ctx context.Context, checkout *Checkout) error {
	for i := range checkout.RetailerOrders {
		order := &checkout.RetailerOrders[i]
		if order.Status != OrderConfirmed {
			order.Status = OrderConfirmed
			order.ConfirmationCode = newConfirmationCode()
		}
	}

	completedAt := s.now()
	result := s.db.WithContext(ctx).Model(&Checkout{}).
		Where("id = ? AND status = ?", checkout.ID, StatusProcessing).
		Updates(map[string]interface{}{
			"status":          StatusComplete,
			"completed_at":    completedAt,
			"retailer_orders": checkout.RetailerOrders,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to finalize checkout: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		checkout.Status = StatusComplete
		checkout.CompletedAt = &completedAt

		if err := s.sessions.SetStatus(ctx, checkout.SessionID, session.StatusComplete); err != nil {
			s.logger.WithError(err).WithField("session_id", checkout.SessionID).Warn("failed to complete session")
		}
		s.logger.WithField("checkout_id", checkout.ID).Info("checkout complete")
	} else {
		// Another reader finalized first; reload their snapshot.
		fresh, err := s.load(ctx, checkout.ID)
		if err != nil {
			return err
		}
		*checkout = *fresh
	}
	return nil
}

// snapshot maps progress onto the fixed step list.
func (s *Service) snapshot(checkout *Checkout, progress float64) *StatusSnapshot {
	stepCount := len(StepNames)
	currentStep := int(math.Floor(progress * float64(stepCount)))
	if currentStep > stepCount-1 && progress < 1 {
		currentStep = stepCount - 1
	}

	steps := make([]Step, stepCount)
	for i, name := range StepNames {
		status := "pending"
		switch {
		case progress >= 1 || i < currentStep:
			status = "complete"
		case i == currentStep:
			status = "in_progress"
		}
		steps[i] = Step{Name: name, Status: status}
	}
	if progress >= 1 {
		currentStep = stepCount
	}

	return &StatusSnapshot{
		CheckoutID:     checkout.ID,
		Status:         checkout.Status,
		Progress:       progress,
		CurrentStep:    currentStep,
		Steps:          steps,
		RetailerOrders: checkout.RetailerOrders,
		CompletedAt:    checkout.CompletedAt,
	}
}

func newConfirmationCode() string {
	return "CONF-" + strings.ToUpper(uuid.New().String()[:8])
}
