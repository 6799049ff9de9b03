package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/sergio-scardigno/ventas-productos/internal/errs"
	"github.com/sergio-scardigno/ventas-productos/internal/models"
	"github.com/sergio-scardigno/ventas-productos/internal/payments"
	"github.com/sergio-scardigno/ventas-productos/internal/repository"
	"github.com/sergio-scardigno/ventas-productos/pkg/cache"
	"github.com/sergio-scardigno/ventas-productos/pkg/logger"
)

var (
	webhookNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_notifications_total",
		Help: "Webhook notifications received, by provider, type and outcome.",
	}, []string{"provider", "type", "outcome"})

	ordersPersistedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_persisted_total",
		Help: "Orders appended to the ledger, by provider.",
	}, []string{"provider"})
)

// ReconcileService turns provider callbacks into ledger rows. Callback bodies
// are treated as hints: the payment is always re-fetched from the provider
// API before anything is written or sent.
type ReconcileService struct {
	providers map[string]payments.Provider
	orders    repository.OrderRepository
	notifier  *NotificationService
	cache     *cache.Cache
}

func NewReconcileService(providers map[string]payments.Provider, orders repository.OrderRepository, notifier *NotificationService, c *cache.Cache) *ReconcileService {
	return &ReconcileService{providers: providers, orders: orders, notifier: notifier, cache: c}
}

// HandleNotification processes one webhook callback. Every failure is logged
// and swallowed here so the webhook endpoint can acknowledge unconditionally;
// the provider retries on its own schedule.
func (s *ReconcileService) HandleNotification(ctx context.Context, n models.WebhookNotification) {
	notificationType := strings.ToLower(strings.TrimSpace(n.Type))
	paymentID := strings.TrimSpace(n.Data.ID)

	outcome := "ignored"
	defer func() {
		webhookNotificationsTotal.WithLabelValues(models.ProviderMercadoPago, notificationType, outcome).Inc()
	}()

	if paymentID == "" {
		logger.Warn("Webhook notification without a resource id", map[string]interface{}{
			"type": notificationType,
		})
		return
	}

	switch notificationType {
	case "payment":
		_, inserted, err := s.ReconcilePayment(ctx, models.ProviderMercadoPago, paymentID)
		outcome = reconcileOutcome(inserted, err)
		if err != nil {
			logger.Error(err, "Payment reconciliation failed", map[string]interface{}{
				"payment_id": paymentID,
			})
		}
	case "merchant_order", "topic_merchant_order_wh":
		if err := s.reconcileMerchantOrder(ctx, paymentID); err != nil {
			outcome = "error"
			logger.Error(err, "Merchant order reconciliation failed", map[string]interface{}{
				"merchant_order_id": paymentID,
			})
			return
		}
		outcome = "processed"
	default:
		logger.Debug("Ignoring webhook notification type", map[string]interface{}{
			"type": notificationType,
			"id":   paymentID,
		})
	}
}

// ReconcilePayment fetches the authoritative payment state, persists approved
// payments exactly once and triggers notifications only for first insertions.
// It returns the normalized record, whether a new ledger row was written, and
// the first error encountered.
func (s *ReconcileService) ReconcilePayment(ctx context.Context, providerName, paymentID string) (*models.OrderRecord, bool, error) {
	provider, ok := s.providers[providerName]
	if !ok || provider == nil {
		return nil, false, fmt.Errorf("%s: %w", providerName, errs.ErrNotConfigured)
	}

	payload, err := provider.FetchPaymentDetails(ctx, paymentID)
	if err != nil {
		return nil, false, err
	}

	// The status gate comes before normalization: an unapproved payload is
	// ignored even when it is too sparse to normalize.
	status := PaymentStatus(providerName, payload)
	if status != models.StatusApproved {
		logger.Info("Skipping payment that is not approved", map[string]interface{}{
			"provider":   providerName,
			"payment_id": paymentID,
			"status":     status,
		})
		return nil, false, nil
	}

	order, err := NormalizeOrder(providerName, payload)
	if err != nil {
		return nil, false, err
	}

	inserted, err := s.appendOrder(ctx, order)
	if err != nil {
		return &order, false, err
	}
	if !inserted {
		logger.Info("Payment already recorded, skipping", map[string]interface{}{
			"provider":   providerName,
			"payment_id": order.PaymentID,
		})
		return &order, false, nil
	}

	ordersPersistedTotal.WithLabelValues(providerName).Inc()
	logger.Info("Order persisted", map[string]interface{}{
		"provider":           providerName,
		"payment_id":         order.PaymentID,
		"external_reference": order.ExternalReference,
		"amount_cents":       order.AmountCents,
	})

	s.invalidateSession(order.ExternalReference)
	if s.notifier != nil {
		s.notifier.NotifyOrder(order)
	}

	return &order, true, nil
}

// invalidateSession drops the cached checkout session once its payment is
// recorded; the cart snapshot has served its purpose.
func (s *ReconcileService) invalidateSession(externalReference string) {
	if externalReference == "" || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Delete(sessionCacheKeyPrefix + externalReference); err != nil {
		logger.Warn("Failed to drop cached checkout session", map[string]interface{}{
			"external_reference": externalReference,
			"error":              err.Error(),
		})
	}
}

// CapturePayment captures an approved provider session and reconciles the
// resulting payload synchronously. It serves flows where the provider reports
// completion through the client instead of a webhook.
func (s *ReconcileService) CapturePayment(ctx context.Context, providerName, paymentID string) (*models.OrderRecord, error) {
	provider, ok := s.providers[providerName]
	if !ok || provider == nil {
		return nil, fmt.Errorf("%s: %w", providerName, errs.ErrNotConfigured)
	}
	capturer, ok := provider.(payments.Capturer)
	if !ok {
		return nil, errs.Validation("provider", fmt.Sprintf("%s does not support capture", providerName))
	}

	payload, err := capturer.CapturePayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if status := PaymentStatus(providerName, payload); status != models.StatusApproved {
		return nil, errs.Validation("order_id", fmt.Sprintf("payment is %s, not approved", status))
	}

	order, err := NormalizeOrder(providerName, payload)
	if err != nil {
		return nil, err
	}

	inserted, err := s.appendOrder(ctx, order)
	if err != nil {
		return &order, err
	}
	if inserted {
		ordersPersistedTotal.WithLabelValues(providerName).Inc()
		s.invalidateSession(order.ExternalReference)
		if s.notifier != nil {
			s.notifier.NotifyOrder(order)
		}
	}

	return &order, nil
}

// reconcileMerchantOrder expands a merchant order into its payments and
// reconciles each approved one concurrently. A failure on one payment does
// not stop the others; errgroup reports the first error after all finish.
func (s *ReconcileService) reconcileMerchantOrder(ctx context.Context, orderID string) error {
	provider, ok := s.providers[models.ProviderMercadoPago]
	if !ok || provider == nil {
		return fmt.Errorf("%s: %w", models.ProviderMercadoPago, errs.ErrNotConfigured)
	}
	fetcher, ok := provider.(payments.MerchantOrderFetcher)
	if !ok {
		return fmt.Errorf("%s: provider cannot fetch merchant orders", models.ProviderMercadoPago)
	}

	payload, err := fetcher.FetchMerchantOrder(ctx, orderID)
	if err != nil {
		return err
	}

	var group errgroup.Group
	for _, raw := range payloadSlice(payload, "payments") {
		payment, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if normalizeStatus(models.ProviderMercadoPago, payloadString(payment, "status")) != models.StatusApproved {
			continue
		}
		paymentID := payloadString(payment, "id")
		if paymentID == "" {
			continue
		}

		group.Go(func() error {
			_, _, err := s.ReconcilePayment(ctx, models.ProviderMercadoPago, paymentID)
			return err
		})
	}

	return group.Wait()
}

func (s *ReconcileService) appendOrder(ctx context.Context, order models.OrderRecord) (bool, error) {
	if s.orders == nil {
		return false, fmt.Errorf("order ledger: %w", errs.ErrNotConfigured)
	}
	return s.orders.Append(ctx, order)
}

func reconcileOutcome(inserted bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case inserted:
		return "processed"
	default:
		return "skipped"
	}
}
