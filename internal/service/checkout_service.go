package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sergio-scardigno/ventas-productos/internal/errs"
	"github.com/sergio-scardigno/ventas-productos/internal/models"
	"github.com/sergio-scardigno/ventas-productos/internal/payments"
	"github.com/sergio-scardigno/ventas-productos/pkg/cache"
	"github.com/sergio-scardigno/ventas-productos/pkg/logger"
	"github.com/sergio-scardigno/ventas-productos/pkg/validator"
)

// sessionTTL matches the expiry set on the provider-side preference.
const sessionTTL = 24 * time.Hour

const sessionCacheKeyPrefix = "checkout:session:"

// CheckoutService validates carts and opens checkout sessions with the
// selected payment provider.
type CheckoutService struct {
	providers       map[string]payments.Provider
	cache           *cache.Cache
	baseURL         string
	defaultCurrency string
}

func NewCheckoutService(providers map[string]payments.Provider, c *cache.Cache, baseURL, defaultCurrency string) *CheckoutService {
	return &CheckoutService{
		providers:       providers,
		cache:           c,
		baseURL:         strings.TrimRight(baseURL, "/"),
		defaultCurrency: strings.ToUpper(defaultCurrency),
	}
}

// CreateSession validates the cart, registers it with the provider and
// returns the redirect the client must follow. Validation happens before any
// outbound call so malformed carts never reach a provider.
func (s *CheckoutService) CreateSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSessionResponse, error) {
	providerName := strings.ToLower(strings.TrimSpace(req.Provider))
	if providerName == "" {
		providerName = models.ProviderMercadoPago
	}
	if providerName != models.ProviderMercadoPago && providerName != models.ProviderPayPal {
		return nil, errs.Validation("provider", fmt.Sprintf("unknown provider %q", req.Provider))
	}

	if err := validator.Validate(req); err != nil {
		return nil, errs.Validation("payer_email", "must be a valid email address")
	}
	if err := validateCart(req.Items); err != nil {
		return nil, err
	}

	provider, ok := s.providers[providerName]
	if !ok || provider == nil {
		return nil, fmt.Errorf("%s: %w", providerName, errs.ErrNotConfigured)
	}

	externalReference := "order-" + uuid.NewString()

	items := make([]payments.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		currency := strings.ToUpper(item.Currency)
		if currency == "" {
			currency = s.defaultCurrency
		}
		items = append(items, payments.LineItem{
			ID:             item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			Currency:       currency,
		})
	}

	session, err := provider.CreateCheckoutSession(ctx, payments.CheckoutParams{
		ExternalReference: externalReference,
		Items:             items,
		PayerEmail:        strings.TrimSpace(req.PayerEmail),
		SuccessURL:        s.baseURL + "/checkout/success",
		FailureURL:        s.baseURL + "/checkout/failure",
		PendingURL:        s.baseURL + "/checkout/pending",
		NotificationURL:   s.baseURL + "/api/v1/webhooks/mercadopago",
	})
	if err != nil {
		return nil, err
	}

	s.cacheSession(externalReference, providerName, session.ID, req.Items)

	logger.Info("Checkout session created", map[string]interface{}{
		"provider":           providerName,
		"external_reference": externalReference,
		"session_id":         session.ID,
		"items":              len(req.Items),
	})

	return &models.CheckoutSessionResponse{
		SessionID:         session.ID,
		RedirectURL:       session.RedirectURL,
		ExternalReference: externalReference,
	}, nil
}

// cacheSession stores the cart snapshot for the payment window. The cache is
// best effort; a miss later only loses item detail, never the order itself.
func (s *CheckoutService) cacheSession(externalReference, provider, sessionID string, items []models.CartItem) {
	if !s.cache.Enabled() {
		return
	}

	now := time.Now()
	session := models.CheckoutSession{
		ExternalReference:    externalReference,
		Provider:             provider,
		ProviderPreferenceID: sessionID,
		Items:                items,
		CreatedAt:            now,
		ExpiresAt:            now.Add(sessionTTL),
	}
	if err := s.cache.Set(sessionCacheKeyPrefix+externalReference, session, sessionTTL); err != nil {
		logger.Warn("Failed to cache checkout session", map[string]interface{}{
			"external_reference": externalReference,
			"error":              err.Error(),
		})
	}
}

func validateCart(items []models.CartItem) error {
	if len(items) == 0 {
		return errs.Validation("items", "cart is empty")
	}
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return errs.Validation("items", fmt.Sprintf("item %d has no product id", i))
		}
		if strings.TrimSpace(item.Name) == "" {
			return errs.Validation("items", fmt.Sprintf("item %d has no name", i))
		}
		if item.UnitPriceCents <= 0 {
			return errs.Validation("items", fmt.Sprintf("item %q has invalid price", item.Name))
		}
		if item.Quantity <= 0 {
			return errs.Validation("items", fmt.Sprintf("item %q has invalid quantity", item.Name))
		}
	}
	return nil
}
