package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sergio-scardigno/ventas-productos/internal/errs"
	"github.com/sergio-scardigno/ventas-productos/internal/payments"
)

const defaultAPIBase = "https://api.mercadopago.com"

// paymentWindow bounds how long a created preference stays payable.
const paymentWindow = 24 * time.Hour

// Provider implements the payments.Provider interface for Mercado Pago
// Checkout Pro using direct HTTP calls.
type Provider struct {
	accessToken string
	httpClient  *http.Client
	apiBaseURL  string
	userAgent   string
}

// NewProvider constructs a Mercado Pago provider using the supplied access token.
func NewProvider(accessToken string) (*Provider, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, fmt.Errorf("mercadopago: %w", errs.ErrNotConfigured)
	}

	return &Provider{
		accessToken: token,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		apiBaseURL:  defaultAPIBase,
		userAgent:   "ventas-productos/checkout",
	}, nil
}

// Name returns the provider identifier used in ledger rows and webhooks.
func (p *Provider) Name() string {
	return "mercadopago"
}

type preferenceItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PictureURL  string `json:"picture_url,omitempty"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int64  `json:"quantity"`
	CurrencyID  string `json:"currency_id"`
}

type preferenceRequest struct {
	Items             []preferenceItem  `json:"items"`
	BackURLs          map[string]string `json:"back_urls"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	ExternalReference string            `json:"external_reference"`
	Expires           bool              `json:"expires"`
	ExpirationDateTo  string            `json:"expiration_date_to"`
	Payer             *preferencePayer  `json:"payer,omitempty"`
}

type preferencePayer struct {
	Email string `json:"email"`
}

// CreateCheckoutSession creates a Mercado Pago preference for the cart.
func (p *Provider) CreateCheckoutSession(ctx context.Context, params payments.CheckoutParams) (*payments.Session, error) {
	if p == nil {
		return nil, fmt.Errorf("mercadopago: %w", errs.ErrNotConfigured)
	}
	if len(params.Items) == 0 {
		return nil, errs.Validation("items", "at least one line item is required")
	}

	body := preferenceRequest{
		BackURLs: map[string]string{
			"success": params.SuccessURL,
			"failure": params.FailureURL,
			"pending": params.PendingURL,
		},
		NotificationURL:   params.NotificationURL,
		ExternalReference: params.ExternalReference,
		Expires:           true,
		ExpirationDateTo:  time.Now().Add(paymentWindow).Format(time.RFC3339),
	}

	for _, item := range params.Items {
		if item.UnitPriceCents <= 0 {
			return nil, errs.Validation("items", fmt.Sprintf("item %q has invalid price", item.Name))
		}
		if item.Quantity <= 0 {
			return nil, errs.Validation("items", fmt.Sprintf("item %q has invalid quantity", item.Name))
		}
		description := item.Description
		if description == "" {
			description = item.Name
		}
		body.Items = append(body.Items, preferenceItem{
			ID:          item.ID,
			Title:       item.Name,
			Description: description,
			PictureURL:  item.ImageURL,
			UnitPrice:   item.UnitPriceCents,
			Quantity:    item.Quantity,
			CurrencyID:  strings.ToUpper(item.Currency),
		})
	}

	if email := strings.TrimSpace(params.PayerEmail); email != "" {
		body.Payer = &preferencePayer{Email: email}
	}

	var payload struct {
		ID               string `json:"id"`
		InitPoint        string `json:"init_point"`
		SandboxInitPoint string `json:"sandbox_init_point"`
		Message          string `json:"message"`
	}
	if err := p.doJSON(ctx, http.MethodPost, "/checkout/preferences", body, &payload, func() string { return payload.Message }); err != nil {
		return nil, err
	}

	if payload.ID == "" {
		return nil, errs.Upstream("mercadopago", errors.New("preference response missing id"))
	}

	redirect := payload.InitPoint
	if redirect == "" {
		redirect = payload.SandboxInitPoint
	}

	return &payments.Session{ID: payload.ID, RedirectURL: redirect}, nil
}

// FetchPaymentDetails retrieves a payment from the Mercado Pago API.
func (p *Provider) FetchPaymentDetails(ctx context.Context, paymentID string) (payments.Payload, error) {
	var payload payments.Payload
	err := p.doJSON(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &payload, func() string {
		if msg, ok := payload["message"].(string); ok {
			return msg
		}
		return ""
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// FetchMerchantOrder retrieves a merchant order grouping several payments.
func (p *Provider) FetchMerchantOrder(ctx context.Context, orderID string) (payments.Payload, error) {
	var payload payments.Payload
	err := p.doJSON(ctx, http.MethodGet, "/merchant_orders/"+orderID, nil, &payload, func() string {
		if msg, ok := payload["message"].(string); ok {
			return msg
		}
		return ""
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// doJSON performs a single authenticated API call and decodes the response
// into out. errorMessage is consulted after decoding when the provider
// returned a non-2xx status.
func (p *Provider) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}, errorMessage func() string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	endpoint := strings.TrimRight(p.apiBaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+p.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errs.Upstream("mercadopago", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.StatusCode < 400 {
		return errs.Upstream("mercadopago", fmt.Errorf("response decode failed: %w", err))
	}

	if resp.StatusCode >= 400 {
		message := strings.TrimSpace(errorMessage())
		if message == "" {
			message = "request rejected"
		}
		return errs.UpstreamStatus("mercadopago", resp.StatusCode, errors.New(message))
	}

	return nil
}
