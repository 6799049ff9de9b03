package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sergio-scardigno/ventas-productos/internal/errs"
	"github.com/sergio-scardigno/ventas-productos/internal/payments"
)

const defaultAPIBase = "https://api-m.sandbox.paypal.com"

// tokenSlack is subtracted from the reported token lifetime so a token is
// never used right at its expiry boundary.
const tokenSlack = 60 * time.Second

// Provider implements the payments.Provider interface for the PayPal
// Orders v2 API using direct HTTP calls.
type Provider struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	apiBaseURL   string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewProvider constructs a PayPal provider from REST API credentials.
// baseURL selects the live or sandbox environment; empty means sandbox.
func NewProvider(clientID, clientSecret, baseURL string) (*Provider, error) {
	id := strings.TrimSpace(clientID)
	secret := strings.TrimSpace(clientSecret)
	if id == "" || secret == "" {
		return nil, fmt.Errorf("paypal: %w", errs.ErrNotConfigured)
	}

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultAPIBase
	}

	return &Provider{
		clientID:     id,
		clientSecret: secret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		apiBaseURL:   base,
	}, nil
}

// Name returns the provider identifier used in ledger rows.
func (p *Provider) Name() string {
	return "paypal"
}

// token returns a cached OAuth2 access token, requesting a new one through
// the client-credentials grant when the cached one expired.
func (p *Provider) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", errs.Upstream("paypal", err)
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken      string `json:"access_token"`
		ExpiresIn        int64  `json:"expires_in"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil && resp.StatusCode < 400 {
		return "", errs.Upstream("paypal", fmt.Errorf("token response decode failed: %w", err))
	}

	if resp.StatusCode >= 400 {
		message := strings.TrimSpace(payload.ErrorDescription)
		if message == "" {
			message = "token request rejected"
		}
		return "", errs.UpstreamStatus("paypal", resp.StatusCode, errors.New(message))
	}
	if payload.AccessToken == "" {
		return "", errs.Upstream("paypal", errors.New("token response missing access_token"))
	}

	p.accessToken = payload.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - tokenSlack)
	return p.accessToken, nil
}

type orderAmount struct {
	CurrencyCode string       `json:"currency_code"`
	Value        string       `json:"value"`
	Breakdown    *amountBreak `json:"breakdown,omitempty"`
}

type amountBreak struct {
	ItemTotal orderAmountValue `json:"item_total"`
}

type orderAmountValue struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type orderItem struct {
	Name       string           `json:"name"`
	Quantity   string           `json:"quantity"`
	UnitAmount orderAmountValue `json:"unit_amount"`
}

type purchaseUnit struct {
	ReferenceID string      `json:"reference_id"`
	Amount      orderAmount `json:"amount"`
	Items       []orderItem `json:"items,omitempty"`
}

type orderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type applicationContext struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

// CreateCheckoutSession creates a PayPal order the buyer must approve.
func (p *Provider) CreateCheckoutSession(ctx context.Context, params payments.CheckoutParams) (*payments.Session, error) {
	if p == nil {
		return nil, fmt.Errorf("paypal: %w", errs.ErrNotConfigured)
	}
	if len(params.Items) == 0 {
		return nil, errs.Validation("items", "at least one line item is required")
	}

	currency := ""
	var totalCents int64
	items := make([]orderItem, 0, len(params.Items))
	for _, item := range params.Items {
		if item.UnitPriceCents <= 0 {
			return nil, errs.Validation("items", fmt.Sprintf("item %q has invalid price", item.Name))
		}
		if item.Quantity <= 0 {
			return nil, errs.Validation("items", fmt.Sprintf("item %q has invalid quantity", item.Name))
		}
		if currency == "" {
			currency = strings.ToUpper(item.Currency)
		}
		totalCents += item.UnitPriceCents * item.Quantity
		items = append(items, orderItem{
			Name:     item.Name,
			Quantity: fmt.Sprintf("%d", item.Quantity),
			UnitAmount: orderAmountValue{
				CurrencyCode: strings.ToUpper(item.Currency),
				Value:        formatAmount(item.UnitPriceCents),
			},
		})
	}
	if currency == "" {
		currency = "USD"
	}

	body := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: params.ExternalReference,
			Amount: orderAmount{
				CurrencyCode: currency,
				Value:        formatAmount(totalCents),
				Breakdown: &amountBreak{
					ItemTotal: orderAmountValue{CurrencyCode: currency, Value: formatAmount(totalCents)},
				},
			},
			Items: items,
		}},
		ApplicationContext: applicationContext{
			ReturnURL: params.SuccessURL,
			CancelURL: params.FailureURL,
		},
	}

	var payload struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
		Message string `json:"message"`
	}
	if err := p.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", body, &payload, func() string { return payload.Message }); err != nil {
		return nil, err
	}

	if payload.ID == "" {
		return nil, errs.Upstream("paypal", errors.New("order response missing id"))
	}

	redirect := ""
	for _, link := range payload.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			redirect = link.Href
			break
		}
	}

	return &payments.Session{ID: payload.ID, RedirectURL: redirect}, nil
}

// CapturePayment captures an approved order and returns the resulting
// order payload.
func (p *Provider) CapturePayment(ctx context.Context, paymentID string) (payments.Payload, error) {
	var payload payments.Payload
	err := p.doJSON(ctx, http.MethodPost, "/v2/checkout/orders/"+paymentID+"/capture", struct{}{}, &payload, func() string {
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

// FetchPaymentDetails retrieves a PayPal order in its raw form.
func (p *Provider) FetchPaymentDetails(ctx context.Context, paymentID string) (payments.Payload, error) {
	var payload payments.Payload
	err := p.doJSON(ctx, http.MethodGet, "/v2/checkout/orders/"+paymentID, nil, &payload, func() string {
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

func (p *Provider) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}, errorMessage func() string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	token, err := p.token(ctx)
	if err != nil {
		return err
	}

	var reader *strings.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(encoded))
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, p.apiBaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errs.Upstream("paypal", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.StatusCode < 400 {
		return errs.Upstream("paypal", fmt.Errorf("response decode failed: %w", err))
	}

	if resp.StatusCode >= 400 {
		message := strings.TrimSpace(errorMessage())
		if message == "" {
			message = "request rejected"
		}
		return errs.UpstreamStatus("paypal", resp.StatusCode, errors.New(message))
	}

	return nil
}

// formatAmount renders integer cents as the decimal string PayPal expects.
func formatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
