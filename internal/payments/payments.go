// Package payments defines the boundary between the storefront and the
// external payment vendors. Implementations live in subpackages and talk to
// the provider HTTP APIs directly; they hold no state beyond injected
// credentials and are safe to call concurrently.
package payments

import "context"

// LineItem describes a purchasable item included in a checkout session.
type LineItem struct {
	ID             string
	Name           string
	Description    string
	ImageURL       string
	UnitPriceCents int64
	Quantity       int64
	Currency       string
}

// CheckoutParams encapsulates everything needed to create a checkout session.
type CheckoutParams struct {
	ExternalReference string
	Items             []LineItem
	PayerEmail        string
	SuccessURL        string
	FailureURL        string
	PendingURL        string
	NotificationURL   string
}

// Session represents a checkout session created by a payment provider.
type Session struct {
	ID          string
	RedirectURL string
}

// Payload is a raw provider response. Field names, nesting and types vary
// across providers and API versions, so it is parsed defensively downstream.
type Payload map[string]interface{}

// Provider is implemented by each payment gateway adapter.
type Provider interface {
	Name() string

	// CreateCheckoutSession registers the intended payment with the provider
	// and returns the URL the buyer must be redirected to.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error)

	// FetchPaymentDetails retrieves the authoritative state of a payment.
	// Callback bodies are hints only; this is the source of truth.
	FetchPaymentDetails(ctx context.Context, paymentID string) (Payload, error)
}

// MerchantOrderFetcher is implemented by providers that group several
// payments under a single merchant order.
type MerchantOrderFetcher interface {
	FetchMerchantOrder(ctx context.Context, orderID string) (Payload, error)
}

// Capturer is implemented by providers whose sessions need an explicit
// capture call after the buyer approves the payment.
type Capturer interface {
	CapturePayment(ctx context.Context, paymentID string) (Payload, error)
}
