package models

import "time"

// Order statuses as reported by the payment providers after normalization.
const (
	StatusApproved  = "approved"
	StatusPending   = "pending"
	StatusRejected  = "rejected"
	StatusInProcess = "in_process"
	StatusUnknown   = "unknown"
)

// Payment provider names.
const (
	ProviderMercadoPago = "mercadopago"
	ProviderPayPal      = "paypal"
)

// UnspecifiedPayer is the placeholder used when a payment payload does not
// identify the buyer. Customer emails are never sent to it.
const UnspecifiedPayer = "No especificado"

// Product is a catalog row read from the products sheet.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"price"`
	Image       string `json:"image"`
	Description string `json:"description"`
	Stock       int    `json:"stock"`
}

// CartItem is a purchasable line owned by the client session. It is only
// persisted as a snapshot inside an OrderRecord.
type CartItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price"`
	Quantity       int64  `json:"quantity"`
	Currency       string `json:"currency,omitempty"`
}

// CheckoutSession correlates a cart with the provider-side preference. It is
// cached for the payment window only and never stored durably.
type CheckoutSession struct {
	ExternalReference    string     `json:"external_reference"`
	Provider             string     `json:"provider"`
	ProviderPreferenceID string     `json:"provider_preference_id"`
	Items                []CartItem `json:"items"`
	CreatedAt            time.Time  `json:"created_at"`
	ExpiresAt            time.Time  `json:"expires_at"`
}

// OrderRecord is the unit of persistence of the order ledger. At most one
// record per (provider, payment id) pair is ever appended; records are never
// mutated afterwards.
type OrderRecord struct {
	PaymentID         string     `json:"payment_id"`
	Provider          string     `json:"provider"`
	ExternalReference string     `json:"external_reference"`
	Status            string     `json:"status"`
	AmountCents       int64      `json:"amount"`
	Currency          string     `json:"currency"`
	PayerEmail        string     `json:"payer_email"`
	PayerName         string     `json:"payer_name"`
	PaymentMethod     string     `json:"payment_method"`
	Installments      int64      `json:"installments"`
	Items             []CartItem `json:"items"`
	CreatedAt         time.Time  `json:"created_at"`
	ApprovedAt        time.Time  `json:"approved_at"`
}

// CheckoutRequest starts a checkout session for the submitted cart.
type CheckoutRequest struct {
	Provider   string     `json:"provider"`
	Items      []CartItem `json:"items"`
	PayerEmail string     `json:"payer_email" validate:"omitempty,email"`
}

// CheckoutSessionResponse is returned to the client for the redirect.
type CheckoutSessionResponse struct {
	SessionID         string `json:"id"`
	RedirectURL       string `json:"init_point"`
	ExternalReference string `json:"external_reference"`
}

// WebhookNotification is the asynchronous callback body sent by Mercado Pago.
// The payload is a hint only; payment state is always re-fetched from the
// provider API before any write.
type WebhookNotification struct {
	Type string           `json:"type"`
	Data NotificationData `json:"data"`
}

type NotificationData struct {
	ID string `json:"id"`
}

// CaptureRequest reconciles an approved PayPal order synchronously.
type CaptureRequest struct {
	OrderID string `json:"order_id"`
}
