package service

import (
	"errors"
	"testing"

	"github.com/sergio-scardigno/ventas-productos/internal/errs"
	"github.com/sergio-scardigno/ventas-productos/internal/models"
	"github.com/sergio-scardigno/ventas-productos/internal/payments"
)

func TestNormalizeOrder_MercadoPagoApproved(t *testing.T) {
	payload := payments.Payload{
		"id":                 float64(12345678),
		"status":             "approved",
		"external_reference": "order-abc",
		"transaction_amount": float64(500),
		"currency_id":        "ARS",
		"payment_method_id":  "visa",
		"installments":       float64(3),
		"date_approved":      "2026-08-01T10:30:00.000-03:00",
		"payer": map[string]interface{}{
			"email":      "buyer@example.com",
			"first_name": "Ana",
			"last_name":  "García",
		},
		"additional_info": map[string]interface{}{
			"items": []interface{}{
				map[string]interface{}{
					"id":         "1",
					"title":      "Laptop Gaming",
					"unit_price": float64(500),
					"quantity":   float64(1),
				},
			},
		},
	}

	order, err := NormalizeOrder(models.ProviderMercadoPago, payload)
	if err != nil {
		t.Fatalf("NormalizeOrder returned error: %v", err)
	}

	if order.PaymentID != "12345678" {
		t.Fatalf("expected numeric id rendered as string, got %q", order.PaymentID)
	}
	if order.Status != models.StatusApproved {
		t.Fatalf("unexpected status: %q", order.Status)
	}
	if order.AmountCents != 500 {
		t.Fatalf("expected amount passed through as 500, got %d", order.AmountCents)
	}
	if order.ExternalReference != "order-abc" {
		t.Fatalf("unexpected external reference: %q", order.ExternalReference)
	}
	if order.PayerEmail != "buyer@example.com" {
		t.Fatalf("unexpected payer email: %q", order.PayerEmail)
	}
	if order.PayerName != "Ana García" {
		t.Fatalf("unexpected payer name: %q", order.PayerName)
	}
	if order.Installments != 3 {
		t.Fatalf("expected 3 installments, got %d", order.Installments)
	}
	if len(order.Items) != 1 || order.Items[0].Name != "Laptop Gaming" {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
	if order.ApprovedAt.IsZero() {
		t.Fatalf("expected approval time to be parsed")
	}
}

func TestNormalizeOrder_MercadoPagoDefaults(t *testing.T) {
	payload := payments.Payload{
		"id":     "999",
		"status": "approved",
	}

	order, err := NormalizeOrder(models.ProviderMercadoPago, payload)
	if err != nil {
		t.Fatalf("NormalizeOrder returned error: %v", err)
	}

	if order.PayerEmail != models.UnspecifiedPayer {
		t.Fatalf("expected placeholder payer email, got %q", order.PayerEmail)
	}
	if order.PayerName != models.UnspecifiedPayer {
		t.Fatalf("expected placeholder payer name, got %q", order.PayerName)
	}
	if order.Currency != "ARS" {
		t.Fatalf("expected default currency ARS, got %q", order.Currency)
	}
	if order.Installments != 1 {
		t.Fatalf("expected default installments 1, got %d", order.Installments)
	}
}

func TestNormalizeOrder_MissingPaymentID(t *testing.T) {
	_, err := NormalizeOrder(models.ProviderMercadoPago, payments.Payload{"status": "approved"})

	var normErr *errs.NormalizationError
	if !errors.As(err, &normErr) {
		t.Fatalf("expected NormalizationError, got %v", err)
	}
	if normErr.Provider != models.ProviderMercadoPago {
		t.Fatalf("unexpected provider on error: %q", normErr.Provider)
	}
}

func TestNormalizeOrder_PayPalCompleted(t *testing.T) {
	payload := payments.Payload{
		"id":     "5O190127TN364715T",
		"status": "COMPLETED",
		"payer": map[string]interface{}{
			"email_address": "buyer@example.com",
			"name": map[string]interface{}{
				"given_name": "John",
				"surname":    "Doe",
			},
		},
		"purchase_units": []interface{}{
			map[string]interface{}{
				"reference_id": "order-xyz",
				"amount": map[string]interface{}{
					"currency_code": "USD",
					"value":         "5.00",
				},
				"items": []interface{}{
					map[string]interface{}{
						"name":     "Smartwatch",
						"quantity": "1",
						"unit_amount": map[string]interface{}{
							"value": "5.00",
						},
					},
				},
			},
		},
	}

	order, err := NormalizeOrder(models.ProviderPayPal, payload)
	if err != nil {
		t.Fatalf("NormalizeOrder returned error: %v", err)
	}

	if order.Status != models.StatusApproved {
		t.Fatalf("expected COMPLETED mapped to approved, got %q", order.Status)
	}
	if order.AmountCents != 500 {
		t.Fatalf("expected 5.00 converted to 500 cents, got %d", order.AmountCents)
	}
	if order.Currency != "USD" {
		t.Fatalf("unexpected currency: %q", order.Currency)
	}
	if order.ExternalReference != "order-xyz" {
		t.Fatalf("unexpected external reference: %q", order.ExternalReference)
	}
	if order.PayerName != "John Doe" {
		t.Fatalf("unexpected payer name: %q", order.PayerName)
	}
	if len(order.Items) != 1 || order.Items[0].UnitPriceCents != 500 {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
}

func TestPaymentStatus(t *testing.T) {
	cases := []struct {
		provider string
		raw      string
		want     string
	}{
		{models.ProviderMercadoPago, "approved", models.StatusApproved},
		{models.ProviderMercadoPago, "pending", models.StatusPending},
		{models.ProviderMercadoPago, "in_process", models.StatusInProcess},
		{models.ProviderMercadoPago, "rejected", models.StatusRejected},
		{models.ProviderMercadoPago, "charged_back", models.StatusUnknown},
		{models.ProviderMercadoPago, "", models.StatusUnknown},
		{models.ProviderPayPal, "COMPLETED", models.StatusApproved},
		{models.ProviderPayPal, "CREATED", models.StatusPending},
		{models.ProviderPayPal, "APPROVED", models.StatusPending},
		{models.ProviderPayPal, "PAYER_ACTION_REQUIRED", models.StatusPending},
		{models.ProviderPayPal, "VOIDED", models.StatusRejected},
		{models.ProviderPayPal, "weird", models.StatusUnknown},
	}

	for _, tc := range cases {
		got := PaymentStatus(tc.provider, payments.Payload{"status": tc.raw})
		if got != tc.want {
			t.Errorf("PaymentStatus(%s, %q) = %q, want %q", tc.provider, tc.raw, got, tc.want)
		}
	}
}

func TestMajorToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"5.00", 500},
		{"0.99", 99},
		{"10", 1000},
		{"1234.56", 123456},
		{"", 0},
		{"not-a-number", 0},
	}
	for _, tc := range cases {
		if got := majorToCents(tc.in); got != tc.want {
			t.Errorf("majorToCents(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
