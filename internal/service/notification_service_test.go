package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/sergio-scardigno/ventas-productos/internal/models"
)

func approvedOrder(payerEmail string) models.OrderRecord {
	return models.OrderRecord{
		PaymentID:   "111",
		Provider:    models.ProviderMercadoPago,
		Status:      models.StatusApproved,
		AmountCents: 500,
		Currency:    "ARS",
		PayerEmail:  payerEmail,
		PayerName:   "Ana García",
		Items: []models.CartItem{
			{Name: "Laptop Gaming", UnitPriceCents: 500, Quantity: 1},
		},
	}
}

func TestNotifyOrder_SendsAdminAndCustomerEmails(t *testing.T) {
	mailer := &fakeMailer{enabled: true}
	svc := NewNotificationService(mailer, "admin@example.com")

	results := svc.NotifyOrder(approvedOrder("buyer@example.com"))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, result := range results {
		if !result.Sent || result.Err != nil {
			t.Fatalf("expected successful send for %s, got %+v", result.Recipient, result)
		}
	}

	sends := mailer.sentTo()
	if len(sends) != 2 {
		t.Fatalf("expected 2 emails, got %v", sends)
	}
}

func TestNotifyOrder_SkipsUnspecifiedPayer(t *testing.T) {
	mailer := &fakeMailer{enabled: true}
	svc := NewNotificationService(mailer, "admin@example.com")

	results := svc.NotifyOrder(approvedOrder(models.UnspecifiedPayer))
	if len(results) != 1 {
		t.Fatalf("expected only the admin email, got %d results", len(results))
	}
	if results[0].Recipient != "admin" {
		t.Fatalf("unexpected recipient: %q", results[0].Recipient)
	}
}

func TestNotifyOrder_SkipsInvalidCustomerAddress(t *testing.T) {
	mailer := &fakeMailer{enabled: true}
	svc := NewNotificationService(mailer, "admin@example.com")

	for _, email := range []string{"", "not-an-email", "missing@tld"} {
		results := svc.NotifyOrder(approvedOrder(email))
		if len(results) != 1 {
			t.Fatalf("email %q: expected only the admin email, got %d results", email, len(results))
		}
	}
}

func TestNotifyOrder_AdminFailureDoesNotBlockCustomer(t *testing.T) {
	mailer := &fakeMailer{
		enabled: true,
		sendErr: map[string]error{"admin@example.com": errors.New("smtp timeout")},
	}
	svc := NewNotificationService(mailer, "admin@example.com")

	results := svc.NotifyOrder(approvedOrder("buyer@example.com"))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	var adminFailed, customerSent bool
	for _, result := range results {
		switch result.Recipient {
		case "admin":
			adminFailed = !result.Sent && result.Err != nil
		case "customer":
			customerSent = result.Sent
		}
	}
	if !adminFailed {
		t.Fatalf("expected admin send to fail")
	}
	if !customerSent {
		t.Fatalf("expected customer send to succeed despite admin failure")
	}
}

func TestNotifyOrder_DisabledMailerIsNoOp(t *testing.T) {
	mailer := &fakeMailer{enabled: false}
	svc := NewNotificationService(mailer, "admin@example.com")

	if results := svc.NotifyOrder(approvedOrder("buyer@example.com")); results != nil {
		t.Fatalf("expected no results from a disabled mailer, got %v", results)
	}
	if len(mailer.sentTo()) != 0 {
		t.Fatalf("disabled mailer must not send")
	}
}

func TestEmailBodies_SanitizeUntrustedFields(t *testing.T) {
	order := approvedOrder("buyer@example.com")
	order.PayerName = "<script>alert(1)</script>Ana"
	order.Items[0].Name = "<img src=x onerror=alert(1)>Laptop"

	for _, body := range []string{adminEmailBody(order), customerEmailBody(order)} {
		if strings.Contains(body, "<script>") || strings.Contains(body, "<img") {
			t.Fatalf("expected HTML stripped from untrusted fields:\n%s", body)
		}
	}
}
