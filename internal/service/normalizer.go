package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sergio-scardigno/ventas-productos/internal/errs"
	"github.com/sergio-scardigno/ventas-productos/internal/models"
	"github.com/sergio-scardigno/ventas-productos/internal/payments"
)

// Provider payloads are loosely typed and vary across API versions: fields
// go missing, move between keys, or change type. Everything here extracts
// with defaults; the only unrecoverable condition is a missing payment id,
// because without it the ledger key is undefined.

// PaymentStatus extracts the normalized status from a raw payload without
// building a full order record.
func PaymentStatus(provider string, payload payments.Payload) string {
	raw := payloadString(payload, "status")
	return normalizeStatus(provider, raw)
}

// NormalizeOrder maps a provider payload into the internal order record.
func NormalizeOrder(provider string, payload payments.Payload) (models.OrderRecord, error) {
	paymentID := payloadString(payload, "id")
	if paymentID == "" {
		return models.OrderRecord{}, &errs.NormalizationError{Provider: provider, Reason: "payload has no payment identifier"}
	}

	switch provider {
	case models.ProviderPayPal:
		return normalizePayPal(paymentID, payload), nil
	default:
		return normalizeMercadoPago(paymentID, payload), nil
	}
}

func normalizeMercadoPago(paymentID string, payload payments.Payload) models.OrderRecord {
	record := models.OrderRecord{
		PaymentID:         paymentID,
		Provider:          models.ProviderMercadoPago,
		ExternalReference: payloadString(payload, "external_reference"),
		Status:            normalizeStatus(models.ProviderMercadoPago, payloadString(payload, "status")),
		AmountCents:       payloadCents(payload, "transaction_amount"),
		Currency:          defaultString(payloadString(payload, "currency_id"), "ARS"),
		PaymentMethod:     payloadString(payload, "payment_method_id"),
		Installments:      defaultInstallments(payloadNumber(payload, "installments")),
		CreatedAt:         payloadTime(payload, "date_created"),
		ApprovedAt:        payloadTime(payload, "date_approved"),
	}

	payer := payloadMap(payload, "payer")
	record.PayerEmail = defaultString(payloadString(payer, "email"), models.UnspecifiedPayer)
	record.PayerName = payerName(payloadString(payer, "first_name"), payloadString(payer, "last_name"))

	for _, raw := range payloadSlice(payloadMap(payload, "additional_info"), "items") {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		record.Items = append(record.Items, models.CartItem{
			ProductID:      payloadString(item, "id"),
			Name:           payloadString(item, "title"),
			UnitPriceCents: payloadCents(item, "unit_price"),
			Quantity:       int64(payloadNumber(item, "quantity")),
		})
	}

	return record
}

func normalizePayPal(paymentID string, payload payments.Payload) models.OrderRecord {
	record := models.OrderRecord{
		PaymentID:     paymentID,
		Provider:      models.ProviderPayPal,
		Status:        normalizeStatus(models.ProviderPayPal, payloadString(payload, "status")),
		Currency:      "USD",
		PaymentMethod: "paypal",
		Installments:  1,
		CreatedAt:     payloadTime(payload, "create_time"),
		ApprovedAt:    payloadTime(payload, "update_time"),
	}

	payer := payloadMap(payload, "payer")
	record.PayerEmail = defaultString(payloadString(payer, "email_address"), models.UnspecifiedPayer)
	name := payloadMap(payer, "name")
	record.PayerName = payerName(payloadString(name, "given_name"), payloadString(name, "surname"))

	units := payloadSlice(payload, "purchase_units")
	if len(units) > 0 {
		unit, ok := units[0].(map[string]interface{})
		if ok {
			record.ExternalReference = payloadString(unit, "reference_id")
			amount := payloadMap(unit, "amount")
			record.Currency = defaultString(payloadString(amount, "currency_code"), "USD")
			record.AmountCents = majorToCents(payloadString(amount, "value"))

			for _, raw := range payloadSlice(unit, "items") {
				item, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				unitAmount := payloadMap(item, "unit_amount")
				record.Items = append(record.Items, models.CartItem{
					ProductID:      payloadString(item, "sku"),
					Name:           payloadString(item, "name"),
					UnitPriceCents: majorToCents(payloadString(unitAmount, "value")),
					Quantity:       int64(payloadNumber(item, "quantity")),
				})
			}
		}
	}

	return record
}

func normalizeStatus(provider, raw string) string {
	status := strings.ToLower(strings.TrimSpace(raw))

	if provider == models.ProviderPayPal {
		switch status {
		case "completed":
			return models.StatusApproved
		case "created", "saved", "approved", "payer_action_required":
			return models.StatusPending
		case "voided":
			return models.StatusRejected
		case "":
			return models.StatusUnknown
		default:
			return models.StatusUnknown
		}
	}

	switch status {
	case models.StatusApproved, models.StatusPending, models.StatusRejected, models.StatusInProcess:
		return status
	default:
		return models.StatusUnknown
	}
}

func payerName(first, last string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name == "" {
		return models.UnspecifiedPayer
	}
	return name
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func defaultInstallments(value float64) int64 {
	if value < 1 {
		return 1
	}
	return int64(value)
}

// payloadString reads a string-ish value; numeric ids are common.
func payloadString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return ""
	}
}

func payloadNumber(m map[string]interface{}, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
			return f
		}
		return 0
	default:
		return 0
	}
}

func payloadMap(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

func payloadSlice(m map[string]interface{}, key string) []interface{} {
	if m == nil {
		return nil
	}
	if v, ok := m[key].([]interface{}); ok {
		return v
	}
	return nil
}

func payloadTime(m map[string]interface{}, key string) time.Time {
	raw := payloadString(m, key)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-07:00"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// payloadCents rounds a numeric amount to integer minor units.
func payloadCents(m map[string]interface{}, key string) int64 {
	return int64(math.Round(payloadNumber(m, key)))
}

// majorToCents converts a decimal amount string ("5.00") to cents.
func majorToCents(value string) int64 {
	var f float64
	if _, err := fmt.Sscanf(strings.TrimSpace(value), "%g", &f); err != nil {
		return 0
	}
	return int64(math.Round(f * 100))
}
