package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/sergio-scardigno/ventas-productos/internal/models"
)

// ValuesClient is the subset of the sheets client the repositories need.
type ValuesClient interface {
	Get(ctx context.Context, readRange string) ([][]string, error)
	Append(ctx context.Context, writeRange string, row []interface{}) error
}

// OrderRepository is the append-only order ledger. The backing sheet has no
// uniqueness constraint, so Append enforces the one-row-per-payment invariant
// itself with a read-before-write check. That check is not atomic against
// concurrent writers; provider redeliveries are spaced far enough apart that
// this is an accepted race.
type OrderRepository interface {
	// Append writes the record unless a row with the same (provider,
	// payment id) already exists. It reports whether a row was inserted;
	// a duplicate is a no-op, not an error.
	Append(ctx context.Context, order models.OrderRecord) (bool, error)

	// List returns all records in insertion order.
	List(ctx context.Context) ([]models.OrderRecord, error)
}

// Column order of the Orders sheet. The first row may hold these headers.
const headerPaymentID = "payment_id"

type sheetOrderRepository struct {
	client     ValuesClient
	sheetRange string
}

func NewOrderRepository(client ValuesClient, sheetRange string) OrderRepository {
	return &sheetOrderRepository{client: client, sheetRange: sheetRange}
}

func (r *sheetOrderRepository) Append(ctx context.Context, order models.OrderRecord) (bool, error) {
	existing, err := r.List(ctx)
	if err != nil {
		return false, err
	}

	for _, record := range existing {
		if record.Provider == order.Provider && record.PaymentID == order.PaymentID {
			return false, nil
		}
	}

	if err := r.client.Append(ctx, r.sheetRange, encodeOrderRow(order)); err != nil {
		return false, err
	}
	return true, nil
}

func (r *sheetOrderRepository) List(ctx context.Context) ([]models.OrderRecord, error) {
	rows, err := r.client.Get(ctx, r.sheetRange)
	if err != nil {
		return nil, err
	}

	records := make([]models.OrderRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		if i == 0 && strings.EqualFold(row[0], headerPaymentID) {
			continue
		}
		records = append(records, decodeOrderRow(row))
	}
	return records, nil
}

func encodeOrderRow(order models.OrderRecord) []interface{} {
	items, err := json.Marshal(order.Items)
	if err != nil {
		items = []byte("[]")
	}

	return []interface{}{
		order.PaymentID,
		order.Provider,
		order.ExternalReference,
		order.Status,
		order.AmountCents,
		order.Currency,
		order.PayerEmail,
		order.PayerName,
		order.PaymentMethod,
		order.Installments,
		string(items),
		formatTime(order.CreatedAt),
		formatTime(order.ApprovedAt),
	}
}

func decodeOrderRow(row []string) models.OrderRecord {
	record := models.OrderRecord{
		PaymentID:         cell(row, 0),
		Provider:          cell(row, 1),
		ExternalReference: cell(row, 2),
		Status:            cell(row, 3),
		Currency:          cell(row, 5),
		PayerEmail:        cell(row, 6),
		PayerName:         cell(row, 7),
		PaymentMethod:     cell(row, 8),
		Installments:      1,
	}

	if amount, err := strconv.ParseInt(cell(row, 4), 10, 64); err == nil {
		record.AmountCents = amount
	}
	if installments, err := strconv.ParseInt(cell(row, 9), 10, 64); err == nil && installments >= 1 {
		record.Installments = installments
	}
	if raw := cell(row, 10); raw != "" {
		var items []models.CartItem
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			record.Items = items
		}
	}
	record.CreatedAt = parseTime(cell(row, 11))
	record.ApprovedAt = parseTime(cell(row, 12))

	return record
}

func cell(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
