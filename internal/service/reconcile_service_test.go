package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sergio-scardigno/ventas-productos/internal/errs"
	"github.com/sergio-scardigno/ventas-productos/internal/models"
	"github.com/sergio-scardigno/ventas-productos/internal/payments"
)

type fakeProvider struct {
	name           string
	payloads       map[string]payments.Payload
	merchantOrders map[string]payments.Payload
	fetchErr       error

	mu         sync.Mutex
	fetchCalls []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, _ payments.CheckoutParams) (*payments.Session, error) {
	return &payments.Session{ID: "session-1", RedirectURL: "https://pay.example.com/session-1"}, nil
}

func (f *fakeProvider) FetchPaymentDetails(_ context.Context, paymentID string) (payments.Payload, error) {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, paymentID)
	f.mu.Unlock()

	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	payload, ok := f.payloads[paymentID]
	if !ok {
		return nil, errs.UpstreamStatus(f.name, 404, errors.New("payment not found"))
	}
	return payload, nil
}

func (f *fakeProvider) FetchMerchantOrder(_ context.Context, orderID string) (payments.Payload, error) {
	payload, ok := f.merchantOrders[orderID]
	if !ok {
		return nil, errs.UpstreamStatus(f.name, 404, errors.New("merchant order not found"))
	}
	return payload, nil
}

type memoryOrderRepository struct {
	mu      sync.Mutex
	records []models.OrderRecord
	listErr error
}

func (r *memoryOrderRepository) Append(_ context.Context, order models.OrderRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listErr != nil {
		return false, r.listErr
	}
	for _, record := range r.records {
		if record.Provider == order.Provider && record.PaymentID == order.PaymentID {
			return false, nil
		}
	}
	r.records = append(r.records, order)
	return true, nil
}

func (r *memoryOrderRepository) List(_ context.Context) ([]models.OrderRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.OrderRecord, len(r.records))
	copy(out, r.records)
	return out, nil
}

type fakeMailer struct {
	enabled bool
	sendErr map[string]error

	mu    sync.Mutex
	sends []string
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) Send(to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.sendErr[to]; ok && err != nil {
		return err
	}
	m.sends = append(m.sends, to)
	return nil
}

func (m *fakeMailer) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sends))
	copy(out, m.sends)
	return out
}

func approvedPayload(id string, amount float64) payments.Payload {
	return payments.Payload{
		"id":                 id,
		"status":             "approved",
		"external_reference": "order-" + id,
		"transaction_amount": amount,
		"currency_id":        "ARS",
		"payer": map[string]interface{}{
			"email": "buyer@example.com",
		},
	}
}

func newReconcileFixture(provider *fakeProvider) (*ReconcileService, *memoryOrderRepository, *fakeMailer) {
	repo := &memoryOrderRepository{}
	mailer := &fakeMailer{enabled: true}
	notifier := NewNotificationService(mailer, "admin@example.com")
	svc := NewReconcileService(map[string]payments.Provider{provider.name: provider}, repo, notifier, nil)
	return svc, repo, mailer
}

func TestReconcilePayment_ApprovedPaymentIsRecordedAndNotified(t *testing.T) {
	provider := &fakeProvider{
		name:     models.ProviderMercadoPago,
		payloads: map[string]payments.Payload{"111": approvedPayload("111", 500)},
	}
	svc, repo, mailer := newReconcileFixture(provider)

	order, inserted, err := svc.ReconcilePayment(context.Background(), models.ProviderMercadoPago, "111")
	if err != nil {
		t.Fatalf("ReconcilePayment returned error: %v", err)
	}
	if !inserted {
		t.Fatalf("expected a new ledger row")
	}
	if order == nil || order.PaymentID != "111" {
		t.Fatalf("unexpected order: %+v", order)
	}

	records, _ := repo.List(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(records))
	}
	if records[0].AmountCents != 500 {
		t.Fatalf("unexpected amount: %d", records[0].AmountCents)
	}

	sends := mailer.sentTo()
	if len(sends) != 2 {
		t.Fatalf("expected admin and customer emails, got %v", sends)
	}
}

func TestReconcilePayment_DuplicateDeliveryIsNoOp(t *testing.T) {
	provider := &fakeProvider{
		name:     models.ProviderMercadoPago,
		payloads: map[string]payments.Payload{"111": approvedPayload("111", 500)},
	}
	svc, repo, mailer := newReconcileFixture(provider)

	if _, inserted, err := svc.ReconcilePayment(context.Background(), models.ProviderMercadoPago, "111"); err != nil || !inserted {
		t.Fatalf("first delivery: inserted=%v err=%v", inserted, err)
	}
	firstSends := len(mailer.sentTo())

	_, inserted, err := svc.ReconcilePayment(context.Background(), models.ProviderMercadoPago, "111")
	if err != nil {
		t.Fatalf("second delivery returned error: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate delivery to be skipped")
	}

	records, _ := repo.List(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected a single ledger row, got %d", len(records))
	}
	if len(mailer.sentTo()) != firstSends {
		t.Fatalf("expected no emails on redelivery")
	}
}

func TestReconcilePayment_UnapprovedPaymentIsIgnored(t *testing.T) {
	// The rejected payload is deliberately sparse: the status gate must run
	// before normalization so the missing id never surfaces as an error.
	provider := &fakeProvider{
		name: models.ProviderMercadoPago,
		payloads: map[string]payments.Payload{
			"222": {"status": "rejected"},
		},
	}
	svc, repo, mailer := newReconcileFixture(provider)

	order, inserted, err := svc.ReconcilePayment(context.Background(), models.ProviderMercadoPago, "222")
	if err != nil {
		t.Fatalf("ReconcilePayment returned error: %v", err)
	}
	if inserted || order != nil {
		t.Fatalf("expected rejected payment to be ignored")
	}

	records, _ := repo.List(context.Background())
	if len(records) != 0 {
		t.Fatalf("expected empty ledger, got %d rows", len(records))
	}
	if len(mailer.sentTo()) != 0 {
		t.Fatalf("expected no emails for rejected payment")
	}
}

func TestReconcilePayment_FetchFailurePersistsNothing(t *testing.T) {
	provider := &fakeProvider{
		name:     models.ProviderMercadoPago,
		fetchErr: errs.UpstreamStatus("mercadopago", 500, errors.New("boom")),
	}
	svc, repo, _ := newReconcileFixture(provider)

	_, inserted, err := svc.ReconcilePayment(context.Background(), models.ProviderMercadoPago, "111")
	if err == nil {
		t.Fatalf("expected error from failed fetch")
	}
	if inserted {
		t.Fatalf("expected no insertion on fetch failure")
	}

	records, _ := repo.List(context.Background())
	if len(records) != 0 {
		t.Fatalf("expected empty ledger, got %d rows", len(records))
	}
}

func TestReconcilePayment_UnknownProvider(t *testing.T) {
	svc := NewReconcileService(map[string]payments.Provider{}, &memoryOrderRepository{}, nil, nil)

	_, _, err := svc.ReconcilePayment(context.Background(), models.ProviderPayPal, "111")
	if !errors.Is(err, errs.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestHandleNotification_MerchantOrderFansOutApprovedPayments(t *testing.T) {
	provider := &fakeProvider{
		name: models.ProviderMercadoPago,
		payloads: map[string]payments.Payload{
			"p1": approvedPayload("p1", 100),
			"p2": approvedPayload("p2", 200),
		},
		merchantOrders: map[string]payments.Payload{
			"mo-1": {
				"id": "mo-1",
				"payments": []interface{}{
					map[string]interface{}{"id": "p1", "status": "approved"},
					map[string]interface{}{"id": "p2", "status": "approved"},
					map[string]interface{}{"id": "p3", "status": "rejected"},
				},
			},
		},
	}
	svc, repo, _ := newReconcileFixture(provider)

	svc.HandleNotification(context.Background(), models.WebhookNotification{
		Type: "merchant_order",
		Data: models.NotificationData{ID: "mo-1"},
	})

	records, _ := repo.List(context.Background())
	if len(records) != 2 {
		t.Fatalf("expected 2 recorded payments, got %d", len(records))
	}

	provider.mu.Lock()
	fetched := len(provider.fetchCalls)
	provider.mu.Unlock()
	if fetched != 2 {
		t.Fatalf("expected only approved sub-payments fetched, got %d calls", fetched)
	}
}

func TestHandleNotification_UnknownTypeIsIgnored(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderMercadoPago}
	svc, repo, _ := newReconcileFixture(provider)

	svc.HandleNotification(context.Background(), models.WebhookNotification{
		Type: "plan",
		Data: models.NotificationData{ID: "42"},
	})

	records, _ := repo.List(context.Background())
	if len(records) != 0 {
		t.Fatalf("expected unknown type to be ignored")
	}
}

func TestCapturePayment_RecordsApprovedCapture(t *testing.T) {
	provider := &capturableProvider{
		fakeProvider: fakeProvider{name: models.ProviderPayPal},
		captured: payments.Payload{
			"id":     "5O190127TN364715T",
			"status": "COMPLETED",
			"purchase_units": []interface{}{
				map[string]interface{}{
					"reference_id": "order-xyz",
					"amount": map[string]interface{}{
						"currency_code": "USD",
						"value":         "12.50",
					},
				},
			},
		},
	}
	repo := &memoryOrderRepository{}
	svc := NewReconcileService(map[string]payments.Provider{models.ProviderPayPal: provider}, repo, nil, nil)

	order, err := svc.CapturePayment(context.Background(), models.ProviderPayPal, "5O190127TN364715T")
	if err != nil {
		t.Fatalf("CapturePayment returned error: %v", err)
	}
	if order.AmountCents != 1250 {
		t.Fatalf("unexpected amount: %d", order.AmountCents)
	}

	records, _ := repo.List(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected captured order persisted, got %d rows", len(records))
	}
}

func TestCapturePayment_ProviderWithoutCaptureSupport(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderMercadoPago}
	svc := NewReconcileService(map[string]payments.Provider{models.ProviderMercadoPago: provider}, &memoryOrderRepository{}, nil, nil)

	_, err := svc.CapturePayment(context.Background(), models.ProviderMercadoPago, "111")
	var validationErr *errs.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

type capturableProvider struct {
	fakeProvider
	captured payments.Payload
}

func (c *capturableProvider) CapturePayment(_ context.Context, _ string) (payments.Payload, error) {
	return c.captured, nil
}
