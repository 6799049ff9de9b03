package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sergio-scardigno/ventas-productos/internal/models"
	"github.com/sergio-scardigno/ventas-productos/pkg/logger"
	"github.com/sergio-scardigno/ventas-productos/pkg/validator"
)

var notificationEmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notification_emails_total",
	Help: "Order notification emails attempted, by recipient kind and outcome.",
}, []string{"recipient", "outcome"})

// Mailer sends a single email. Implementations report whether they are
// configured at all; a disabled mailer makes every notification a logged no-op.
type Mailer interface {
	Enabled() bool
	Send(to, subject, htmlBody string) error
}

// NotificationResult reports the outcome of one recipient's email.
type NotificationResult struct {
	Recipient string
	Sent      bool
	Err       error
}

// NotificationService sends best-effort emails after an order is first
// recorded. Failures never propagate into the reconciliation flow.
type NotificationService struct {
	mailer     Mailer
	adminEmail string
}

func NewNotificationService(mailer Mailer, adminEmail string) *NotificationService {
	return &NotificationService{mailer: mailer, adminEmail: strings.TrimSpace(adminEmail)}
}

// NotifyOrder sends the admin and customer emails for a newly recorded order.
// The two sends are independent: they run concurrently and one failing does
// not stop the other. Results are returned for observability and tests.
func (s *NotificationService) NotifyOrder(order models.OrderRecord) []NotificationResult {
	if s == nil || s.mailer == nil || !s.mailer.Enabled() {
		logger.Debug("Email notifications disabled, skipping", map[string]interface{}{
			"payment_id": order.PaymentID,
		})
		return nil
	}

	type target struct {
		kind    string
		to      string
		subject string
		body    string
	}

	var targets []target
	if s.adminEmail != "" {
		targets = append(targets, target{
			kind:    "admin",
			to:      s.adminEmail,
			subject: fmt.Sprintf("Nueva venta confirmada - %s", order.PaymentID),
			body:    adminEmailBody(order),
		})
	}
	if customerEmailAddressable(order.PayerEmail) {
		targets = append(targets, target{
			kind:    "customer",
			to:      order.PayerEmail,
			subject: "¡Gracias por tu compra!",
			body:    customerEmailBody(order),
		})
	}

	results := make([]NotificationResult, len(targets))
	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t target) {
			defer wg.Done()
			err := s.mailer.Send(t.to, t.subject, t.body)
			results[i] = NotificationResult{Recipient: t.kind, Sent: err == nil, Err: err}

			if err != nil {
				notificationEmailsTotal.WithLabelValues(t.kind, "error").Inc()
				logger.Error(err, "Order notification email failed", map[string]interface{}{
					"recipient":  t.kind,
					"payment_id": order.PaymentID,
				})
				return
			}
			notificationEmailsTotal.WithLabelValues(t.kind, "sent").Inc()
			logger.Info("Order notification email sent", map[string]interface{}{
				"recipient":  t.kind,
				"payment_id": order.PaymentID,
			})
		}(i, t)
	}
	wg.Wait()

	return results
}

// customerEmailAddressable filters out payloads that never identified the
// buyer. The placeholder value must not become an SMTP recipient.
func customerEmailAddressable(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || email == models.UnspecifiedPayer {
		return false
	}
	return validator.ValidateEmail(email)
}

func adminEmailBody(order models.OrderRecord) string {
	var b strings.Builder
	b.WriteString("<h2>Nueva venta confirmada</h2>")
	b.WriteString("<table border=\"0\" cellpadding=\"4\">")
	writeRow(&b, "ID de pago", order.PaymentID)
	writeRow(&b, "Proveedor", order.Provider)
	writeRow(&b, "Referencia", order.ExternalReference)
	writeRow(&b, "Monto", formatMoney(order.AmountCents, order.Currency))
	writeRow(&b, "Cliente", order.PayerName)
	writeRow(&b, "Email", order.PayerEmail)
	writeRow(&b, "Método de pago", order.PaymentMethod)
	writeRow(&b, "Cuotas", fmt.Sprintf("%d", order.Installments))
	b.WriteString("</table>")

	if len(order.Items) > 0 {
		b.WriteString("<h3>Productos</h3><ul>")
		for _, item := range order.Items {
			fmt.Fprintf(&b, "<li>%s x%d - %s</li>",
				validator.SanitizeString(item.Name),
				item.Quantity,
				formatMoney(item.UnitPriceCents, order.Currency))
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

func customerEmailBody(order models.OrderRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>¡Gracias por tu compra, %s!</h2>", validator.SanitizeString(order.PayerName))
	b.WriteString("<p>Tu pago fue aprobado y tu pedido está confirmado.</p>")
	b.WriteString("<table border=\"0\" cellpadding=\"4\">")
	writeRow(&b, "Número de pago", order.PaymentID)
	writeRow(&b, "Total", formatMoney(order.AmountCents, order.Currency))
	b.WriteString("</table>")

	if len(order.Items) > 0 {
		b.WriteString("<h3>Tu pedido</h3><ul>")
		for _, item := range order.Items {
			fmt.Fprintf(&b, "<li>%s x%d</li>", validator.SanitizeString(item.Name), item.Quantity)
		}
		b.WriteString("</ul>")
	}
	b.WriteString("<p>Ante cualquier consulta, respondé este correo.</p>")
	return b.String()
}

func writeRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "<tr><td><strong>%s:</strong></td><td>%s</td></tr>", label, validator.SanitizeString(value))
}

// formatMoney renders integer cents for humans.
func formatMoney(cents int64, currency string) string {
	if currency == "" {
		currency = "ARS"
	}
	return fmt.Sprintf("%s %d.%02d", currency, cents/100, cents%100)
}
