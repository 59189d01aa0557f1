// Package worker turns receipt jobs into delivered mail.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/studyshop/internal/domain"
	"github.com/joao-fontenele/studyshop/internal/email"
	"github.com/joao-fontenele/studyshop/internal/receipt"
)

var (
	meter         = otel.Meter("worker")
	deliveries, _ = meter.Int64Counter("receipt_deliveries_total",
		metric.WithDescription("Receipt mails by recipient and outcome"))
)

const (
	RecipientCustomer = "customer"
	RecipientAdmin    = "admin"
)

type DeliveryResult struct {
	Recipient string
	Address   string
	Err       error
}

type Renderer interface {
	Render(order domain.ReceiptRequested) (*receipt.Rendered, error)
}

type ReceiptHandler struct {
	renderer   Renderer
	mailer     email.Sender
	adminEmail string
	logger     *slog.Logger
}

func NewReceiptHandler(renderer Renderer, mailer email.Sender, adminEmail string, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		renderer:   renderer,
		mailer:     mailer,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

// Handle is the consumer entry point. Receipts are best effort: bad payloads
// and failed deliveries are logged and the job is dropped.
func (h *ReceiptHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.ReceiptRequested
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping malformed receipt job", "error", err)
		return nil
	}

	if _, err := h.Process(ctx, event); err != nil {
		h.logger.Error("receipt job failed", "error", err, "order_id", event.OrderID)
	}
	return ctx.Err()
}

// Process renders the receipt and mails the customer and the admin. The two
// sends are independent: a failed send never cancels the other. Every outcome
// is returned, along with the first delivery error.
func (h *ReceiptHandler) Process(ctx context.Context, event domain.ReceiptRequested) ([]DeliveryResult, error) {
	h.logger.Info("processing receipt", "order_id", event.OrderID, "event_id", event.EventID)

	rendered, err := h.renderer.Render(event)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}

	attachment := email.Attachment{
		Filename:    rendered.Attachment,
		ContentType: "application/pdf",
		Content:     rendered.PDF,
	}
	messages := []struct {
		recipient string
		msg       email.Message
	}{
		{RecipientCustomer, email.Message{
			To:          event.CustomerInfo.Email,
			Subject:     rendered.CustomerSubject,
			HTML:        rendered.CustomerHTML,
			Attachments: []email.Attachment{attachment},
		}},
		{RecipientAdmin, email.Message{
			To:          h.adminEmail,
			Subject:     rendered.AdminSubject,
			HTML:        rendered.AdminHTML,
			Attachments: []email.Attachment{attachment},
		}},
	}

	results := make([]DeliveryResult, len(messages))
	var g errgroup.Group
	for i, m := range messages {
		g.Go(func() error {
			results[i] = h.deliver(ctx, event.OrderID, m.recipient, m.msg)
			return results[i].Err
		})
	}

	return results, g.Wait()
}

func (h *ReceiptHandler) deliver(ctx context.Context, orderID int64, recipient string, msg email.Message) DeliveryResult {
	result := DeliveryResult{Recipient: recipient, Address: msg.To}

	if err := h.mailer.Send(ctx, msg); err != nil {
		result.Err = fmt.Errorf("%w: %s: %w", domain.ErrDeliveryFailed, recipient, err)
		deliveries.Add(ctx, 1, metric.WithAttributes(
			attribute.String("recipient", recipient), attribute.String("outcome", "failed")))
		h.logger.Error("receipt delivery failed", "error", err, "order_id", orderID, "recipient", recipient)
		return result
	}

	deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("recipient", recipient), attribute.String("outcome", "sent")))
	h.logger.Info("receipt delivered", "order_id", orderID, "recipient", recipient)
	return result
}
