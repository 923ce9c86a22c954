package notification

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

const (
	ReasonOrderNotFound = "order not found"
	ReasonEmailNotFound = "user email not found"
	ReasonNoProvider    = "no provider configured"
)

type Result struct {
	Sent      bool
	Reason    string
	Recipient string
	EmailID   string
}

// Dispatcher renders and sends order emails.
type Dispatcher struct {
	orders   interfaces.OrderStore
	users    interfaces.UserDirectory
	renderer *Renderer
	sender   Sender
	from     string
}

// NewDispatcher builds a dispatcher. A nil sender puts it in log-only mode.
func NewDispatcher(orders interfaces.OrderStore, users interfaces.UserDirectory, renderer *Renderer, sender Sender, from string) *Dispatcher {
	return &Dispatcher{orders: orders, users: users, renderer: renderer, sender: sender, from: from}
}

// SendOrderEmail reports a missing order or recipient as a not-sent Result.
// Errors are reserved for lookups and sends that may succeed on retry.
func (d *Dispatcher) SendOrderEmail(ctx context.Context, orderID string, emailType models.EmailType) (*Result, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "notification.SendOrderEmail")
	defer span.End()

	if emailType == "" {
		emailType = models.EmailOrderConfirmation
	}

	order, err := d.orders.GetOrder(ctx, orderID)
	if errors.Is(err, interfaces.ErrNotFound) {
		telemetry.EmailsTotal.WithLabelValues("order_not_found").Inc()
		return &Result{Reason: ReasonOrderNotFound}, nil
	}
	if err != nil {
		telemetry.EmailsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}

	recipient, err := d.users.GetEmail(ctx, order.UserID)
	if errors.Is(err, interfaces.ErrNotFound) {
		telemetry.EmailsTotal.WithLabelValues("email_not_found").Inc()
		return &Result{Reason: ReasonEmailNotFound}, nil
	}
	if err != nil {
		telemetry.EmailsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load email for user %s: %w", order.UserID, err)
	}

	html, err := d.renderer.Render(order, emailType)
	if err != nil {
		telemetry.EmailsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	msg := Message{From: d.from, To: recipient, Subject: Subject(order.ID, emailType), HTML: html}

	if d.sender == nil {
		telemetry.EmailsTotal.WithLabelValues("logged").Inc()
		telemetry.Logger.Info("Email would be sent",
			zap.String("order_id", orderID),
			zap.String("type", string(emailType)),
			zap.String("to", recipient),
			zap.String("subject", msg.Subject),
			zap.String("html", html),
		)
		return &Result{Reason: ReasonNoProvider, Recipient: recipient}, nil
	}

	id, err := d.sender.Send(ctx, msg)
	if err != nil {
		telemetry.EmailsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	telemetry.EmailsTotal.WithLabelValues("sent").Inc()
	telemetry.Logger.Info("Order email sent",
		zap.String("order_id", orderID),
		zap.String("type", string(emailType)),
		zap.String("email_id", id),
	)
	return &Result{Sent: true, Recipient: recipient, EmailID: id}, nil
}
