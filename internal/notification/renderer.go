package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/akylbek/payment-system/momo-gateway/internal/models"
)

//go:embed templates/order_email.html
var templateFS embed.FS

const dateLayout = "2 Jan 2006, 15:04 MST"

type itemView struct {
	Name     string
	Quantity int
	Total    string
}

type orderView struct {
	Heading       string
	Intro         string
	ShortID       string
	Date          string
	Status        string
	PaymentStatus string
	Items         []itemView
	Total         string
	Currency      string
}

// Renderer turns an order into the subject and HTML body of an email.
type Renderer struct {
	tmpl     *template.Template
	currency string
}

func NewRenderer(currency string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/order_email.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse order email template: %w", err)
	}
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &Renderer{tmpl: tmpl, currency: currency}, nil
}

func Subject(orderID string, emailType models.EmailType) string {
	if emailType == models.EmailOrderConfirmation {
		return "Order Confirmation - " + shortID(orderID)
	}
	return "Order Update - " + shortID(orderID)
}

func (r *Renderer) Render(order *models.Order, emailType models.EmailType) (string, error) {
	view := orderView{
		Heading:       "Order Update",
		Intro:         "Here is the latest on your order.",
		ShortID:       shortID(order.ID),
		Date:          order.CreatedAt.Format(dateLayout),
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Total:         order.TotalAmount.String(),
		Currency:      r.currency,
	}
	switch emailType {
	case models.EmailOrderConfirmation:
		view.Heading = "Order Confirmation"
		view.Intro = "Thank you for your order!"
	case models.EmailPaymentFailed:
		view.Intro = "We could not complete the payment for your order. You can try again from your orders page."
	case models.EmailOrderCancelled:
		view.Intro = "Your order has been cancelled."
	}
	if view.PaymentStatus == "" {
		view.PaymentStatus = "Pending"
	}
	for _, item := range order.Items {
		name := item.ProductName
		if name == "" {
			name = "Product"
		}
		view.Items = append(view.Items, itemView{
			Name:     name,
			Quantity: item.Quantity,
			Total:    item.LineTotal().String(),
		})
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render order email: %w", err)
	}
	return buf.String(), nil
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
