package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/martinolivares/vendora-backend/pkg/config"
	pkgerrors "github.com/martinolivares/vendora-backend/pkg/errors"
)

// OrderConfirmation carries everything the buyer-facing confirmation email
// needs. Amounts are cents.
type OrderConfirmation struct {
	OrderNumber      string
	RecipientEmail   string
	RecipientName    string
	AmountTotalCents int64
	Items            []ConfirmationItem
}

type ConfirmationItem struct {
	Title          string
	Qty            int
	UnitPriceCents int64
	TotalCents     int64
}

// Mailer sends transactional mail. Callers treat failures as non-fatal.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error
}

type sendgridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendgridMailer builds the SendGrid-backed mailer.
func NewSendgridMailer(cfg config.SendgridConfig) (Mailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sendgrid api key required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sendgrid from address required")
	}
	return &sendgridMailer{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
	}, nil
}

func (m *sendgridMailer) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	if msg.RecipientEmail == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email required")
	}

	to := mail.NewEmail(msg.RecipientName, msg.RecipientEmail)
	subject := fmt.Sprintf("Order %s confirmed", msg.OrderNumber)
	plain := buildPlainBody(msg)
	email := mail.NewSingleEmail(m.from, subject, to, plain, buildHTMLBody(msg))

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send confirmation email")
	}
	if resp != nil && resp.StatusCode >= 400 {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("sendgrid rejected confirmation email (status %d)", resp.StatusCode))
	}
	return nil
}

func buildPlainBody(msg OrderConfirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for your purchase!\n\nOrder %s\n\n", msg.OrderNumber)
	for _, item := range msg.Items {
		fmt.Fprintf(&b, "%d x %s — %s\n", item.Qty, item.Title, formatCents(item.TotalCents))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", formatCents(msg.AmountTotalCents))
	return b.String()
}

func buildHTMLBody(msg OrderConfirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Thanks for your purchase!</h2><p>Order <strong>%s</strong></p><ul>", msg.OrderNumber)
	for _, item := range msg.Items {
		fmt.Fprintf(&b, "<li>%d x %s &mdash; %s</li>", item.Qty, item.Title, formatCents(item.TotalCents))
	}
	fmt.Fprintf(&b, "</ul><p>Total: <strong>%s</strong></p>", formatCents(msg.AmountTotalCents))
	return b.String()
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
