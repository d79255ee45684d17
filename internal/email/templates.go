package email

import (
	"fmt"
	"html"
	"strings"
)

// StatusUpdate is the content of an order status email.
type StatusUpdate struct {
	OrderID        int64
	RecipientName  string
	ProductName    string
	Quantity       int
	TotalPrice     string
	PreviousStatus string
	Status         string
}

// Message is a plain inbox notification rendered as email.
type Message struct {
	RecipientName string
	Title         string
	Body          string
	Link          string
}

const layout = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #1f4e79; padding: 24px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 22px;">%s</h1>
	</div>
	<div style="background: #fff; padding: 24px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		%s
		<hr style="border: none; border-top: 1px solid #eee; margin: 24px 0;">
		<p style="font-size: 12px; color: #999; margin-bottom: 0;">This message was sent automatically. Please do not reply.</p>
	</div>
</body>
</html>`

// BuildStatusUpdateBody builds the HTML body for an order status email
func BuildStatusUpdateBody(u StatusUpdate) string {
	var content strings.Builder
	fmt.Fprintf(&content, `<p style="margin-top: 0;">Hello %s,</p>`, html.EscapeString(greetingName(u.RecipientName)))

	if u.PreviousStatus == "" {
		fmt.Fprintf(&content, `<p>You received a new order.</p>`)
	} else {
		fmt.Fprintf(&content, `<p>Order <strong>#%d</strong> moved from <strong>%s</strong> to <strong>%s</strong>.</p>`,
			u.OrderID, html.EscapeString(u.PreviousStatus), html.EscapeString(u.Status))
	}

	fmt.Fprintf(&content, `<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<tr><td style="padding: 8px; color: #666;">Order</td><td style="padding: 8px; font-family: monospace;">#%d</td></tr>
			<tr><td style="padding: 8px; color: #666;">Product</td><td style="padding: 8px;">%s</td></tr>
			<tr><td style="padding: 8px; color: #666;">Quantity</td><td style="padding: 8px;">%d</td></tr>
			<tr><td style="padding: 8px; color: #666;">Total</td><td style="padding: 8px; font-weight: bold;">%s</td></tr>
		</table>`,
		u.OrderID, html.EscapeString(u.ProductName), u.Quantity, formatAmount(u.TotalPrice))

	return fmt.Sprintf(layout, html.EscapeString(u.Status), content.String())
}

// BuildNotificationBody builds the HTML body for an inbox notification email
func BuildNotificationBody(m Message) string {
	var content strings.Builder
	fmt.Fprintf(&content, `<p style="margin-top: 0;">Hello %s,</p>`, html.EscapeString(greetingName(m.RecipientName)))
	fmt.Fprintf(&content, `<p>%s</p>`, html.EscapeString(m.Body))
	if m.Link != "" {
		fmt.Fprintf(&content, `<p><a href="%s" style="color: #1f4e79;">View details</a></p>`, html.EscapeString(m.Link))
	}
	return fmt.Sprintf(layout, html.EscapeString(m.Title), content.String())
}

func greetingName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

// formatAmount adds comma separators to the integer part of a decimal string
func formatAmount(amount string) string {
	intPart, frac, hasFrac := strings.Cut(amount, ".")
	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}
	if len(intPart) <= 3 {
		return amount
	}

	var result strings.Builder
	result.WriteString(sign)
	remainder := len(intPart) % 3
	if remainder > 0 {
		result.WriteString(intPart[:remainder])
		result.WriteString(",")
	}

	for i := remainder; i < len(intPart); i += 3 {
		result.WriteString(intPart[i : i+3])
		if i+3 < len(intPart) {
			result.WriteString(",")
		}
	}

	if hasFrac {
		result.WriteString(".")
		result.WriteString(frac)
	}
	return result.String()
}
