package email

import (
	"bytes"
	"fmt"
	"html/template"

	"andiamo/entity"
)

// Document is a self-contained confirmation email: inline styles only, no
// scripts, QR images referenced by their public URLs.
type Document struct {
	Subject string
	HTML    string
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f4f4f4;font-family:Arial,sans-serif;">
	<table width="100%" cellpadding="0" cellspacing="0" style="max-width:600px;margin:0 auto;background:#ffffff;">
		<tr>
			<td style="padding:24px;text-align:center;background:#111111;color:#ffffff;">
				<h1 style="margin:0;font-size:22px;">{{ .Order.EventName }}</h1>
				<p style="margin:8px 0 0;color:#cccccc;">{{ .Order.EventDate }} &middot; {{ .Order.EventLocation }}</p>
			</td>
		</tr>
		<tr>
			<td style="padding:24px;">
				<p style="margin:0 0 16px;">Hi {{ .Order.CustomerName }},</p>
				<p style="margin:0 0 16px;">Your order <strong>{{ .Order.OrderID }}</strong> is confirmed. Your tickets are below; present each QR code at the entrance.</p>
				<table width="100%" cellpadding="8" cellspacing="0" style="border-collapse:collapse;margin:0 0 24px;">
					<tr style="background:#f0f0f0;">
						<th align="left" style="border:1px solid #dddddd;">Pass</th>
						<th align="right" style="border:1px solid #dddddd;">Qty</th>
						<th align="right" style="border:1px solid #dddddd;">Unit price</th>
					</tr>
					{{- range .Order.LineItems }}
					<tr>
						<td style="border:1px solid #dddddd;">{{ .PassType }}</td>
						<td align="right" style="border:1px solid #dddddd;">{{ .Quantity }}</td>
						<td align="right" style="border:1px solid #dddddd;">{{ .UnitAmount }} {{ $.Order.TotalCurrency }}</td>
					</tr>
					{{- end }}
					<tr>
						<td colspan="2" align="right" style="border:1px solid #dddddd;"><strong>Total</strong></td>
						<td align="right" style="border:1px solid #dddddd;"><strong>{{ .Order.TotalAmount }} {{ .Order.TotalCurrency }}</strong></td>
					</tr>
				</table>
				{{- range .Tickets }}
				<div style="text-align:center;padding:16px;border:1px dashed #999999;margin:0 0 16px;">
					<img src="{{ .QRCodeURL.String }}" alt="Ticket QR code" width="300" height="300" style="display:block;margin:0 auto;" />
					<p style="margin:8px 0 0;font-size:12px;color:#666666;">{{ .Token }}</p>
				</div>
				{{- end }}
				{{- if .Order.AmbassadorName }}
				<p style="margin:0;font-size:13px;color:#666666;">Sold by ambassador {{ .Order.AmbassadorName }}.</p>
				{{- end }}
			</td>
		</tr>
	</table>
</body>
</html>
`))

// Compose builds the confirmation document for an order. Pure and
// deterministic: same order and tickets produce the same document, and no
// I/O happens here. Only tickets that reached the generated status are
// embedded.
func Compose(order entity.Order, tickets []entity.Ticket) (Document, error) {
	generated := make([]entity.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if ticket.Status == entity.TicketStatusGenerated && ticket.QRCodeURL.Valid {
			generated = append(generated, ticket)
		}
	}

	var buf bytes.Buffer
	err := confirmationTemplate.Execute(&buf, struct {
		Order   entity.Order
		Tickets []entity.Ticket
	}{
		Order:   order,
		Tickets: generated,
	})
	if err != nil {
		return Document{}, fmt.Errorf("could not render confirmation email: %w", err)
	}

	return Document{
		Subject: fmt.Sprintf("Your tickets for %s", order.EventName),
		HTML:    buf.String(),
	}, nil
}
