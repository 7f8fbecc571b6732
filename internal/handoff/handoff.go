// Package handoff renders submitted orders into the vendor's WhatsApp
// conversation format. The platform never talks to WhatsApp itself; it
// produces the message text and a click-to-chat link and stops there.
package handoff

import (
	"fmt"
	"net/url"
	"strings"

	"storefront/internal/models"
	"storefront/internal/money"
)

// OrderMessage renders the operator-facing order summary. The layout is
// fixed; the vendor reads these messages on a phone.
func OrderMessage(order models.Order, customerName, storeName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*NOVO PEDIDO - %s*\n\n", storeName)
	b.WriteString("📋 *Itens:*\n")
	for _, line := range order.Items {
		fmt.Fprintf(&b, "%dx %s\n", line.Quantity, line.Name)
	}
	fmt.Fprintf(&b, "\n👤 *Cliente:* %s\n", customerName)
	fmt.Fprintf(&b, "📍 *%s*\n\n", order.Address)
	fmt.Fprintf(&b, "💰 *Total:* %s", money.FormatBRL(order.Total))
	return b.String()
}

// WaLink builds a wa.me click-to-chat URL for the given phone handle and
// message body.
func WaLink(phoneHandle, message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", phoneHandle, url.QueryEscape(message))
}
