package cart

import "storefront/internal/models"

// Quote holds the resolved amounts for a checkout attempt, in centavos.
type Quote struct {
	Subtotal    int64
	DeliveryFee int64
	Total       int64
}

// ResolveFee returns the delivery fee for a fulfillment choice. Pickup is
// always free. For delivery the fee is the matching active zone's price, or
// 0 when no zone matches; whether a zone is required at all is the
// submission pipeline's call, not this lookup's.
func ResolveFee(mode, zoneName string, zones []models.DeliveryZone) int64 {
	if mode == models.ModePickup {
		return 0
	}
	for _, z := range zones {
		if z.Active && z.Name == zoneName {
			return z.Fee
		}
	}
	return 0
}

// PriceOut resolves the full quote for a frozen line snapshot and fulfillment
// choice. It prices the snapshot it is given, never the live cart, so the
// amounts always agree with the lines that end up on the order.
func PriceOut(lines []models.CartLine, mode, zoneName string, zones []models.DeliveryZone) Quote {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.Price * int64(l.Quantity)
	}
	fee := ResolveFee(mode, zoneName, zones)
	return Quote{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal + fee,
	}
}
