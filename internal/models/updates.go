package models

// Explicit update structs. Writes to the persistence layer go through these
// rather than free-form field maps, so a caller cannot inject fields the
// entity does not own. Nil pointer means "leave unchanged".

// ProductUpdate carries the editable fields of a product.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *int64
	Category    *string
	Image       *string
	IsNew       *bool
	IsPaused    *bool
}

// ZoneUpdate carries the editable fields of a delivery zone.
type ZoneUpdate struct {
	Name    *string
	Fee     *int64
	TimeEst *string
	Active  *bool
}

// SettingsUpdate carries the editable fields of the settings singleton.
type SettingsUpdate struct {
	StoreName      *string
	IsOpen         *bool
	WhatsApp       *string
	Address        *string
	WeekdayHours   *string
	WeekendHours   *string
	PaymentMethods map[string]bool
}

// OrderStatusUpdate is the only write an order accepts after creation.
type OrderStatusUpdate struct {
	Status string
}
