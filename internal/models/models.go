package models

import "time"

// Product represents a catalog item. Prices are stored in centavos.
type Product struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Price       int64     `db:"price" json:"price"`
	Category    string    `db:"category" json:"category"`
	Image       string    `db:"image" json:"image"`
	IsNew       bool      `db:"is_new" json:"is_new"`
	IsPaused    bool      `db:"is_paused" json:"is_paused"`
	Rating      float64   `db:"rating" json:"rating"`
	Reviews     int       `db:"reviews" json:"reviews"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CartLine is one cart entry. Product fields are copied at add-time and
// never re-read from the catalog. Identity is (ProductID, Note).
type CartLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Image     string `json:"image"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note"`
}

// DeliveryZone is a named delivery area with a flat fee in centavos.
type DeliveryZone struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Fee       int64     `db:"fee" json:"fee"`
	TimeEst   string    `db:"time_est" json:"time_est"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OrderLine is a frozen snapshot of a cart line at submission time.
type OrderLine struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
	Category string `json:"category"`
}

// Fulfillment modes
const (
	ModeDelivery = "delivery"
	ModePickup   = "pickup"
)

// PickupAddress marks pickup orders in the address field.
const PickupAddress = "Retirada no local"

// Order is created once at submission and afterwards mutated only through
// status transitions. Invariants: Total == Subtotal + DeliveryFee and
// Subtotal == sum(line.Price * line.Quantity).
type Order struct {
	ID           string      `db:"id" json:"id"`
	UserID       *string     `db:"user_id" json:"user_id"`
	CustomerName string      `db:"customer_name" json:"customer_name"`
	Mode         string      `db:"mode" json:"mode"`
	Address      string      `db:"address" json:"address"`
	ZoneName     string      `db:"zone_name" json:"zone_name"`
	Items        []OrderLine `db:"-" json:"items"`
	Subtotal     int64       `db:"subtotal" json:"subtotal"`
	DeliveryFee  int64       `db:"delivery_fee" json:"delivery_fee"`
	Total        int64       `db:"total" json:"total"`
	Status       string      `db:"status" json:"status"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusDelivery  = "delivery"
	OrderStatusDone      = "done"
	OrderStatusCancelled = "cancelled"
)

// Settings is the singleton store configuration document.
type Settings struct {
	StoreName      string          `db:"store_name" json:"store_name"`
	IsOpen         bool            `db:"is_open" json:"is_open"`
	WhatsApp       string          `db:"whatsapp" json:"whatsapp"`
	Address        string          `db:"address" json:"address"`
	WeekdayHours   string          `db:"weekday_hours" json:"weekday_hours"`
	WeekendHours   string          `db:"weekend_hours" json:"weekend_hours"`
	PaymentMethods map[string]bool `db:"-" json:"payment_methods"`
}

// DefaultSettings seeds the store document when none exists yet.
func DefaultSettings() Settings {
	return Settings{
		StoreName:      "Restaurante Garcia",
		IsOpen:         true,
		WhatsApp:       "5511999999999",
		Address:        "Av. Gastronômica, 1500 - Jardins, SP",
		WeekdayHours:   "11:00 - 23:00",
		WeekendHours:   "11:00 - 00:00",
		PaymentMethods: map[string]bool{"pix": true, "cash": true, "card": true},
	}
}

// Toast severities
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastInfo    = "info"
	ToastWarning = "warning"
)

// Toast is an ephemeral user-facing notification, discarded automatically
// after its display window regardless of interaction.
type Toast struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile is the stored profile of a registered customer.
type UserProfile struct {
	ID          string    `db:"id" json:"id"`
	UID         string    `db:"uid" json:"uid"`
	Email       string    `db:"email" json:"email"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Phone       string    `db:"phone" json:"phone"`
	Role        string    `db:"role" json:"role"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// User roles
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)
