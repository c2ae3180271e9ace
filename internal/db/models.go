package db

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Cart item kinds.
const (
	ItemTypeProduct = "product"
	ItemTypeBundle  = "bundle"
)

// Discount code kinds.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Order lifecycle statuses.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCanceled   = "canceled"
)

// Order payment statuses.
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Stock status overrides a product can carry regardless of inventory counts.
const (
	StockPreOrder            = "pre_order"
	StockDiscontinued        = "discontinued"
	StockCallForAvailability = "call_for_availability"
)

type Product struct {
	ID                  pgtype.UUID
	Name                string
	SKU                 string
	Price               decimal.Decimal
	DiscountPercent     decimal.NullDecimal
	StockStatusOverride pgtype.Text
	CreatedAt           pgtype.Timestamptz
	UpdatedAt           pgtype.Timestamptz
}

type Inventory struct {
	ProductID pgtype.UUID
	Quantity  int32
	Reserved  int32
	UpdatedAt pgtype.Timestamptz
}

type Bundle struct {
	ID        pgtype.UUID
	Name      string
	Price     decimal.Decimal
	Active    bool
	CreatedAt pgtype.Timestamptz
}

type BundleProduct struct {
	BundleID  pgtype.UUID
	ProductID pgtype.UUID
	Quantity  int32
}

type Cart struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type CartItem struct {
	ID        pgtype.UUID
	CartID    pgtype.UUID
	ItemType  string
	ProductID pgtype.UUID
	BundleID  pgtype.UUID
	Quantity  int32
	CreatedAt pgtype.Timestamptz
}

// CartItemDetail joins a cart item with the product or bundle projection
// needed to price it and to expand bundle stock requirements.
type CartItemDetail struct {
	ID                     pgtype.UUID
	CartID                 pgtype.UUID
	ItemType               string
	ProductID              pgtype.UUID
	BundleID               pgtype.UUID
	Quantity               int32
	ProductName            pgtype.Text
	ProductSKU             pgtype.Text
	ProductPrice           decimal.NullDecimal
	ProductDiscountPercent decimal.NullDecimal
	BundleName             pgtype.Text
	BundlePrice            decimal.NullDecimal
	BundleActive           pgtype.Bool
}

type Location struct {
	ID           pgtype.UUID
	Name         string
	City         string
	TaxRate      decimal.Decimal
	ShippingRate decimal.Decimal
	Active       bool
}

type DiscountCode struct {
	ID          pgtype.UUID
	Code        string
	Kind        string
	Value       decimal.Decimal
	MinPurchase decimal.NullDecimal
	MaxUses     pgtype.Int4
	UsedCount   int32
	ValidFrom   pgtype.Timestamptz
	ValidTo     pgtype.Timestamptz
	Active      bool
	CreatedAt   pgtype.Timestamptz
}

type Order struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	LocationID    pgtype.UUID
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
	Currency      string
	Status        string
	PaymentStatus string
	Metadata      []byte
	PlacedAt      pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
}

type OrderItem struct {
	ID              pgtype.UUID
	OrderID         pgtype.UUID
	ProductID       pgtype.UUID
	Quantity        int32
	PriceAtPurchase decimal.Decimal
}

type User struct {
	ID    pgtype.UUID
	Email string
	Name  string
}

type Address struct {
	ID           pgtype.UUID
	UserID       pgtype.UUID
	ReceiverName string
	Phone        string
	Street       string
	City         string
	PostalCode   string
	Country      string
}

type Category struct {
	ID       pgtype.UUID
	Name     string
	ParentID pgtype.UUID
}

type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}
