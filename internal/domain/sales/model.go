package sales

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Customer is the customer dimension, one row per distinct customer id.
type Customer struct {
	CustomerID int64
	Country    string
	CreatedAt  time.Time
}

// Product is the product dimension. Name is nil when no usable description exists.
type Product struct {
	ProductID string
	Name      *string
}

// OrderKey identifies an order. An invoice spanning several countries yields
// one order per country.
type OrderKey struct {
	OrderID string
	Region  string
}

// Order is the order fact, aggregated from its lines.
type Order struct {
	OrderID    string
	Region     string
	OrderDate  time.Time
	CustomerID *int64
	Sales      decimal.Decimal
	Discount   decimal.Decimal
	Profit     decimal.NullDecimal
}

// Key returns the grouping key of the order.
func (o Order) Key() OrderKey {
	return OrderKey{OrderID: o.OrderID, Region: o.Region}
}

// IsCancellation reports whether the order is a reversal.
func (o Order) IsCancellation() bool {
	return strings.HasPrefix(o.OrderID, CancellationPrefix)
}

// OrderItem is one raw line carried through to the fact table without aggregation.
type OrderItem struct {
	LineNo    int
	OrderID   string
	ProductID string
	Region    string
	Quantity  int64
	Sales     decimal.Decimal
	Discount  decimal.Decimal
	Profit    decimal.NullDecimal
}

// Key returns the key of the order this item belongs to.
func (i OrderItem) Key() OrderKey {
	return OrderKey{OrderID: i.OrderID, Region: i.Region}
}

// IsCancellation reports whether the item belongs to a reversal invoice.
func (i OrderItem) IsCancellation() bool {
	return strings.HasPrefix(i.OrderID, CancellationPrefix)
}

// Tables is the full set of derived relations produced by one rebuild.
type Tables struct {
	Customers  []Customer
	Products   []Product
	Orders     []Order
	OrderItems []OrderItem
}

// Counts returns the row count of each derived relation keyed by table name.
func (t *Tables) Counts() map[string]int {
	return map[string]int{
		"customers":   len(t.Customers),
		"products":    len(t.Products),
		"orders":      len(t.Orders),
		"order_items": len(t.OrderItems),
	}
}
