package models

import (
	"time"

	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// CustomerModel is the customer dimension. Name, segment, city and state are
// part of the published schema but are never populated by the rebuild.
type CustomerModel struct {
	CustomerID   int64     `gorm:"column:customer_id;primaryKey;autoIncrement:false"`
	CustomerName *string   `gorm:"column:customer_name;type:varchar(255)"`
	Segment      *string   `gorm:"column:segment;type:varchar(64)"`
	Country      string    `gorm:"column:country;type:text;not null"`
	City         *string   `gorm:"column:city;type:varchar(128)"`
	State        *string   `gorm:"column:state;type:varchar(128)"`
	CreatedAt    time.Time `gorm:"column:created_at;type:date;not null;autoCreateTime:false"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// CustomerModelFromDomain creates a persistence model from a domain Customer
func CustomerModelFromDomain(c sales.Customer) CustomerModel {
	return CustomerModel{
		CustomerID: c.CustomerID,
		Country:    c.Country,
		CreatedAt:  c.CreatedAt,
	}
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() sales.Customer {
	return sales.Customer{
		CustomerID: m.CustomerID,
		Country:    m.Country,
		CreatedAt:  sales.CivilDate(m.CreatedAt),
	}
}

// ProductModel is the product dimension. Category fields are never populated.
type ProductModel struct {
	ProductID   string  `gorm:"column:product_id;type:text;primaryKey"`
	ProductName *string `gorm:"column:product_name;type:text"`
	Category    *string `gorm:"column:category;type:varchar(128)"`
	SubCategory *string `gorm:"column:sub_category;type:varchar(128)"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p sales.Product) ProductModel {
	return ProductModel{ProductID: p.ProductID, ProductName: p.Name}
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() sales.Product {
	return sales.Product{ProductID: m.ProductID, Name: m.ProductName}
}

// OrderModel is the order fact keyed by (order_id, region).
// customer_id carries no foreign key: linkage to customers is optional.
type OrderModel struct {
	OrderID    string              `gorm:"column:order_id;type:text;primaryKey"`
	Region     string              `gorm:"column:region;type:text;primaryKey"`
	OrderDate  time.Time           `gorm:"column:order_date;type:date;not null;index"`
	CustomerID *int64              `gorm:"column:customer_id;index"`
	Sales      decimal.Decimal     `gorm:"column:sales;type:decimal(14,2);not null"`
	Discount   decimal.Decimal     `gorm:"column:discount;type:decimal(14,2);not null;default:0"`
	Profit     decimal.NullDecimal `gorm:"column:profit;type:decimal(14,2)"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderModelFromDomain creates a persistence model from a domain Order
func OrderModelFromDomain(o sales.Order) OrderModel {
	return OrderModel{
		OrderID:    o.OrderID,
		Region:     o.Region,
		OrderDate:  o.OrderDate,
		CustomerID: o.CustomerID,
		Sales:      o.Sales,
		Discount:   o.Discount,
		Profit:     o.Profit,
	}
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() sales.Order {
	return sales.Order{
		OrderID:    m.OrderID,
		Region:     m.Region,
		OrderDate:  sales.CivilDate(m.OrderDate),
		CustomerID: m.CustomerID,
		Sales:      m.Sales,
		Discount:   m.Discount,
		Profit:     m.Profit,
	}
}

// OrderItemModel is one order line. line_no preserves extract order.
type OrderItemModel struct {
	LineNo    int                 `gorm:"column:line_no;primaryKey;autoIncrement:false"`
	OrderID   string              `gorm:"column:order_id;type:text;not null;index:idx_order_items_order"`
	Region    string              `gorm:"column:region;type:text;not null;index:idx_order_items_order"`
	ProductID string              `gorm:"column:product_id;type:text;not null;index"`
	Quantity  int64               `gorm:"column:quantity;not null"`
	Sales     decimal.Decimal     `gorm:"column:sales;type:decimal(14,2);not null"`
	Discount  decimal.Decimal     `gorm:"column:discount;type:decimal(14,2);not null;default:0"`
	Profit    decimal.NullDecimal `gorm:"column:profit;type:decimal(14,2)"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// OrderItemModelFromDomain creates a persistence model from a domain OrderItem
func OrderItemModelFromDomain(i sales.OrderItem) OrderItemModel {
	return OrderItemModel{
		LineNo:    i.LineNo,
		OrderID:   i.OrderID,
		Region:    i.Region,
		ProductID: i.ProductID,
		Quantity:  i.Quantity,
		Sales:     i.Sales,
		Discount:  i.Discount,
		Profit:    i.Profit,
	}
}

// ToDomain converts the persistence model to a domain OrderItem
func (m *OrderItemModel) ToDomain() sales.OrderItem {
	return sales.OrderItem{
		LineNo:    m.LineNo,
		OrderID:   m.OrderID,
		Region:    m.Region,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		Sales:     m.Sales,
		Discount:  m.Discount,
		Profit:    m.Profit,
	}
}

// DimensionalModels lists the derived relations in creation order.
func DimensionalModels() []any {
	return []any{&CustomerModel{}, &ProductModel{}, &OrderModel{}, &OrderItemModel{}}
}
