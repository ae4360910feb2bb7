package models

import (
	"time"

	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// RetailRawModel is one staged extract line. Every source column is nullable
// so the staging relation keeps rows the critical-field filter will drop, and
// unbounded so values round-trip exactly.
type RetailRawModel struct {
	LineNo         int                 `gorm:"column:line_no;primaryKey;autoIncrement:false"`
	InvoiceID      *string             `gorm:"column:invoice_id;type:text;index"`
	ProductID      *string             `gorm:"column:product_id;type:text;index"`
	Description    *string             `gorm:"column:description;type:text"`
	Quantity       decimal.NullDecimal `gorm:"column:quantity;type:numeric"`
	UnitPrice      decimal.NullDecimal `gorm:"column:unit_price;type:numeric"`
	Timestamp      *time.Time          `gorm:"column:timestamp"`
	CustomerID     *int64              `gorm:"column:customer_id"`
	Country        *string             `gorm:"column:country;type:text"`
	LineSales      decimal.NullDecimal `gorm:"column:line_sales;type:decimal(18,2)"`
	IsCancellation bool                `gorm:"column:is_cancellation;not null;default:false"`
}

// TableName returns the table name for GORM
func (RetailRawModel) TableName() string {
	return "retail_raw"
}

// RetailRawModelFromDomain maps a raw row at 1-based position lineNo.
func RetailRawModelFromDomain(lineNo int, r sales.RawRow) RetailRawModel {
	m := RetailRawModel{
		LineNo:         lineNo,
		InvoiceID:      nullString(r.InvoiceID),
		ProductID:      nullString(r.ProductID),
		Description:    nullString(r.Description),
		Quantity:       r.Quantity,
		UnitPrice:      r.UnitPrice,
		Timestamp:      r.Timestamp,
		CustomerID:     r.CustomerID,
		Country:        nullString(r.Country),
		IsCancellation: r.IsCancellation(),
	}
	if line, ok := r.LineSales(); ok {
		m.LineSales = decimal.NewNullDecimal(line)
	}
	return m
}

// ToDomain converts the staged line back into a raw row.
func (m *RetailRawModel) ToDomain() sales.RawRow {
	row := sales.RawRow{
		InvoiceID:   derefString(m.InvoiceID),
		ProductID:   derefString(m.ProductID),
		Description: derefString(m.Description),
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		CustomerID:  m.CustomerID,
		Country:     derefString(m.Country),
	}
	if m.Timestamp != nil {
		ts := m.Timestamp.UTC()
		row.Timestamp = &ts
	}
	return row
}
