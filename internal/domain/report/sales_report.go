package report

import (
	"sort"
	"time"

	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// DailyKPI is a read model of one day of completed sales
type DailyKPI struct {
	Date          time.Time       `json:"date"`
	Orders        int             `json:"orders"`
	Customers     int             `json:"customers"`
	Revenue       decimal.Decimal `json:"revenue"`
	AvgOrderValue decimal.Decimal `json:"aov"`
}

// ProductPerformance represents one product's completed sales
type ProductPerformance struct {
	Rank        int             `json:"rank"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Units       int64           `json:"units"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// CustomerRFM is the recency/frequency/monetary profile of one customer
type CustomerRFM struct {
	CustomerID      int64           `json:"customer_id"`
	LastOrderDate   time.Time       `json:"last_order_date"`
	RecencyDays     int             `json:"recency_days"`
	FrequencyOrders int             `json:"frequency_orders"`
	MonetaryRevenue decimal.Decimal `json:"monetary_revenue"`
}

// KPIs bundles every read model computed from one set of derived tables
type KPIs struct {
	Daily    []DailyKPI
	Products []ProductPerformance
	RFM      []CustomerRFM
}

// Compute builds all read models from the derived tables
func Compute(t *sales.Tables) *KPIs {
	return &KPIs{
		Daily:    DailyKPIs(t.Orders),
		Products: ProductPerformanceRanking(t.OrderItems, t.Products),
		RFM:      CustomerRFMs(t.Orders),
	}
}

// completed reports whether an order counts as revenue: not a reversal, positive sales
func completed(o sales.Order) bool {
	return !o.IsCancellation() && o.Sales.IsPositive()
}

type dayAcc struct {
	orders    map[string]struct{}
	customers map[int64]struct{}
	revenue   decimal.Decimal
}

// DailyKPIs aggregates completed orders per order date, oldest first
func DailyKPIs(orders []sales.Order) []DailyKPI {
	days := make(map[time.Time]*dayAcc)
	for _, o := range orders {
		if !completed(o) {
			continue
		}
		acc, ok := days[o.OrderDate]
		if !ok {
			acc = &dayAcc{
				orders:    make(map[string]struct{}),
				customers: make(map[int64]struct{}),
				revenue:   decimal.Zero,
			}
			days[o.OrderDate] = acc
		}
		acc.orders[o.OrderID] = struct{}{}
		if o.CustomerID != nil {
			acc.customers[*o.CustomerID] = struct{}{}
		}
		acc.revenue = acc.revenue.Add(o.Sales)
	}

	out := make([]DailyKPI, 0, len(days))
	for date, acc := range days {
		n := len(acc.orders)
		out = append(out, DailyKPI{
			Date:          date,
			Orders:        n,
			Customers:     len(acc.customers),
			Revenue:       acc.revenue.Round(sales.SalesPlaces),
			AvgOrderValue: acc.revenue.DivRound(decimal.NewFromInt(int64(n)), sales.SalesPlaces),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ProductPerformanceRanking ranks products by revenue over completed items
// with positive quantity. Ties are ordered by product id.
func ProductPerformanceRanking(items []sales.OrderItem, products []sales.Product) []ProductPerformance {
	names := make(map[string]string, len(products))
	for _, p := range products {
		if p.Name != nil {
			names[p.ProductID] = *p.Name
		}
	}

	index := make(map[string]int)
	var out []ProductPerformance
	for _, it := range items {
		if it.IsCancellation() || it.Quantity <= 0 || !it.Sales.IsPositive() {
			continue
		}
		i, ok := index[it.ProductID]
		if !ok {
			i = len(out)
			index[it.ProductID] = i
			out = append(out, ProductPerformance{
				ProductID:   it.ProductID,
				ProductName: names[it.ProductID],
				Revenue:     decimal.Zero,
			})
		}
		out[i].Units += it.Quantity
		out[i].Revenue = out[i].Revenue.Add(it.Sales)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].ProductID < out[j].ProductID
	})
	for i := range out {
		out[i].Rank = i + 1
		out[i].Revenue = out[i].Revenue.Round(sales.SalesPlaces)
	}
	return out
}

type customerAcc struct {
	last     time.Time
	orders   map[string]struct{}
	monetary decimal.Decimal
}

// CustomerRFMs profiles every customer with completed orders. Recency is
// measured against the latest completed order date overall. Sorted by
// monetary value, highest first, then customer id.
func CustomerRFMs(orders []sales.Order) []CustomerRFM {
	var latest time.Time
	accs := make(map[int64]*customerAcc)
	for _, o := range orders {
		if !completed(o) {
			continue
		}
		if o.OrderDate.After(latest) {
			latest = o.OrderDate
		}
		if o.CustomerID == nil {
			continue
		}
		acc, ok := accs[*o.CustomerID]
		if !ok {
			acc = &customerAcc{orders: make(map[string]struct{}), monetary: decimal.Zero}
			accs[*o.CustomerID] = acc
		}
		if o.OrderDate.After(acc.last) {
			acc.last = o.OrderDate
		}
		acc.orders[o.OrderID] = struct{}{}
		acc.monetary = acc.monetary.Add(o.Sales)
	}

	out := make([]CustomerRFM, 0, len(accs))
	for id, acc := range accs {
		out = append(out, CustomerRFM{
			CustomerID:      id,
			LastOrderDate:   acc.last,
			RecencyDays:     daysBetween(acc.last, latest),
			FrequencyOrders: len(acc.orders),
			MonetaryRevenue: acc.monetary.Round(sales.SalesPlaces),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MonetaryRevenue.Equal(out[j].MonetaryRevenue) {
			return out[i].MonetaryRevenue.GreaterThan(out[j].MonetaryRevenue)
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}

// daysBetween counts whole calendar days from a to b; both are civil dates at midnight UTC
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
