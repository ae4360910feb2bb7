package sales

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Mismatch is an order whose total disagrees with the sum of its items.
type Mismatch struct {
	Key        OrderKey
	OrderSales decimal.Decimal
	ItemSales  decimal.Decimal
}

// Reconcile checks that every order's sales equals the rounded sum of its
// items' sales, and that no items exist without an order.
func Reconcile(t *Tables) []Mismatch {
	itemSums := make(map[OrderKey]decimal.Decimal, len(t.Orders))
	for _, it := range t.OrderItems {
		itemSums[it.Key()] = itemSums[it.Key()].Add(it.Sales)
	}

	var mismatches []Mismatch
	seen := make(map[OrderKey]struct{}, len(t.Orders))
	for _, o := range t.Orders {
		key := o.Key()
		seen[key] = struct{}{}
		sum := itemSums[key].Round(SalesPlaces)
		if !sum.Equal(o.Sales) {
			mismatches = append(mismatches, Mismatch{Key: key, OrderSales: o.Sales, ItemSales: sum})
		}
	}
	for key, sum := range itemSums {
		if _, ok := seen[key]; !ok {
			mismatches = append(mismatches, Mismatch{Key: key, OrderSales: decimal.Zero, ItemSales: sum.Round(SalesPlaces)})
		}
	}
	return mismatches
}

// ReconcileError converts mismatches into an error matching ErrReconciliation.
func ReconcileError(mismatches []Mismatch) error {
	if len(mismatches) == 0 {
		return nil
	}
	m := mismatches[0]
	return fmt.Errorf("%w: %d order(s) disagree, first %s/%s order=%s items=%s",
		ErrReconciliation, len(mismatches), m.Key.OrderID, m.Key.Region,
		m.OrderSales.StringFixed(SalesPlaces), m.ItemSales.StringFixed(SalesPlaces))
}

// ReferentialGaps returns orders whose customer id is absent from the customer relation.
func ReferentialGaps(t *Tables) []ReferentialGap {
	known := make(map[int64]struct{}, len(t.Customers))
	for _, c := range t.Customers {
		known[c.CustomerID] = struct{}{}
	}
	var gaps []ReferentialGap
	for _, o := range t.Orders {
		if o.CustomerID == nil {
			continue
		}
		if _, ok := known[*o.CustomerID]; !ok {
			gaps = append(gaps, ReferentialGap{
				Table:      "orders",
				OrderID:    o.OrderID,
				Region:     o.Region,
				CustomerID: *o.CustomerID,
			})
		}
	}
	return gaps
}
