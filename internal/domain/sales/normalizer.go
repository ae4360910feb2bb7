package sales

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Normalizer derives the dimensional schema from a raw extract.
// It holds no storage handle; persistence is the caller's concern.
type Normalizer struct {
	namePolicy NamePolicy
}

// NewNormalizer creates a Normalizer using the given product name policy.
func NewNormalizer(policy NamePolicy) *Normalizer {
	if policy == "" {
		policy = NamePolicyMostFrequent
	}
	return &Normalizer{namePolicy: policy}
}

// NamePolicy returns the product name policy in use.
func (n *Normalizer) NamePolicy() NamePolicy {
	return n.namePolicy
}

// Derive validates the set, filters rows with null critical fields and builds
// all four relations. The result depends only on the input rows and their order.
func (n *Normalizer) Derive(set RawRowSet) (*Tables, FilterResult, error) {
	if err := set.RequireColumns(); err != nil {
		return nil, FilterResult{}, err
	}
	filtered := FilterCritical(set.Rows)
	return n.DeriveFiltered(filtered.Kept), filtered, nil
}

// DeriveFiltered builds the relations from rows that already passed FilterCritical.
func (n *Normalizer) DeriveFiltered(rows []RawRow) *Tables {
	return &Tables{
		Customers:  DeriveCustomers(rows),
		Products:   DeriveProducts(rows, n.namePolicy),
		Orders:     DeriveOrders(rows),
		OrderItems: DeriveOrderItems(rows),
	}
}

type customerAcc struct {
	firstDate time.Time
	countries map[string]int
}

// DeriveCustomers groups rows by non-null customer id. CreatedAt is the
// earliest purchase date; Country is the most frequent country with ties
// going to the lexicographically smallest name.
func DeriveCustomers(rows []RawRow) []Customer {
	accs := make(map[int64]*customerAcc)
	for _, r := range rows {
		if r.CustomerID == nil {
			continue
		}
		date, ok := r.Date()
		if !ok {
			continue
		}
		acc, exists := accs[*r.CustomerID]
		if !exists {
			acc = &customerAcc{firstDate: date, countries: make(map[string]int)}
			accs[*r.CustomerID] = acc
		}
		if date.Before(acc.firstDate) {
			acc.firstDate = date
		}
		acc.countries[r.Country]++
	}

	customers := make([]Customer, 0, len(accs))
	for id, acc := range accs {
		customers = append(customers, Customer{
			CustomerID: id,
			Country:    modeCountry(acc.countries),
			CreatedAt:  acc.firstDate,
		})
	}
	sort.Slice(customers, func(i, j int) bool {
		return customers[i].CustomerID < customers[j].CustomerID
	})
	return customers
}

func modeCountry(counts map[string]int) string {
	var (
		best      string
		bestCount int
	)
	for country, count := range counts {
		if count > bestCount || (count == bestCount && country < best) {
			best, bestCount = country, count
		}
	}
	return best
}

// DeriveProducts groups rows by product id and names each product under policy.
func DeriveProducts(rows []RawRow, policy NamePolicy) []Product {
	tallies := make(map[string]*nameTally)
	for _, r := range rows {
		t, ok := tallies[r.ProductID]
		if !ok {
			t = newNameTally()
			tallies[r.ProductID] = t
		}
		t.add(r.Description)
	}

	products := make([]Product, 0, len(tallies))
	for id, t := range tallies {
		products = append(products, Product{ProductID: id, Name: t.pick(policy)})
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].ProductID < products[j].ProductID
	})
	return products
}

// DeriveOrders groups rows by (invoice, country). Sales is the sum of the
// rounded line sales, so it always reconciles with DeriveOrderItems.
func DeriveOrders(rows []RawRow) []Order {
	accs := make(map[OrderKey]*Order)
	for _, r := range rows {
		date, ok := r.Date()
		if !ok {
			continue
		}
		line, _ := r.LineSales()
		key := OrderKey{OrderID: r.InvoiceID, Region: r.Country}
		o, exists := accs[key]
		if !exists {
			o = &Order{
				OrderID:   r.InvoiceID,
				Region:    r.Country,
				OrderDate: date,
				Sales:     decimal.Zero,
				Discount:  decimal.Zero,
			}
			accs[key] = o
		}
		if date.Before(o.OrderDate) {
			o.OrderDate = date
		}
		o.Sales = o.Sales.Add(line)
		if r.CustomerID != nil && (o.CustomerID == nil || *r.CustomerID > *o.CustomerID) {
			id := *r.CustomerID
			o.CustomerID = &id
		}
	}

	orders := make([]Order, 0, len(accs))
	for _, o := range accs {
		o.Sales = o.Sales.Round(SalesPlaces)
		orders = append(orders, *o)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].OrderID != orders[j].OrderID {
			return orders[i].OrderID < orders[j].OrderID
		}
		return orders[i].Region < orders[j].Region
	})
	return orders
}

// DeriveOrderItems emits one item per row in input order.
func DeriveOrderItems(rows []RawRow) []OrderItem {
	items := make([]OrderItem, 0, len(rows))
	for i, r := range rows {
		line, _ := r.LineSales()
		items = append(items, OrderItem{
			LineNo:    i + 1,
			OrderID:   r.InvoiceID,
			ProductID: r.ProductID,
			Region:    r.Country,
			Quantity:  r.Quantity.Decimal.Round(0).IntPart(),
			Sales:     line,
			Discount:  decimal.Zero,
		})
	}
	return items
}
