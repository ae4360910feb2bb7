package quality

import (
	"sort"
	"time"

	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Auditor measures the health of a raw extract. It never mutates its input.
type Auditor struct {
	namePolicy sales.NamePolicy
}

// NewAuditor creates an Auditor. policy picks the description shown in the
// product ranking.
func NewAuditor(policy sales.NamePolicy) *Auditor {
	if policy == "" {
		policy = sales.NamePolicyMostFrequent
	}
	return &Auditor{namePolicy: policy}
}

// Audit computes the report over the full unfiltered row set.
func (a *Auditor) Audit(set sales.RawRowSet) (*Report, error) {
	if err := set.RequireColumns(); err != nil {
		return nil, err
	}

	rows := set.Rows
	r := &Report{TotalRows: len(rows)}

	invoices := make(map[string]struct{})
	customers := make(map[int64]struct{})
	products := make(map[string]struct{})

	for _, row := range rows {
		if row.InvoiceID != "" {
			invoices[row.InvoiceID] = struct{}{}
		}
		if row.ProductID != "" {
			products[row.ProductID] = struct{}{}
		}
		if row.CustomerID == nil {
			r.MissingCustomerRows++
		} else {
			customers[*row.CustomerID] = struct{}{}
		}
		if row.IsCancellation() {
			r.CancellationRows++
		}
		if row.Quantity.Valid {
			switch row.Quantity.Decimal.Sign() {
			case -1:
				r.NegativeQuantityRows++
			case 0:
				r.ZeroQuantityRows++
			}
		}
		if row.UnitPrice.Valid && row.UnitPrice.Decimal.IsNegative() {
			r.NegativePriceRows++
		}
		if row.Timestamp == nil {
			r.NullInvoiceDateRows++
		} else {
			r.observeTimestamp(*row.Timestamp)
		}
		if _, bad := sales.CriticalNull(row); bad {
			r.DroppedCriticalRows++
		}
	}

	r.DistinctInvoices = len(invoices)
	r.DistinctCustomers = len(customers)
	r.DistinctProducts = len(products)
	r.MissingCustomerPct = Percentage(r.MissingCustomerRows, r.TotalRows)
	r.CancellationPct = Percentage(r.CancellationRows, r.TotalRows)
	r.NegativeQuantityPct = Percentage(r.NegativeQuantityRows, r.TotalRows)
	r.TopCountries = TopCountries(rows, TopN)
	r.TopProducts = TopProducts(rows, a.namePolicy, TopN)

	return r, nil
}

func (r *Report) observeTimestamp(t time.Time) {
	if r.DateRangeStart == nil || t.Before(*r.DateRangeStart) {
		start := t
		r.DateRangeStart = &start
	}
	if r.DateRangeEnd == nil || t.After(*r.DateRangeEnd) {
		end := t
		r.DateRangeEnd = &end
	}
}

// Percentage returns count*100/total rounded to two places, or nil when total is zero.
func Percentage(count, total int) *decimal.Decimal {
	if total == 0 {
		return nil
	}
	v := decimal.NewFromInt(int64(count)).Mul(hundred).
		DivRound(decimal.NewFromInt(int64(total)), sales.SalesPlaces)
	return &v
}

// TopCountries ranks countries by row count. Rows without a country are
// ignored; ties keep first-appearance order.
func TopCountries(rows []sales.RawRow, limit int) []CountryCount {
	index := make(map[string]int)
	var ranked []CountryCount
	for _, row := range rows {
		if row.Country == "" {
			continue
		}
		i, ok := index[row.Country]
		if !ok {
			i = len(ranked)
			index[row.Country] = i
			ranked = append(ranked, CountryCount{Country: row.Country})
		}
		ranked[i].RowCount++
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RowCount > ranked[j].RowCount
	})
	return truncate(ranked, limit)
}

type productAcc struct {
	revenue      decimal.Decimal
	descriptions []string
	valid        bool
}

// TopProducts ranks products by the sum of their rounded line sales.
// Products with no computable line are left out; ties keep first-appearance order.
func TopProducts(rows []sales.RawRow, policy sales.NamePolicy, limit int) []ProductRevenue {
	index := make(map[string]int)
	var (
		ids  []string
		accs []*productAcc
	)
	for _, row := range rows {
		if row.ProductID == "" {
			continue
		}
		i, ok := index[row.ProductID]
		if !ok {
			i = len(accs)
			index[row.ProductID] = i
			ids = append(ids, row.ProductID)
			accs = append(accs, &productAcc{revenue: decimal.Zero})
		}
		acc := accs[i]
		acc.descriptions = append(acc.descriptions, row.Description)
		if line, ok := row.LineSales(); ok {
			acc.revenue = acc.revenue.Add(line)
			acc.valid = true
		}
	}

	ranked := make([]ProductRevenue, 0, len(accs))
	for i, acc := range accs {
		if !acc.valid {
			continue
		}
		var desc string
		if name := sales.PickName(policy, acc.descriptions...); name != nil {
			desc = *name
		}
		ranked = append(ranked, ProductRevenue{
			ProductID:   ids[i],
			Description: desc,
			Revenue:     acc.revenue.Round(sales.SalesPlaces),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Revenue.GreaterThan(ranked[j].Revenue)
	})
	return truncate(ranked, limit)
}

func truncate[T any](s []T, limit int) []T {
	if limit >= 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
