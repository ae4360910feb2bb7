// Package export renders quality reports and KPI read models as flat CSV files.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/salesbi/backend/internal/domain/quality"
	"github.com/salesbi/backend/internal/domain/report"
	"github.com/shopspring/decimal"
)

// Output file names
const (
	FileQualityReport      = "data_quality_report.csv"
	FileTopCountries       = "top_countries.csv"
	FileTopProducts        = "top_products.csv"
	FileDailyKPIs          = "daily_kpis.csv"
	FileProductPerformance = "product_performance.csv"
	FileCustomerRFM        = "customer_rfm.csv"
)

// DateLayout renders civil dates
const DateLayout = "2006-01-02"

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteQualityReport writes the metric,value table. Null metrics are empty cells.
func WriteQualityReport(w io.Writer, r *quality.Report) error {
	metrics := r.Metrics()
	rows := make([][]string, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, []string{m.Name, m.Value})
	}
	return writeAll(w, []string{"metric", "value"}, rows)
}

// WriteTopCountries writes the country ranking
func WriteTopCountries(w io.Writer, countries []quality.CountryCount) error {
	rows := make([][]string, 0, len(countries))
	for _, c := range countries {
		rows = append(rows, []string{c.Country, strconv.Itoa(c.RowCount)})
	}
	return writeAll(w, []string{"country", "rows"}, rows)
}

// WriteTopProducts writes the product revenue ranking
func WriteTopProducts(w io.Writer, products []quality.ProductRevenue) error {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{p.ProductID, p.Description, money(p.Revenue)})
	}
	return writeAll(w, []string{"stock_code", "description", "revenue"}, rows)
}

// WriteDailyKPIs writes one row per order date
func WriteDailyKPIs(w io.Writer, days []report.DailyKPI) error {
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			d.Date.Format(DateLayout),
			strconv.Itoa(d.Orders),
			strconv.Itoa(d.Customers),
			money(d.Revenue),
			money(d.AvgOrderValue),
		})
	}
	return writeAll(w, []string{"order_date", "orders", "customers", "revenue", "aov"}, rows)
}

// WriteProductPerformance writes the ranked product table
func WriteProductPerformance(w io.Writer, products []report.ProductPerformance) error {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			strconv.Itoa(p.Rank),
			p.ProductID,
			p.ProductName,
			strconv.FormatInt(p.Units, 10),
			money(p.Revenue),
		})
	}
	return writeAll(w, []string{"rank", "product_id", "product_name", "units", "revenue"}, rows)
}

// WriteCustomerRFM writes one row per customer, highest monetary value first
func WriteCustomerRFM(w io.Writer, customers []report.CustomerRFM) error {
	rows := make([][]string, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, []string{
			strconv.FormatInt(c.CustomerID, 10),
			c.LastOrderDate.Format(DateLayout),
			strconv.Itoa(c.RecencyDays),
			strconv.Itoa(c.FrequencyOrders),
			money(c.MonetaryRevenue),
		})
	}
	return writeAll(w, []string{"customer_id", "last_order_date", "recency_days", "frequency_orders", "monetary_revenue"}, rows)
}
