package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/salesbi/backend/internal/domain/quality"
	"github.com/salesbi/backend/internal/domain/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWriteQualityReport(t *testing.T) {
	t.Run("populated report", func(t *testing.T) {
		pct := dec("33.333").Round(2)
		start := time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
		r := &quality.Report{
			TotalRows:           3,
			MissingCustomerRows: 1,
			MissingCustomerPct:  &pct,
			DateRangeStart:      &start,
			DateRangeEnd:        &start,
		}

		var buf bytes.Buffer
		require.NoError(t, WriteQualityReport(&buf, r))
		out := buf.String()

		assert.Contains(t, out, "metric,value\n")
		assert.Contains(t, out, "total_rows,3\n")
		assert.Contains(t, out, "missing_customer_pct,33.33\n")
		assert.Contains(t, out, "date_range_start,2010-12-01 08:26:00\n")
	})

	t.Run("empty report renders null percentages as empty cells", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteQualityReport(&buf, &quality.Report{}))
		out := buf.String()

		assert.Contains(t, out, "total_rows,0\n")
		assert.Contains(t, out, "cancellation_pct,\n")
		assert.Contains(t, out, "date_range_end,\n")
		assert.Equal(t, 17, bytes.Count(buf.Bytes(), []byte("\n")))
	})
}

func TestWriteRankings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTopCountries(&buf, []quality.CountryCount{
		{Country: "United Kingdom", RowCount: 2},
		{Country: "France", RowCount: 1},
	}))
	assert.Equal(t, "country,rows\nUnited Kingdom,2\nFrance,1\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteTopProducts(&buf, []quality.ProductRevenue{
		{ProductID: "85123A", Description: "WHITE HANGING HEART, T-LIGHT HOLDER", Revenue: dec("15.3")},
	}))
	assert.Equal(t,
		"stock_code,description,revenue\n85123A,\"WHITE HANGING HEART, T-LIGHT HOLDER\",15.30\n",
		buf.String())
}

func TestWriteKPIs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDailyKPIs(&buf, []report.DailyKPI{
		{Date: day(2010, 12, 1), Orders: 2, Customers: 1, Revenue: dec("30"), AvgOrderValue: dec("15")},
	}))
	assert.Equal(t, "order_date,orders,customers,revenue,aov\n2010-12-01,2,1,30.00,15.00\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteProductPerformance(&buf, []report.ProductPerformance{
		{Rank: 1, ProductID: "22423", ProductName: "", Units: 12, Revenue: dec("153")},
	}))
	assert.Equal(t, "rank,product_id,product_name,units,revenue\n1,22423,,12,153.00\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteCustomerRFM(&buf, []report.CustomerRFM{
		{CustomerID: 17850, LastOrderDate: day(2010, 12, 1), RecencyDays: 8, FrequencyOrders: 3, MonetaryRevenue: dec("99.5")},
	}))
	assert.Equal(t,
		"customer_id,last_order_date,recency_days,frequency_orders,monetary_revenue\n17850,2010-12-01,8,3,99.50\n",
		buf.String())
}

func TestWriteEmptyTables(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDailyKPIs(&buf, nil))
	assert.Equal(t, "order_date,orders,customers,revenue,aov\n", buf.String())
}
