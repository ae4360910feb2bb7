package sales

// DropReason names the critical field that excluded a raw row.
type DropReason string

// Drop reasons, in the order fields are checked.
const (
	DropMissingTimestamp DropReason = "missing_timestamp"
	DropMissingInvoiceID DropReason = "missing_invoice_id"
	DropMissingProductID DropReason = "missing_product_id"
	DropMissingQuantity  DropReason = "missing_quantity"
	DropMissingUnitPrice DropReason = "missing_unit_price"
	DropMissingCountry   DropReason = "missing_country"
)

// DropReasons lists every reason in check order.
var DropReasons = []DropReason{
	DropMissingTimestamp,
	DropMissingInvoiceID,
	DropMissingProductID,
	DropMissingQuantity,
	DropMissingUnitPrice,
	DropMissingCountry,
}

// FilterResult is the outcome of excluding rows with null critical fields.
type FilterResult struct {
	Kept    []RawRow
	Dropped map[DropReason]int
}

// DroppedCount returns the total number of excluded rows.
func (f FilterResult) DroppedCount() int {
	n := 0
	for _, c := range f.Dropped {
		n += c
	}
	return n
}

// CriticalNull returns the first critical field that is null in r.
func CriticalNull(r RawRow) (DropReason, bool) {
	switch {
	case r.Timestamp == nil:
		return DropMissingTimestamp, true
	case r.InvoiceID == "":
		return DropMissingInvoiceID, true
	case r.ProductID == "":
		return DropMissingProductID, true
	case !r.Quantity.Valid:
		return DropMissingQuantity, true
	case !r.UnitPrice.Valid:
		return DropMissingUnitPrice, true
	case r.Country == "":
		return DropMissingCountry, true
	}
	return "", false
}

// FilterCritical splits rows into those usable for normalization and a count
// of dropped rows per reason. Each dropped row is counted once.
func FilterCritical(rows []RawRow) FilterResult {
	res := FilterResult{
		Kept:    make([]RawRow, 0, len(rows)),
		Dropped: make(map[DropReason]int),
	}
	for _, r := range rows {
		if reason, bad := CriticalNull(r); bad {
			res.Dropped[reason]++
			continue
		}
		res.Kept = append(res.Kept, r)
	}
	return res
}
