package domain

// Quotation is the running, per-customer list of distinct priced line items.
// Items keep insertion order and are unique by ProductName. There is no
// removal operation: a quotation only grows during a conversation.
type Quotation struct {
	Items []LineItem `json:"items"`
}

// Contains reports whether a line for productName already exists.
func (q *Quotation) Contains(productName string) bool {
	for _, it := range q.Items {
		if it.ProductName == productName {
			return true
		}
	}
	return false
}

// Accumulate appends the items whose product is not already quoted and
// returns the ones actually added. First-seen wins: a later mention of the
// same product with another quantity does not update the existing line.
func (q *Quotation) Accumulate(items []LineItem) []LineItem {
	var added []LineItem
	for _, it := range items {
		if q.Contains(it.ProductName) {
			continue
		}
		q.Items = append(q.Items, it)
		added = append(added, it)
	}
	return added
}

// Total is the sum of every line total (already tax inclusive).
func (q *Quotation) Total() int64 {
	var total int64
	for _, it := range q.Items {
		total += it.LineTotal
	}
	return total
}

// IsEmpty reports whether the quotation has no lines.
func (q *Quotation) IsEmpty() bool {
	return len(q.Items) == 0
}
