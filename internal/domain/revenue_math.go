package domain

// RevenueTotals is the mutable part of a RevenueAggregate.
// All operations return a new value and leave the receiver untouched.
type RevenueTotals struct {
	InvoiceCount       int64 `json:"invoiceCount"`
	TotalAmount        int64 `json:"totalAmount"`
	TotalPaidAmount    int64 `json:"totalPaidAmount"`
	TotalPendingAmount int64 `json:"totalPendingAmount"`
}

// Add accounts for a newly eligible invoice
func (t RevenueTotals) Add(status InvoiceStatus, amount int64) RevenueTotals {
	t.InvoiceCount++
	t.TotalAmount += amount
	t = t.addToBucket(Bucket(status), amount)
	return t
}

// Remove withdraws an invoice that stopped being eligible or was deleted.
// Every field is floored at zero.
func (t RevenueTotals) Remove(status InvoiceStatus, amount int64) RevenueTotals {
	t.InvoiceCount = floorZero(t.InvoiceCount - 1)
	t.TotalAmount = floorZero(t.TotalAmount - amount)
	t = t.removeFromBucket(Bucket(status), amount)
	return t
}

// ChangeAmount applies the difference between two amounts of an invoice
// that stays eligible. Unlike Remove, the result is not floored at zero.
func (t RevenueTotals) ChangeAmount(status InvoiceStatus, oldAmount, newAmount int64) RevenueTotals {
	delta := newAmount - oldAmount
	t.TotalAmount += delta
	t = t.addToBucket(Bucket(status), delta)
	return t
}

// MoveBucket shifts an amount between the paid and pending sub-totals.
// Count and total are unchanged.
func (t RevenueTotals) MoveBucket(from, to InvoiceStatus, amount int64) RevenueTotals {
	t = t.removeFromBucket(Bucket(from), amount)
	t = t.addToBucket(Bucket(to), amount)
	return t
}

// IsZero reports whether no eligible invoice contributes to the totals
func (t RevenueTotals) IsZero() bool {
	return t == RevenueTotals{}
}

func (t RevenueTotals) addToBucket(bucket RevenueBucket, amount int64) RevenueTotals {
	switch bucket {
	case BucketPaid:
		t.TotalPaidAmount += amount
	case BucketPending:
		t.TotalPendingAmount += amount
	}
	return t
}

func (t RevenueTotals) removeFromBucket(bucket RevenueBucket, amount int64) RevenueTotals {
	switch bucket {
	case BucketPaid:
		t.TotalPaidAmount = floorZero(t.TotalPaidAmount - amount)
	case BucketPending:
		t.TotalPendingAmount = floorZero(t.TotalPendingAmount - amount)
	}
	return t
}

func floorZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
