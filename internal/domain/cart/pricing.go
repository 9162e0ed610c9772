// internal/domain/cart/pricing.go
package cart

// Service fee charged on every line, as a percentage of the sub total.
const serviceFeePercent = 1

// Breakdown is the money split for one line. All amounts are in cents.
type Breakdown struct {
	SubTotal      int64 `json:"sub_total"`
	ShippingTotal int64 `json:"shipping_total"`
	TaxFee        int64 `json:"tax_fee"`
	ServiceFee    int64 `json:"service_fee"`
	Total         int64 `json:"total"`
}

// ComputeBreakdown is the single pricing formula for cart lines and order
// items. taxRate is a whole percentage for the destination country.
func ComputeBreakdown(unitPrice, shippingUnit int64, qty int, taxRate int64) Breakdown {
	subTotal := unitPrice * int64(qty)
	shipping := shippingUnit * int64(qty)
	taxFee := subTotal * taxRate / 100
	serviceFee := subTotal * serviceFeePercent / 100

	return Breakdown{
		SubTotal:      subTotal,
		ShippingTotal: shipping,
		TaxFee:        taxFee,
		ServiceFee:    serviceFee,
		Total:         subTotal + shipping + taxFee + serviceFee,
	}
}

// Apply copies a breakdown onto a cart line
func (item *CartItem) Apply(b Breakdown) {
	item.SubTotal = b.SubTotal
	item.ShippingTotal = b.ShippingTotal
	item.TaxFee = b.TaxFee
	item.ServiceFee = b.ServiceFee
	item.Total = b.Total
}
