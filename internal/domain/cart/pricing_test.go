package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeBreakdown(t *testing.T) {
	tests := []struct {
		name         string
		unitPrice    int64
		shippingUnit int64
		qty          int
		taxRate      int64
		want         Breakdown
	}{
		{
			name:      "taxed line",
			unitPrice: 1000, shippingUnit: 100, qty: 2, taxRate: 5,
			want: Breakdown{
				SubTotal:      2000,
				ShippingTotal: 200,
				TaxFee:        100,
				ServiceFee:    20,
				Total:         2320,
			},
		},
		{
			name:      "no tax country",
			unitPrice: 2500, shippingUnit: 0, qty: 1, taxRate: 0,
			want: Breakdown{
				SubTotal:   2500,
				ServiceFee: 25,
				Total:      2525,
			},
		},
		{
			name:      "integer division truncates fees",
			unitPrice: 99, shippingUnit: 0, qty: 1, taxRate: 18,
			want: Breakdown{
				SubTotal:   99,
				TaxFee:     17, // 99 * 18 / 100
				ServiceFee: 0,  // 99 * 1 / 100
				Total:      116,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBreakdown(tt.unitPrice, tt.shippingUnit, tt.qty, tt.taxRate)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyBreakdown(t *testing.T) {
	item := CartItem{}
	item.Apply(Breakdown{SubTotal: 100, ShippingTotal: 10, TaxFee: 5, ServiceFee: 1, Total: 116})

	assert.Equal(t, int64(100), item.SubTotal)
	assert.Equal(t, int64(10), item.ShippingTotal)
	assert.Equal(t, int64(5), item.TaxFee)
	assert.Equal(t, int64(1), item.ServiceFee)
	assert.Equal(t, int64(116), item.Total)
}
