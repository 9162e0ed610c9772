// internal/domain/order/metrics.go
package order

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created, by payment method",
		},
		[]string{"payment_method"},
	)

	stockConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_stock_conflicts_total",
			Help: "Checkouts rejected because a locked re-check found too little stock",
		},
	)

	settlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_settlements_total",
			Help: "Deferred-payment stock settlements, by result",
		},
		[]string{"result"},
	)

	ordersPaidTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_paid_total",
			Help: "Orders marked paid, by payment method",
		},
		[]string{"payment_method"},
	)

	couponsAppliedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_coupons_applied_total",
			Help: "Coupons successfully applied to order items",
		},
	)
)
