// internal/domain/order/errors.go
package order

import (
	"errors"
	"fmt"
)

// Validation failures: the caller sent something unusable. Handlers map
// these to a 400.
var (
	ErrEmptyCart            = errors.New("cannot create an order from an empty cart")
	ErrMissingContact       = errors.New("full name, email and mobile are required")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrCouponNotFound       = errors.New("coupon not found or inactive")
	ErrCouponNotApplicable  = errors.New("coupon does not apply to any item in this order")
)

// Integrity failures: the operation would corrupt the stock ledger or the
// payment record. Handlers map these to a 404 or 409.
var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrNotDeferred    = errors.New("order payment method does not defer stock settlement")
	ErrNotPaid        = errors.New("order is not paid")
	ErrAlreadySettled = errors.New("stock already committed for this order")
	ErrAlreadyPaid    = errors.New("order is already paid")
)

// StockError reports a checkout that lost the race for inventory: the cart
// passed validation earlier but the locked re-check found too little stock.
// The user-facing message is identical to the cart-time message.
type StockError struct {
	ProductID uint
	Message   string
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: %s", e.ProductID, e.Message)
}
