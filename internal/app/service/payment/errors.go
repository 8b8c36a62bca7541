package payment

import "errors"

var (
	ErrPaymentNotCompleted = errors.New("PAYMENT_NOT_COMPLETED")
	ErrPaymentAlreadyUsed  = errors.New("payment already used")
)
