package domain

import "errors"

var (
	// ErrOrderNotFound is returned by cancel when no resting order matches
	// the (client id, order id) pair. The book is left unchanged.
	ErrOrderNotFound = errors.New("order not found")

	ErrInvalidSide     = errors.New("side has to be BUY or SELL")
	ErrInvalidQuantity = errors.New("quantity has to be positive")
)
