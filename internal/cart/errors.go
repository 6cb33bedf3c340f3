package cart

import "errors"

var (
	ErrNotAuthenticated = errors.New("user is not authenticated")
	ErrItemNotFound     = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrExceedsStock     = errors.New("quantity exceeds available stock")
)
