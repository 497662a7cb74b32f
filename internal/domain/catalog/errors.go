package catalog

import "errors"

var (
	ErrMissingTitle      = errors.New("missing title")
	ErrMissingIdentifier = errors.New("missing upsert identifier")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidCurrency   = errors.New("invalid currency code")
	ErrInvalidInventory  = errors.New("invalid inventory quantity")
	ErrInvalidImageURL   = errors.New("invalid image url")
)
