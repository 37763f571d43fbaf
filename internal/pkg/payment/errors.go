package payment

import "errors"

// Sentinel errors mapped to HTTP statuses by the controllers.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrPageNotFound     = errors.New("page not found")
	ErrAlreadyPaid      = errors.New("page is already paid and published")
	ErrNotPaid          = errors.New("page has no successful payment")
	ErrNoCustomer       = errors.New("user has no payment customer on file")
	ErrNoMatchingCharge = errors.New("no succeeded charge found for page")
)
