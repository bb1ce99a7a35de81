package types

import "errors"

// Version is the build version of tenantmap
var Version = "dev"

var (
	// ErrConfiguration indicates the tenant sources cannot be located at all
	ErrConfiguration = errors.New("configuration error")

	// ErrCheckout indicates a path is missing, empty or invalid in a checkout
	ErrCheckout = errors.New("checkout error")

	// ErrMalformedInput indicates a tenant source document does not have the expected shape
	ErrMalformedInput = errors.New("malformed input")
)
