package domain

import "errors"

// RegistryError is a tagged failure returned by registry operations. Code is stable across transports.
type RegistryError struct {
	Code    uint32
	Name    string
	Message string
}

func (e *RegistryError) Error() string {
	return e.Message
}

var (
	ErrNotAuthorized           = &RegistryError{Code: 100, Name: "NotAuthorized", Message: "Caller is not authorized"}
	ErrInvalidPortfolio        = &RegistryError{Code: 101, Name: "InvalidPortfolio", Message: "Invalid portfolio"}
	ErrInsufficientBalance     = &RegistryError{Code: 102, Name: "InsufficientBalance", Message: "Insufficient balance"}
	ErrInvalidToken            = &RegistryError{Code: 103, Name: "InvalidToken", Message: "Invalid token"}
	ErrRebalanceFailed         = &RegistryError{Code: 104, Name: "RebalanceFailed", Message: "Rebalance failed"}
	ErrPortfolioExists         = &RegistryError{Code: 105, Name: "PortfolioExists", Message: "Portfolio already exists"}
	ErrInvalidPercentage       = &RegistryError{Code: 106, Name: "InvalidPercentage", Message: "Percentage must be between 0 and 10000 basis points"}
	ErrMaxAssetsExceeded       = &RegistryError{Code: 107, Name: "MaxAssetsExceeded", Message: "A portfolio holds at most 10 assets"}
	ErrLengthMismatch          = &RegistryError{Code: 108, Name: "LengthMismatch", Message: "Tokens and percentages must have the same length"}
	ErrStorageCapacityExceeded = &RegistryError{Code: 109, Name: "StorageCapacityExceeded", Message: "Owner already holds the maximum number of portfolios"}
	ErrInvalidTokenID          = &RegistryError{Code: 110, Name: "InvalidTokenId", Message: "Invalid token slot"}
)

// AsRegistryError unwraps err to a RegistryError if it carries one.
func AsRegistryError(err error) (*RegistryError, bool) {
	var re *RegistryError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
